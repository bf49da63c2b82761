package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collSeenListings = "seen_listings"
	collUsers        = "users"
	collTaskDays     = "task_days"
	collTeams        = "teams"
	collSeasons      = "seasons"

	currentSeasonDoc = "current"
)

// Client owns the Firestore connection shared by the per-entity stores.
type Client struct {
	fs *firestore.Client
}

func New(ctx context.Context, projectID string) (*Client, error) {
	fs, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &Client{fs: fs}, nil
}

func (c *Client) Close() error {
	return c.fs.Close()
}

// isNotFound maps the Firestore NotFound status; "absent" is not an error
// for any of the stores here.
func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
