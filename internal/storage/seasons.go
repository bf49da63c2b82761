package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/anishesg/internship-discord-bot/internal/models"
)

// SeasonStore persists the current season record.
type SeasonStore struct {
	col *firestore.CollectionRef
}

func NewSeasonStore(c *Client) *SeasonStore {
	return &SeasonStore{col: c.fs.Collection(collSeasons)}
}

// GetCurrent returns the active season, or nil before the first season
// starts.
func (s *SeasonStore) GetCurrent(ctx context.Context) (*models.Season, error) {
	doc, err := s.col.Doc(currentSeasonDoc).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get current season: %w", err)
	}
	var season models.Season
	if err := doc.DataTo(&season); err != nil {
		return nil, fmt.Errorf("failed to unmarshal current season: %w", err)
	}
	return &season, nil
}

func (s *SeasonStore) SaveCurrent(ctx context.Context, season *models.Season) error {
	if _, err := s.col.Doc(currentSeasonDoc).Set(ctx, season); err != nil {
		return fmt.Errorf("failed to save current season: %w", err)
	}
	return nil
}
