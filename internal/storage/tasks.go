package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/anishesg/internship-discord-bot/internal/models"
)

// TaskStore persists per-(user, date) task buckets.
type TaskStore struct {
	col *firestore.CollectionRef
}

func NewTaskStore(c *Client) *TaskStore {
	return &TaskStore{col: c.fs.Collection(collTaskDays)}
}

func bucketID(userID, date string) string {
	return userID + "_" + date
}

// GetDay returns the task bucket for (user, date). An absent bucket yields
// an empty day, not an error.
func (s *TaskStore) GetDay(ctx context.Context, userID, date string) (*models.TaskDay, error) {
	doc, err := s.col.Doc(bucketID(userID, date)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return &models.TaskDay{UserID: userID, Date: date}, nil
		}
		return nil, fmt.Errorf("failed to get tasks for %s on %s: %w", userID, date, err)
	}
	var day models.TaskDay
	if err := doc.DataTo(&day); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tasks for %s on %s: %w", userID, date, err)
	}
	return &day, nil
}

// SaveDay writes the whole bucket, replacing any prior contents.
func (s *TaskStore) SaveDay(ctx context.Context, day *models.TaskDay) error {
	if _, err := s.col.Doc(bucketID(day.UserID, day.Date)).Set(ctx, day); err != nil {
		return fmt.Errorf("failed to save tasks for %s on %s: %w", day.UserID, day.Date, err)
	}
	return nil
}
