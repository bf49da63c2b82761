package storage

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/anishesg/internship-discord-bot/internal/models"
)

// UserStore persists per-user ledger records keyed by userId.
type UserStore struct {
	col *firestore.CollectionRef
}

func NewUserStore(c *Client) *UserStore {
	return &UserStore{col: c.fs.Collection(collUsers)}
}

// Get returns the user record, or nil when none exists.
func (s *UserStore) Get(ctx context.Context, userID string) (*models.User, error) {
	doc, err := s.col.Doc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user %s: %w", userID, err)
	}
	user.UserID = doc.Ref.ID
	return &user, nil
}

// Save writes the full user record.
func (s *UserStore) Save(ctx context.Context, user *models.User) error {
	if _, err := s.col.Doc(user.UserID).Set(ctx, user); err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.UserID, err)
	}
	return nil
}

// List returns all user records sorted by userId so downstream ranking has a
// stable iteration order.
func (s *UserStore) List(ctx context.Context) ([]*models.User, error) {
	iter := s.col.Documents(ctx)
	defer iter.Stop()

	var users []*models.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		var user models.User
		if err := doc.DataTo(&user); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user %s: %w", doc.Ref.ID, err)
		}
		user.UserID = doc.Ref.ID
		users = append(users, &user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users, nil
}
