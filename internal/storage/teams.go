package storage

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/anishesg/internship-discord-bot/internal/models"
)

// TeamStore persists team records keyed by teamId.
type TeamStore struct {
	col *firestore.CollectionRef
}

func NewTeamStore(c *Client) *TeamStore {
	return &TeamStore{col: c.fs.Collection(collTeams)}
}

// Get returns the team record, or nil when none exists.
func (s *TeamStore) Get(ctx context.Context, teamID string) (*models.Team, error) {
	doc, err := s.col.Doc(teamID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get team %s: %w", teamID, err)
	}
	var team models.Team
	if err := doc.DataTo(&team); err != nil {
		return nil, fmt.Errorf("failed to unmarshal team %s: %w", teamID, err)
	}
	team.TeamID = doc.Ref.ID
	return &team, nil
}

func (s *TeamStore) Save(ctx context.Context, team *models.Team) error {
	if _, err := s.col.Doc(team.TeamID).Set(ctx, team); err != nil {
		return fmt.Errorf("failed to save team %s: %w", team.TeamID, err)
	}
	return nil
}

// List returns all teams sorted by teamId.
func (s *TeamStore) List(ctx context.Context) ([]*models.Team, error) {
	iter := s.col.Documents(ctx)
	defer iter.Stop()

	var teams []*models.Team
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list teams: %w", err)
		}
		var team models.Team
		if err := doc.DataTo(&team); err != nil {
			return nil, fmt.Errorf("failed to unmarshal team %s: %w", doc.Ref.ID, err)
		}
		team.TeamID = doc.Ref.ID
		teams = append(teams, &team)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].TeamID < teams[j].TeamID })
	return teams, nil
}
