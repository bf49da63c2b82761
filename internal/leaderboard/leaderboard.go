package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/anishesg/internship-discord-bot/internal/models"
)

// Metric names a rankable counter.
type Metric string

const (
	MetricToday      Metric = "today"
	MetricWeek       Metric = "week"
	MetricSeason     Metric = "season"
	MetricInternship Metric = "internship"
	MetricStreak     Metric = "streak"
)

// ParseMetric resolves a metric query value.
func ParseMetric(s string) (Metric, bool) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case MetricToday:
		return MetricToday, true
	case MetricWeek:
		return MetricWeek, true
	case MetricSeason:
		return MetricSeason, true
	case MetricInternship:
		return MetricInternship, true
	case MetricStreak:
		return MetricStreak, true
	default:
		return "", false
	}
}

func metricValue(u *models.User, m Metric) int {
	switch m {
	case MetricToday:
		return u.TodayPoints
	case MetricWeek:
		return u.WeeklyPoints
	case MetricSeason:
		return u.SeasonPoints
	case MetricInternship:
		return u.InternshipPoints
	case MetricStreak:
		return u.StreakDays
	default:
		return 0
	}
}

// UserStore is the read side of the user ledger needed for ranking.
type UserStore interface {
	List(ctx context.Context) ([]*models.User, error)
}

// TeamStore is the read side of team records needed for team ranking.
type TeamStore interface {
	List(ctx context.Context) ([]*models.Team, error)
}

// Entry is one ranked row.
type Entry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Value    int    `json:"value"`
}

// TeamEntry is one ranked team row; the value sums member metrics over the
// membership at query time.
type TeamEntry struct {
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
	Value  int    `json:"value"`
}

// Aggregator derives ranked views over the ledger and teams.
type Aggregator struct {
	users UserStore
	teams TeamStore
}

func New(users UserStore, teams TeamStore) *Aggregator {
	return &Aggregator{users: users, teams: teams}
}

// Rank returns up to limit users ordered descending by metric, excluding
// values of zero or less. Ties keep the store's order, which the user store
// makes stable by sorting on userId.
func (a *Aggregator) Rank(ctx context.Context, metric Metric, limit int) ([]Entry, error) {
	users, err := a.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("rank %s: %w", metric, err)
	}

	var entries []Entry
	for _, u := range users {
		if v := metricValue(u, metric); v > 0 {
			entries = append(entries, Entry{UserID: u.UserID, Username: u.Username, Value: v})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Value > entries[j].Value })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// RankTeams ranks teams by the summed member metric.
func (a *Aggregator) RankTeams(ctx context.Context, metric Metric, limit int) ([]TeamEntry, error) {
	teams, err := a.teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("rank teams %s: %w", metric, err)
	}
	users, err := a.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("rank teams %s: %w", metric, err)
	}

	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.UserID] = u
	}

	var entries []TeamEntry
	for _, t := range teams {
		total := 0
		for _, member := range t.Members {
			if u, ok := byID[member]; ok {
				total += metricValue(u, metric)
			}
		}
		if total > 0 {
			entries = append(entries, TeamEntry{TeamID: t.TeamID, Name: t.Name, Value: total})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Value > entries[j].Value })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
