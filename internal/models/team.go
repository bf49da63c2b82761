package models

import "time"

// Team groups users for aggregated leaderboards. A user belongs to at most
// one team; joining removes any prior membership. Weekly/season team points
// are derived from member ledgers at query time, never stored.
type Team struct {
	TeamID  string   `firestore:"-"`
	Name    string   `firestore:"name"`
	Members []string `firestore:"members"`
}

// HasMember reports whether userID is in the member set.
func (t *Team) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// RemoveMember deletes userID from the member set, if present.
func (t *Team) RemoveMember(userID string) {
	out := t.Members[:0]
	for _, m := range t.Members {
		if m != userID {
			out = append(out, m)
		}
	}
	t.Members = out
}

// Season is the bounded window over which seasonPoints accumulate.
type Season struct {
	Number    int       `firestore:"number"`
	Name      string    `firestore:"name"`
	StartedAt time.Time `firestore:"startedAt"`
}
