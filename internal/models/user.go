package models

import "errors"

// ErrTaskNotFound is returned when a task id is not present in the addressed
// (user, date) bucket.
var ErrTaskNotFound = errors.New("task not found")

// ErrTeamNotFound is returned when a team id has no record.
var ErrTeamNotFound = errors.New("team not found")

// DateFormat is the calendar-date encoding used for task buckets and streak
// bookkeeping. All dates are UTC.
const DateFormat = "2006-01-02"

// User is the per-user ledger record. Created lazily with zeroed counters on
// first interaction and mutated only through ledger operations.
type User struct {
	UserID                string `firestore:"-"`
	Username              string `firestore:"username"`
	TodayPoints           int    `firestore:"todayPoints"`
	WeeklyPoints          int    `firestore:"weeklyPoints"`
	SeasonPoints          int    `firestore:"seasonPoints"`
	LifetimePoints        int    `firestore:"lifetimePoints"`
	InternshipPoints      int    `firestore:"internshipPoints"`
	ApplicationsSubmitted int    `firestore:"applicationsSubmitted"`
	InterviewPrepsDone    int    `firestore:"interviewPrepsDone"`
	StreakDays            int    `firestore:"streakDays"`
	LastActiveDate        string `firestore:"lastActiveDate,omitempty"`
	TeamID                string `firestore:"teamID,omitempty"`
	SeasonsPlayed         int    `firestore:"seasonsPlayed"`
	BestRank              int    `firestore:"bestRank,omitempty"`
}
