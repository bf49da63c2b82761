package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/anishesg/internship-discord-bot/internal/models"
)

// UserStore abstracts the persisted per-user ledger records.
type UserStore interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]*models.User, error)
}

// TaskStore abstracts the per-(user, date) task buckets.
type TaskStore interface {
	GetDay(ctx context.Context, userID, date string) (*models.TaskDay, error)
	SaveDay(ctx context.Context, day *models.TaskDay) error
}

// TeamStore abstracts persisted team records.
type TeamStore interface {
	Get(ctx context.Context, teamID string) (*models.Team, error)
	Save(ctx context.Context, team *models.Team) error
	List(ctx context.Context) ([]*models.Team, error)
}

// SeasonStore abstracts the current-season record.
type SeasonStore interface {
	GetCurrent(ctx context.Context) (*models.Season, error)
	SaveCurrent(ctx context.Context, season *models.Season) error
}

// Ledger owns every mutation of user point counters, streaks, tasks and team
// membership. All mutations for a user run inside that user's critical
// section so interleaved toggles cannot lose updates.
type Ledger struct {
	users   UserStore
	tasks   TaskStore
	teams   TeamStore
	seasons SeasonStore

	classifier      Classifier
	streakThreshold int

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex

	now func() time.Time
}

func New(users UserStore, tasks TaskStore, teams TeamStore, seasons SeasonStore, streakThreshold int) *Ledger {
	return &Ledger{
		users:           users,
		tasks:           tasks,
		teams:           teams,
		seasons:         seasons,
		classifier:      KeywordClassifier{},
		streakThreshold: streakThreshold,
		userLocks:       make(map[string]*sync.Mutex),
		now:             time.Now,
	}
}

// SetClassifier swaps the task-trait classifier. The keyword default is
// best-effort, not authoritative.
func (l *Ledger) SetClassifier(c Classifier) {
	if c != nil {
		l.classifier = c
	}
}

func (l *Ledger) lockUser(userID string) func() {
	l.mu.Lock()
	m, ok := l.userLocks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.userLocks[userID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// GetOrCreate returns the user record, creating it with zeroed counters on
// first interaction. Username is refreshed when it changed.
func (l *Ledger) GetOrCreate(ctx context.Context, userID, username string) (*models.User, error) {
	unlock := l.lockUser(userID)
	defer unlock()
	return l.getOrCreateLocked(ctx, userID, username)
}

func (l *Ledger) getOrCreateLocked(ctx context.Context, userID, username string) (*models.User, error) {
	user, err := l.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &models.User{UserID: userID, Username: username}
		if err := l.users.Save(ctx, user); err != nil {
			return nil, err
		}
		slog.Info("Created user", "userID", userID)
		return user, nil
	}
	if username != "" && user.Username != username {
		user.Username = username
		if err := l.users.Save(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// PointsForDifficulty maps a 1..10 difficulty onto a task's point value.
// Out-of-range values are clamped.
func PointsForDifficulty(difficulty int) int {
	if difficulty < 1 {
		difficulty = 1
	}
	if difficulty > 10 {
		difficulty = 10
	}
	return difficulty * 10
}

// SetTasks replaces the entire task list for (user, date). Point counters
// are untouched; completion state of replaced tasks is discarded.
func (l *Ledger) SetTasks(ctx context.Context, userID, username, date string, drafts []models.Task) (*models.TaskDay, error) {
	unlock := l.lockUser(userID)
	defer unlock()

	if _, err := l.getOrCreateLocked(ctx, userID, username); err != nil {
		return nil, err
	}

	day := &models.TaskDay{UserID: userID, Date: date}
	for i, draft := range drafts {
		task := models.Task{
			ID:          fmt.Sprintf("t%d", i+1),
			Description: draft.Description,
			Category:    models.ParseTaskCategory(string(draft.Category)),
			Difficulty:  clampDifficulty(draft.Difficulty),
		}
		task.Points = PointsForDifficulty(task.Difficulty)
		day.Tasks = append(day.Tasks, task)
	}
	if err := l.tasks.SaveDay(ctx, day); err != nil {
		return nil, err
	}
	return day, nil
}

func clampDifficulty(d int) int {
	if d < 1 {
		return 1
	}
	if d > 10 {
		return 10
	}
	return d
}

// GetTasks returns the bucket for (user, date); absent buckets are empty.
func (l *Ledger) GetTasks(ctx context.Context, userID, date string) (*models.TaskDay, error) {
	return l.tasks.GetDay(ctx, userID, date)
}

// CompleteTask marks the task complete and credits its points to the today,
// weekly, season and lifetime counters together. Completing an
// already-complete task is a no-op returning the current state. Category
// counters move with the same transition: internship points for internship
// tasks, application/interview-prep counts per the classifier.
func (l *Ledger) CompleteTask(ctx context.Context, userID, date, taskID string) (*models.Task, error) {
	unlock := l.lockUser(userID)
	defer unlock()

	day, err := l.tasks.GetDay(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	task := day.FindTask(taskID)
	if task == nil {
		return nil, fmt.Errorf("%w: %s on %s", models.ErrTaskNotFound, taskID, date)
	}
	if task.Completed {
		done := *task
		return &done, nil
	}

	user, err := l.getOrCreateLocked(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	task.Completed = true
	task.CompletedAt = l.now().UTC()
	if err := l.tasks.SaveDay(ctx, day); err != nil {
		return nil, err
	}

	l.applyTaskPoints(user, task, +1)
	if err := l.users.Save(ctx, user); err != nil {
		// Counters and completion must move together; undo the bucket write.
		task.Completed = false
		task.CompletedAt = time.Time{}
		if revertErr := l.tasks.SaveDay(ctx, day); revertErr != nil {
			slog.Error("Failed to revert task completion after counter write failure", "userID", userID, "taskID", taskID, "error", revertErr)
		}
		return nil, fmt.Errorf("failed to credit points: %w", err)
	}

	done := *task
	return &done, nil
}

// UncompleteTask is the inverse of CompleteTask: it debits the same point
// value from the same four counters, floored at zero, only when the task is
// currently complete.
func (l *Ledger) UncompleteTask(ctx context.Context, userID, date, taskID string) (*models.Task, error) {
	unlock := l.lockUser(userID)
	defer unlock()

	day, err := l.tasks.GetDay(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	task := day.FindTask(taskID)
	if task == nil {
		return nil, fmt.Errorf("%w: %s on %s", models.ErrTaskNotFound, taskID, date)
	}
	if !task.Completed {
		undone := *task
		return &undone, nil
	}

	user, err := l.getOrCreateLocked(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	task.Completed = false
	task.CompletedAt = time.Time{}
	if err := l.tasks.SaveDay(ctx, day); err != nil {
		return nil, err
	}

	l.applyTaskPoints(user, task, -1)
	if err := l.users.Save(ctx, user); err != nil {
		task.Completed = true
		task.CompletedAt = l.now().UTC()
		if revertErr := l.tasks.SaveDay(ctx, day); revertErr != nil {
			slog.Error("Failed to revert task uncompletion after counter write failure", "userID", userID, "taskID", taskID, "error", revertErr)
		}
		return nil, fmt.Errorf("failed to debit points: %w", err)
	}

	undone := *task
	return &undone, nil
}

// applyTaskPoints moves a task's contribution in or out of the user's
// counters. sign is +1 on completion and -1 on uncompletion; debits floor
// at zero.
func (l *Ledger) applyTaskPoints(user *models.User, task *models.Task, sign int) {
	delta := sign * task.Points
	user.TodayPoints = floorZero(user.TodayPoints + delta)
	user.WeeklyPoints = floorZero(user.WeeklyPoints + delta)
	user.SeasonPoints = floorZero(user.SeasonPoints + delta)
	user.LifetimePoints = floorZero(user.LifetimePoints + delta)

	if task.Category == models.TaskInternship {
		user.InternshipPoints = floorZero(user.InternshipPoints + delta)
	}
	traits := l.classifier.Classify(task.Description)
	if traits.Application {
		user.ApplicationsSubmitted = floorZero(user.ApplicationsSubmitted + sign)
	}
	if traits.InterviewPrep {
		user.InterviewPrepsDone = floorZero(user.InterviewPrepsDone + sign)
	}
}

func floorZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// UpdateStreak applies the streak transition for pointsEarnedToday: below
// the threshold nothing changes; at or above it, a last-active date of
// yesterday extends the streak, today leaves it as is, and anything older
// (or never) resets it to 1. The last-active date moves to today whenever
// the streak is touched.
func (l *Ledger) UpdateStreak(ctx context.Context, userID string, pointsEarnedToday int) (*models.User, error) {
	unlock := l.lockUser(userID)
	defer unlock()

	user, err := l.getOrCreateLocked(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	if !l.applyStreak(user, pointsEarnedToday) {
		return user, nil
	}
	if err := l.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (l *Ledger) applyStreak(user *models.User, pointsEarnedToday int) bool {
	if pointsEarnedToday < l.streakThreshold {
		return false
	}
	today := l.now().UTC()
	todayStr := today.Format(models.DateFormat)
	yesterdayStr := today.AddDate(0, 0, -1).Format(models.DateFormat)

	switch user.LastActiveDate {
	case todayStr:
		// Already counted today.
	case yesterdayStr:
		user.StreakDays++
	default:
		user.StreakDays = 1
	}
	user.LastActiveDate = todayStr
	return true
}

// DailyRollover runs the end-of-day bookkeeping for every user: streak
// update from the day's earned points, then the today counter resets.
func (l *Ledger) DailyRollover(ctx context.Context) error {
	users, err := l.users.List(ctx)
	if err != nil {
		return fmt.Errorf("daily rollover: %w", err)
	}
	var errs []error
	for _, u := range users {
		unlock := l.lockUser(u.UserID)
		user, err := l.users.Get(ctx, u.UserID)
		if err != nil || user == nil {
			unlock()
			errs = append(errs, err)
			continue
		}
		l.applyStreak(user, user.TodayPoints)
		user.TodayPoints = 0
		if err := l.users.Save(ctx, user); err != nil {
			errs = append(errs, err)
		}
		unlock()
	}
	return errors.Join(errs...)
}

// ResetWeeklyPoints zeroes every user's weekly counter. Today, season and
// lifetime counters are untouched.
func (l *Ledger) ResetWeeklyPoints(ctx context.Context) error {
	users, err := l.users.List(ctx)
	if err != nil {
		return fmt.Errorf("weekly reset: %w", err)
	}
	var errs []error
	for _, u := range users {
		unlock := l.lockUser(u.UserID)
		user, err := l.users.Get(ctx, u.UserID)
		if err != nil || user == nil {
			unlock()
			errs = append(errs, err)
			continue
		}
		user.WeeklyPoints = 0
		if err := l.users.Save(ctx, user); err != nil {
			errs = append(errs, err)
		}
		unlock()
	}
	return errors.Join(errs...)
}

// JoinTeam adds the user to a team, creating the team on first join and
// removing any prior membership first.
func (l *Ledger) JoinTeam(ctx context.Context, userID, username, teamID, teamName string) (*models.Team, error) {
	unlock := l.lockUser(userID)
	defer unlock()

	user, err := l.getOrCreateLocked(ctx, userID, username)
	if err != nil {
		return nil, err
	}

	if user.TeamID != "" && user.TeamID != teamID {
		if err := l.removeFromTeam(ctx, user.TeamID, userID); err != nil {
			return nil, err
		}
	}

	team, err := l.teams.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		name := teamName
		if name == "" {
			name = teamID
		}
		team = &models.Team{TeamID: teamID, Name: name}
	}
	if !team.HasMember(userID) {
		team.Members = append(team.Members, userID)
	}
	if err := l.teams.Save(ctx, team); err != nil {
		return nil, err
	}

	user.TeamID = teamID
	if err := l.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return team, nil
}

// GetTeam returns a team record by id.
func (l *Ledger) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	team, err := l.teams.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrTeamNotFound, teamID)
	}
	return team, nil
}

// LeaveTeam removes the user from their current team, if any.
func (l *Ledger) LeaveTeam(ctx context.Context, userID string) error {
	unlock := l.lockUser(userID)
	defer unlock()

	user, err := l.getOrCreateLocked(ctx, userID, "")
	if err != nil {
		return err
	}
	if user.TeamID == "" {
		return nil
	}
	if err := l.removeFromTeam(ctx, user.TeamID, userID); err != nil {
		return err
	}
	user.TeamID = ""
	return l.users.Save(ctx, user)
}

func (l *Ledger) removeFromTeam(ctx context.Context, teamID, userID string) error {
	team, err := l.teams.Get(ctx, teamID)
	if err != nil {
		return err
	}
	if team == nil {
		return nil
	}
	team.RemoveMember(userID)
	return l.teams.Save(ctx, team)
}

// StartSeason closes out the current season and opens a new one: users who
// scored this season get a seasonsPlayed credit and a bestRank update, then
// everyone's season counter resets.
func (l *Ledger) StartSeason(ctx context.Context, name string) (*models.Season, error) {
	current, err := l.seasons.GetCurrent(ctx)
	if err != nil {
		return nil, err
	}
	number := 1
	if current != nil {
		number = current.Number + 1
	}

	users, err := l.users.List(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u.SeasonPoints > 0 {
			ranked = append(ranked, u)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].SeasonPoints > ranked[j].SeasonPoints })
	finalRank := make(map[string]int, len(ranked))
	for i, u := range ranked {
		finalRank[u.UserID] = i + 1
	}

	var errs []error
	for _, u := range users {
		unlock := l.lockUser(u.UserID)
		user, err := l.users.Get(ctx, u.UserID)
		if err != nil || user == nil {
			unlock()
			errs = append(errs, err)
			continue
		}
		if rank, ok := finalRank[user.UserID]; ok {
			user.SeasonsPlayed++
			if user.BestRank == 0 || rank < user.BestRank {
				user.BestRank = rank
			}
		}
		user.SeasonPoints = 0
		if err := l.users.Save(ctx, user); err != nil {
			errs = append(errs, err)
		}
		unlock()
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	season := &models.Season{Number: number, Name: name, StartedAt: l.now().UTC()}
	if err := l.seasons.SaveCurrent(ctx, season); err != nil {
		return nil, err
	}
	slog.Info("Started season", "number", number, "name", name)
	return season, nil
}
