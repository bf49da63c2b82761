package ledger

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/anishesg/internship-discord-bot/internal/models"
)

// --- In-memory store implementations ---

type memUserStore struct {
	users map[string]models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]models.User)}
}

func (m *memUserStore) Get(_ context.Context, userID string) (*models.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	copy := u
	return &copy, nil
}

func (m *memUserStore) Save(_ context.Context, user *models.User) error {
	m.users[user.UserID] = *user
	return nil
}

func (m *memUserStore) List(_ context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, id := range sortedKeys(m.users) {
		u := m.users[id]
		out = append(out, &u)
	}
	return out, nil
}

type memTaskStore struct {
	days map[string]models.TaskDay
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{days: make(map[string]models.TaskDay)}
}

func (m *memTaskStore) GetDay(_ context.Context, userID, date string) (*models.TaskDay, error) {
	d, ok := m.days[userID+"_"+date]
	if !ok {
		return &models.TaskDay{UserID: userID, Date: date}, nil
	}
	copy := d
	copy.Tasks = append([]models.Task(nil), d.Tasks...)
	return &copy, nil
}

func (m *memTaskStore) SaveDay(_ context.Context, day *models.TaskDay) error {
	copy := *day
	copy.Tasks = append([]models.Task(nil), day.Tasks...)
	m.days[day.UserID+"_"+day.Date] = copy
	return nil
}

type memTeamStore struct {
	teams map[string]models.Team
}

func newMemTeamStore() *memTeamStore {
	return &memTeamStore{teams: make(map[string]models.Team)}
}

func (m *memTeamStore) Get(_ context.Context, teamID string) (*models.Team, error) {
	t, ok := m.teams[teamID]
	if !ok {
		return nil, nil
	}
	copy := t
	copy.Members = append([]string(nil), t.Members...)
	return &copy, nil
}

func (m *memTeamStore) Save(_ context.Context, team *models.Team) error {
	copy := *team
	copy.Members = append([]string(nil), team.Members...)
	m.teams[team.TeamID] = copy
	return nil
}

func (m *memTeamStore) List(_ context.Context) ([]*models.Team, error) {
	var out []*models.Team
	for _, id := range sortedKeys(m.teams) {
		t := m.teams[id]
		out = append(out, &t)
	}
	return out, nil
}

type memSeasonStore struct {
	current *models.Season
}

func (m *memSeasonStore) GetCurrent(_ context.Context) (*models.Season, error) {
	if m.current == nil {
		return nil, nil
	}
	copy := *m.current
	return &copy, nil
}

func (m *memSeasonStore) SaveCurrent(_ context.Context, season *models.Season) error {
	copy := *season
	m.current = &copy
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newTestLedger() (*Ledger, *memUserStore) {
	users := newMemUserStore()
	l := New(users, newMemTaskStore(), newMemTeamStore(), &memSeasonStore{}, 10)
	l.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	return l, users
}

func mustSetTasks(t *testing.T, l *Ledger, userID, date string, drafts []models.Task) *models.TaskDay {
	t.Helper()
	day, err := l.SetTasks(context.Background(), userID, userID, date, drafts)
	if err != nil {
		t.Fatalf("SetTasks() error = %v", err)
	}
	return day
}

func counters(u *models.User) [4]int {
	return [4]int{u.TodayPoints, u.WeeklyPoints, u.SeasonPoints, u.LifetimePoints}
}

// --- Tests ---

func TestSetTasks_ReplacesBucketAndAssignsPoints(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	day := mustSetTasks(t, l, "u1", "2026-03-14", []models.Task{
		{Description: "Apply to Acme", Category: models.TaskInternship, Difficulty: 3},
		{Description: "Gym", Category: models.TaskHealth, Difficulty: 12},
	})
	if len(day.Tasks) != 2 {
		t.Fatalf("SetTasks() kept %d tasks, want 2", len(day.Tasks))
	}
	if day.Tasks[0].Points != 30 {
		t.Errorf("difficulty 3 points = %d, want 30", day.Tasks[0].Points)
	}
	if day.Tasks[1].Difficulty != 10 || day.Tasks[1].Points != 100 {
		t.Errorf("difficulty should clamp to 10: %+v", day.Tasks[1])
	}

	// Bulk replace, not additive.
	day = mustSetTasks(t, l, "u1", "2026-03-14", []models.Task{
		{Description: "Only task", Category: models.TaskMisc, Difficulty: 1},
	})
	got, err := l.GetTasks(ctx, "u1", "2026-03-14")
	if err != nil {
		t.Fatalf("GetTasks() error = %v", err)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].Description != "Only task" {
		t.Errorf("SetTasks() did not replace the bucket: %+v", got.Tasks)
	}
	_ = day
}

func TestCompleteTask_CreditsAllFourCounters(t *testing.T) {
	l, users := newTestLedger()
	ctx := context.Background()

	day := mustSetTasks(t, l, "u1", "2026-03-14", []models.Task{
		{Description: "Apply to Acme internship", Category: models.TaskInternship, Difficulty: 4},
	})

	task, err := l.CompleteTask(ctx, "u1", "2026-03-14", day.Tasks[0].ID)
	if err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if !task.Completed || task.CompletedAt.IsZero() {
		t.Errorf("task not marked complete: %+v", task)
	}

	u, _ := users.Get(ctx, "u1")
	if got := counters(u); got != [4]int{40, 40, 40, 40} {
		t.Errorf("counters = %v, want all 40", got)
	}
	if u.InternshipPoints != 40 {
		t.Errorf("internship points = %d, want 40", u.InternshipPoints)
	}
	if u.ApplicationsSubmitted != 1 {
		t.Errorf("applications submitted = %d, want 1 (description matches apply heuristic)", u.ApplicationsSubmitted)
	}
}

func TestCompleteTask_Idempotent(t *testing.T) {
	l, users := newTestLedger()
	ctx := context.Background()

	day := mustSetTasks(t, l, "u1", "2026-03-14", []models.Task{
		{Description: "Read a chapter", Category: models.TaskAcademics, Difficulty: 2},
	})

	if _, err := l.CompleteTask(ctx, "u1", "2026-03-14", day.Tasks[0].ID); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	u, _ := users.Get(ctx, "u1")
	before := counters(u)

	task, err := l.CompleteTask(ctx, "u1", "2026-03-14", day.Tasks[0].ID)
	if err != nil {
		t.Fatalf("second CompleteTask() error = %v", err)
	}
	if !task.Completed {
		t.Error("second CompleteTask() should report the completed state")
	}
	u, _ = users.Get(ctx, "u1")
	if counters(u) != before {
		t.Errorf("second completion moved counters: %v -> %v", before, counters(u))
	}
}

func TestToggleInvariance_RepeatedCycles(t *testing.T) {
	l, users := newTestLedger()
	ctx := context.Background()

	day := mustSetTasks(t, l, "u1", "2026-03-14", []models.Task{
		{Description: "Grind leetcode for the interview", Category: models.TaskSkill, Difficulty: 7},
	})

	// Seed nonzero counters so the floor never engages.
	u, _ := l.GetOrCreate(ctx, "u1", "u1")
	u.TodayPoints, u.WeeklyPoints, u.SeasonPoints, u.LifetimePoints = 5, 15, 25, 35
	u.InterviewPrepsDone = 2
	if err := users.Save(ctx, u); err != nil {
		t.Fatal(err)
	}
	before := counters(u)
	prepsBefore := u.InterviewPrepsDone

	for i := 0; i < 100; i++ {
		if _, err := l.CompleteTask(ctx, "u1", "2026-03-14", day.Tasks[0].ID); err != nil {
			t.Fatalf("cycle %d complete error = %v", i, err)
		}
		if _, err := l.UncompleteTask(ctx, "u1", "2026-03-14", day.Tasks[0].ID); err != nil {
			t.Fatalf("cycle %d uncomplete error = %v", i, err)
		}
	}

	u, _ = users.Get(ctx, "u1")
	if counters(u) != before {
		t.Errorf("100 toggle cycles drifted counters: %v -> %v", before, counters(u))
	}
	if u.InterviewPrepsDone != prepsBefore {
		t.Errorf("interview preps drifted: %d -> %d", prepsBefore, u.InterviewPrepsDone)
	}
}

func TestUncompleteTask_FloorsAtZero(t *testing.T) {
	l, users := newTestLedger()
	ctx := context.Background()

	day := mustSetTasks(t, l, "u1", "2026-03-14", []models.Task{
		{Description: "Big task", Category: models.TaskMisc, Difficulty: 8},
	})
	if _, err := l.CompleteTask(ctx, "u1", "2026-03-14", day.Tasks[0].ID); err != nil {
		t.Fatal(err)
	}

	// External reset zeroes counters underneath the completed task.
	u, _ := users.Get(ctx, "u1")
	u.TodayPoints, u.WeeklyPoints = 0, 0
	if err := users.Save(ctx, u); err != nil {
		t.Fatal(err)
	}

	if _, err := l.UncompleteTask(ctx, "u1", "2026-03-14", day.Tasks[0].ID); err != nil {
		t.Fatalf("UncompleteTask() error = %v", err)
	}
	u, _ = users.Get(ctx, "u1")
	for i, v := range counters(u) {
		if v < 0 {
			t.Errorf("counter %d went negative: %d", i, v)
		}
	}
}

func TestUncompleteTask_NoOpWhenIncomplete(t *testing.T) {
	l, users := newTestLedger()
	ctx := context.Background()

	day := mustSetTasks(t, l, "u1", "2026-03-14", []models.Task{
		{Description: "Untouched", Category: models.TaskMisc, Difficulty: 5},
	})

	task, err := l.UncompleteTask(ctx, "u1", "2026-03-14", day.Tasks[0].ID)
	if err != nil {
		t.Fatalf("UncompleteTask() error = %v", err)
	}
	if task.Completed {
		t.Error("task should remain incomplete")
	}
	u, _ := users.Get(ctx, "u1")
	if counters(u) != [4]int{} {
		t.Errorf("counters moved on no-op uncomplete: %v", counters(u))
	}
}

func TestCompleteTask_NotFound(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	mustSetTasks(t, l, "u1", "2026-03-14", []models.Task{
		{Description: "Exists", Category: models.TaskMisc, Difficulty: 5},
	})

	if _, err := l.CompleteTask(ctx, "u1", "2026-03-14", "t99"); !errors.Is(err, models.ErrTaskNotFound) {
		t.Errorf("CompleteTask(missing) error = %v, want ErrTaskNotFound", err)
	}
	if _, err := l.UncompleteTask(ctx, "u1", "2026-03-15", "t1"); !errors.Is(err, models.ErrTaskNotFound) {
		t.Errorf("UncompleteTask(wrong date) error = %v, want ErrTaskNotFound", err)
	}
}

func TestUpdateStreak_TransitionTable(t *testing.T) {
	tests := []struct {
		name       string
		lastActive string
		streak     int
		points     int
		wantStreak int
		wantActive string
	}{
		{
			name:       "yesterday extends",
			lastActive: "2026-03-13", streak: 4, points: 15,
			wantStreak: 5, wantActive: "2026-03-14",
		},
		{
			name:       "three days ago resets",
			lastActive: "2026-03-11", streak: 9, points: 15,
			wantStreak: 1, wantActive: "2026-03-14",
		},
		{
			name:       "already counted today",
			lastActive: "2026-03-14", streak: 4, points: 15,
			wantStreak: 4, wantActive: "2026-03-14",
		},
		{
			name:       "below threshold unchanged",
			lastActive: "2026-03-11", streak: 9, points: 5,
			wantStreak: 9, wantActive: "2026-03-11",
		},
		{
			name:       "never active starts at one",
			lastActive: "", streak: 0, points: 10,
			wantStreak: 1, wantActive: "2026-03-14",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, users := newTestLedger()
			ctx := context.Background()
			if err := users.Save(ctx, &models.User{UserID: "u1", LastActiveDate: tt.lastActive, StreakDays: tt.streak}); err != nil {
				t.Fatal(err)
			}

			u, err := l.UpdateStreak(ctx, "u1", tt.points)
			if err != nil {
				t.Fatalf("UpdateStreak() error = %v", err)
			}
			if u.StreakDays != tt.wantStreak {
				t.Errorf("streak = %d, want %d", u.StreakDays, tt.wantStreak)
			}
			if u.LastActiveDate != tt.wantActive {
				t.Errorf("lastActive = %q, want %q", u.LastActiveDate, tt.wantActive)
			}
		})
	}
}

func TestDailyRollover_UpdatesStreaksAndZeroesToday(t *testing.T) {
	l, users := newTestLedger()
	ctx := context.Background()

	if err := users.Save(ctx, &models.User{UserID: "u1", TodayPoints: 20, LastActiveDate: "2026-03-13", StreakDays: 2}); err != nil {
		t.Fatal(err)
	}
	if err := users.Save(ctx, &models.User{UserID: "u2", TodayPoints: 5, LastActiveDate: "2026-03-13", StreakDays: 7}); err != nil {
		t.Fatal(err)
	}

	if err := l.DailyRollover(ctx); err != nil {
		t.Fatalf("DailyRollover() error = %v", err)
	}

	u1, _ := users.Get(ctx, "u1")
	if u1.StreakDays != 3 || u1.TodayPoints != 0 {
		t.Errorf("u1 after rollover = streak %d today %d, want 3/0", u1.StreakDays, u1.TodayPoints)
	}
	u2, _ := users.Get(ctx, "u2")
	if u2.StreakDays != 7 || u2.TodayPoints != 0 {
		t.Errorf("u2 after rollover = streak %d today %d, want 7/0 (below threshold)", u2.StreakDays, u2.TodayPoints)
	}
}

func TestResetWeeklyPoints(t *testing.T) {
	l, users := newTestLedger()
	ctx := context.Background()

	if err := users.Save(ctx, &models.User{UserID: "u1", TodayPoints: 10, WeeklyPoints: 50, SeasonPoints: 200, LifetimePoints: 900}); err != nil {
		t.Fatal(err)
	}
	if err := l.ResetWeeklyPoints(ctx); err != nil {
		t.Fatalf("ResetWeeklyPoints() error = %v", err)
	}

	u, _ := users.Get(ctx, "u1")
	if u.WeeklyPoints != 0 {
		t.Errorf("weekly = %d, want 0", u.WeeklyPoints)
	}
	if u.TodayPoints != 10 || u.SeasonPoints != 200 || u.LifetimePoints != 900 {
		t.Errorf("other counters moved: %+v", u)
	}
}

func TestJoinTeam_SwitchesMembership(t *testing.T) {
	l, _ := newTestLedger()
	teams := l.teams.(*memTeamStore)
	ctx := context.Background()

	if _, err := l.JoinTeam(ctx, "u1", "u1", "alpha", "Team Alpha"); err != nil {
		t.Fatalf("JoinTeam(alpha) error = %v", err)
	}
	if _, err := l.JoinTeam(ctx, "u1", "u1", "beta", "Team Beta"); err != nil {
		t.Fatalf("JoinTeam(beta) error = %v", err)
	}

	alpha, _ := teams.Get(ctx, "alpha")
	if alpha.HasMember("u1") {
		t.Error("joining beta should remove u1 from alpha")
	}
	beta, _ := teams.Get(ctx, "beta")
	if !beta.HasMember("u1") {
		t.Error("u1 missing from beta")
	}

	if err := l.LeaveTeam(ctx, "u1"); err != nil {
		t.Fatalf("LeaveTeam() error = %v", err)
	}
	beta, _ = teams.Get(ctx, "beta")
	if beta.HasMember("u1") {
		t.Error("LeaveTeam should remove membership")
	}
	u, _ := l.GetOrCreate(ctx, "u1", "")
	if u.TeamID != "" {
		t.Errorf("user teamID = %q after leave, want empty", u.TeamID)
	}
}

func TestGetTeam_NotFound(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	if _, err := l.GetTeam(ctx, "ghost"); !errors.Is(err, models.ErrTeamNotFound) {
		t.Errorf("GetTeam(missing) error = %v, want ErrTeamNotFound", err)
	}

	if _, err := l.JoinTeam(ctx, "u1", "u1", "alpha", "Team Alpha"); err != nil {
		t.Fatal(err)
	}
	team, err := l.GetTeam(ctx, "alpha")
	if err != nil {
		t.Fatalf("GetTeam() error = %v", err)
	}
	if !team.HasMember("u1") {
		t.Errorf("team = %+v, want u1 as member", team)
	}
}

func TestStartSeason_ArchivesAndResets(t *testing.T) {
	l, users := newTestLedger()
	ctx := context.Background()

	if err := users.Save(ctx, &models.User{UserID: "u1", SeasonPoints: 300}); err != nil {
		t.Fatal(err)
	}
	if err := users.Save(ctx, &models.User{UserID: "u2", SeasonPoints: 500, BestRank: 3}); err != nil {
		t.Fatal(err)
	}
	if err := users.Save(ctx, &models.User{UserID: "u3", SeasonPoints: 0}); err != nil {
		t.Fatal(err)
	}

	season, err := l.StartSeason(ctx, "Spring 2026")
	if err != nil {
		t.Fatalf("StartSeason() error = %v", err)
	}
	if season.Number != 1 {
		t.Errorf("first season number = %d, want 1", season.Number)
	}

	u1, _ := users.Get(ctx, "u1")
	if u1.SeasonPoints != 0 || u1.SeasonsPlayed != 1 || u1.BestRank != 2 {
		t.Errorf("u1 after season = %+v", u1)
	}
	u2, _ := users.Get(ctx, "u2")
	if u2.BestRank != 1 || u2.SeasonsPlayed != 1 {
		t.Errorf("u2 best rank = %d played %d, want 1/1", u2.BestRank, u2.SeasonsPlayed)
	}
	u3, _ := users.Get(ctx, "u3")
	if u3.SeasonsPlayed != 0 {
		t.Error("u3 did not play and should not be credited")
	}

	second, err := l.StartSeason(ctx, "Summer 2026")
	if err != nil {
		t.Fatalf("second StartSeason() error = %v", err)
	}
	if second.Number != 2 {
		t.Errorf("second season number = %d, want 2", second.Number)
	}
}

func TestGetOrCreate_LazyWithZeroCounters(t *testing.T) {
	l, users := newTestLedger()
	ctx := context.Background()

	u, err := l.GetOrCreate(ctx, "newbie", "Newbie")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if counters(u) != [4]int{} || u.StreakDays != 0 {
		t.Errorf("new user not zeroed: %+v", u)
	}
	if stored, _ := users.Get(ctx, "newbie"); stored == nil {
		t.Error("new user not persisted")
	}
}
