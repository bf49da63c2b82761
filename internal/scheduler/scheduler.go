package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/anishesg/internship-discord-bot/internal/config"
	"github.com/anishesg/internship-discord-bot/internal/detector"
	"github.com/anishesg/internship-discord-bot/internal/leaderboard"
)

// Poller runs one polling cycle.
type Poller interface {
	Poll(ctx context.Context) (int, error)
}

// Rollover is the ledger surface the timers drive.
type Rollover interface {
	DailyRollover(ctx context.Context) error
	ResetWeeklyPoints(ctx context.Context) error
}

// Recapper posts summary messages.
type Recapper interface {
	SendRecap(ctx context.Context, title, body string) error
}

const jobTimeout = 4 * time.Minute

// Scheduler drives the periodic poll, the daily recap at UTC midnight and
// the weekly reset on UTC Monday midnight. Cron recomputes time-to-next
// occurrence after each firing; day-granularity drift is fine.
type Scheduler struct {
	cron   *cron.Cron
	cfg    *config.Config
	poller Poller
	ledger Rollover
	recap  Recapper
	boards *leaderboard.Aggregator
}

func New(cfg *config.Config, poller Poller, ledger Rollover, recap Recapper, boards *leaderboard.Aggregator) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		cfg:    cfg,
		poller: poller,
		ledger: ledger,
		recap:  recap,
		boards: boards,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every "+s.cfg.PollInterval.String(), s.pollJob); err != nil {
		return fmt.Errorf("failed to schedule poll job: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.DailyRecapSpec, s.dailyJob); err != nil {
		return fmt.Errorf("failed to schedule daily recap: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.WeeklyResetSpec, s.weeklyJob); err != nil {
		return fmt.Errorf("failed to schedule weekly reset: %w", err)
	}
	s.cron.Start()
	slog.Info("Scheduler started", "pollInterval", s.cfg.PollInterval, "dailyRecap", s.cfg.DailyRecapSpec, "weeklyReset", s.cfg.WeeklyResetSpec)
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) pollJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	_, err := s.poller.Poll(ctx)
	if errors.Is(err, detector.ErrPollInFlight) {
		slog.Info("Scheduled poll skipped, another poll is running")
		return
	}
	if err != nil {
		slog.Error("Scheduled poll failed", "error", err)
	}
}

// dailyJob posts the recap while today's counters are still populated, then
// rolls the day over (streak updates, today counters back to zero).
func (s *Scheduler) dailyJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	entries, err := s.boards.Rank(ctx, leaderboard.MetricToday, 5)
	if err != nil {
		slog.Error("Daily recap ranking failed", "error", err)
	} else if len(entries) > 0 {
		var b strings.Builder
		for i, e := range entries {
			fmt.Fprintf(&b, "%d. **%s** — %d points\n", i+1, e.Username, e.Value)
		}
		if err := s.recap.SendRecap(ctx, "📅 Daily Recap", b.String()); err != nil {
			slog.Error("Failed to send daily recap", "error", err)
		}
	}

	if err := s.ledger.DailyRollover(ctx); err != nil {
		slog.Error("Daily rollover failed", "error", err)
	}
}

func (s *Scheduler) weeklyJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.ledger.ResetWeeklyPoints(ctx); err != nil {
		slog.Error("Weekly reset failed", "error", err)
		return
	}
	if err := s.recap.SendRecap(ctx, "🔄 Weekly Reset", "Weekly points are back to zero. New week, new grind."); err != nil {
		slog.Error("Failed to send weekly reset notice", "error", err)
	}
}
