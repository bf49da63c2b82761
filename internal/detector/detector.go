package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/anishesg/internship-discord-bot/internal/models"
)

// ErrPollInFlight is returned when a poll is requested while another is
// already running. The caller should try again later.
var ErrPollInFlight = errors.New("a poll is already in flight")

// Fetcher retrieves the raw source document.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Parser turns the raw document into listings in document order.
type Parser interface {
	Parse(document string) []models.Listing
}

// SeenSetStore is the durable record of previously announced listing ids.
type SeenSetStore interface {
	Load(ctx context.Context) (map[string]struct{}, error)
	MarkSeen(ctx context.Context, ids []string) error
}

// Sink receives the batch of new listings once per poll, in parse order.
// Delivery pacing and per-message formatting are the sink's concern.
type Sink interface {
	Notify(ctx context.Context, listings []models.Listing) error
}

// Detector orchestrates fetch → parse → diff → persist. The first completed
// poll after process start is a baseline: every parsed id is marked seen and
// nothing is announced, so a restart never replays the backlog. Subsequent
// polls announce only ids outside the seen set.
type Detector struct {
	fetcher Fetcher
	parser  Parser
	seen    SeenSetStore
	sink    Sink

	// inFlight serializes polls: a scheduled poll and an on-demand poll must
	// never interleave their read-diff-persist cycle.
	inFlight *semaphore.Weighted

	mu           sync.Mutex
	initialized  bool
	lastListings []models.Listing
	lastPolledAt time.Time
}

func New(f Fetcher, p Parser, seen SeenSetStore, sink Sink) *Detector {
	return &Detector{
		fetcher:  f,
		parser:   p,
		seen:     seen,
		sink:     sink,
		inFlight: semaphore.NewWeighted(1),
	}
}

// Poll runs one fetch+parse+diff cycle and returns the number of new
// listings announced. Returns ErrPollInFlight when another poll holds the
// guard. A fetch or parse failure leaves the seen set and detector state
// untouched; the guard is released on every outcome.
func (d *Detector) Poll(ctx context.Context) (int, error) {
	if !d.inFlight.TryAcquire(1) {
		return 0, ErrPollInFlight
	}
	defer d.inFlight.Release(1)

	document, err := d.fetcher.Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("poll skipped: %w", err)
	}

	listings := d.parser.Parse(document)
	if len(listings) == 0 {
		// An empty parse from a non-empty fetch is far more likely a format
		// change than an empty board; do not commit a baseline or a diff.
		return 0, fmt.Errorf("poll skipped: document yielded no listings")
	}

	seen, err := d.seen.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("poll skipped: %w", err)
	}

	d.mu.Lock()
	initialized := d.initialized
	d.mu.Unlock()

	if !initialized {
		ids := make([]string, 0, len(listings))
		for _, l := range listings {
			ids = append(ids, l.ID)
		}
		if err := d.seen.MarkSeen(ctx, ids); err != nil {
			// The store keeps the ids cached; the next write catches up.
			slog.Warn("Baseline persist incomplete", "error", err)
		}
		d.finishPoll(listings, true)
		slog.Info("Baseline poll complete, no notifications", "listings", len(listings))
		return 0, nil
	}

	var newListings []models.Listing
	for _, l := range listings {
		if _, ok := seen[l.ID]; !ok {
			newListings = append(newListings, l)
		}
	}

	if len(newListings) > 0 {
		if err := d.sink.Notify(ctx, newListings); err != nil {
			// Leave the ids unseen so the next poll retries the announcement.
			return 0, fmt.Errorf("notify failed, will retry next poll: %w", err)
		}
		ids := make([]string, 0, len(newListings))
		for _, l := range newListings {
			ids = append(ids, l.ID)
		}
		if err := d.seen.MarkSeen(ctx, ids); err != nil {
			slog.Warn("Seen-set persist incomplete", "error", err)
		}
	}

	d.finishPoll(listings, false)
	slog.Info("Poll complete", "listings", len(listings), "new", len(newListings))
	return len(newListings), nil
}

func (d *Detector) finishPoll(listings []models.Listing, baseline bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if baseline {
		d.initialized = true
	}
	d.lastListings = listings
	d.lastPolledAt = time.Now()
}

// Snapshot returns a copy of the listings from the last successful poll,
// in parse order, for the query commands.
func (d *Detector) Snapshot() []models.Listing {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Listing, len(d.lastListings))
	copy(out, d.lastListings)
	return out
}

// LastPolledAt reports when the last successful poll finished (zero before
// the first one).
func (d *Detector) LastPolledAt() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastPolledAt
}
