package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// SeenSetStore persists the set of previously announced listing ids, one
// document per id. It owns both the in-memory cache and the durable backing:
// ids added by MarkSeen stay cached even when the write fails, and the next
// successful MarkSeen catches the backlog up. The set only ever grows.
type SeenSetStore struct {
	fs  *firestore.Client
	col *firestore.CollectionRef

	mu      sync.Mutex
	cache   map[string]struct{} // every id known to this process
	durable map[string]struct{} // ids confirmed written
	loaded  bool
}

func NewSeenSetStore(c *Client) *SeenSetStore {
	return &SeenSetStore{
		fs:      c.fs,
		col:     c.fs.Collection(collSeenListings),
		cache:   make(map[string]struct{}),
		durable: make(map[string]struct{}),
	}
}

// Load returns the seen set. The first call reads the backing collection;
// later calls serve the cache. No prior state is not an error. Other read
// failures degrade to whatever was read so far with a logged warning, so a
// flaky read never stalls the polling loop.
func (s *SeenSetStore) Load(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		iter := s.col.Select().Documents(ctx)
		defer iter.Stop()
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				slog.Warn("Seen-set read failed, continuing with partial state", "loaded", len(s.cache), "error", err)
				break
			}
			s.cache[doc.Ref.ID] = struct{}{}
			s.durable[doc.Ref.ID] = struct{}{}
		}
		s.loaded = true
		slog.Info("Loaded seen set", "size", len(s.cache))
	}

	out := make(map[string]struct{}, len(s.cache))
	for id := range s.cache {
		out[id] = struct{}{}
	}
	return out, nil
}

// MarkSeen durably persists the union of the current set and ids. Idempotent:
// overlapping ids are upserts. Returns an error when any write fails; the
// failed ids remain pending and are retried on the next call.
func (s *SeenSetStore) MarkSeen(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		s.cache[id] = struct{}{}
	}

	var pending []string
	for id := range s.cache {
		if _, ok := s.durable[id]; !ok {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	bw := s.fs.BulkWriter(ctx)
	jobs := make(map[string]*firestore.BulkWriterJob, len(pending))
	for _, id := range pending {
		job, err := bw.Set(s.col.Doc(id), map[string]interface{}{
			"firstSeen": firestore.ServerTimestamp,
		})
		if err != nil {
			slog.Warn("Failed to queue seen-id write", "id", id, "error", err)
			continue
		}
		jobs[id] = job
	}
	bw.End()

	for id, job := range jobs {
		if _, err := job.Results(); err != nil {
			slog.Warn("Failed to persist seen id", "id", id, "error", err)
			continue
		}
		s.durable[id] = struct{}{}
	}

	var remaining int
	for _, id := range pending {
		if _, ok := s.durable[id]; !ok {
			remaining++
		}
	}
	if remaining > 0 {
		return fmt.Errorf("seen-set write incomplete: %d of %d ids still pending", remaining, len(pending))
	}
	return nil
}
