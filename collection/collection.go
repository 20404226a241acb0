// Package collection implements a single named embedding collection: an
// in-memory map of records backed by a durable append log, searched by
// exhaustive nearest-neighbor scan.
package collection

import (
	"container/heap"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/hupe1980/vecmem/codec"
	"github.com/hupe1980/vecmem/distance"
	"github.com/hupe1980/vecmem/internal/flock"
	"github.com/hupe1980/vecmem/internal/queue"
	"github.com/hupe1980/vecmem/model"
	"github.com/hupe1980/vecmem/wal"
)

const (
	logFileName  = "collection.log"
	lockFileName = "collection.lock"
)

// Store is one open collection. A Store is safe for concurrent use within a
// process; the collection lock serializes access across processes.
type Store struct {
	name   string
	dir    string
	opts   Options
	logger *slog.Logger

	log    *wal.Log
	lock   *flock.Lock
	metric distance.Metric
	dist   distance.Func

	mu        sync.RWMutex
	records   map[string]model.Record
	search    map[string][]float32 // normalized copies under cosine, nil otherwise
	dimension int
	closed    bool
}

// Open opens the collection stored in dir, creating it if needed, and
// replays its log into memory. Creation happens even for read-only stores:
// opening an unknown collection writes the directory, the lock file, and
// the log header, and yields an empty store. Concurrent creators under the
// shared lock all write the same header bytes, so the race is harmless.
//
// Writers take an exclusive cross-process lock on the collection; read-only
// stores take a shared one, so any number of readers can coexist but never
// with a writer. ctx and Options.LockTimeout bound the wait for the lock.
func Open(ctx context.Context, name, dir string, optFns ...func(o *Options)) (*Store, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if name == "" {
		return nil, fmt.Errorf("%w: collection name must not be empty", ErrInvalidInput)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create collection dir: %w", err)
	}

	mode := flock.ModeExclusive
	if opts.ReadOnly {
		mode = flock.ModeShared
	}
	lock, err := flock.Acquire(ctx, filepath.Join(dir, lockFileName), mode, opts.LockTimeout)
	if err != nil {
		return nil, fmt.Errorf("lock collection %q: %w", name, err)
	}

	log, err := wal.Open(filepath.Join(dir, logFileName), opts.Metric, func(o *wal.Options) {
		o.Compress = opts.Compress
		o.CompressionLevel = opts.CompressionLevel
		o.Durability = opts.Durability
	})
	if err != nil {
		_ = lock.Release()
		return nil, err
	}

	dist, err := distance.Provider(log.Metric())
	if err != nil {
		_ = log.Close()
		_ = lock.Release()
		return nil, err
	}

	s := &Store{
		name:    name,
		dir:     dir,
		opts:    opts,
		logger:  opts.Logger.With(slog.String("collection", name)),
		log:     log,
		lock:    lock,
		metric:  log.Metric(),
		dist:    dist,
		records: make(map[string]model.Record),
		search:  make(map[string][]float32),
	}

	if err := s.load(); err != nil {
		_ = log.Close()
		_ = lock.Release()
		return nil, err
	}

	s.logger.Debug("collection opened",
		slog.String("metric", s.metric.String()),
		slog.Int("count", len(s.records)),
		slog.Int("dimension", s.dimension),
		slog.Bool("readOnly", opts.ReadOnly),
	)

	return s, nil
}

// load replays the log and rebuilds the in-memory state.
func (s *Store) load() error {
	truncated, err := s.log.Replay(func(e wal.Entry) error {
		switch e.Type {
		case wal.FrameUpsert:
			for _, rec := range e.Records {
				if err := s.apply(rec); err != nil {
					return err
				}
			}
		case wal.FrameTombstone:
			delete(s.records, e.ID)
			delete(s.search, e.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replay collection %q: %w", s.name, err)
	}
	if truncated > 0 {
		s.logger.Warn("truncated torn log tail", slog.Int64("bytes", truncated))
	}
	return nil
}

// apply installs one replayed record. Records were validated when first
// written, so a violation here means the log bytes are damaged.
func (s *Store) apply(rec model.Record) error {
	if s.dimension == 0 {
		s.dimension = len(rec.Embedding)
	}
	if len(rec.Embedding) != s.dimension {
		return fmt.Errorf("%w: record %q has dimension %d, collection has %d",
			codec.ErrCorruptRecord, rec.ID, len(rec.Embedding), s.dimension)
	}

	if s.metric == distance.MetricCosine {
		normalized, ok := distance.NormalizeL2Copy(rec.Embedding)
		if !ok {
			return fmt.Errorf("%w: record %q has zero norm", codec.ErrCorruptRecord, rec.ID)
		}
		s.search[rec.ID] = normalized
	} else {
		s.search[rec.ID] = rec.Embedding
	}
	s.records[rec.ID] = rec

	return nil
}

// Name returns the collection name.
func (s *Store) Name() string { return s.name }

// Metric returns the collection's distance metric.
func (s *Store) Metric() distance.Metric { return s.metric }

// Count returns the number of live records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Dimension returns the pinned vector dimension, or 0 while the collection
// is empty and the dimension is not yet pinned.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Add upserts a batch of records. The batch is validated as a whole before
// anything is written: either every record is accepted or none is. A record
// whose id already exists replaces the stored one.
func (s *Store) Add(records []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.opts.ReadOnly {
		return ErrReadOnly
	}
	if len(records) == 0 {
		return nil
	}

	dim := s.dimension
	for i, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("%w: record %d has empty id", ErrInvalidInput, i)
		}
		if len(rec.Embedding) == 0 {
			return fmt.Errorf("%w: record %q has empty embedding", ErrInvalidInput, rec.ID)
		}
		if dim == 0 {
			// First vector ever seen pins the collection dimension.
			dim = len(rec.Embedding)
		}
		if len(rec.Embedding) != dim {
			return &DimensionMismatchError{Expected: dim, Actual: len(rec.Embedding)}
		}
		if s.metric == distance.MetricCosine && distance.Dot(rec.Embedding, rec.Embedding) == 0 {
			return fmt.Errorf("%w: record %q has zero norm, cosine distance is undefined", ErrInvalidInput, rec.ID)
		}
	}

	if err := s.log.AppendUpserts(records); err != nil {
		return err
	}

	s.dimension = dim
	for _, rec := range records {
		if s.metric == distance.MetricCosine {
			normalized, _ := distance.NormalizeL2Copy(rec.Embedding)
			s.search[rec.ID] = normalized
		} else {
			s.search[rec.ID] = rec.Embedding
		}
		s.records[rec.ID] = rec
	}

	s.logger.Debug("records added", slog.Int("count", len(records)))

	return nil
}

// Search returns the up to k records nearest to query, ordered by ascending
// distance with ties broken by ascending id. Searching an empty collection
// returns an empty result.
func (s *Store) Search(query []float32, k int) ([]model.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	if k < 0 {
		return nil, fmt.Errorf("%w: negative result count %d", ErrInvalidInput, k)
	}
	if k == 0 || len(s.records) == 0 {
		return []model.SearchResult{}, nil
	}
	if len(query) != s.dimension {
		return nil, &DimensionMismatchError{Expected: s.dimension, Actual: len(query)}
	}

	if s.metric == distance.MetricCosine {
		normalized, ok := distance.NormalizeL2Copy(query)
		if !ok {
			return nil, fmt.Errorf("%w: query has zero norm, cosine distance is undefined", ErrInvalidInput)
		}
		query = normalized
	}

	// The heap can never hold more than the collection; clamp before
	// allocating so an oversized k stays a cheap request for everything.
	if k > len(s.records) {
		k = len(s.records)
	}

	candidates := queue.NewMax(k)
	for id, vec := range s.search {
		item := queue.Item{ID: id, Distance: s.dist(query, vec)}
		if candidates.Len() < k {
			heap.Push(candidates, item)
		} else if queue.Worse(candidates.Top(), item) {
			candidates.Items[0] = item
			heap.Fix(candidates, 0)
		}
	}

	results := make([]model.SearchResult, 0, candidates.Len())
	for _, item := range candidates.Items {
		results = append(results, model.SearchResult{
			ID:       item.ID,
			Distance: item.Distance,
			Metadata: s.records[item.ID].Metadata.Clone(),
		})
	}
	slices.SortFunc(results, func(a, b model.SearchResult) int {
		if a.Distance != b.Distance {
			if a.Distance < b.Distance {
				return -1
			}
			return 1
		}
		return cmpString(a.ID, b.ID)
	})

	return results, nil
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Delete removes the record with the given id. Deleting an id that does not
// exist is a no-op, so deletes are idempotent and never write a tombstone
// for an unknown id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.opts.ReadOnly {
		return ErrReadOnly
	}
	if id == "" {
		return fmt.Errorf("%w: id must not be empty", ErrInvalidInput)
	}
	if _, ok := s.records[id]; !ok {
		return nil
	}

	if err := s.log.AppendTombstone(id); err != nil {
		return err
	}
	delete(s.records, id)
	delete(s.search, id)

	s.logger.Debug("record deleted", slog.String("id", id))

	return nil
}

// List returns every live record ordered by ascending id. Embeddings are
// returned as stored, not normalized.
func (s *Store) List() ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	records := make([]model.Record, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, model.Record{
			ID:        rec.ID,
			Embedding: slices.Clone(rec.Embedding),
			Metadata:  rec.Metadata.Clone(),
		})
	}
	slices.SortFunc(records, func(a, b model.Record) int {
		return cmpString(a.ID, b.ID)
	})

	return records, nil
}

// Compact rewrites the log to hold only the live records, dropping
// tombstones and superseded upserts.
func (s *Store) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.opts.ReadOnly {
		return ErrReadOnly
	}

	live := make([]model.Record, 0, len(s.records))
	for _, rec := range s.records {
		live = append(live, rec)
	}
	slices.SortFunc(live, func(a, b model.Record) int {
		return cmpString(a.ID, b.ID)
	})

	sizeBefore := s.log.Size()
	if err := s.log.Rewrite(live); err != nil {
		return err
	}

	s.logger.Info("collection compacted",
		slog.Int("count", len(live)),
		slog.Int64("sizeBefore", sizeBefore),
		slog.Int64("sizeAfter", s.log.Size()),
	)

	return nil
}

// LogSize returns the collection log size in bytes.
func (s *Store) LogSize() int64 {
	return s.log.Size()
}

// Sync forces the log to stable storage regardless of durability mode.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.log.Sync()
}

// Close flushes the log and releases the collection lock. Close is
// idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.log.Close()
	if rerr := s.lock.Release(); err == nil {
		err = rerr
	}

	s.logger.Debug("collection closed")

	return err
}
