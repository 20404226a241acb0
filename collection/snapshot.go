package collection

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/hupe1980/vecmem/distance"
	"github.com/hupe1980/vecmem/model"
	"github.com/hupe1980/vecmem/snapshot"
)

// Export writes the collection's live records to a snapshot file at path.
// The export is a point-in-time copy; concurrent mutations after Export
// returns are not included.
func (s *Store) Export(path string, compression snapshot.Compression) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	live := make([]model.Record, 0, len(s.records))
	for _, rec := range s.records {
		live = append(live, rec)
	}
	slices.SortFunc(live, func(a, b model.Record) int {
		return cmpString(a.ID, b.ID)
	})

	info := snapshot.Info{
		Metric:      s.metric,
		Dimension:   s.dimension,
		Count:       len(live),
		Compression: compression,
	}
	if err := snapshot.WriteFile(path, info, live); err != nil {
		return err
	}

	s.logger.Info("snapshot exported",
		slog.String("path", path),
		slog.Int("count", len(live)),
		slog.String("compression", compression.String()),
	)

	return nil
}

// Restore replaces the collection's contents with the records from the
// snapshot file at path. The snapshot's metric must match the collection's;
// restoring cannot change how stored vectors are compared.
func (s *Store) Restore(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.opts.ReadOnly {
		return ErrReadOnly
	}

	info, records, err := snapshot.ReadFile(path)
	if err != nil {
		return err
	}
	if info.Metric != s.metric {
		return fmt.Errorf("%w: snapshot metric %s does not match collection metric %s",
			ErrInvalidInput, info.Metric, s.metric)
	}

	// Validate the whole snapshot before touching state.
	dim := 0
	search := make(map[string][]float32, len(records))
	byID := make(map[string]model.Record, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("%w: snapshot record has empty id", ErrInvalidInput)
		}
		if dim == 0 {
			dim = len(rec.Embedding)
		}
		if len(rec.Embedding) != dim {
			return &DimensionMismatchError{Expected: dim, Actual: len(rec.Embedding)}
		}
		if s.metric == distance.MetricCosine {
			normalized, ok := distance.NormalizeL2Copy(rec.Embedding)
			if !ok {
				return fmt.Errorf("%w: snapshot record %q has zero norm", ErrInvalidInput, rec.ID)
			}
			search[rec.ID] = normalized
		} else {
			search[rec.ID] = rec.Embedding
		}
		byID[rec.ID] = rec
	}

	if err := s.log.Rewrite(records); err != nil {
		return err
	}
	s.records = byID
	s.search = search
	s.dimension = dim

	s.logger.Info("snapshot restored",
		slog.String("path", path),
		slog.Int("count", len(records)),
	)

	return nil
}
