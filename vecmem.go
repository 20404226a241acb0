// Package vecmem provides a persistent embedding store organized into named
// collections.
//
// Each collection pins the dimension of its vectors, keeps every record in
// memory for exact nearest-neighbor search, and makes every mutation durable
// in a checksummed append log before acknowledging it. A cross-process file
// lock gives each collection a single writer or any number of readers.
//
// # Quick Start
//
//	ctx := context.Background()
//	reg, err := vecmem.Open("./data")
//	if err != nil {
//	    panic(err)
//	}
//	defer reg.Close()
//
//	notes, err := reg.GetOrCreate(ctx, "notes")
//	if err != nil {
//	    panic(err)
//	}
//
//	_ = notes.Add([]model.Record{
//	    {ID: "a", Embedding: []float32{0.1, 0.2, 0.3}},
//	})
//	results, _ := notes.Search([]float32{0.1, 0.2, 0.3}, 5)
package vecmem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecmem/collection"
)

// Registry owns the root data directory and the collections opened from it.
// A collection is opened at most once per Registry; repeated GetOrCreate
// calls for the same name return the same Store.
type Registry struct {
	root string
	opts options

	mu     sync.Mutex
	stores map[string]*collection.Store
	closed bool
}

// Open creates a Registry rooted at dir, creating the directory if needed.
func Open(dir string, optFns ...Option) (*Registry, error) {
	opts := applyOptions(optFns)

	if dir == "" {
		return nil, fmt.Errorf("%w: data directory must not be empty", ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, wrapStorage(fmt.Errorf("create data directory: %w", err))
	}

	return &Registry{
		root:   dir,
		opts:   opts,
		stores: make(map[string]*collection.Store),
	}, nil
}

// ValidCollectionName reports whether name can serve as a collection name.
// Names become directory names under the data root, so they must not be
// empty, contain path separators or NUL, or be a dot path.
func ValidCollectionName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// GetOrCreate returns the named collection, opening it from disk or creating
// it empty. ctx bounds the wait for the collection's cross-process lock.
func (r *Registry) GetOrCreate(ctx context.Context, name string) (*collection.Store, error) {
	if !ValidCollectionName(name) {
		return nil, fmt.Errorf("%w: invalid collection name %q", ErrInvalidInput, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if s, ok := r.stores[name]; ok {
		return s, nil
	}

	s, err := collection.Open(ctx, name, r.collectionDir(name), func(o *collection.Options) {
		o.Metric = r.opts.metric
		o.Durability = r.opts.durability
		o.Compress = r.opts.compress
		o.CompressionLevel = r.opts.compressionLevel
		o.ReadOnly = r.opts.readOnly
		o.LockTimeout = r.opts.lockTimeout
		o.Logger = r.opts.logger.Logger
	})
	if err != nil {
		return nil, wrapStorage(err)
	}
	r.stores[name] = s

	return s, nil
}

// Collections returns the names of every collection under the data root,
// open or not, sorted ascending.
func (r *Registry) Collections() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, wrapStorage(fmt.Errorf("read data directory: %w", err))
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && ValidCollectionName(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	return names, nil
}

// Root returns the registry's data directory.
func (r *Registry) Root() string {
	return r.root
}

func (r *Registry) collectionDir(name string) string {
	return filepath.Join(r.root, name)
}

// Close closes every open collection and releases their locks. Close is
// idempotent; after Close the Registry rejects further operations.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	g := new(errgroup.Group)
	for _, s := range r.stores {
		g.Go(s.Close)
	}
	r.stores = nil

	return wrapStorage(g.Wait())
}
