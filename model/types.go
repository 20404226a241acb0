package model

import "github.com/hupe1980/vecmem/metadata"

// Record represents a full data record within a collection.
//
// ID is the user-facing stable identifier, unique within one collection.
// Re-adding an existing ID replaces the stored embedding and metadata.
type Record struct {
	ID        string
	Embedding []float32
	Metadata  metadata.Document
}

// SearchResult represents a single nearest-neighbor match.
type SearchResult struct {
	// ID is the matched record's identifier.
	ID string
	// Distance is the metric-dependent distance to the query (lower is closer).
	Distance float32
	// Metadata is the matched record's stored metadata (may be nil).
	Metadata metadata.Document
}
