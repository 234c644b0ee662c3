package vectorstore

import (
	"context"
	"errors"
)

// ErrUnavailable marks connectivity failures to the index. Callers must be
// able to tell "zero matches" from "index unreachable", so search never
// returns an empty result set for this case.
var ErrUnavailable = errors.New("vector index unavailable")

// ErrDimensionMismatch marks a vector whose length differs from the
// collection's configured dimension. This is a configuration error, not a
// retry case.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Point is one indexed entry. ID is the caller-chosen idempotency key:
// re-upserting the same ID replaces the stored point instead of duplicating
// it. Points without a vector are skipped (and logged) by Upsert.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
}

// SearchFilter is a conjunctive (AND-only) set of payload predicates. Zero
// values mean "predicate absent"; a filter with no predicates matches the
// whole collection.
type SearchFilter struct {
	Language     string
	ChunkType    string
	FileName     string
	Jurisdiction string
	Category     string
	// Visa matches points whose visa_in payload array contains the value.
	Visa string
	// MinTOCLevel matches points with toc_level >= the value.
	MinTOCLevel *int
}

func (f *SearchFilter) empty() bool {
	return f == nil || (f.Language == "" && f.ChunkType == "" && f.FileName == "" &&
		f.Jurisdiction == "" && f.Category == "" && f.Visa == "" && f.MinTOCLevel == nil)
}

// ScoredHit is a raw index result, ordered by the index's native similarity.
type ScoredHit struct {
	ID      string
	Score   float32
	Payload map[string]interface{}
}

type CollectionInfo struct {
	PointCount uint64
	Status     string
}

// Store is the client-side contract against one named collection of the
// vector index.
type Store interface {
	// EnsureCollection creates the collection if absent. With force set it
	// destroys and recreates an existing collection; force is a maintenance
	// operation requiring exclusive access and must never run concurrently
	// with inserts or queries.
	EnsureCollection(ctx context.Context, force bool) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, limit int, filter *SearchFilter) ([]ScoredHit, error)
	CollectionInfo(ctx context.Context) (*CollectionInfo, error)
}
