package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks maamar-search/internal/vectorstore VectorStore

import "context"

// Point is one record vector with its payload.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// VectorStore stores record vectors by point ID.
type VectorStore interface {
	// EnsureCollection creates the collection or checks its vector size.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Vectors returns the stored vector of every given point ID that exists.
	Vectors(ctx context.Context, collection string, ids []string) (map[string][]float32, error)
}
