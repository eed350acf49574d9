package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"maamar-search/internal/contextutil"
)

// defaultGRPCPort is used when the URL names no port.
const defaultGRPCPort = 6334

// ErrVectorSize is returned when an existing collection was created with a
// different vector size.
var ErrVectorSize = errors.New("collection vector size mismatch")

// QdrantStore implements VectorStore over Qdrant's gRPC API.
type QdrantStore struct {
	client *qdrant.Client
}

// grpcAddress derives the gRPC host and port from a Qdrant REST URL such as
// "http://localhost:6333". The gRPC port is the REST port plus one.
func grpcAddress(rawURL string) (string, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := defaultGRPCPort
	if p := u.Port(); p != "" {
		if restPort, err := strconv.Atoi(p); err == nil {
			port = restPort + 1
		}
	}
	return host, port, nil
}

// NewQdrantStore connects to the Qdrant instance behind rawURL.
func NewQdrantStore(rawURL string) (*QdrantStore, error) {
	host, port, err := grpcAddress(rawURL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}
	return &QdrantStore{client: client}, nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Upsert inserts or updates points in the collection.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	logger := contextutil.LoggerFromContext(ctx)

	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		ps := &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vec...),
		}
		if len(p.Meta) > 0 {
			ps.Payload = qdrant.NewValueMap(p.Meta)
		}
		structs[i] = ps
	}

	wait := true
	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         structs,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to upsert record vectors", "collection", collection, "count", len(points), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.DebugContext(ctx, "upserted record vectors", "collection", collection, "count", len(points))
	return nil
}

// Vectors fetches the dense vectors of ids. Missing points are skipped.
func (s *QdrantStore) Vectors(ctx context.Context, collection string, ids []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(id)
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            pointIDs,
		WithVectors:    qdrant.NewWithVectors(true),
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get points: %w", err)
	}

	for _, p := range points {
		if vec := denseVector(p.GetVectors()); len(vec) > 0 {
			out[p.GetId().GetUuid()] = vec
		}
	}
	return out, nil
}

// denseVector extracts the unnamed dense vector of a retrieved point.
func denseVector(v *qdrant.VectorsOutput) []float32 {
	out := v.GetVector()
	if out == nil {
		return nil
	}
	if dense := out.GetDense(); dense != nil {
		return dense.GetData()
	}
	return out.GetData()
}

// EnsureCollection creates the collection with cosine distance, or checks
// that an existing one was created with vectorSize.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", collection, "vector_size", vectorSize)
		if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		}); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		return nil
	}

	info, err := s.CollectionInfo(ctx, collection)
	if err != nil {
		return err
	}
	if info.VectorSize == 0 {
		return fmt.Errorf("could not determine vector size of collection %q", collection)
	}
	if info.VectorSize != vectorSize {
		return fmt.Errorf("%w: expected %d, got %d", ErrVectorSize, vectorSize, info.VectorSize)
	}
	logger.InfoContext(ctx, "collection validated", "collection", collection, "vector_size", vectorSize)
	return nil
}

// CollectionInfo describes a Qdrant collection.
type CollectionInfo struct {
	VectorSize  int
	PointsCount int
	Status      string
}

// CollectionInfo reports vector size, point count and status of collection.
func (s *QdrantStore) CollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}

	out := &CollectionInfo{Status: "unknown"}
	if params := info.GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil {
		out.VectorSize = int(params.GetSize())
	}
	if info.PointsCount != nil {
		out.PointsCount = int(*info.PointsCount)
	}
	if info.Status != 0 {
		out.Status = info.Status.String()
	}
	return out, nil
}

// CollectionExists checks if a collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}
