package vectorstore

import (
	"context"

	"github.com/google/uuid"
)

// KeyField is the payload field holding the record key.
const KeyField = "key"

// pointNamespace seeds the name-based UUIDs of record points.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("maamar-search/records"))

// PointID returns the stable point ID of a record key. Qdrant only accepts
// integers and UUIDs, so keys are hashed into a version 5 UUID.
func PointID(key string) string {
	return uuid.NewSHA1(pointNamespace, []byte(key)).String()
}

// RecordPoint builds the point stored for one record.
func RecordPoint(key string, vec []float32) Point {
	return Point{
		ID:   PointID(key),
		Vec:  vec,
		Meta: map[string]any{KeyField: key},
	}
}

// RecordVectors looks record vectors up by key in one collection.
type RecordVectors struct {
	store      VectorStore
	collection string
}

// NewRecordVectors creates a RecordVectors over store.
func NewRecordVectors(store VectorStore, collection string) *RecordVectors {
	return &RecordVectors{store: store, collection: collection}
}

// Vectors returns the stored vectors of keys. Keys without a point are absent.
func (r *RecordVectors) Vectors(ctx context.Context, keys []string) (map[string][]float32, error) {
	if len(keys) == 0 {
		return map[string][]float32{}, nil
	}

	ids := make([]string, 0, len(keys))
	keyByID := make(map[string]string, len(keys))
	for _, k := range keys {
		id := PointID(k)
		if _, dup := keyByID[id]; dup {
			continue
		}
		keyByID[id] = k
		ids = append(ids, id)
	}

	byID, err := r.store.Vectors(ctx, r.collection, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]float32, len(byID))
	for id, vec := range byID {
		if k, ok := keyByID[id]; ok {
			out[k] = vec
		}
	}
	return out, nil
}
