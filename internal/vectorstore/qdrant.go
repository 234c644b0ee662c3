package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// QdrantStore implements Store against a Qdrant collection over gRPC.
// Dimension and distance are fixed at construction; cosine distance matches
// normalized embeddings.
type QdrantStore struct {
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	collection  string
	dimension   int
}

type QdrantConfig struct {
	Addr       string // gRPC address, e.g. "localhost:6334"
	Collection string
	Dimension  int
}

func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("invalid vector dimension %d", cfg.Dimension)
	}
	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	return &QdrantStore{
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		collection:  cfg.Collection,
		dimension:   cfg.Dimension,
	}, nil
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, force bool) error {
	_, err := s.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: s.collection})
	exists := err == nil
	if err != nil && status.Code(err) != codes.NotFound {
		return s.wrapErr("get collection", err)
	}

	if exists {
		if !force {
			return nil
		}
		slog.Info("recreating collection", "collection", s.collection)
		if _, err := s.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: s.collection}); err != nil {
			return s.wrapErr("delete collection", err)
		}
	}

	slog.Info("creating collection", "collection", s.collection, "dimension", s.dimension)
	_, err = s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(s.dimension),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return s.wrapErr("create collection", err)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if len(p.Vector) == 0 {
			slog.Warn("skipping point without vector", "id", p.ID)
			continue
		}
		if len(p.Vector) != s.dimension {
			return fmt.Errorf("point %s has dimension %d, collection %s expects %d: %w",
				p.ID, len(p.Vector), s.collection, s.dimension, ErrDimensionMismatch)
		}
		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: toQdrantPayload(p.Payload),
		})
	}
	if len(qdrantPoints) == 0 {
		slog.Warn("no valid points to upsert", "collection", s.collection)
		return nil
	}

	resp, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         qdrantPoints,
	})
	if err != nil {
		return s.wrapErr("upsert points", err)
	}
	st := resp.GetResult().GetStatus()
	if st != qdrant.UpdateStatus_Acknowledged && st != qdrant.UpdateStatus_Completed {
		return fmt.Errorf("upsert not acknowledged, status %d", st)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit int, filter *SearchFilter) ([]ScoredHit, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, collection %s expects %d: %w",
			len(vector), s.collection, s.dimension, ErrDimensionMismatch)
	}
	if limit <= 0 {
		limit = 10
	}

	req := &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
		Filter:         buildFilter(filter),
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, s.wrapErr("search points", err)
	}

	hits := make([]ScoredHit, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		hits = append(hits, ScoredHit{
			ID:      pointID(point.GetId()),
			Score:   point.GetScore(),
			Payload: fromQdrantPayload(point.GetPayload()),
		})
	}
	return hits, nil
}

func (s *QdrantStore) CollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	resp, err := s.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: s.collection})
	if err != nil {
		return nil, s.wrapErr("get collection info", err)
	}
	info := resp.GetResult()
	return &CollectionInfo{
		PointCount: info.GetPointsCount(),
		Status:     info.GetStatus().String(),
	}, nil
}

// wrapErr tags transport-level failures with ErrUnavailable so callers can
// distinguish an unreachable index from an empty result.
func (s *QdrantStore) wrapErr(op string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%s on %s: %v: %w", op, s.collection, err, ErrUnavailable)
	}
	return fmt.Errorf("%s on %s: %w", op, s.collection, err)
}

// buildFilter translates each present predicate into one conjunctive
// condition. A filter with no predicates is sent as no filter at all.
func buildFilter(f *SearchFilter) *qdrant.Filter {
	if f.empty() {
		return nil
	}

	var must []*qdrant.Condition
	addKeyword := func(key, value string) {
		if value == "" {
			return
		}
		must = append(must, fieldCondition(&qdrant.FieldCondition{
			Key:   key,
			Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: value}},
		}))
	}

	addKeyword("language", f.Language)
	addKeyword("chunk_type", f.ChunkType)
	addKeyword("file_name", f.FileName)
	addKeyword("jurisdiction", f.Jurisdiction)
	addKeyword("category", f.Category)

	if f.Visa != "" {
		must = append(must, fieldCondition(&qdrant.FieldCondition{
			Key: "visa_in",
			Match: &qdrant.Match{MatchValue: &qdrant.Match_Keywords{
				Keywords: &qdrant.RepeatedStrings{Strings: []string{f.Visa}},
			}},
		}))
	}
	if f.MinTOCLevel != nil {
		gte := float64(*f.MinTOCLevel)
		must = append(must, fieldCondition(&qdrant.FieldCondition{
			Key:   "toc_level",
			Range: &qdrant.Range{Gte: &gte},
		}))
	}

	return &qdrant.Filter{Must: must}
}

func fieldCondition(fc *qdrant.FieldCondition) *qdrant.Condition {
	return &qdrant.Condition{ConditionOneOf: &qdrant.Condition_Field{Field: fc}}
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func toQdrantPayload(payload map[string]interface{}) map[string]*qdrant.Value {
	out := make(map[string]*qdrant.Value, len(payload))
	for k, v := range payload {
		out[k] = toQdrantValue(v)
	}
	return out
}

func toQdrantValue(v interface{}) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
	case []string:
		values := make([]*qdrant.Value, len(val))
		for i, s := range val {
			values[i] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
		}
		return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}
	case map[string]interface{}:
		return &qdrant.Value{Kind: &qdrant.Value_StructValue{StructValue: &qdrant.Struct{Fields: toQdrantPayload(val)}}}
	case nil:
		return &qdrant.Value{Kind: &qdrant.Value_NullValue{NullValue: qdrant.NullValue_NULL_VALUE}}
	default:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprintf("%v", val)}}
	}
}

func fromQdrantPayload(payload map[string]*qdrant.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = fromQdrantValue(v)
	}
	return out
}

func fromQdrantValue(v *qdrant.Value) interface{} {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_ListValue:
		items := make([]interface{}, 0, len(kind.ListValue.GetValues()))
		for _, item := range kind.ListValue.GetValues() {
			items = append(items, fromQdrantValue(item))
		}
		return items
	case *qdrant.Value_StructValue:
		return fromQdrantPayload(kind.StructValue.GetFields())
	default:
		return nil
	}
}
