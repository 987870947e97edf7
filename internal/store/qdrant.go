package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ajitpratap0/sage/internal/models"
)

const (
	qdrantDialTimeout  = 10 * time.Second
	qdrantReadTimeout  = 10 * time.Second
	qdrantWriteTimeout = 30 * time.Second
)

func withTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}

// QdrantStore implements KnowledgeStore using Qdrant's gRPC API.
type QdrantStore struct {
	conn       *grpc.ClientConn
	points     pb.PointsClient
	collection pb.CollectionsClient
	collName   string
	dimension  uint64
	logger     *slog.Logger
}

// NewQdrantStore creates a new Qdrant store connection.
func NewQdrantStore(host string, port int, collection string, dimension uint64, useTLS bool, logger *slog.Logger) (*QdrantStore, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	opts := []grpc.DialOption{}
	if !useTLS {
		logger.Warn("Qdrant connection using insecure credentials (no TLS)")
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to Qdrant at %s: %w", addr, err)
	}

	// Verify the connection with a timeout by issuing a lightweight RPC.
	dialCtx, dialCancel := context.WithTimeout(context.Background(), qdrantDialTimeout)
	defer dialCancel()
	if _, err := pb.NewCollectionsClient(conn).List(dialCtx, &pb.ListCollectionsRequest{}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("verifying Qdrant connection at %s: %w", addr, err)
	}

	logger.Info("connected to Qdrant", "addr", addr, "collection", collection)

	return &QdrantStore{
		conn:       conn,
		points:     pb.NewPointsClient(conn),
		collection: pb.NewCollectionsClient(conn),
		collName:   collection,
		dimension:  dimension,
		logger:     logger,
	}, nil
}

// EnsureCollection creates the collection if missing. When the collection
// already exists its vector size is checked against the configured
// dimension; a mismatch is unrecoverable and reported immediately rather
// than surfacing later as nonsense search results.
func (q *QdrantStore) EnsureCollection(ctx context.Context) error {
	rctx, rcancel := withTimeout(ctx, qdrantReadTimeout)
	defer rcancel()
	resp, err := q.collection.List(rctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("listing collections: %w: %w", ErrCorrupt, err)
	}

	for _, c := range resp.GetCollections() {
		if c.GetName() == q.collName {
			return q.verifyDimension(ctx)
		}
	}

	wctx, wcancel := withTimeout(ctx, qdrantWriteTimeout)
	defer wcancel()
	_, err = q.collection.Create(wctx, &pb.CreateCollection{
		CollectionName: q.collName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     q.dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w: %w", q.collName, ErrCorrupt, err)
	}

	q.logger.Info("created collection", "name", q.collName, "dimension", q.dimension)

	// Payload indexes for fields used in filters.
	indexFields := []string{"source", "content_hash", "tags"}
	for _, field := range indexFields {
		ictx, icancel := withTimeout(ctx, qdrantWriteTimeout)
		defer icancel()
		_, err := q.points.CreateFieldIndex(ictx, &pb.CreateFieldIndexCollection{
			CollectionName: q.collName,
			FieldName:      field,
			FieldType:      pb.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			q.logger.Warn("creating field index", "field", field, "error", err)
		}
	}

	return nil
}

func (q *QdrantStore) verifyDimension(ctx context.Context) error {
	rctx, rcancel := withTimeout(ctx, qdrantReadTimeout)
	defer rcancel()
	info, err := q.collection.Get(rctx, &pb.GetCollectionInfoRequest{CollectionName: q.collName})
	if err != nil {
		return fmt.Errorf("getting collection info: %w: %w", ErrCorrupt, err)
	}
	size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size != q.dimension {
		return fmt.Errorf("collection %s has dimension %d, embedder produces %d: %w", q.collName, size, q.dimension, ErrDimensionMismatch)
	}
	return nil
}

func (q *QdrantStore) Upsert(ctx context.Context, chunk models.KnowledgeChunk, vector []float32) error {
	if uint64(len(vector)) != q.dimension {
		return fmt.Errorf("vector has dimension %d, collection expects %d: %w", len(vector), q.dimension, ErrDimensionMismatch)
	}

	ctx, cancel := withTimeout(ctx, qdrantWriteTimeout)
	defer cancel()
	_, err := q.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collName,
		Points: []*pb.PointStruct{
			{
				Id: &pb.PointId{
					PointIdOptions: &pb.PointId_Uuid{Uuid: chunk.ID},
				},
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{
						Vector: &pb.Vector{Data: vector},
					},
				},
				Payload: chunkToPayload(chunk),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("upserting chunk %s: %w: %w", chunk.ID, ErrCorrupt, err)
	}

	q.logger.Debug("upserted chunk", "id", chunk.ID, "source", chunk.Source, "seq", chunk.Seq)
	return nil
}

func (q *QdrantStore) Search(ctx context.Context, vector []float32, limit uint64, minScore float64, filter SearchFilter) ([]models.ScoredChunk, error) {
	if uint64(len(vector)) != q.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, collection expects %d: %w", len(vector), q.dimension, ErrDimensionMismatch)
	}

	ctx, cancel := withTimeout(ctx, qdrantReadTimeout)
	defer cancel()
	req := &pb.SearchPoints{
		CollectionName: q.collName,
		Vector:         vector,
		Limit:          limit,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if minScore > 0 {
		req.ScoreThreshold = float32Ptr(float32(minScore))
	}
	if !filter.IsZero() {
		req.Filter = searchFilterConditions(filter)
	}

	resp, err := q.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("searching: %w: %w", ErrCorrupt, err)
	}

	results := make([]models.ScoredChunk, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		results = append(results, models.ScoredChunk{
			Chunk: payloadToChunk(point.GetId().GetUuid(), point.GetPayload()),
			Score: float64(point.GetScore()),
		})
	}

	sortScored(results)
	return results, nil
}

func (q *QdrantStore) Get(ctx context.Context, id string) (*models.KnowledgeChunk, error) {
	ctx, cancel := withTimeout(ctx, qdrantReadTimeout)
	defer cancel()
	resp, err := q.points.Get(ctx, &pb.GetPoints{
		CollectionName: q.collName,
		Ids: []*pb.PointId{
			{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
		},
		WithPayload: &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("getting chunk %s: %w: %w", id, ErrCorrupt, err)
	}

	if len(resp.GetResult()) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	point := resp.GetResult()[0]
	chunk := payloadToChunk(point.GetId().GetUuid(), point.GetPayload())
	return &chunk, nil
}

func (q *QdrantStore) HasContentHash(ctx context.Context, hash string) (bool, error) {
	ctx, cancel := withTimeout(ctx, qdrantReadTimeout)
	defer cancel()
	resp, err := q.points.Count(ctx, &pb.CountPoints{
		CollectionName: q.collName,
		Filter:         keywordFilter("content_hash", hash),
		Exact:          boolPtr(true),
	})
	if err != nil {
		return false, fmt.Errorf("counting by content hash: %w: %w", ErrCorrupt, err)
	}
	return resp.GetResult().GetCount() > 0, nil
}

func (q *QdrantStore) DeleteSource(ctx context.Context, source string) error {
	ctx, cancel := withTimeout(ctx, qdrantWriteTimeout)
	defer cancel()
	_, err := q.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: q.collName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: keywordFilter("source", source),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting source %s: %w: %w", source, ErrCorrupt, err)
	}

	q.logger.Info("deleted source", "source", source)
	return nil
}

func (q *QdrantStore) Reset(ctx context.Context) error {
	wctx, wcancel := withTimeout(ctx, qdrantWriteTimeout)
	defer wcancel()
	if _, err := q.collection.Delete(wctx, &pb.DeleteCollection{CollectionName: q.collName}); err != nil {
		return fmt.Errorf("dropping collection %s: %w: %w", q.collName, ErrCorrupt, err)
	}
	return q.EnsureCollection(ctx)
}

// Stats returns collection statistics. Per-source counts are fetched
// concurrently after the distinct source set is collected.
func (q *QdrantStore) Stats(ctx context.Context) (*models.KnowledgeStats, error) {
	rctx, rcancel := withTimeout(ctx, qdrantReadTimeout)
	defer rcancel()
	info, err := q.collection.Get(rctx, &pb.GetCollectionInfoRequest{
		CollectionName: q.collName,
	})
	if err != nil {
		return nil, fmt.Errorf("getting collection info: %w: %w", ErrCorrupt, err)
	}

	stats := &models.KnowledgeStats{
		TotalChunks: int64(info.GetResult().GetPointsCount()),
		BySource:    make(map[string]int64),
	}

	sources, err := q.distinctSources(ctx)
	if err != nil {
		return nil, err
	}

	type countResult struct {
		source string
		count  int64
	}
	results := make([]countResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			cctx, ccancel := withTimeout(gctx, qdrantReadTimeout)
			defer ccancel()
			countResp, err := q.points.Count(cctx, &pb.CountPoints{
				CollectionName: q.collName,
				Filter:         keywordFilter("source", src),
				Exact:          boolPtr(true),
			})
			if err != nil {
				// Non-fatal: log and continue with 0 count.
				q.logger.Warn("counting by source", "source", src, "error", err)
				results[i] = countResult{source: src, count: 0}
				return nil
			}
			results[i] = countResult{source: src, count: int64(countResp.GetResult().GetCount())}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("counting stats: %w", err)
	}

	for _, r := range results {
		stats.BySource[r.source] = r.count
	}

	return stats, nil
}

// distinctSources scrolls the collection reading only the source payload field.
func (q *QdrantStore) distinctSources(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var sources []string
	var cursor *pb.PointId

	for {
		sctx, scancel := withTimeout(ctx, qdrantReadTimeout)
		limit := uint32(256)
		req := &pb.ScrollPoints{
			CollectionName: q.collName,
			Limit:          &limit,
			Offset:         cursor,
			WithPayload: &pb.WithPayloadSelector{
				SelectorOptions: &pb.WithPayloadSelector_Include{
					Include: &pb.PayloadIncludeSelector{Fields: []string{"source"}},
				},
			},
		}
		resp, err := q.points.Scroll(sctx, req)
		scancel()
		if err != nil {
			return nil, fmt.Errorf("scrolling sources: %w: %w", ErrCorrupt, err)
		}

		for _, point := range resp.GetResult() {
			src := getStringValue(point.GetPayload(), "source")
			if src != "" && !seen[src] {
				seen[src] = true
				sources = append(sources, src)
			}
		}

		cursor = resp.GetNextPageOffset()
		if cursor == nil {
			break
		}
	}

	return sources, nil
}

func (q *QdrantStore) Close() error {
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// --- Helper functions ---

func chunkToPayload(c models.KnowledgeChunk) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		"source":       {Kind: &pb.Value_StringValue{StringValue: c.Source}},
		"title":        {Kind: &pb.Value_StringValue{StringValue: c.Title}},
		"section":      {Kind: &pb.Value_StringValue{StringValue: c.Section}},
		"seq":          {Kind: &pb.Value_IntegerValue{IntegerValue: int64(c.Seq)}},
		"text":         {Kind: &pb.Value_StringValue{StringValue: c.Text}},
		"content_hash": {Kind: &pb.Value_StringValue{StringValue: c.ContentHash}},
		"indexed_at":   {Kind: &pb.Value_StringValue{StringValue: c.IndexedAt.Format(time.RFC3339)}},
	}

	if len(c.Tags) > 0 {
		tagValues := make([]*pb.Value, len(c.Tags))
		for i, tag := range c.Tags {
			tagValues[i] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: tag}}
		}
		payload["tags"] = &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: tagValues}}}
	}

	return payload
}

func payloadToChunk(id string, payload map[string]*pb.Value) models.KnowledgeChunk {
	c := models.KnowledgeChunk{
		ID:          id,
		Source:      getStringValue(payload, "source"),
		Title:       getStringValue(payload, "title"),
		Section:     getStringValue(payload, "section"),
		Seq:         int(getIntValue(payload, "seq")),
		Text:        getStringValue(payload, "text"),
		ContentHash: getStringValue(payload, "content_hash"),
	}

	if ts := getStringValue(payload, "indexed_at"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			c.IndexedAt = t
		}
	}

	if tagVal, ok := payload["tags"]; ok {
		if lv := tagVal.GetListValue(); lv != nil {
			for _, v := range lv.GetValues() {
				c.Tags = append(c.Tags, v.GetStringValue())
			}
		}
	}

	return c
}

func keywordCondition(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func keywordFilter(key, value string) *pb.Filter {
	return &pb.Filter{Must: []*pb.Condition{keywordCondition(key, value)}}
}

// searchFilterConditions translates a SearchFilter into Qdrant must
// conditions. A keyword match on a list payload field matches points whose
// list contains the value, so each requested tag becomes its own condition.
func searchFilterConditions(f SearchFilter) *pb.Filter {
	var must []*pb.Condition
	if f.Source != "" {
		must = append(must, keywordCondition("source", f.Source))
	}
	for _, tag := range f.Tags {
		must = append(must, keywordCondition("tags", tag))
	}
	return &pb.Filter{Must: must}
}

func getStringValue(payload map[string]*pb.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func getIntValue(payload map[string]*pb.Value, key string) int64 {
	if v, ok := payload[key]; ok {
		return v.GetIntegerValue()
	}
	return 0
}

func float32Ptr(v float32) *float32 { return &v }
func boolPtr(v bool) *bool          { return &v }
