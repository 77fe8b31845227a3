package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shopchat/internal/domain/entity"
	"shopchat/internal/domain/repository"
)

// QdrantIndex is the product search index. Queries are embedded and
// matched by cosine similarity against the catalog collection.
type QdrantIndex struct {
	client         *qdrant.Client
	embedder       repository.Embedder
	collectionName string
}

func NewQdrantIndex(client *qdrant.Client, embedder repository.Embedder, collectionName string) *QdrantIndex {
	return &QdrantIndex{
		client:         client,
		embedder:       embedder,
		collectionName: collectionName,
	}
}

// InitCollection creates the catalog collection if it does not exist yet.
func (s *QdrantIndex) InitCollection(ctx context.Context, dim uint64) error {
	_, err := s.client.GetCollectionInfo(ctx, s.collectionName)
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.NotFound {
		return fmt.Errorf("inspect collection %q: %w", s.collectionName, err)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w", s.collectionName, err)
	}
	return nil
}

func (s *QdrantIndex) Query(ctx context.Context, text string, topK int) ([]entity.SearchMatch, error) {
	vector, err := s.embedder.CreateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query collection %q: %v", entity.ErrSearchUnavailable, s.collectionName, err)
	}

	matches := make([]entity.SearchMatch, 0, len(res))
	for _, hit := range res {
		matches = append(matches, entity.SearchMatch{
			ID:     hit.Payload["id"].GetStringValue(),
			Score:  hit.Score,
			Record: recordFromPayload(hit.Payload),
		})
	}
	return matches, nil
}

func (s *QdrantIndex) Upsert(ctx context.Context, records []entity.ProductRecord) error {
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, rec := range records {
		vector, err := s.embedder.CreateEmbedding(ctx, rec.SearchBlob())
		if err != nil {
			return fmt.Errorf("embed product %q: %w", rec.ID, err)
		}
		points = append(points, &qdrant.PointStruct{
			// Deterministic ID so a re-sync overwrites instead of duplicating.
			Id:      qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(rec.ID)).String()),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(payloadFromRecord(rec)),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert %d products: %w", len(points), err)
	}
	return nil
}

func payloadFromRecord(rec entity.ProductRecord) map[string]any {
	tags := make([]any, 0, len(rec.Tags))
	for _, t := range rec.Tags {
		tags = append(tags, t)
	}
	return map[string]any{
		"id":           rec.ID,
		"handle":       rec.Handle,
		"title":        rec.Title,
		"price":        rec.Price,
		"image_url":    rec.ImageURL,
		"product_url":  rec.ProductURL,
		"variant_id":   rec.VariantID,
		"vendor":       rec.Vendor,
		"product_type": rec.ProductType,
		"tags":         tags,
		"text":         rec.TextForBM25,
	}
}

func recordFromPayload(payload map[string]*qdrant.Value) entity.ProductRecord {
	rec := entity.ProductRecord{
		ID:          payload["id"].GetStringValue(),
		Handle:      payload["handle"].GetStringValue(),
		Title:       payload["title"].GetStringValue(),
		Price:       payload["price"].GetStringValue(),
		ImageURL:    payload["image_url"].GetStringValue(),
		ProductURL:  payload["product_url"].GetStringValue(),
		VariantID:   payload["variant_id"].GetStringValue(),
		Vendor:      payload["vendor"].GetStringValue(),
		ProductType: payload["product_type"].GetStringValue(),
		TextForBM25: payload["text"].GetStringValue(),
	}
	if list := payload["tags"].GetListValue(); list != nil {
		for _, v := range list.Values {
			rec.Tags = append(rec.Tags, v.GetStringValue())
		}
	}
	return rec
}
