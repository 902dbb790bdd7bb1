package store

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// guideDocument MongoDB 中的段落文档。
type guideDocument struct {
	Seq       string    `bson:"seq"`
	Content   string    `bson:"content"`
	Embedding []float32 `bson:"embedding"`
	Dimension int       `bson:"dimension"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore 基于 MongoDB 集合的存储。
// 每次 Upsert 是单文档原子操作；seq 为 ULID，只在首次插入时写入，用于保持插入顺序。
type MongoStore struct {
	coll *mongo.Collection
	dims dimensionGuard
	now  func() time.Time
}

// NewMongoStore 创建存储并确保索引存在。
func NewMongoStore(ctx context.Context, coll *mongo.Collection) (*MongoStore, error) {
	s := &MongoStore{coll: coll, now: time.Now}
	s.dims.load = s.loadDimension

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, ErrStoreUnavailable.WithCause(err)
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "content", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_content"),
		},
		{
			Keys:    bson.D{{Key: "seq", Value: 1}},
			Options: options.Index().SetName("idx_seq"),
		},
	})
	return err
}

func (s *MongoStore) loadDimension(ctx context.Context) (int, error) {
	var doc struct {
		Dimension int `bson:"dimension"`
	}
	opts := options.FindOne().SetProjection(bson.D{{Key: "dimension", Value: 1}})
	err := s.coll.FindOne(ctx, bson.D{}, opts).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return 0, nil
	case err != nil:
		return 0, ErrStoreUnavailable.WithCause(err)
	}
	return doc.Dimension, nil
}

// Upsert implements GuideStore.
func (s *MongoStore) Upsert(ctx context.Context, content string, embedding []float32) error {
	return s.dims.admit(ctx, len(embedding), func() error {
		err := s.upsert(ctx, content, embedding)
		if mongo.IsDuplicateKeyError(err) {
			// 另一个写入方同时插入了同一 content，重试时会命中已有文档
			err = s.upsert(ctx, content, embedding)
		}
		if err != nil {
			return ErrStoreUnavailable.WithCause(err)
		}
		return nil
	})
}

func (s *MongoStore) upsert(ctx context.Context, content string, embedding []float32) error {
	now := s.now()
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "embedding", Value: embedding},
			{Key: "dimension", Value: len(embedding)},
			{Key: "updated_at", Value: now},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "seq", Value: ulid.Make().String()},
			{Key: "created_at", Value: now},
		}},
	}

	_, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "content", Value: content}},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

// TopK implements GuideStore. 相似度在进程内计算，语料规模很小，不需要向量索引。
func (s *MongoStore) TopK(ctx context.Context, query []float32, k int) ([]ScoredEntry, error) {
	if k <= 0 {
		return []ScoredEntry{}, nil
	}
	empty, err := s.dims.check(ctx, len(query))
	if err != nil {
		return nil, err
	}
	if empty {
		return []ScoredEntry{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: 1}}).
		SetProjection(bson.D{{Key: "content", Value: 1}, {Key: "embedding", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, ErrStoreUnavailable.WithCause(err)
	}

	var docs []guideDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, ErrStoreUnavailable.WithCause(err)
	}

	entries := make([]GuideEntry, len(docs))
	for i, d := range docs {
		entries[i] = GuideEntry{Content: d.Content, Embedding: d.Embedding}
	}
	return rank(entries, query, k), nil
}

// Count implements GuideStore.
func (s *MongoStore) Count(ctx context.Context) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, ErrStoreUnavailable.WithCause(err)
	}
	return int(n), nil
}

var _ GuideStore = (*MongoStore)(nil)
