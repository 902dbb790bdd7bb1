package store

import (
	"context"
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kart-io/guidebot/pkg/utils/json"
)

// vector 以 JSON 文本持久化 []float32。
type vector []float32

// Value implements driver.Valuer.
func (v vector) Value() (driver.Value, error) {
	b, err := json.Marshal([]float32(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (v *vector) Scan(src any) error {
	var data []byte
	switch s := src.(type) {
	case []byte:
		data = s
	case string:
		data = []byte(s)
	case nil:
		*v = nil
		return nil
	default:
		return fmt.Errorf("store: cannot scan %T into vector", src)
	}
	var out []float32
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*v = out
	return nil
}

// guideRecord 关系库中的段落行。content 可能超过索引长度限制，唯一约束建在其 SHA256 上。
type guideRecord struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Seq         string    `gorm:"size:26;not null;index:idx_guides_seq"`
	ContentHash string    `gorm:"size:64;not null;uniqueIndex:uniq_guides_content_hash"`
	Content     string    `gorm:"type:text;not null"`
	Embedding   vector    `gorm:"type:text;not null"`
	Dimension   int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName implements gorm's tabler.
func (guideRecord) TableName() string {
	return "guides"
}

// SQLStore 基于 gorm 的存储，支持 sqlite、mysql 和 postgres。
type SQLStore struct {
	db   *gorm.DB
	dims dimensionGuard
}

// NewSQLStore 创建存储并迁移表结构。
func NewSQLStore(ctx context.Context, db *gorm.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	s.dims.load = s.loadDimension

	if err := db.WithContext(ctx).AutoMigrate(&guideRecord{}); err != nil {
		return nil, ErrStoreUnavailable.WithCause(fmt.Errorf("migrate guides: %w", err))
	}
	return s, nil
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func (s *SQLStore) loadDimension(ctx context.Context) (int, error) {
	var dims []int
	err := s.db.WithContext(ctx).Model(&guideRecord{}).Limit(1).Pluck("dimension", &dims).Error
	if err != nil {
		return 0, ErrStoreUnavailable.WithCause(err)
	}
	if len(dims) == 0 {
		return 0, nil
	}
	return dims[0], nil
}

// Upsert implements GuideStore. 冲突时只更新向量，seq 保持首次插入的值。
func (s *SQLStore) Upsert(ctx context.Context, content string, embedding []float32) error {
	return s.dims.admit(ctx, len(embedding), func() error {
		return s.upsert(ctx, content, embedding)
	})
}

func (s *SQLStore) upsert(ctx context.Context, content string, embedding []float32) error {
	now := time.Now()
	rec := &guideRecord{
		Seq:         ulid.Make().String(),
		ContentHash: contentHash(content),
		Content:     content,
		Embedding:   vector(embedding),
		Dimension:   len(embedding),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"embedding", "dimension", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return ErrStoreUnavailable.WithCause(err)
	}
	return nil
}

// TopK implements GuideStore.
func (s *SQLStore) TopK(ctx context.Context, query []float32, k int) ([]ScoredEntry, error) {
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

	var records []guideRecord
	err = s.db.WithContext(ctx).
		Select("content", "embedding").
		Order("seq ASC").
		Find(&records).Error
	if err != nil {
		return nil, ErrStoreUnavailable.WithCause(err)
	}

	entries := make([]GuideEntry, len(records))
	for i, r := range records {
		entries[i] = GuideEntry{Content: r.Content, Embedding: []float32(r.Embedding)}
	}
	return rank(entries, query, k), nil
}

// Count implements GuideStore.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&guideRecord{}).Count(&n).Error; err != nil {
		return 0, ErrStoreUnavailable.WithCause(err)
	}
	return int(n), nil
}

var _ GuideStore = (*SQLStore)(nil)
