package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docqa-service/models"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PGVector stores points in a shared chunk_vectors table partitioned by
// collection name; vector_collections records each collection's dimension.
type PGVector struct {
	db *gorm.DB
}

type VectorCollection struct {
	Name      string    `gorm:"primaryKey;size:128"`
	Dimension int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (VectorCollection) TableName() string { return "vector_collections" }

type ChunkVector struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Collection    string          `gorm:"size:128;not null;index"`
	DocumentIndex int             `gorm:"not null"`
	SourceName    string          `gorm:"size:512"`
	Position      int             `gorm:"not null"`
	StartWord     int
	EndWord       int
	Page          int
	Content       string          `gorm:"type:text;not null"`
	Embedding     pgvector.Vector `gorm:"type:vector"`
}

func (ChunkVector) TableName() string { return "chunk_vectors" }

// NewPGVector migrates the schema; the vector extension must already be enabled.
func NewPGVector(ctx context.Context, db *gorm.DB) (*PGVector, error) {
	if err := db.WithContext(ctx).AutoMigrate(&VectorCollection{}, &ChunkVector{}); err != nil {
		return nil, fmt.Errorf("failed to migrate vector tables: %w", err)
	}
	return &PGVector{db: db}, nil
}

func (p *PGVector) Backend() string { return "pgvector" }

func (p *PGVector) dimension(ctx context.Context, name string) (int, error) {
	var vc VectorCollection
	err := p.db.WithContext(ctx).Where("name = ?", name).First(&vc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return 0, err
	}
	return vc.Dimension, nil
}

func (p *PGVector) EnsureCollection(ctx context.Context, name string, dim int) error {
	if err := checkDimension(dim); err != nil {
		return err
	}
	vc := VectorCollection{Name: name, Dimension: dim}
	if err := p.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&vc).Error; err != nil {
		return fmt.Errorf("failed to register collection: %w", err)
	}
	existing, err := p.dimension(ctx, name)
	if err != nil {
		return err
	}
	if existing != dim {
		return fmt.Errorf("%w: %s has %d, requested %d", ErrDimensionMismatch, name, existing, dim)
	}
	return nil
}

func (p *PGVector) Upsert(ctx context.Context, name string, chunks []models.Chunk, vectors [][]float32) error {
	dim, err := p.dimension(ctx, name)
	if err != nil {
		return err
	}
	if err := checkUpsert(chunks, vectors, dim); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	rows := make([]ChunkVector, len(chunks))
	for i, c := range chunks {
		rows[i] = ChunkVector{
			ID:            uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d:%d", name, c.DocumentIndex, c.Position))),
			Collection:    name,
			DocumentIndex: c.DocumentIndex,
			SourceName:    c.SourceName,
			Position:      c.Position,
			StartWord:     c.StartWord,
			EndWord:       c.EndWord,
			Page:          c.Page,
			Content:       c.Text,
			Embedding:     pgvector.NewVector(vectors[i]),
		}
	}
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, 100).Error
}

type scoredRow struct {
	ChunkVector
	Distance float64
}

func (p *PGVector) Query(ctx context.Context, name string, vector []float32, topK int) ([]models.ScoredChunk, error) {
	dim, err := p.dimension(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d values, collection has %d", ErrDimensionMismatch, len(vector), dim)
	}
	if topK <= 0 {
		topK = 5
	}

	var rows []scoredRow
	err = p.db.WithContext(ctx).
		Model(&ChunkVector{}).
		Select("*, embedding <=> ? AS distance", pgvector.NewVector(vector)).
		Where("collection = ?", name).
		Order("distance ASC").
		Limit(topK).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	out := make([]models.ScoredChunk, len(rows))
	for i, r := range rows {
		out[i] = models.ScoredChunk{
			Chunk: models.Chunk{
				Text:          r.Content,
				DocumentIndex: r.DocumentIndex,
				SourceName:    r.SourceName,
				Position:      r.Position,
				StartWord:     r.StartWord,
				EndWord:       r.EndWord,
				Page:          r.Page,
			},
			Score: 1 - r.Distance,
		}
	}
	return out, nil
}

func (p *PGVector) DeleteCollection(ctx context.Context, name string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection = ?", name).Delete(&ChunkVector{}).Error; err != nil {
			return err
		}
		return tx.Where("name = ?", name).Delete(&VectorCollection{}).Error
	})
}

func (p *PGVector) ListCollections(ctx context.Context) ([]string, error) {
	var names []string
	err := p.db.WithContext(ctx).Model(&VectorCollection{}).Order("name").Pluck("name", &names).Error
	return names, err
}
