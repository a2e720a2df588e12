package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// PGVectorStore 基于PostgreSQL pgvector扩展的向量存储实现
type PGVectorStore struct {
	db         *gorm.DB
	vectorSize int
}

// passageRow passages 表的行结构
type passageRow struct {
	ChunkID           string `gorm:"primaryKey;size:64"`
	Content           string `gorm:"type:text;not null"`
	ContentHash       string `gorm:"size:64"`
	ChunkIndex        int
	TokenCount        int
	Source            string `gorm:"type:text"`
	Title             string `gorm:"size:500"`
	Embedding         pgvector.Vector
	EmbeddingModel    string `gorm:"size:100"`
	EmbeddingProvider string `gorm:"size:50"`
	CreatedAt         time.Time
}

// TableName 指定表名
func (passageRow) TableName() string {
	return "passages"
}

// NewPGVectorStore 创建新的pgvector存储实例
func NewPGVectorStore(db *gorm.DB, vectorSize int) (*PGVectorStore, error) {
	if vectorSize <= 0 {
		vectorSize = 1536
	}

	store := &PGVectorStore{
		db:         db,
		vectorSize: vectorSize,
	}

	if err := store.ensureSchema(); err != nil {
		return nil, fmt.Errorf("初始化 pgvector 存储失败: %w", err)
	}

	return store, nil
}

// ensureSchema 确保pgvector扩展与数据表已就绪
func (s *PGVectorStore) ensureSchema() error {
	if err := s.db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return err
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS passages (
			chunk_id           varchar(64) PRIMARY KEY,
			content            text NOT NULL,
			content_hash       varchar(64),
			chunk_index        integer,
			token_count        integer,
			source             text,
			title              varchar(500),
			embedding          vector(%d),
			embedding_model    varchar(100),
			embedding_provider varchar(50),
			created_at         timestamptz DEFAULT NOW()
		)`, s.vectorSize)
	return s.db.Exec(createTable).Error
}

// AddVectors 添加向量到存储
func (s *PGVectorStore) AddVectors(ctx context.Context, vectors []*Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	// 使用事务批量插入
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, vec := range vectors {
			if len(vec.Embedding) != s.vectorSize {
				return fmt.Errorf("向量维度不匹配: 期望 %d 实际 %d", s.vectorSize, len(vec.Embedding))
			}

			row := &passageRow{
				ChunkID:           vec.ChunkID,
				Content:           vec.Content,
				ContentHash:       vec.ContentHash,
				ChunkIndex:        vec.ChunkIndex,
				TokenCount:        vec.TokenCount,
				Source:            vec.Source,
				Title:             vec.Title,
				Embedding:         pgvector.NewVector(vec.Embedding),
				EmbeddingModel:    vec.EmbeddingModel,
				EmbeddingProvider: vec.EmbeddingProvider,
			}

			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("写入知识片段失败: %w", err)
			}
		}
		return nil
	})
}

// Search 执行向量相似度搜索
// 1 - (embedding <=> query) 为余弦相似度，<=> 是pgvector的余弦距离操作符
func (s *PGVectorStore) Search(ctx context.Context, queryVector []float32, topK int) ([]*SearchResult, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("查询向量不能为空")
	}
	if topK <= 0 {
		topK = 5
	}

	query := `
		SELECT
			chunk_id,
			content,
			chunk_index,
			content_hash,
			source,
			title,
			1 - (embedding <=> ?) AS similarity
		FROM passages
		ORDER BY embedding <=> ?
		LIMIT ?
	`

	queryVec := pgvector.NewVector(queryVector)

	var rows []struct {
		ChunkID     string  `gorm:"column:chunk_id"`
		Content     string  `gorm:"column:content"`
		ChunkIndex  int     `gorm:"column:chunk_index"`
		ContentHash string  `gorm:"column:content_hash"`
		Source      string  `gorm:"column:source"`
		Title       string  `gorm:"column:title"`
		Similarity  float64 `gorm:"column:similarity"`
	}

	if err := s.db.WithContext(ctx).Raw(query, queryVec, queryVec, topK).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("向量搜索失败: %w", err)
	}

	results := make([]*SearchResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, &SearchResult{
			ChunkID:     r.ChunkID,
			Content:     r.Content,
			ChunkIndex:  r.ChunkIndex,
			ContentHash: r.ContentHash,
			Source:      r.Source,
			Title:       r.Title,
			Similarity:  r.Similarity,
			Score:       r.Similarity,
		})
	}

	return results, nil
}

// Count 查询存储中的向量数量
func (s *PGVectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&passageRow{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("查询向量数量失败: %w", err)
	}
	return count, nil
}

// Reset 清空全部向量，用于全量重建索引
func (s *PGVectorStore) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("TRUNCATE TABLE passages").Error
}
