package rag

import "context"

// Vector 描述一条需要写入向量存储的知识片段。
type Vector struct {
	ChunkID           string
	Content           string
	ContentHash       string
	ChunkIndex        int
	TokenCount        int
	Source            string // 来源页面 URL
	Title             string // 来源页面标题
	Embedding         []float32
	EmbeddingModel    string
	EmbeddingProvider string
}

// SearchResult 描述一次相似度检索的返回结果，按相似度降序排列。
type SearchResult struct {
	ChunkID     string  `json:"chunk_id"`
	Content     string  `json:"content"`
	ChunkIndex  int     `json:"chunk_index"`
	Similarity  float64 `json:"similarity"`
	Score       float64 `json:"score"`
	Source      string  `json:"source"`
	Title       string  `json:"title"`
	ContentHash string  `json:"content_hash"`
}

// VectorStore 抽象向量写入与相似度检索，可由不同后端实现（Qdrant、pgvector 等）。
type VectorStore interface {
	AddVectors(ctx context.Context, vectors []*Vector) error
	Search(ctx context.Context, queryVector []float32, topK int) ([]*SearchResult, error)
	Count(ctx context.Context) (int64, error)
	Reset(ctx context.Context) error
}
