package rag

import (
	"context"
	"fmt"
	"time"

	"akademikai/internal/metrics"
)

// Retriever 检索适配器：向量化查询文本后在向量存储中取最相似的片段
type Retriever struct {
	embeddingProvider EmbeddingProvider
	vectorStore       VectorStore
}

// NewRetriever 创建检索适配器
func NewRetriever(embeddingProvider EmbeddingProvider, vectorStore VectorStore) *Retriever {
	return &Retriever{
		embeddingProvider: embeddingProvider,
		vectorStore:       vectorStore,
	}
}

// Retrieve 返回与 query 最相似的 topK 个片段，按相似度降序
// 底层嵌入或检索失败时直接向上传递错误
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]*SearchResult, error) {
	start := time.Now()

	queryEmbedding, err := r.embeddingProvider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询向量化失败: %w", err)
	}

	results, err := r.vectorStore.Search(ctx, queryEmbedding, topK)
	if err != nil {
		return nil, fmt.Errorf("向量搜索失败: %w", err)
	}

	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	metrics.RetrievalResults.Observe(float64(len(results)))

	return results, nil
}
