package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// QdrantOptions 初始化 Qdrant 向量存储的配置
type QdrantOptions struct {
	Endpoint        string
	APIKey          string
	Collection      string
	VectorDimension int
	Distance        string
	TimeoutSeconds  int
	HTTPClient      *http.Client
	// CreateIfMissing 集合不存在时是否自动创建。
	// 索引构建工具置为 true；查询服务保持 false——索引缺失属于致命配置错误，
	// 不应静默创建一个空集合对外服务。
	SkipCollectionCheck bool
	CreateIfMissing     bool
}

// QdrantStore 基于 Qdrant HTTP API 的向量存储实现
type QdrantStore struct {
	client          *http.Client
	baseURL         string
	apiKey          string
	collection      string
	vectorSize      int
	distance        string
	skipEnsure      bool
	createIfMissing bool
	ensureOnce      sync.Once
	ensureErr       error
}

// NewQdrantStore 创建 Qdrant 向量存储实例
func NewQdrantStore(opts QdrantOptions) (*QdrantStore, error) {
	baseURL := strings.TrimSpace(opts.Endpoint)
	if baseURL == "" {
		return nil, fmt.Errorf("qdrant endpoint 不能为空")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	collection := opts.Collection
	if collection == "" {
		collection = "akademikai_passages"
	}

	vectorSize := opts.VectorDimension
	if vectorSize <= 0 {
		vectorSize = 1536
	}

	distance := opts.Distance
	if distance == "" {
		distance = "Cosine"
	}

	timeout := opts.TimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	}

	store := &QdrantStore{
		client:          client,
		baseURL:         baseURL,
		apiKey:          opts.APIKey,
		collection:      collection,
		vectorSize:      vectorSize,
		distance:        distance,
		skipEnsure:      opts.SkipCollectionCheck,
		createIfMissing: opts.CreateIfMissing,
	}

	if err := store.ensureCollection(context.Background()); err != nil {
		return nil, err
	}

	return store, nil
}

// AddVectors 写入或更新一批向量
func (s *QdrantStore) AddVectors(ctx context.Context, vectors []*Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	points := make([]qdrantPoint, 0, len(vectors))
	for _, vec := range vectors {
		if vec == nil {
			continue
		}
		if len(vec.Embedding) != s.vectorSize {
			return fmt.Errorf("向量维度不匹配: 期望 %d 实际 %d", s.vectorSize, len(vec.Embedding))
		}

		payload := map[string]any{
			"content":            vec.Content,
			"content_hash":       vec.ContentHash,
			"chunk_index":        vec.ChunkIndex,
			"token_count":        vec.TokenCount,
			"source":             vec.Source,
			"title":              vec.Title,
			"embedding_model":    vec.EmbeddingModel,
			"embedding_provider": vec.EmbeddingProvider,
		}

		points = append(points, qdrantPoint{
			ID:      vec.ChunkID,
			Vector:  vec.Embedding,
			Payload: payload,
		})
	}

	req := upsertPointsRequest{Points: points}
	var resp qdrantOperationResponse
	if err := s.doRequest(ctx, http.MethodPut, s.pointsURL("?wait=true"), req, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("qdrant upsert 失败: %s", resp.Error)
	}
	return nil
}

// Search 执行相似度检索，返回按分数降序的片段
func (s *QdrantStore) Search(ctx context.Context, queryVector []float32, topK int) ([]*SearchResult, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("查询向量不能为空")
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}

	req := searchRequest{
		Vector:      queryVector,
		Limit:       topK,
		WithPayload: true,
	}

	var resp searchResponse
	if err := s.doRequest(ctx, http.MethodPost, s.collectionPath("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("qdrant search 失败: %s", resp.Error)
	}

	results := make([]*SearchResult, 0, len(resp.Result))
	for _, item := range resp.Result {
		payload := item.Payload
		content, _ := payload["content"].(string)

		results = append(results, &SearchResult{
			ChunkID:     fmt.Sprint(item.ID),
			Content:     content,
			ChunkIndex:  toInt(payload["chunk_index"]),
			Score:       item.Score,
			Similarity:  item.Score,
			Source:      stringFromPayload(payload, "source"),
			Title:       stringFromPayload(payload, "title"),
			ContentHash: stringFromPayload(payload, "content_hash"),
		})
	}

	return results, nil
}

// Count 查询集合中的向量数量
func (s *QdrantStore) Count(ctx context.Context) (int64, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return 0, err
	}

	var resp countResponse
	if err := s.doRequest(ctx, http.MethodPost, s.collectionPath("/points/count"), countRequest{}, &resp); err != nil {
		return 0, err
	}
	if resp.Status != "ok" {
		return 0, fmt.Errorf("qdrant count 失败: %s", resp.Error)
	}

	return resp.Result.Count, nil
}

// Reset 删除并重建集合，用于全量重建索引
func (s *QdrantStore) Reset(ctx context.Context) error {
	var resp qdrantOperationResponse
	if err := s.doRequest(ctx, http.MethodDelete, s.collectionPath(""), nil, &resp); err != nil {
		return fmt.Errorf("删除 Qdrant 集合失败: %w", err)
	}

	createReq := createCollectionRequest{
		Vectors: qdrantVectorParams{
			Size:     s.vectorSize,
			Distance: s.distance,
		},
	}
	if err := s.doRequest(ctx, http.MethodPut, s.collectionPath(""), createReq, &resp); err != nil {
		return fmt.Errorf("重建 Qdrant 集合失败: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("重建 Qdrant 集合失败: %s", resp.Error)
	}
	return nil
}

// --- 内部辅助 ---

func (s *QdrantStore) collectionPath(path string) string {
	return fmt.Sprintf("/collections/%s%s", url.PathEscape(s.collection), path)
}

func (s *QdrantStore) pointsURL(query string) string {
	return fmt.Sprintf("/collections/%s/points%s", url.PathEscape(s.collection), query)
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	if s.skipEnsure {
		return nil
	}
	s.ensureOnce.Do(func() {
		// 先探测集合是否存在
		var resp qdrantOperationResponse
		err := s.doRequest(ctx, http.MethodGet, s.collectionPath(""), nil, &resp)
		if err == nil && resp.Status == "ok" {
			s.ensureErr = nil
			return
		}

		if !s.createIfMissing {
			s.ensureErr = fmt.Errorf("qdrant 集合 %s 不存在或不可用，请先运行索引构建工具", s.collection)
			return
		}

		createReq := createCollectionRequest{
			Vectors: qdrantVectorParams{
				Size:     s.vectorSize,
				Distance: s.distance,
			},
		}
		s.ensureErr = s.doRequest(ctx, http.MethodPut, s.collectionPath(""), createReq, &resp)
		if s.ensureErr == nil && resp.Status != "ok" {
			s.ensureErr = fmt.Errorf("创建 Qdrant 集合失败: %s", resp.Error)
		}
	})
	return s.ensureErr
}

func (s *QdrantStore) doRequest(ctx context.Context, method, path string, payload any, dest any) error {
	var bodyReader *bytes.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		bodyReader = bytes.NewReader(buf)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	fullURL := s.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("qdrant API 错误: %s (%d)", errBody["status"], resp.StatusCode)
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func stringFromPayload(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	case string:
		var iv int
		fmt.Sscanf(n, "%d", &iv)
		return iv
	default:
		return 0
	}
}

// --- Qdrant API payloads ---

type qdrantVectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type createCollectionRequest struct {
	Vectors qdrantVectorParams `json:"vectors"`
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type upsertPointsRequest struct {
	Points []qdrantPoint `json:"points"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchResponse struct {
	Status string              `json:"status"`
	Result []searchResultEntry `json:"result"`
	Error  string              `json:"error"`
}

type searchResultEntry struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type qdrantOperationResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type countRequest struct{}

type countResponse struct {
	Status string `json:"status"`
	Result struct {
		Count int64 `json:"count"`
	} `json:"result"`
	Error string `json:"error"`
}
