package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newQdrantTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func collectionOKHandler(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/collections/test_passages" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
			return
		}
		next(w, r)
	}
}

func TestQdrantStoreMissingCollection(t *testing.T) {
	server := newQdrantTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		// 集合不存在
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":"error"}`))
	})

	_, err := NewQdrantStore(QdrantOptions{
		Endpoint:   server.URL,
		Collection: "test_passages",
	})
	if err == nil {
		t.Fatal("期望集合缺失时返回错误")
	}
}

func TestQdrantStoreCreateIfMissing(t *testing.T) {
	created := false
	server := newQdrantTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status":"error"}`))
		case r.Method == http.MethodPut:
			var req createCollectionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("解析创建请求失败: %v", err)
			}
			if req.Vectors.Size != 4 || req.Vectors.Distance != "Cosine" {
				t.Errorf("创建参数不符: %+v", req.Vectors)
			}
			created = true
			w.Write([]byte(`{"status":"ok"}`))
		default:
			t.Errorf("未预期的请求: %s %s", r.Method, r.URL.Path)
		}
	})

	_, err := NewQdrantStore(QdrantOptions{
		Endpoint:        server.URL,
		Collection:      "test_passages",
		VectorDimension: 4,
		CreateIfMissing: true,
	})
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	if !created {
		t.Fatal("期望自动创建集合")
	}
}

func TestQdrantStoreAddVectors(t *testing.T) {
	var captured upsertPointsRequest
	server := newQdrantTestServer(t, collectionOKHandler(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/collections/test_passages/points" {
			t.Errorf("未预期的请求: %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("wait") != "true" {
			t.Error("upsert 应使用 wait=true")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("解析 upsert 请求失败: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))

	store, err := NewQdrantStore(QdrantOptions{
		Endpoint:        server.URL,
		Collection:      "test_passages",
		VectorDimension: 3,
	})
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	err = store.AddVectors(context.Background(), []*Vector{
		{
			ChunkID:           "11111111-1111-1111-1111-111111111111",
			Content:           "chunk body",
			ContentHash:       "hash",
			ChunkIndex:        2,
			TokenCount:        7,
			Source:            "https://u/page",
			Title:             "Page",
			Embedding:         []float32{0.1, 0.2, 0.3},
			EmbeddingModel:    "text-embedding-3-small",
			EmbeddingProvider: "openai",
		},
	})
	if err != nil {
		t.Fatalf("AddVectors 失败: %v", err)
	}

	if len(captured.Points) != 1 {
		t.Fatalf("期望 1 个 point，实际 %d", len(captured.Points))
	}
	p := captured.Points[0]
	if p.ID != "11111111-1111-1111-1111-111111111111" {
		t.Errorf("point ID 不符: %s", p.ID)
	}
	if p.Payload["content"] != "chunk body" || p.Payload["source"] != "https://u/page" {
		t.Errorf("payload 不符: %+v", p.Payload)
	}
}

func TestQdrantStoreAddVectorsDimensionMismatch(t *testing.T) {
	server := newQdrantTestServer(t, collectionOKHandler(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("维度不匹配时不应发起写入请求: %s %s", r.Method, r.URL.Path)
	}))

	store, err := NewQdrantStore(QdrantOptions{
		Endpoint:        server.URL,
		Collection:      "test_passages",
		VectorDimension: 3,
	})
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	err = store.AddVectors(context.Background(), []*Vector{
		{ChunkID: "x", Embedding: []float32{0.1, 0.2}},
	})
	if err == nil {
		t.Fatal("期望维度不匹配返回错误")
	}
}

func TestQdrantStoreSearch(t *testing.T) {
	server := newQdrantTestServer(t, collectionOKHandler(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/test_passages/points/search" {
			t.Errorf("未预期的请求: %s %s", r.Method, r.URL.Path)
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("解析搜索请求失败: %v", err)
		}
		if req.Limit != 2 || !req.WithPayload {
			t.Errorf("搜索参数不符: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "ok",
			"result": [
				{
					"id": "a1",
					"score": 0.92,
					"payload": {
						"content": "first hit",
						"source": "https://u/one",
						"title": "One",
						"chunk_index": 0,
						"content_hash": "h1"
					}
				},
				{
					"id": "b2",
					"score": 0.81,
					"payload": {
						"content": "second hit",
						"source": "https://u/two",
						"title": "Two",
						"chunk_index": 3,
						"content_hash": "h2"
					}
				}
			]
		}`))
	}))

	store, err := NewQdrantStore(QdrantOptions{
		Endpoint:        server.URL,
		Collection:      "test_passages",
		VectorDimension: 3,
	})
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	results, err := store.Search(context.Background(), []float32{0.1, 0.2, 0.3}, 2)
	if err != nil {
		t.Fatalf("Search 失败: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("期望 2 条结果，实际 %d", len(results))
	}
	if results[0].Content != "first hit" || results[0].Source != "https://u/one" {
		t.Errorf("首条结果不符: %+v", results[0])
	}
	if results[0].Score != 0.92 || results[0].Similarity != 0.92 {
		t.Errorf("分数解析不符: %+v", results[0])
	}
	if results[1].ChunkIndex != 3 || results[1].ContentHash != "h2" {
		t.Errorf("次条结果不符: %+v", results[1])
	}
}

func TestQdrantStoreSearchEmptyVector(t *testing.T) {
	server := newQdrantTestServer(t, collectionOKHandler(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("空查询向量不应发起请求: %s %s", r.Method, r.URL.Path)
	}))

	store, err := NewQdrantStore(QdrantOptions{
		Endpoint:   server.URL,
		Collection: "test_passages",
	})
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	if _, err := store.Search(context.Background(), nil, 5); err == nil {
		t.Fatal("期望空向量返回错误")
	}
}

func TestQdrantStoreCount(t *testing.T) {
	server := newQdrantTestServer(t, collectionOKHandler(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/test_passages/points/count" {
			t.Errorf("未预期的请求: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","result":{"count":42}}`))
	}))

	store, err := NewQdrantStore(QdrantOptions{
		Endpoint:   server.URL,
		Collection: "test_passages",
	})
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count 失败: %v", err)
	}
	if count != 42 {
		t.Errorf("期望 42，实际 %d", count)
	}
}

func TestQdrantStoreSendsAPIKey(t *testing.T) {
	server := newQdrantTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "secret" {
			t.Errorf("缺少 api-key 请求头")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if _, err := NewQdrantStore(QdrantOptions{
		Endpoint:   server.URL,
		Collection: "test_passages",
		APIKey:     "secret",
	}); err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
}
