package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "akademikai_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "akademikai_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RAG 问答指标
var (
	// AskRequestsTotal 问答请求总数
	AskRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "akademikai_ask_requests_total",
			Help: "问答请求总数",
		},
		[]string{"language", "status"}, // status: answered, not_found, failed
	)

	// RetrievalDuration 向量检索耗时（秒）
	RetrievalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "akademikai_retrieval_duration_seconds",
			Help:    "向量检索耗时分布",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	// RetrievalResults 单次检索返回的片段数量
	RetrievalResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "akademikai_retrieval_results",
			Help:    "单次检索返回的片段数量分布",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)

	// GenerationDuration LLM 生成耗时（秒）
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "akademikai_generation_duration_seconds",
			Help:    "LLM 生成耗时分布",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// DocumentsIndexedTotal 已入库的知识片段总数
	DocumentsIndexedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "akademikai_chunks_indexed_total",
			Help: "已写入向量存储的知识片段总数",
		},
	)
)
