package rag

import (
	"context"

	"akademikai/internal/logger"
	"akademikai/internal/metrics"

	"go.uber.org/zap"
)

// NotFoundAnswer 检索结果为空时返回给用户的固定回答
const NotFoundAnswer = "Unfortunately, I could not find any relevant information in my knowledge base."

// DefaultTopK 默认检索片段数量
const DefaultTopK = 5

// Pipeline 问答流水线：检索 → 生成 → 汇总来源
// 每次请求为一条同步调用链，自身不持有请求级可变状态
type Pipeline struct {
	retriever *Retriever
	composer  *Composer
	topK      int
}

// NewPipeline 创建问答流水线
// retriever 和 composer 作为显式构造参数注入，便于测试替换
func NewPipeline(retriever *Retriever, composer *Composer, topK int) *Pipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Pipeline{
		retriever: retriever,
		composer:  composer,
		topK:      topK,
	}
}

// Answer 执行一次完整的问答
// 检索为空时返回固定的"未找到"回答；检索或生成出错时不在内部兜底，
// 错误直接上抛，由 HTTP 边界转换为 500 响应
func (p *Pipeline) Answer(ctx context.Context, question, language string) (*AnswerResult, error) {
	results, err := p.retriever.Retrieve(ctx, question, p.topK)
	if err != nil {
		metrics.AskRequestsTotal.WithLabelValues(language, "failed").Inc()
		return nil, err
	}

	if len(results) == 0 {
		logger.Info("检索结果为空，返回固定回答", zap.String("language", language))
		metrics.AskRequestsTotal.WithLabelValues(language, "not_found").Inc()
		return &AnswerResult{
			Answer:  NotFoundAnswer,
			Sources: []Source{},
		}, nil
	}

	contextText := BuildContext(results)

	answer, err := p.composer.Compose(ctx, question, language, contextText)
	if err != nil {
		metrics.AskRequestsTotal.WithLabelValues(language, "failed").Inc()
		return nil, err
	}

	metrics.AskRequestsTotal.WithLabelValues(language, "answered").Inc()

	return &AnswerResult{
		Answer:  answer,
		Sources: collectSources(results),
	}, nil
}

// collectSources 按检索顺序汇总引用来源
// 同一 URL 只保留首次出现的条目，URL 为空的片段不计入来源
func collectSources(results []*SearchResult) []Source {
	sources := make([]Source, 0, len(results))
	seen := make(map[string]struct{}, len(results))

	for _, r := range results {
		if r.Source == "" {
			continue
		}
		if _, ok := seen[r.Source]; ok {
			continue
		}
		seen[r.Source] = struct{}{}
		sources = append(sources, Source{
			URL:   r.Source,
			Title: r.Title,
		})
	}

	return sources
}
