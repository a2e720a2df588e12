package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"akademikai/internal/metrics"

	"github.com/sashabaranov/go-openai"
)

// ragPromptTemplate 问答提示词模板
// 指示生成模型仅依据给定上下文作答、用指定语言回复，
// 上下文不足时输出固定的兜底句子；是否"不足"完全由生成模型自行判断
const ragPromptTemplate = `As a helpful informational assistant, your task is to answer the user's question
based exclusively on the provided context. Be concise and factual.

If the context does not contain the answer, you must reply with:
"Unfortunately, I could not find information on this topic in my knowledge base."

Your final answer must be in the following language: %s

Context:
%s

Question:
%s
`

// contextSeparator 拼接多个片段时使用的分隔符
const contextSeparator = "\n\n---\n\n"

// ChatGenerator 抽象外部文本生成服务
type ChatGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIGenerator 基于 OpenAI Chat Completions 的生成器
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIGenerator 创建 OpenAI 生成器
func NewOpenAIGenerator(apiKey, baseURL, orgID, model string, temperature float64) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if orgID != "" {
		cfg.OrgID = orgID
	}
	if model == "" {
		model = openai.GPT4o
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: float32(temperature),
	}
}

// Generate 执行一次对话补全
// 不做重试：外部服务失败直接上抛，由请求边界转换为 500
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("调用OpenAI Chat API失败: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API返回空回复")
	}

	return resp.Choices[0].Message.Content, nil
}

// Composer 答案生成器：构造语言相关的提示词并调用生成服务
type Composer struct {
	generator ChatGenerator
}

// NewComposer 创建答案生成器
func NewComposer(generator ChatGenerator) *Composer {
	return &Composer{generator: generator}
}

// Compose 根据问题、语言和检索上下文生成自由文本回答
func (c *Composer) Compose(ctx context.Context, question, language, context_ string) (string, error) {
	prompt := fmt.Sprintf(ragPromptTemplate, language, context_, question)

	start := time.Now()
	answer, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())

	return answer, nil
}

// BuildContext 按检索顺序拼接片段正文，形成提示词上下文
func BuildContext(results []*SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Content)
	}
	return strings.Join(parts, contextSeparator)
}
