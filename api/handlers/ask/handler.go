package ask

import (
	"context"
	"net/http"

	"akademikai/internal/logger"
	"akademikai/internal/rag"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AnswerService 问答服务接口，便于测试替换流水线实现
type AnswerService interface {
	Answer(ctx context.Context, question, language string) (*rag.AnswerResult, error)
}

// PipelineProvider 惰性获取问答流水线
// 首次请求触发流水线构造；构造失败（如索引缺失）作为错误返回
type PipelineProvider func() (AnswerService, error)

// Handler 问答处理器
type Handler struct {
	provider PipelineProvider
}

// NewHandler 创建问答处理器
func NewHandler(provider PipelineProvider) *Handler {
	return &Handler{provider: provider}
}

// AskRequest 问答请求
// 问题长度限制 3-500 字符；回答语言仅支持 Polish / English，默认 Polish
type AskRequest struct {
	Question string `json:"question" binding:"required,min=3,max=500"`
	Language string `json:"language" binding:"omitempty,oneof=Polish English"`
}

// SourceItem 回答引用的来源页面
type SourceItem struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// AskResponse 问答响应
type AskResponse struct {
	Answer  string       `json:"answer"`
	Sources []SourceItem `json:"sources"`
}

// ErrorResponse 错误响应，detail 为人类可读的错误描述
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Ask 处理一次问答请求
// 校验失败返回 400，不会到达流水线；流水线错误统一转换为 500，进程继续服务
func (h *Handler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "参数错误: " + err.Error()})
		return
	}

	language := req.Language
	if language == "" {
		language = rag.LanguagePolish
	}

	pipeline, err := h.provider()
	if err != nil {
		logger.Error("问答流水线不可用", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Detail: "An internal error occurred while processing the request: " + err.Error(),
		})
		return
	}

	result, err := pipeline.Answer(c.Request.Context(), req.Question, language)
	if err != nil {
		logger.Error("问答处理失败",
			zap.String("language", language),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Detail: "An internal error occurred while processing the request: " + err.Error(),
		})
		return
	}

	sources := make([]SourceItem, 0, len(result.Sources))
	for _, s := range result.Sources {
		sources = append(sources, SourceItem{URL: s.URL, Title: s.Title})
	}

	c.JSON(http.StatusOK, AskResponse{
		Answer:  result.Answer,
		Sources: sources,
	})
}
