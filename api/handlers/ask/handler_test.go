package ask

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"akademikai/internal/logger"
	"akademikai/internal/rag"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := logger.Init("error", "console", "stderr"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// stubService 记录调用参数并返回预设结果
type stubService struct {
	result       *rag.AnswerResult
	err          error
	lastQuestion string
	lastLanguage string
}

func (s *stubService) Answer(ctx context.Context, question, language string) (*rag.AnswerResult, error) {
	s.lastQuestion = question
	s.lastLanguage = language
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestRouter(provider PipelineProvider) *gin.Engine {
	router := gin.New()
	handler := NewHandler(provider)
	router.POST("/api/v1/ask", handler.Ask)
	return router
}

func doAsk(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAskSuccess(t *testing.T) {
	stub := &stubService{result: &rag.AnswerResult{
		Answer: "The deadline is July 15th.",
		Sources: []rag.Source{
			{URL: "https://u/admissions", Title: "Admissions"},
		},
	}}
	router := newTestRouter(func() (AnswerService, error) { return stub, nil })

	w := doAsk(router, `{"question":"When is the deadline?","language":"English"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "The deadline is July 15th.", resp.Answer)
	require.Equal(t, []SourceItem{{URL: "https://u/admissions", Title: "Admissions"}}, resp.Sources)

	require.Equal(t, "When is the deadline?", stub.lastQuestion)
	require.Equal(t, "English", stub.lastLanguage)
}

func TestAskDefaultLanguagePolish(t *testing.T) {
	stub := &stubService{result: &rag.AnswerResult{Answer: "ok", Sources: []rag.Source{}}}
	router := newTestRouter(func() (AnswerService, error) { return stub, nil })

	w := doAsk(router, `{"question":"Jakie są terminy rekrutacji?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, rag.LanguagePolish, stub.lastLanguage)
}

func TestAskEmptySourcesSerializedAsArray(t *testing.T) {
	stub := &stubService{result: &rag.AnswerResult{
		Answer:  rag.NotFoundAnswer,
		Sources: []rag.Source{},
	}}
	router := newTestRouter(func() (AnswerService, error) { return stub, nil })

	w := doAsk(router, `{"question":"Nonexistent topic?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	// sources 必须是空数组而非 null
	require.Contains(t, w.Body.String(), `"sources":[]`)
}

func TestAskValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"问题过短", `{"question":"Hi"}`},
		{"问题过长", `{"question":"` + strings.Repeat("a", 501) + `"}`},
		{"缺少问题", `{"language":"Polish"}`},
		{"不支持的语言", `{"question":"A valid question?","language":"German"}`},
		{"非法 JSON", `{"question":`},
	}

	stub := &stubService{result: &rag.AnswerResult{Answer: "unused"}}
	router := newTestRouter(func() (AnswerService, error) { return stub, nil })

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doAsk(router, tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotEmpty(t, resp.Detail)
		})
	}
	// 校验失败不应到达流水线
	require.Empty(t, stub.lastQuestion)
}

func TestAskPipelineError(t *testing.T) {
	stub := &stubService{err: errors.New("vector store unreachable")}
	router := newTestRouter(func() (AnswerService, error) { return stub, nil })

	w := doAsk(router, `{"question":"A valid question?"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Detail, "An internal error occurred while processing the request")
	require.Contains(t, resp.Detail, "vector store unreachable")
}

func TestAskProviderError(t *testing.T) {
	router := newTestRouter(func() (AnswerService, error) {
		return nil, errors.New("qdrant 集合 akademikai_passages 不存在或不可用，请先运行索引构建工具")
	})

	w := doAsk(router, `{"question":"A valid question?"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Detail, "An internal error occurred while processing the request")
}

func TestAskBoundaryLengths(t *testing.T) {
	stub := &stubService{result: &rag.AnswerResult{Answer: "ok", Sources: []rag.Source{}}}
	router := newTestRouter(func() (AnswerService, error) { return stub, nil })

	// 恰好 3 字符与恰好 500 字符均应通过校验
	w := doAsk(router, `{"question":"abc"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doAsk(router, `{"question":"`+strings.Repeat("a", 500)+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
}
