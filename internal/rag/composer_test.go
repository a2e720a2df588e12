package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildContext(t *testing.T) {
	results := []*SearchResult{
		{Content: "First passage."},
		{Content: "Second passage."},
		{Content: "Third passage."},
	}

	got := BuildContext(results)
	require.Equal(t, "First passage.\n\n---\n\nSecond passage.\n\n---\n\nThird passage.", got)
}

func TestBuildContextSingleResult(t *testing.T) {
	got := BuildContext([]*SearchResult{{Content: "Only one."}})
	require.Equal(t, "Only one.", got)
	require.NotContains(t, got, "---")
}

func TestBuildContextEmpty(t *testing.T) {
	require.Equal(t, "", BuildContext(nil))
}

func TestComposePromptLayout(t *testing.T) {
	gen := &fakeGenerator{answer: "Odpowiedź."}
	composer := NewComposer(gen)

	answer, err := composer.Compose(context.Background(), "What are the deadlines?", LanguagePolish, "Deadlines are in July.")
	require.NoError(t, err)
	require.Equal(t, "Odpowiedź.", answer)

	prompt := gen.lastPrompt
	require.Contains(t, prompt, "Your final answer must be in the following language: Polish")
	require.Contains(t, prompt, "Context:\nDeadlines are in July.")
	require.Contains(t, prompt, "Question:\nWhat are the deadlines?")
	// 兜底句子交由生成模型判断，始终出现在提示词中
	require.Contains(t, prompt, "Unfortunately, I could not find information on this topic in my knowledge base.")
	// 上下文先于问题出现
	require.Less(t, strings.Index(prompt, "Context:"), strings.Index(prompt, "Question:"))
}
