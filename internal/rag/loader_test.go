package rag

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeCorpus(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644))
	return path
}

func TestLoadPassagesEnrichment(t *testing.T) {
	path := writeCorpus(t,
		`{"title":"Admissions","h1":"Deadlines","text":"Apply by July 15th.","url":"https://u/admissions","content_hash":"abc123"}`,
	)

	passages := LoadPassages(path, 0, 0)
	require.Len(t, passages, 1)

	p := passages[0]
	require.Equal(t, "Page Title: Admissions\nH1 Header: Deadlines\n\nApply by July 15th.", p.Content)
	require.Equal(t, "https://u/admissions", p.Metadata.Source)
	require.Equal(t, "Admissions", p.Metadata.Title)
	require.Equal(t, "abc123", p.Metadata.ContentHash)
}

func TestLoadPassagesMissingFields(t *testing.T) {
	path := writeCorpus(t,
		`{"text":"Body only.","url":"https://u/x"}`,
	)

	passages := LoadPassages(path, 0, 0)
	require.Len(t, passages, 1)

	p := passages[0]
	require.True(t, strings.HasPrefix(p.Content, "Page Title: N/A\nH1 Header: N/A\n\n"))
	require.Equal(t, "Page Title: N/A\nH1 Header: N/A\n\nBody only.", p.Content)
	require.Equal(t, "No Title", p.Metadata.Title)
	require.Equal(t, "", p.Metadata.ContentHash)
}

func TestLoadPassagesMissingBody(t *testing.T) {
	path := writeCorpus(t,
		`{"title":"T","h1":"H"}`,
	)

	passages := LoadPassages(path, 0, 0)
	require.Len(t, passages, 1)
	// 正文缺失渲染为空串
	require.Equal(t, "Page Title: T\nH1 Header: H\n\n", passages[0].Content)
	require.Equal(t, "", passages[0].Metadata.Source)
}

func TestLoadPassagesSkipsMalformedLines(t *testing.T) {
	path := writeCorpus(t,
		`{"title":"Good","h1":"H","text":"ok","url":"https://u/good"}`,
		`not json {{{`,
	)

	passages := LoadPassages(path, 0, 0)
	// 坏行跳过，不影响整体加载
	require.Len(t, passages, 1)
	require.Equal(t, "https://u/good", passages[0].Metadata.Source)
}

func TestLoadPassagesLineRange(t *testing.T) {
	path := writeCorpus(t,
		`{"text":"line0"}`,
		`{"text":"line1"}`,
		`{"text":"line2"}`,
		`{"text":"line3"}`,
	)

	passages := LoadPassages(path, 1, 3)
	require.Len(t, passages, 2)
	require.Contains(t, passages[0].Content, "line1")
	require.Contains(t, passages[1].Content, "line2")
}

func TestLoadPassagesMissingFile(t *testing.T) {
	passages := LoadPassages(filepath.Join(t.TempDir(), "absent.jsonl"), 0, 0)
	// 文件不存在视为"没有可索引的内容"，返回空集而非报错
	require.NotNil(t, passages)
	require.Empty(t, passages)
}
