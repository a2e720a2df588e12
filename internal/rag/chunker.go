package rag

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Chunker 文档分块器
type Chunker struct {
	ChunkSize    int // 分块大小(字符数)
	ChunkOverlap int // 重叠大小(字符数)
}

// NewChunker 创建新的分块器
// chunkSize: 每个分块的字符数
// chunkOverlap: 相邻分块之间的重叠字符数
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1500
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10 // 重叠不超过10%
	}

	return &Chunker{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}
}

// ChunkResult 分块结果
type ChunkResult struct {
	Content     string // 分块内容
	ChunkIndex  int    // 分块索引(从0开始)
	TokenCount  int    // Token数量
	ContentHash string // 内容哈希(SHA256)
}

// ChunkText 对文本进行分块
// 按句子边界累积，超出字符预算时截断并保留尾部重叠
func (c *Chunker) ChunkText(content string) ([]*ChunkResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("文本内容不能为空")
	}

	content = normalizeText(content)

	sentences := splitIntoSentences(content)
	if len(sentences) == 0 {
		return nil, fmt.Errorf("文本没有有效句子")
	}

	chunks := make([]*ChunkResult, 0)
	currentChunk := ""
	chunkIndex := 0

	for _, sentence := range sentences {
		// 如果当前分块加上新句子超过大小限制
		if len(currentChunk)+len(sentence) > c.ChunkSize && currentChunk != "" {
			chunks = append(chunks, c.createChunk(currentChunk, chunkIndex))

			// 开始新分块,保留重叠部分
			overlap := c.getOverlapText(currentChunk)
			if overlap != "" {
				currentChunk = overlap + " " + sentence
			} else {
				currentChunk = sentence
			}
			chunkIndex++
		} else {
			if currentChunk != "" {
				currentChunk += " "
			}
			currentChunk += sentence
		}
	}

	// 保存最后一个分块
	if currentChunk != "" {
		chunks = append(chunks, c.createChunk(currentChunk, chunkIndex))
	}

	return chunks, nil
}

// createChunk 创建分块结果
func (c *Chunker) createChunk(content string, index int) *ChunkResult {
	content = strings.TrimSpace(content)
	return &ChunkResult{
		Content:     content,
		ChunkIndex:  index,
		TokenCount:  countTokens(content),
		ContentHash: hashContent(content),
	}
}

// getOverlapText 获取重叠文本
// 从文本末尾获取指定长度的重叠部分
func (c *Chunker) getOverlapText(text string) string {
	if c.ChunkOverlap == 0 || len(text) <= c.ChunkOverlap {
		return ""
	}

	overlap := text[len(text)-c.ChunkOverlap:]

	// 尝试从完整单词开始
	if idx := strings.Index(overlap, " "); idx > 0 {
		overlap = overlap[idx+1:]
	}

	return overlap
}

// normalizeText 规范化文本
// 去除多余空白、换行符等
func normalizeText(text string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}

// splitIntoSentences 将文本分割成句子
// 使用简单的规则: 以句号、问号、感叹号结尾
func splitIntoSentences(text string) []string {
	sentences := make([]string, 0)
	current := ""

	runes := []rune(text)
	for i, r := range runes {
		current += string(r)

		if r == '!' || r == '?' || r == '.' {
			// 确保不是数字中的小数点
			if r == '.' && i+1 < len(runes) {
				next := runes[i+1]
				if next >= '0' && next <= '9' {
					continue
				}
			}

			sentence := strings.TrimSpace(current)
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			current = ""
		}
	}

	if current != "" {
		sentence := strings.TrimSpace(current)
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
	}

	return sentences
}

var (
	tokenEncoderOnce sync.Once
	tokenEncoder     *tiktoken.Tiktoken
)

// countTokens 统计文本 Token 数量
// 优先使用 tiktoken 的 cl100k_base 编码，编码不可用时退化为估算
func countTokens(text string) int {
	tokenEncoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			tokenEncoder = enc
		}
	})

	if tokenEncoder != nil {
		return len(tokenEncoder.Encode(text, nil, nil))
	}
	return estimateTokenCount(text)
}

// estimateTokenCount 估算Token数量
// 简单规则: 约 0.75 个单词 = 1 个 token
func estimateTokenCount(text string) int {
	words := len(strings.Fields(text))
	return words + words/3
}

// hashContent 计算内容哈希
func hashContent(content string) string {
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)
}
