package rag

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"akademikai/internal/logger"

	"go.uber.org/zap"
)

// rawPageRecord 语料文件中单行记录的结构
// 所有字段均可缺失，缺失时由加载器填充占位值
// title/h1 使用指针以区分"字段缺失"与"显式空串"
type rawPageRecord struct {
	Title       *string `json:"title"`
	H1          *string `json:"h1"`
	Text        string  `json:"text"`
	URL         string  `json:"url"`
	ContentHash string  `json:"content_hash"`
}

// LoadPassages 从行分隔 JSON 文件加载并准备知识片段
// filePath: 语料文件路径，每行一个 JSON 对象
// start: 起始行号（含，从 0 开始）
// stop: 结束行号（不含），<= 0 表示读到文件末尾
//
// 每行记录会被增强为 "Page Title: {title}\nH1 Header: {h1}\n\n{text}" 的形式，
// 缺失的 title/h1 以 "N/A" 占位（正文缺失为空串），以便向量化时保留页面上下文。
// 坏行（非 JSON）记录告警后跳过，不中断加载；
// 文件不存在视为"没有可索引的内容"，记录错误日志并返回空集，由调用方决定后续行为。
func LoadPassages(filePath string, start, stop int) []*Passage {
	log := logger.Get()

	file, err := os.Open(filePath)
	if err != nil {
		log.Error("打开语料文件失败",
			zap.String("path", filePath),
			zap.Error(err),
		)
		return []*Passage{}
	}
	defer file.Close()

	passages := make([]*Passage, 0)
	scanner := bufio.NewScanner(file)
	// 单行页面正文可能很长，放宽扫描缓冲上限
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lineNo := -1
	for scanner.Scan() {
		lineNo++
		if lineNo < start {
			continue
		}
		if stop > 0 && lineNo >= stop {
			break
		}

		var record rawPageRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			log.Warn("跳过无法解析的语料行",
				zap.String("path", filePath),
				zap.Int("line", lineNo+1),
				zap.Error(err),
			)
			continue
		}

		passages = append(passages, preparePassage(&record))
	}

	if err := scanner.Err(); err != nil {
		log.Error("读取语料文件失败",
			zap.String("path", filePath),
			zap.Error(err),
		)
	}

	log.Info("语料加载完成",
		zap.String("path", filePath),
		zap.Int("count", len(passages)),
	)
	return passages
}

// preparePassage 将原始记录转换为增强后的知识片段
func preparePassage(record *rawPageRecord) *Passage {
	title := "N/A"
	if record.Title != nil {
		title = *record.Title
	}
	h1 := "N/A"
	if record.H1 != nil {
		h1 = *record.H1
	}

	content := fmt.Sprintf("Page Title: %s\nH1 Header: %s\n\n%s", title, h1, record.Text)

	metaTitle := "No Title"
	if record.Title != nil {
		metaTitle = *record.Title
	}

	return &Passage{
		Content: content,
		Metadata: PassageMetadata{
			Source:      record.URL,
			Title:       metaTitle,
			ContentHash: record.ContentHash,
		},
	}
}
