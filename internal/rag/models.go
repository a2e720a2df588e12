package rag

// PassageMetadata 知识片段携带的页面元信息
type PassageMetadata struct {
	// Source 页面完整 URL，来源缺失时为空串
	Source string `json:"source"`
	// Title 页面标题，缺失时为 "No Title"
	Title string `json:"title"`
	// ContentHash 爬取阶段计算的页面内容哈希，缺失时为空串
	ContentHash string `json:"content_hash"`
}

// Passage 一条可检索的知识片段，创建后不再修改
type Passage struct {
	// Content 经过标题/H1 上下文增强后的正文
	Content  string          `json:"content"`
	Metadata PassageMetadata `json:"metadata"`
}

// Source 回答引用的单个来源页面，同一回答内按 URL 去重
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// AnswerResult 一次问答的最终结果
type AnswerResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// 支持的回答语言
const (
	LanguagePolish  = "Polish"
	LanguageEnglish = "English"
)
