package api

import (
	"fmt"
	"sync"

	"akademikai/internal/config"
	"akademikai/internal/logger"
	"akademikai/internal/rag"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// AppContainer 持有进程级单例组件
// 嵌入模型客户端、向量存储连接、生成器与流水线均为惰性构造：
// 首个调用方承担初始化成本，之后复用同一实例，进程生命周期内不刷新
type AppContainer struct {
	cfg *config.Config

	embedderOnce sync.Once
	embedder     rag.EmbeddingProvider

	storeOnce sync.Once
	store     rag.VectorStore
	storeErr  error

	generatorOnce sync.Once
	generator     rag.ChatGenerator

	pipelineOnce sync.Once
	pipeline     *rag.Pipeline
	pipelineErr  error
}

// NewAppContainer 创建组件容器
func NewAppContainer(cfg *config.Config) *AppContainer {
	return &AppContainer{cfg: cfg}
}

// EmbeddingProvider 获取嵌入模型单例
func (c *AppContainer) EmbeddingProvider() rag.EmbeddingProvider {
	c.embedderOnce.Do(func() {
		logger.Info("初始化嵌入模型客户端")
		c.embedder = rag.NewOpenAIEmbeddingProvider(
			c.cfg.AI.OpenAI.APIKey,
			c.cfg.AI.OpenAI.BaseURL,
			c.cfg.AI.OpenAI.OrgID,
			c.cfg.AI.OpenAI.EmbeddingModel,
		)
	})
	return c.embedder
}

// VectorStore 获取向量存储单例
// 索引缺失属于配置错误：构造失败会被缓存并持续返回，进程不会在该状态下给出回答
func (c *AppContainer) VectorStore() (rag.VectorStore, error) {
	c.storeOnce.Do(func() {
		logger.Info("连接向量存储")
		c.store, c.storeErr = BuildVectorStore(&c.cfg.RAG.VectorStore, false)
	})
	return c.store, c.storeErr
}

// Generator 获取生成器单例
func (c *AppContainer) Generator() rag.ChatGenerator {
	c.generatorOnce.Do(func() {
		logger.Info("初始化生成模型客户端")
		c.generator = rag.NewOpenAIGenerator(
			c.cfg.AI.OpenAI.APIKey,
			c.cfg.AI.OpenAI.BaseURL,
			c.cfg.AI.OpenAI.OrgID,
			c.cfg.AI.OpenAI.ChatModel,
			c.cfg.AI.OpenAI.Temperature,
		)
	})
	return c.generator
}

// Pipeline 获取问答流水线单例，是问答接口的主要依赖
func (c *AppContainer) Pipeline() (*rag.Pipeline, error) {
	c.pipelineOnce.Do(func() {
		store, err := c.VectorStore()
		if err != nil {
			c.pipelineErr = err
			return
		}

		retriever := rag.NewRetriever(c.EmbeddingProvider(), store)
		composer := rag.NewComposer(c.Generator())
		c.pipeline = rag.NewPipeline(retriever, composer, c.cfg.RAG.TopK)
		logger.Info("问答流水线初始化完成")
	})
	return c.pipeline, c.pipelineErr
}

// BuildVectorStore 按配置构造向量存储后端
// createIfMissing 仅供索引构建工具使用；查询服务传 false，
// 以便把"索引不存在"暴露为构造期错误而不是静默建空集合
func BuildVectorStore(cfg *config.VectorStoreConfig, createIfMissing bool) (rag.VectorStore, error) {
	switch cfg.Type {
	case "qdrant":
		return rag.NewQdrantStore(rag.QdrantOptions{
			Endpoint:        cfg.Qdrant.Endpoint,
			APIKey:          cfg.Qdrant.APIKey,
			Collection:      cfg.Qdrant.Collection,
			VectorDimension: cfg.Qdrant.VectorDimension,
			Distance:        cfg.Qdrant.Distance,
			TimeoutSeconds:  cfg.Qdrant.TimeoutSeconds,
			CreateIfMissing: createIfMissing,
		})
	case "pgvector":
		db, err := gorm.Open(postgres.Open(cfg.Postgres.GetDSN()), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("连接 PostgreSQL 失败: %w", err)
		}
		return rag.NewPGVectorStore(db, cfg.Postgres.VectorDimension)
	default:
		return nil, fmt.Errorf("不支持的向量存储类型: %s", cfg.Type)
	}
}
