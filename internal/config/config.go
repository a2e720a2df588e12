package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Data   DataConfig   `mapstructure:"data"`
	AI     AIConfig     `mapstructure:"ai"`
	RAG    RagConfig    `mapstructure:"rag"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// DataConfig 知识库数据源配置
type DataConfig struct {
	// 行分隔 JSON 语料文件，每行一条页面记录
	Path string `mapstructure:"path"`
}

// AIConfig AI 模型配置
type AIConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig OpenAI 配置
type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	OrgID          string  `mapstructure:"org_id"`
	ChatModel      string  `mapstructure:"chat_model"`
	Temperature    float64 `mapstructure:"temperature"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
}

// RagConfig RAG 相关配置
type RagConfig struct {
	TopK         int               `mapstructure:"top_k"`
	ChunkSize    int               `mapstructure:"chunk_size"`
	ChunkOverlap int               `mapstructure:"chunk_overlap"`
	VectorStore  VectorStoreConfig `mapstructure:"vector_store"`
}

// VectorStoreConfig 向量存储配置
type VectorStoreConfig struct {
	Type     string         `mapstructure:"type"` // qdrant, pgvector
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// QdrantConfig Qdrant 外部向量数据库配置
type QdrantConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	APIKey          string `mapstructure:"api_key"`
	Collection      string `mapstructure:"collection"`
	VectorDimension int    `mapstructure:"vector_dimension"`
	Distance        string `mapstructure:"distance"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

// PostgresConfig pgvector 后端使用的 PostgreSQL 配置
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	VectorDimension int    `mapstructure:"vector_dimension"`
}

var globalConfig *Config

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件名和路径
	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// 读取环境变量（优先级高于配置文件）
	v.SetEnvPrefix("APP") // 环境变量前缀：APP_
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 支持嵌套配置：APP_AI_OPENAI_API_KEY

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	globalConfig = &cfg
	return &cfg, nil
}

// applyDefaults 填充未显式配置的默认值
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.OutputPath == "" {
		cfg.Log.OutputPath = "stdout"
	}
	if cfg.AI.OpenAI.ChatModel == "" {
		cfg.AI.OpenAI.ChatModel = "gpt-4o"
	}
	if cfg.AI.OpenAI.Temperature == 0 {
		cfg.AI.OpenAI.Temperature = 0.1
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = 5
	}
	if cfg.RAG.ChunkSize <= 0 {
		cfg.RAG.ChunkSize = 1500
	}
	if cfg.RAG.ChunkOverlap < 0 {
		cfg.RAG.ChunkOverlap = 200
	}
	if cfg.RAG.VectorStore.Type == "" {
		cfg.RAG.VectorStore.Type = "qdrant"
	}
}

// Validate 校验启动必需的配置项
// 生成服务凭证缺失属于致命配置错误，进程不得在此状态下对外服务
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AI.OpenAI.APIKey) == "" {
		return fmt.Errorf("ai.openai.api_key 未配置（或 APP_AI_OPENAI_API_KEY 为空），无法启动服务")
	}

	switch c.RAG.VectorStore.Type {
	case "qdrant":
		if strings.TrimSpace(c.RAG.VectorStore.Qdrant.Endpoint) == "" {
			return fmt.Errorf("rag.vector_store.qdrant.endpoint 未配置")
		}
	case "pgvector":
		if strings.TrimSpace(c.RAG.VectorStore.Postgres.Host) == "" {
			return fmt.Errorf("rag.vector_store.postgres.host 未配置")
		}
	default:
		return fmt.Errorf("不支持的向量存储类型: %s", c.RAG.VectorStore.Type)
	}

	return nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *PostgresConfig) GetDSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslMode,
	)
}
