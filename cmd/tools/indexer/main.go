package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"akademikai/api"
	"akademikai/internal/config"
	"akademikai/internal/logger"
	"akademikai/internal/metrics"
	"akademikai/internal/rag"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// 索引构建工具：读取行分隔 JSON 语料，分块、向量化并写入向量存储。
// 问答服务假定索引已存在，本工具是唯一的索引写入路径。
func main() {
	env := flag.String("env", "dev", "配置环境 dev/prod/test")
	dataPath := flag.String("data", "", "语料文件路径，默认取配置 data.path")
	start := flag.Int("start", 0, "起始行号（含，从 0 开始）")
	stop := flag.Int("stop", 0, "结束行号（不含），0 表示读到末尾")
	batchSize := flag.Int("batch", 100, "每批向量化并写入的片段数量")
	recreate := flag.Bool("recreate", false, "写入前清空已有索引")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*env, "")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置校验失败: %v", err)
	}

	path := *dataPath
	if path == "" {
		path = cfg.Data.Path
	}
	if path == "" {
		log.Fatalf("未指定语料文件路径（-data 或配置 data.path）")
	}

	// 1. 加载并准备语料
	passages := rag.LoadPassages(path, *start, *stop)
	if len(passages) == 0 {
		fmt.Println("没有可索引的内容，退出")
		os.Exit(0)
	}

	// 2. 初始化组件（索引工具允许自动创建集合）
	store, err := api.BuildVectorStore(&cfg.RAG.VectorStore, true)
	if err != nil {
		log.Fatalf("初始化向量存储失败: %v", err)
	}

	embedder := rag.NewOpenAIEmbeddingProvider(
		cfg.AI.OpenAI.APIKey,
		cfg.AI.OpenAI.BaseURL,
		cfg.AI.OpenAI.OrgID,
		cfg.AI.OpenAI.EmbeddingModel,
	)

	chunker := rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)

	ctx := context.Background()

	if *recreate {
		if err := store.Reset(ctx); err != nil {
			log.Fatalf("清空索引失败: %v", err)
		}
		fmt.Println("已清空现有索引")
	}

	// 3. 分块
	vectors := make([]*rag.Vector, 0, len(passages))
	skipped := 0
	for _, passage := range passages {
		chunks, err := chunker.ChunkText(passage.Content)
		if err != nil {
			skipped++
			continue
		}

		for _, chunk := range chunks {
			contentHash := passage.Metadata.ContentHash
			if contentHash == "" {
				contentHash = chunk.ContentHash
			}

			vectors = append(vectors, &rag.Vector{
				ChunkID:           uuid.New().String(),
				Content:           chunk.Content,
				ContentHash:       contentHash,
				ChunkIndex:        chunk.ChunkIndex,
				TokenCount:        chunk.TokenCount,
				Source:            passage.Metadata.Source,
				Title:             passage.Metadata.Title,
				EmbeddingModel:    embedder.GetModel(),
				EmbeddingProvider: embedder.GetProviderName(),
			})
		}
	}

	fmt.Printf("语料 %d 条，分块后 %d 个片段（跳过 %d 条空内容）\n", len(passages), len(vectors), skipped)

	// 4. 分批向量化并写入
	totalIndexed := 0
	for i := 0; i < len(vectors); i += *batchSize {
		end := i + *batchSize
		if end > len(vectors) {
			end = len(vectors)
		}
		batch := vectors[i:end]

		texts := make([]string, len(batch))
		for j, vec := range batch {
			texts[j] = vec.Content
		}

		embeddings, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			log.Fatalf("向量化失败(batch %d-%d): %v", i, end, err)
		}

		for j := range batch {
			batch[j].Embedding = embeddings[j]
		}

		if err := store.AddVectors(ctx, batch); err != nil {
			log.Fatalf("写入向量存储失败(batch %d-%d): %v", i, end, err)
		}

		totalIndexed += len(batch)
		metrics.DocumentsIndexedTotal.Add(float64(len(batch)))
		fmt.Printf("已写入 %d/%d 个片段\n", totalIndexed, len(vectors))
	}

	count, err := store.Count(ctx)
	if err == nil {
		fmt.Printf("索引构建完成，存储中共 %d 个片段\n", count)
	} else {
		fmt.Printf("索引构建完成，共写入 %d 个片段\n", totalIndexed)
	}
}
