package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"lexrag/internal/chat"
	"lexrag/internal/config"
	"lexrag/internal/domain"
	"lexrag/internal/embedding"
	"lexrag/internal/embedding/hashing"
	"lexrag/internal/embedding/openai"
	"lexrag/internal/history"
	"lexrag/internal/retriever"
	"lexrag/internal/tui"
	"lexrag/internal/vectorstore/memory"
	"lexrag/internal/vectorstore/redisearch"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, namespace, thread string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/lexrag/config.yaml if not provided)")
	flag.StringVar(&namespace, "namespace", "default", "Namespace (project/thread) to ingest into and search")
	flag.StringVar(&thread, "thread", "", "Conversation thread ID (default: new UUID)")
	flag.Parse()
	inputs := flag.Args()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Logging.Mode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Assemble components
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "hashing", "":
		emb = hashing.New(cfg.Embedder.Dimension)
	case "openai":
		client, err := openai.New(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
			Retry: embedding.RetryPolicy{
				MaxAttempts: cfg.Embedder.OpenAI.MaxAttempts,
				BaseDelay:   time.Duration(cfg.Embedder.OpenAI.BaseDelayMsec) * time.Millisecond,
				MaxDelay:    time.Duration(cfg.Embedder.OpenAI.MaxDelayMsec) * time.Millisecond,
			},
		}, logger)
		if err != nil {
			log.Fatalf("openai embedder init failed: %v", err)
		}
		emb = client
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var redisClient *redis.Client
	needsRedis := cfg.VectorIndex.Type == "redis" || cfg.History.Type == "redis"
	if needsRedis {
		rc := cfg.VectorIndex.Redis
		if rc == nil {
			rc = &config.RedisConfig{Addr: "localhost:6379"}
		}
		redisClient = redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("redis unreachable at %s: %v", rc.Addr, err)
		}
		defer func() { _ = redisClient.Close() }()
	}

	var index domain.VectorIndex
	switch cfg.VectorIndex.Type {
	case "memory", "":
		index = memory.New(logger)
	case "redis":
		index = redisearch.New(redisClient, logger)
	default:
		log.Fatalf("unknown vector index: %s", cfg.VectorIndex.Type)
	}

	var hist domain.HistoryStore
	switch cfg.History.Type {
	case "memory", "":
		hist = history.NewMemoryStore(cfg.History.Cap)
	case "redis":
		hist = history.NewRedisStore(redisClient, cfg.History.Cap)
	default:
		log.Fatalf("unknown history store: %s", cfg.History.Type)
	}

	rt, err := retriever.New(emb, index, cfg.Chunker.WordsPerChunk, cfg.Chunker.OverlapWords, logger)
	if err != nil {
		log.Fatalf("retriever init failed: %v", err)
	}

	ctx := context.Background()
	total := 0
	for _, pattern := range inputs {
		matches, _ := filepath.Glob(pattern)
		if matches == nil {
			matches = []string{pattern}
		}
		for _, path := range matches {
			lower := strings.ToLower(path)
			if !strings.HasSuffix(lower, ".txt") && !strings.HasSuffix(lower, ".md") {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				log.Fatalf("reading %s: %v", path, err)
			}
			n, err := rt.Ingest(ctx, namespace, string(data))
			if err != nil {
				log.Fatalf("ingesting %s: %v", path, err)
			}
			total += n
		}
	}
	if len(inputs) > 0 && total == 0 {
		fmt.Println("No .txt or .md documents found to ingest.")
	}
	logger.Info("ready", zap.String("namespace", namespace), zap.Int("chunks", total))

	session := chat.NewSession(rt, hist, chat.Options{
		ThreadID:  thread,
		Namespace: namespace,
		TopK:      cfg.Assembler.TopK,
		Recent:    cfg.History.Recent,
		MaxChars:  cfg.Assembler.MaxChars,
	}, logger)

	m := tui.New(session)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

func newLogger(mode string) (*zap.Logger, error) {
	switch strings.ToLower(mode) {
	case "prod", "production":
		return zap.NewProduction()
	default:
		return zap.NewDevelopment()
	}
}
