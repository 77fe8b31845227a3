package main

import (
	"context"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"shopchat/internal/adapter/api"
	"shopchat/internal/adapter/client"
	"shopchat/internal/adapter/store"
	"shopchat/internal/config"
	"shopchat/internal/domain/repository"
	"shopchat/internal/usecase"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "shopchat").Logger()

	if err := godotenv.Load(".env"); err != nil {
		log.Info().Msg(".env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.RedisURL).Msg("invalid Redis URL")
	}
	rdb := redis.NewClient(redisOpts)
	kv := store.NewRedisStore(rdb)

	var limiter repository.RateLimiter
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis unreachable, rate limiting falls back to in-process state")
		limiter = store.NewMemoryLimiter(cfg.RateLimitWindow, cfg.RateLimitBudget)
	} else {
		limiter = store.NewRedisLimiter(rdb, cfg.RateLimitWindow, cfg.RateLimitBudget)
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init genai client")
	}
	llm := client.NewGeminiClientFromClient(genaiClient, cfg.GeminiModel, cfg.LLMTimeout)
	embedder := client.NewEmbedderFromClient(genaiClient, cfg.EmbeddingModel)

	qClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		APIKey: cfg.QdrantAPIKey,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to qdrant")
	}
	index := store.NewQdrantIndex(qClient, embedder, cfg.QdrantCollection)
	if err := index.InitCollection(ctx, cfg.VectorSize); err != nil {
		log.Fatal().Err(err).Msg("failed to init qdrant collection")
	}

	catalog := client.NewCatalogClient(cfg.ShopDomain, cfg.ShopAdminToken, cfg.CatalogTimeout)

	mappings := usecase.NewKeywordMappings()
	go func() {
		mapCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		mappings.Build(mapCtx, index, log)
	}()

	classifier := usecase.NewClassifier(llm, kv, mappings, log)
	retriever := usecase.NewRetriever(index, catalog, mappings, cfg.SearchScoreThreshold, cfg.PriceConversionRate, cfg.SearchTimeout, log)
	history := usecase.NewHistoryStore(kv, cfg.HistoryCacheSize, cfg.HistoryCacheTTL, cfg.HistoryTTL, cfg.MaxChatHistory, log)

	orchestrator := usecase.NewOrchestrator(
		limiter,
		usecase.NewGibberishFilter(log),
		classifier,
		usecase.NewIntentValidator(log),
		retriever,
		history,
		usecase.NewAssembler(),
		kv,
		cfg.ResponseCacheTTL,
		log,
	)
	suggester := usecase.NewQuestionSuggester(llm, log)
	ingestor := usecase.NewIngestor(catalog, index, mappings, log)

	// Pre-warm the model paths so the first user doesn't pay the
	// cold-start cost.
	go func() {
		warmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := embedder.CreateEmbedding(warmCtx, "warmup"); err != nil {
			log.Warn().Err(err).Msg("embedder warm-up failed")
		}
		if _, err := llm.Generate(warmCtx, "."); err != nil {
			log.Warn().Err(err).Msg("model warm-up failed")
		}
	}()

	app := fiber.New(fiber.Config{
		AppName: "shopchat",
	})
	handler := api.NewChatHandler(orchestrator, suggester, ingestor, cfg.RateLimitAnonymousID, log)
	api.SetupRouter(app, handler)

	log.Info().Str("addr", cfg.ListenAddr).Msg("chat service listening")
	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
