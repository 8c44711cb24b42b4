package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/MoAftaab/slidecast/config"
	"github.com/MoAftaab/slidecast/internal/api/handlers"
	"github.com/MoAftaab/slidecast/internal/api/middleware"
	"github.com/MoAftaab/slidecast/internal/api/routes"
	"github.com/MoAftaab/slidecast/internal/cache"
	"github.com/MoAftaab/slidecast/internal/logger"
	"github.com/MoAftaab/slidecast/internal/pipeline"
	"github.com/MoAftaab/slidecast/internal/providers/health"
	"github.com/MoAftaab/slidecast/internal/providers/llm"
	"github.com/MoAftaab/slidecast/internal/providers/tts"
	mongorepo "github.com/MoAftaab/slidecast/internal/repositories/mongo"
	"github.com/MoAftaab/slidecast/internal/services"
	"github.com/MoAftaab/slidecast/internal/storage"
	"github.com/MoAftaab/slidecast/internal/workers"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	l := logger.New()
	ctx := context.Background()

	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	l.Info("MongoDB connected")
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}

	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	l.Info("Redis connected")

	db := config.MongoDatabase()
	records := mongorepo.NewPresentationRepo(db)

	// Blob storage: GridFS by default, GCS when a bucket is configured.
	var blobs storage.BlobStore
	if os.Getenv("BLOB_BACKEND") == "gcs" {
		gcs, err := storage.NewGCSStore(ctx, os.Getenv("GCS_BUCKET"), os.Getenv("GCS_CREDENTIALS_FILE"))
		if err != nil {
			log.Fatalf("GCS init error: %v", err)
		}
		blobs = gcs
	} else {
		gfs, err := storage.NewGridFSStore(db, "presentation_files")
		if err != nil {
			log.Fatalf("GridFS init error: %v", err)
		}
		blobs = gfs
	}

	// LLM providers: Perplexity first, then OpenAI or Vertex Gemini.
	var primaryLLM, secondaryLLM llm.Provider
	if key := os.Getenv("PERPLEXITY_API_KEY"); key != "" {
		primaryLLM = llm.NewChatHTTP("perplexity",
			envOr("PERPLEXITY_BASE_URL", "https://api.perplexity.ai"),
			key,
			envOr("PERPLEXITY_MODEL", "sonar"))
	}
	if project := os.Getenv("GOOGLE_CLOUD_PROJECT"); project != "" {
		vg, err := llm.NewVertexGemini(ctx, project,
			envOr("GOOGLE_CLOUD_LOCATION", "us-central1"),
			envOr("GEMINI_MODEL", "gemini-1.5-flash"))
		if err != nil {
			log.Fatalf("Vertex AI init error: %v", err)
		}
		secondaryLLM = vg
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		secondaryLLM = llm.NewChatHTTP("openai",
			envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			key,
			envOr("OPENAI_MODEL", "gpt-4o-mini"))
	}
	if primaryLLM == nil && secondaryLLM == nil {
		l.Warn("no LLM provider configured, scripts will use the template fallback")
	}

	// TTS providers: ElevenLabs first, Google Cloud TTS as fallback.
	var primaryTTS, secondaryTTS tts.Provider
	if key := os.Getenv("ELEVEN_LABS_API_KEY"); key != "" {
		primaryTTS = tts.NewElevenLabs(os.Getenv("ELEVEN_LABS_BASE_URL"), key)
	}
	if key := os.Getenv("GOOGLE_TTS_API_KEY"); key != "" {
		secondaryTTS = tts.NewGoogleTTS(key)
	}
	if primaryTTS == nil && secondaryTTS == nil {
		l.Warn("no TTS provider configured, presentations will complete without audio")
	}

	hc := health.NewCache()
	probes := map[string]health.Probe{}
	for _, p := range []llm.Provider{primaryLLM, secondaryLLM} {
		if p == nil {
			continue
		}
		provider := p
		probes[provider.Name()] = func(ctx context.Context) error {
			_, err := provider.Complete(ctx, "", "ping", 0, 1)
			return err
		}
	}
	if len(probes) > 0 {
		hc.StartProbe(ctx, health.DefaultProbeInterval, probes, l)
	}

	assembler, err := pipeline.NewAudioAssembler(pipeline.DefaultSilenceConfig())
	if err != nil {
		log.Fatalf("assembler init error: %v", err)
	}

	runner := &pipeline.Runner{
		Records:   records,
		Blobs:     blobs,
		Converter: pipeline.NewCLIConverter(pipeline.DefaultBackends(), 2*time.Minute, l),
		Extractor: pipeline.NewPDFExtractor(),
		Scripter:  pipeline.NewScriptGenerator(primaryLLM, secondaryLLM, hc, l),
		Synth:     pipeline.NewSpeechSynthesizer(primaryTTS, secondaryTTS, hc, 0, l), // 0 = default inter-request delay
		Assembler: assembler,
		Notifier:  &workers.RedisNotifier{Redis: config.RedisClient},
		Log:       l,
	}

	numWorkers, _ := strconv.Atoi(os.Getenv("PIPELINE_WORKERS"))
	pool := &workers.PipelineWorkerPool{
		Redis:      config.RedisClient,
		Blobs:      blobs,
		Runner:     runner,
		NumWorkers: numWorkers,
		Logger:     l,
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("worker pool start error: %v", err)
	}
	l.Info("pipeline workers started")

	queue := workers.NewRedisQueue(config.RedisClient, pool.Stream)
	svc := services.NewPresentationService(records, blobs, queue, cache.NewRedisCache(config.RedisClient))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(l))

	routes.RegisterRoutes(r, routes.Deps{
		Presentation: handlers.NewPresentationHandler(svc, hc),
		WS:           handlers.NewWSHandler(svc, config.RedisClient),
	})

	port := envOr("PORT", "8080")
	l.WithField("port", port).Info("starting api server")
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
