package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"google.golang.org/genai"

	"github.com/docuchat/server/controller"
	"github.com/docuchat/server/services"
	"github.com/docuchat/server/store"
)

func main() {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence collaborator: sessions and query logs.
	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to open session store: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Warning: Failed to close session store: %v", err)
		}
	}()

	// Per-user index artifacts.
	indexStore, err := services.NewIndexStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("FATAL: Failed to create index store: %v", err)
	}

	// Embedding service.
	embedder := services.NewOllamaEmbedder(services.OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.EmbedModel,
	})

	// Completion service.
	geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create Gemini client: %v. Make sure GEMINI_API_KEY is set.", err)
	}
	log.Println("Successfully connected to Google Gemini.")
	completion := services.NewGeminiClient(geminiClient, cfg.GeminiModel)

	// Offline path: upload batch -> chunks -> vectors -> index artifact.
	ingestService := services.NewIngestService(cfg.DocsDir, services.NewChunker(), embedder, indexStore)

	// Online path: rewrite -> retrieve -> stream -> log.
	sessionService := services.NewSessionService(db)
	ragService := services.NewRAGService(
		services.NewQueryRewriter(completion),
		services.NewRetriever(embedder, indexStore),
		services.NewAnswerGenerator(completion),
		sessionService,
	)

	// Re-index users whose docs directories change out of band.
	watcher := services.NewUploadWatcher(ingestService, cfg.DocsDir)
	go watcher.Watch(ctx)

	ragController := controller.NewRAGController(ragService, ingestService)
	sessionController := controller.NewSessionController(db)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware for testing
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Add health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Document QA API",
			"version": "1.0.0",
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/ask", ragController.Ask)            // Ask a question, streamed answer
		apiV1.POST("/upload", ragController.Upload)      // Upload a document batch, streamed progress
		apiV1.GET("/sessions", sessionController.List)   // Session review
		apiV1.GET("/sessions/stats/summary", sessionController.Summary)
		apiV1.GET("/sessions/:id", sessionController.Get)
		apiV1.DELETE("/sessions/:id", sessionController.Delete)
	}

	log.Printf("Go Gin backend server starting on http://localhost:%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}
