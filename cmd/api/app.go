package main

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roomops/pms-console/internal/adapter/api/controller"
	"github.com/roomops/pms-console/internal/adapter/api/route"
	"github.com/roomops/pms-console/internal/adapter/repository"
	"github.com/roomops/pms-console/internal/infrastructure/database"
	"github.com/roomops/pms-console/pkg/assistant"
	"github.com/roomops/pms-console/pkg/audit"
	"github.com/roomops/pms-console/pkg/conversation"
	"github.com/roomops/pms-console/pkg/logger"
)

// App wires the application's dependencies together.
type App struct {
	router   *gin.Engine
	db       *pgxpool.Pool
	notifier *audit.Notifier
	logger   logger.Logger
}

// NewApp creates the application.
func NewApp() (*App, error) {
	log := logger.NewLogger()

	// Database and transcript store
	dbConfig := database.NewPostgresConfigFromEnv()
	db, err := database.NewPostgresDB(dbConfig)
	if err != nil {
		return nil, err
	}
	chatRepo := repository.NewChatRepository(db)

	// Conversation state store: Redis when configured, in-memory otherwise
	var stateStore conversation.StateStore
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		stateRepo, err := repository.NewStateRepository(redisURL)
		if err != nil {
			db.Close()
			return nil, err
		}
		stateStore = stateRepo
		log.Info("using Redis conversation state store")
	} else {
		stateStore = conversation.NewMemoryStore()
		log.Info("using in-memory conversation state store")
	}

	// Audit events (optional)
	notifier, err := audit.NewNotifierFromEnv(log)
	if err != nil {
		log.Warn("audit notifier disabled", "error", err)
	}

	// Remote collaborators and the conversational core
	client := assistant.NewClient(assistant.NewConfigFromEnv(), log)
	var sink conversation.EventSink
	if notifier != nil {
		sink = notifier
	}
	dispatcher := conversation.NewDispatcher(client, sink, log)
	manager := conversation.NewManager(client, dispatcher, conversation.NewKeywordClassifier(), stateStore, log)

	chatController := controller.NewChatController(manager, chatRepo, log)

	// Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{getEnv("CORS_ALLOW_ORIGIN", "*")},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	api := router.Group("/api/v1")
	route.ConfigureChatRoutes(api, chatController)

	return &App{
		router:   router,
		db:       db,
		notifier: notifier,
		logger:   log,
	}, nil
}

// Start runs the HTTP server.
func (a *App) Start() error {
	port := getEnv("PORT", "8080")
	a.logger.Info("starting server", "port", port)
	return a.router.Run(":" + port)
}

// Close releases the application's resources.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	a.notifier.Close()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
