package di

import (
	"context"
	"fmt"
	"time"

	"github.com/shoe-uugan/ai-chat/internal/chat"
	"github.com/shoe-uugan/ai-chat/internal/repository"
	"github.com/shoe-uugan/ai-chat/internal/service"
	"github.com/shoe-uugan/ai-chat/pkg/cache"
	appconfig "github.com/shoe-uugan/ai-chat/pkg/config"
	"github.com/shoe-uugan/ai-chat/pkg/jwt"
	"github.com/shoe-uugan/ai-chat/pkg/logger"
	"github.com/shoe-uugan/ai-chat/pkg/observability"
	"github.com/shoe-uugan/ai-chat/pkg/secrets"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB               *gorm.DB
	Logger           *logger.Logger
	Cache            *cache.Cache
	JWTService       *jwt.Service
	Secrets          *secrets.Manager
	UserService      *service.UserService
	CharacterService *service.CharacterService
	MessageStore     repository.MessageStore
	Generator        chat.Generator
	Orchestrator     *chat.Orchestrator
}

// Config holds the configuration for the container
type Config struct {
	LoggerConfig logger.Config
	JWTSecret    string
	JWTExpiry    time.Duration
	// Generator overrides the Gemini client when set (tests use this)
	Generator chat.Generator
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		LoggerConfig: logger.DefaultConfig(),
	}
}

// New creates a new dependency injection container
func New(db *gorm.DB, config *Config) (*Container, error) {
	if config == nil {
		config = DefaultConfig()
	}

	log := logger.New(config.LoggerConfig)
	cfg := appconfig.Get()

	secretsManager, err := secrets.NewManager(log)
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets manager: %w", err)
	}

	ctx := context.Background()

	jwtSecret := config.JWTSecret
	if jwtSecret == "" {
		if v, err := secretsManager.Get(ctx, "JWT_SECRET"); err == nil {
			jwtSecret = v
		} else {
			jwtSecret = cfg.JWT.Secret
		}
	}
	jwtExpiry := config.JWTExpiry
	if jwtExpiry == 0 {
		jwtExpiry = cfg.JWT.Expiry
	}
	jwtService := jwt.NewService(jwtSecret, jwtExpiry)

	characterCache := cache.New()

	userService := service.NewUserService(db, jwtService)
	characterService := service.NewCharacterService(db, characterCache, log)
	messageStore := repository.NewGormMessageStore(db)

	generator := config.Generator
	if generator == nil {
		apiKey := cfg.Gemini.APIKey
		if v, err := secretsManager.Get(ctx, "GEMINI_API_KEY"); err == nil {
			apiKey = v
		}

		client, err := chat.NewGeminiClient(ctx, chat.GeminiConfig{
			APIKey:  apiKey,
			Model:   cfg.Gemini.Model,
			Timeout: cfg.Gemini.Timeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create generation client: %w", err)
		}
		generator = client
	}

	orchestrator := chat.NewOrchestrator(characterService, messageStore, generator, log).
		WithMetrics(observability.NewChatMetrics())

	return &Container{
		DB:               db,
		Logger:           log,
		Cache:            characterCache,
		JWTService:       jwtService,
		Secrets:          secretsManager,
		UserService:      userService,
		CharacterService: characterService,
		MessageStore:     messageStore,
		Generator:        generator,
		Orchestrator:     orchestrator,
	}, nil
}
