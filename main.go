package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chitly/chit/handlers"
	"github.com/chitly/chit/internal/config"
	"github.com/chitly/chit/internal/database"
	"github.com/chitly/chit/internal/identity"
	"github.com/chitly/chit/internal/notes"
	"github.com/chitly/chit/internal/oauth"
	"github.com/chitly/chit/internal/sessions"
	"github.com/chitly/chit/internal/storage"
	"github.com/chitly/chit/internal/tokens"
	"github.com/chitly/chit/pkg/logger"
	"github.com/chitly/chit/pkg/metrics"
	"github.com/chitly/chit/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging is controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v facebook=%v google=%v minio=%v",
		cfg.MongoDB.URI != "", cfg.Redis.Host != "",
		cfg.OAuth.Facebook.ClientID != "", cfg.OAuth.Google.ClientID != "", cfg.MinIO.Endpoint != "")

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple; production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// Global middlewares: logging + recovery
	r.Use(gin.Logger(), gin.Recovery())

	ctx := context.Background()

	// Connect to Redis early so the blacklist, OAuth state store and the
	// rate-limiter can use it when configured
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
		} else {
			rdb = client
			sessions.SetBlacklistClient(rdb)
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Connect to MongoDB with retry/backoff to tolerate startup races. When
	// Mongo is unavailable the service falls back to in-memory stores so that
	// local development works without any infrastructure.
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			mongoClient, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
			mongoClient = nil
		} else {
			defer func() { _ = mongoClient.Disconnect(ctx) }()
		}
	}

	// Identity store: Mongo when available, memory otherwise
	var idStore identity.Store
	if mongoClient != nil {
		db := mongoClient.Database(cfg.MongoDB.Database)
		ms := identity.NewMongoStore(db.Collection("users"))
		if err := ms.EnsureIndexes(ctx); err != nil {
			logger.Warnf("failed to ensure user indexes: %v", err)
		}
		idStore = ms
	} else {
		logger.Warnf("using in-memory user storage; all accounts are lost on restart")
		idStore = identity.NewMemoryStore()
	}
	idSvc := identity.NewService(idStore)

	// Sessions: prefer Redis, then Mongo, then memory
	var sessionsSvc *sessions.Service
	switch {
	case rdb != nil:
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(rdb, "session:"))
		logger.Infof("Using Redis for session storage")
	case mongoClient != nil:
		col := mongoClient.Database(cfg.MongoDB.Database).Collection("sessions")
		sessionsSvc = sessions.NewService(sessions.NewMongoRepository(col))
	default:
		sessionsSvc = sessions.NewService(sessions.NewMemoryRepository())
	}

	// Notes: Mongo when available, memory otherwise
	var notesRepo notes.Repository
	if mongoClient != nil {
		mr := notes.NewMongoRepository(mongoClient.Database(cfg.MongoDB.Database).Collection("notes"))
		if err := mr.EnsureIndexes(ctx); err != nil {
			logger.Warnf("failed to ensure note indexes: %v", err)
		}
		notesRepo = mr
	} else {
		notesRepo = notes.NewMemoryRepository()
	}
	notesSvc := notes.NewService(notesRepo)

	// Access token verifier with blacklist-backed revocation
	verifier := tokens.NewVerifier(cfg.JWT.Secret, sessions.IsAccessTokenBlacklisted)

	// OAuth providers: registered only when a client ID is configured
	adapters := map[string]oauth.Adapter{}
	if cfg.OAuth.Facebook.ClientID != "" {
		adapters[identity.ProviderFacebook] = oauth.NewFacebookAdapter(cfg.OAuth.Facebook)
	}
	if cfg.OAuth.Google.ClientID != "" {
		ga, err := oauth.NewGoogleAdapter(ctx, cfg.OAuth.Google)
		if err != nil {
			logger.Warnf("failed to initialize Google OIDC adapter: %v", err)
		} else {
			adapters[identity.ProviderGoogle] = ga
		}
	}

	var states oauth.StateStore
	if rdb != nil {
		states = oauth.NewRedisStateStore(rdb)
	} else {
		states = oauth.NewMemoryStateStore()
	}

	// Object storage for note attachments
	var objects storage.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		st, err := storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			logger.Warnf("failed to initialize MinIO attachment storage: %v", err)
		} else {
			objects = st
		}
	}

	// Basic health endpoint
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness endpoint: 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{
			"users":       mongoClient != nil,
			"sessions":    true,
			"attachments": objects != nil,
		}

		if cfg.Redis.Host != "" {
			deps["redis"] = rdb != nil
			if rdb == nil {
				ready = false
			}
		}
		if cfg.MongoDB.URI != "" && mongoClient == nil {
			ready = false
		}

		status := "ready"
		code := http.StatusOK
		if !ready {
			status = "not_ready"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	api := r.Group("/api")
	load := handlers.IdentityLoader(idStore)
	handlers.NewAuthHandler(cfg, idSvc, sessionsSvc, adapters, states).Register(api, verifier)
	handlers.NewNotesHandler(notesSvc, objects).Register(api, verifier, load)
	handlers.NewUsersHandler(idSvc).Register(api, verifier, load)
	handlers.RegisterSwagger(r)

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Starting chit service on %s (env=%s)", addr, cfg.Server.Environment)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
