package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jlkwl/supermarket/internal/cart"
	"github.com/jlkwl/supermarket/internal/cart/cache"
	cartstore "github.com/jlkwl/supermarket/internal/cart/store"
	"github.com/jlkwl/supermarket/internal/checkout"
	h "github.com/jlkwl/supermarket/internal/http"
	"github.com/jlkwl/supermarket/internal/payment"
	"github.com/jlkwl/supermarket/internal/publisher"
	"github.com/jlkwl/supermarket/internal/repository"
	"github.com/jlkwl/supermarket/internal/session"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	SessionTTL      time.Duration

	PGHost        string
	PGPort        int
	PGUser        string
	PGPassword    string
	PGDatabase    string
	MigrationsDir string

	MongoURI      string
	MongoDatabase string

	RedisAddr string

	KafkaBrokers []string

	PayPalBaseURL  string
	PayPalClientID string
	PayPalSecret   string

	NETSBaseURL   string
	NETSAPIKey    string
	NETSProjectID string

	Currency string
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		SessionTTL:      2 * time.Hour,

		PGHost:        getEnv("PG_HOST", "localhost"),
		PGPort:        getEnvInt("PG_PORT", 5432),
		PGUser:        getEnv("PG_USER", "postgres"),
		PGPassword:    getEnv("PG_PASSWORD", "postgres"),
		PGDatabase:    getEnv("PG_DATABASE", "supermarket"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "supermarket"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),

		PayPalBaseURL:  getEnv("PAYPAL_BASE_URL", ""),
		PayPalClientID: getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalSecret:   getEnv("PAYPAL_CLIENT_SECRET", ""),

		NETSBaseURL:   getEnv("NETS_BASE_URL", ""),
		NETSAPIKey:    getEnv("NETS_API_KEY", ""),
		NETSProjectID: getEnv("NETS_PROJECT_ID", ""),

		Currency: getEnv("CURRENCY", "SGD"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Relational store: products, users, orders, feedback, outbox.
	creds := &repository.Credentials{
		Host:              cfg.PGHost,
		Port:              cfg.PGPort,
		User:              cfg.PGUser,
		Password:          cfg.PGPassword,
		DBName:            cfg.PGDatabase,
		MigrationsDirPath: cfg.MigrationsDir,
	}
	db, err := repository.Connect(creds)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()
	if err := repository.RunMigrations(db, creds); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	log.Println("connected to postgres")

	// Cart store and cache.
	mongoDB, err := cartstore.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("failed to connect to mongodb: %v", err)
	}
	cartRepo := cartstore.NewMongoStore(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		log.Fatalf("failed to create cart indexes: %v", err)
	}
	log.Println("connected to mongodb")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to ping redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("connected to redis")

	products := repository.NewProductRepository(db)
	orders := repository.NewOrderRepository(db)
	users := repository.NewUserRepository(db)
	feedback := repository.NewFeedbackRepository(db)
	outbox := repository.NewOutboxRepository(db)
	stock := repository.NewStockLedger(db)

	cartCache := cache.NewRedisCache(redisClient)
	carts := cart.NewService(cartRepo, cartCache, products)

	engine := checkout.NewEngine(db, stock, orders, outbox, carts)

	sessions := session.NewStore(redisClient, cfg.SessionTTL)

	paypal := payment.NewPayPalClient(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalSecret)
	nets := payment.NewNETSClient(cfg.NETSBaseURL, cfg.NETSAPIKey, cfg.NETSProjectID)

	poller := publisher.NewOutboxPoller(outbox, cfg.KafkaBrokers...)
	go poller.Run(ctx)
	defer poller.Close()

	router := h.NewRouter(h.Handlers{
		Auth:     h.NewAuthHandler(users, sessions),
		Products: h.NewProductHandler(products),
		Cart:     h.NewCartHandler(carts),
		Checkout: h.NewCheckoutHandler(carts, engine),
		Orders:   h.NewOrdersHandler(orders),
		Feedback: h.NewFeedbackHandler(feedback),
		Payments: h.NewPaymentsHandler(paypal, nets, cfg.Currency),
	}, sessions, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
