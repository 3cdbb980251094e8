package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/labstack/echo"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/galabid/galabid/internal/adapters/api"
	"github.com/galabid/galabid/internal/adapters/cache"
	adapterdb "github.com/galabid/galabid/internal/adapters/database"
	"github.com/galabid/galabid/internal/domain/bidding"
	"github.com/galabid/galabid/internal/domain/lifecycle"
	"github.com/galabid/galabid/internal/domain/lots"
	"github.com/galabid/galabid/internal/domain/settlement"
	pkgdb "github.com/galabid/galabid/pkg/database"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load environment variables (local overrides .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	ctx := context.Background()

	// 1. Initialize Postgres Connection Pool
	dbURL := os.Getenv("AUCTION_DB_URL")
	if dbURL == "" {
		logger.Error("AUCTION_DB_URL is not set")
		os.Exit(1)
	}

	pool, err := pkgdb.NewPool(ctx, dbURL)
	if err != nil {
		logger.Error("Unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if pingErr := pool.Ping(ctx); pingErr != nil {
		logger.Error("Unable to ping database", "error", pingErr)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	// 2. Run migrations
	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if err := runMigrations(dbURL, migrationsDir); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("Migrations applied")

	// 3. Check Redis (optional; the board simply goes uncached without it)
	var boardCache *cache.BoardCache
	redisURL := os.Getenv("REDIS_URL")
	if redisURL != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis connection failed, serving board uncached", "error", err)
		} else {
			boardCache = cache.NewBoardCache(rdb, 2*time.Second, logger)
			logger.Info("Redis Connected")
		}
	}

	// 4. Initialize Repositories (Infrastructure Layer)
	// Set lock timeout to 3 seconds to prevent indefinite waiting
	txManager := pkgdb.NewPostgresTransactionManager(pool, 3*time.Second)
	lotRepo := adapterdb.NewPostgresLotRepository(pool)
	bidRepo := adapterdb.NewPostgresBidRepository(pool)
	outboxRepo := adapterdb.NewPostgresOutboxRepository(pool)
	stateRepo := adapterdb.NewPostgresStateRepository(pool)

	// 5. Initialize Services (Domain Layer)
	lotService := lots.NewService(lotRepo)

	eligibility := bidding.AllowAll()
	if domain := os.Getenv("BID_ELIGIBILITY_DOMAIN"); domain != "" {
		eligibility = bidding.RequireDomain(domain)
	}

	bidService := bidding.NewService(
		txManager,
		lotRepo,
		bidRepo,
		outboxRepo,
		stateRepo,
		lots.DefaultIncrements(),
		eligibility,
	)

	settlementService := settlement.NewService(
		txManager,
		lotRepo,
		bidRepo,
		outboxRepo,
		settlement.Config{
			BaseURL:    os.Getenv("PUBLIC_BASE_URL"),
			AdminEmail: os.Getenv("ADMIN_EMAIL"),
		},
		logger,
	)

	lifecycleService := lifecycle.NewService(
		txManager,
		stateRepo,
		bidRepo,
		lotRepo,
		settlementService,
		logger,
	)

	logger.Info("Services Initialized")

	// 6. Start Server
	e := echo.New()
	e.HideBanner = true

	api.SetupRoutes(e, api.Services{
		Bids:      bidService,
		Lots:      lotService,
		Lifecycle: lifecycleService,
	}, boardCache, logger)

	addr := ":" + port()
	logger.Info("Starting Auction API", "addr", addr)
	if err := e.Start(addr); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func port() string {
	p := os.Getenv("PORT")
	if p == "" {
		return "8080"
	}
	if _, err := strconv.Atoi(p); err != nil {
		return "8080"
	}
	return p
}

// runMigrations applies pending schema migrations over the standard sql
// driver, which goose requires.
func runMigrations(dbURL, dir string) error {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, dir)
}
