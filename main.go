package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/guard"
	"storefront/internal/handlers"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/database"
	"storefront/pkg/kafka"
	"storefront/pkg/logger"
	"storefront/pkg/rabbitmq"
)

// App is the wired storefront: the HTTP app plus everything that must be closed with it.
type App struct {
	Fiber   *fiber.App
	Auth    *services.AuthService
	Store   repositories.Store
	closers []func() error
	log     zerolog.Logger
	started time.Time
}

// NewApp connects every dependency named by cfg and mounts the routes.
func NewApp(cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{log: log, started: time.Now()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	// --- Database ---
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeDB(db))
	if err := repositories.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	a.Store = repositories.NewGORMStore(db)

	// --- Checkout guard ---
	var checkoutGuard guard.Guard = guard.NewMemoryGuard()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, client.Close)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		checkoutGuard = guard.NewRedisGuard(client, cfg.CheckoutLockTTL, log)
		log.Info().Str("addr", cfg.RedisAddr).Msg("checkout guard backed by redis")
	}

	// --- Event broker ---
	publisher, err := a.connectBroker(cfg)
	if err != nil {
		return nil, err
	}

	// --- Services ---
	ctx := context.Background()
	a.Auth = services.NewAuthService(a.Store.Users(), cfg.JWTSecret, cfg.TokenTTL, log)
	if _, err := a.Auth.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, fmt.Errorf("failed to ensure admin account: %w", err)
	}
	if cfg.SeedCatalog {
		if err := seedCatalog(ctx, a.Store, log); err != nil {
			return nil, err
		}
	}

	svc := handlers.Services{
		Auth:     a.Auth,
		Products: services.NewProductService(a.Store.Products(), a.Store.Categories(), log),
		Carts:    services.NewCartService(a.Store),
		Checkout: services.NewCheckoutService(a.Store, checkoutGuard, publisher, log),
		Orders:   services.NewOrderService(a.Store, publisher, log),
	}

	// --- Fiber ---
	a.Fiber = fiber.New(fiber.Config{AppName: "storefront"})
	a.Fiber.Use(recover.New())
	a.Fiber.Use(fiberlogger.New())

	a.Fiber.Get("/health", func(c *fiber.Ctx) error {
		dbStatus := "connected"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			dbStatus = "unavailable"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"uptime":   time.Since(a.started).Round(time.Second).String(),
			"database": dbStatus,
			"broker":   cfg.EventBroker,
		})
	})
	handlers.RegisterAPI(a.Fiber, svc, log)

	ok = true
	return a, nil
}

// connectBroker returns the publisher selected by EVENT_BROKER, or nil for none.
// With RabbitMQ the order event consumer is started as well.
func (a *App) connectBroker(cfg *config.Config) (services.EventPublisher, error) {
	switch cfg.EventBroker {
	case config.BrokerRabbitMQ:
		client, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:        cfg.RabbitMQURL,
			Exchange:   events.Exchange,
			Queue:      "order_events",
			BindingKey: "order.#",
		}, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		if err := client.ConsumeOrderEvents(events.NewLogHandler(a.log)); err != nil {
			return nil, err
		}
		return client, nil
	case config.BrokerKafka:
		producer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.KafkaBrokerList()}, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, producer.Close)
		return producer, nil
	default:
		a.log.Info().Msg("no event broker configured, order events are not published")
		return nil, nil
	}
}

// Close releases every connection in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func closeDB(db *gorm.DB) func() error {
	return func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	app, err := NewApp(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start storefront")
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.AppPort).Msg("starting server")
		if err := app.Fiber.Listen(cfg.AppPort); err != nil {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-quit
	log.Info().Msg("shutting down server")

	if err := app.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("error during fiber shutdown")
	}
	if err := app.Close(); err != nil {
		log.Error().Err(err).Msg("error closing connections")
	}
	log.Info().Msg("server gracefully stopped")
}

type seedProduct struct {
	name          string
	category      string
	price         int64
	originalPrice int64
	rating        float64
	reviews       int
	discount      int
	isNew         bool
}

// seedCatalog fills an empty catalog with the storefront's launch assortment.
func seedCatalog(ctx context.Context, store repositories.Store, log zerolog.Logger) error {
	existing, err := store.Categories().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect catalog: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	categories := []models.Category{
		{Name: "Bình sữa & Ti giả", Slug: "feeding", Description: "Bình sữa, núm ti và phụ kiện cho bé"},
		{Name: "Chăm sóc da", Slug: "skincare", Description: "Sản phẩm chăm sóc da dịu nhẹ cho bé"},
		{Name: "Mẹ & Bầu", Slug: "maternity", Description: "Đồ dùng cho mẹ bầu và sau sinh"},
		{Name: "Đồ chơi", Slug: "toys", Description: "Đồ chơi an toàn cho trẻ nhỏ"},
	}
	products := []seedProduct{
		{name: "Bình sữa Pigeon cổ rộng 240ml", category: "feeding", price: 299000, originalPrice: 399000, rating: 4.8, reviews: 156, discount: 25},
		{name: "Kem dưỡng da Baby Lotion 200ml", category: "skincare", price: 189000, rating: 4.6, reviews: 89, isNew: true},
		{name: "Máy hút sữa điện đôi", category: "maternity", price: 2490000, originalPrice: 2990000, rating: 4.9, reviews: 234, discount: 17},
		{name: "Bộ đồ chơi xúc xắc cho bé", category: "toys", price: 159000, rating: 4.5, reviews: 67, isNew: true},
		{name: "Bộ 3 bình sữa Combo", category: "feeding", price: 699000, originalPrice: 899000, rating: 4.7, reviews: 123, discount: 22},
		{name: "Sữa tắm gội Baby Wash 400ml", category: "skincare", price: 245000, rating: 4.8, reviews: 178},
		{name: "Áo bầu cotton cao cấp", category: "maternity", price: 449000, originalPrice: 599000, rating: 4.6, reviews: 45, discount: 25},
		{name: "Gấu bông an toàn cho trẻ sơ sinh", category: "toys", price: 299000, rating: 4.9, reviews: 201, isNew: true},
	}

	return store.WithinTx(ctx, func(tx repositories.Store) error {
		ids := make(map[string]string, len(categories))
		for i := range categories {
			if err := tx.Categories().Create(ctx, &categories[i]); err != nil {
				return fmt.Errorf("failed to seed category %s: %w", categories[i].Slug, err)
			}
			ids[categories[i].Slug] = categories[i].ID
		}
		for _, p := range products {
			categoryID := ids[p.category]
			product := &models.Product{
				Name:        p.name,
				Slug:        models.Slugify(p.name),
				Price:       decimal.NewFromInt(p.price),
				Discount:    p.discount,
				Rating:      p.rating,
				ReviewCount: p.reviews,
				Stock:       50,
				IsNew:       p.isNew,
				CategoryID:  &categoryID,
			}
			if p.originalPrice > 0 {
				product.OriginalPrice = decimal.NewNullDecimal(decimal.NewFromInt(p.originalPrice))
			}
			if err := tx.Products().Create(ctx, product); err != nil {
				return fmt.Errorf("failed to seed product %s: %w", p.name, err)
			}
		}
		log.Info().Int("categories", len(categories)).Int("products", len(products)).Msg("catalog seeded")
		return nil
	})
}
