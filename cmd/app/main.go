package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wichananm65/cafe-order-backend/internal/auth"
	"github.com/wichananm65/cafe-order-backend/internal/cart"
	"github.com/wichananm65/cafe-order-backend/internal/checkout"
	"github.com/wichananm65/cafe-order-backend/internal/config"
	"github.com/wichananm65/cafe-order-backend/internal/logger"
	"github.com/wichananm65/cafe-order-backend/internal/menu"
	"github.com/wichananm65/cafe-order-backend/internal/metrics"
	"github.com/wichananm65/cafe-order-backend/internal/notify"
	"github.com/wichananm65/cafe-order-backend/internal/order"
	"github.com/wichananm65/cafe-order-backend/internal/tracing"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	flags := pflag.NewFlagSet("app", pflag.ExitOnError)
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flags.StringVar(&cfg.OrderStore, "order-store", cfg.OrderStore, "order backend: file, postgres or memory")
	flags.StringVar(&cfg.OrdersFile, "orders-file", cfg.OrdersFile, "orders file for the file backend")
	flags.StringVar(&cfg.CartStore, "cart-store", cfg.CartStore, "cart backend: memory or redis")
	flags.StringVar(&cfg.MenuFile, "menu-file", cfg.MenuFile, "JSON or YAML menu file")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.BoolVar(&cfg.TracingEnabled, "tracing", cfg.TracingEnabled, "write trace spans to stdout")
	flags.Parse(os.Args[1:])
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "config: JWT_SECRET is not set")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(cfg.TracingEnabled, os.Stdout)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics(reg, "api")

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = openDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	menuRepo, err := buildMenu(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	menuService := menu.NewService(menuRepo)

	cartStore, cartSweeper, closeCarts, err := buildCartStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCarts()
	cartService := cart.NewService(cartStore, menuService)

	orderRepo, err := buildOrderRepository(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	orderService := order.NewService(orderRepo, menuService, log, order.WithStatusRecorder(m))

	notifier, closeNotifier := buildNotifier(cfg, log)
	defer closeNotifier()
	checkoutService := checkout.NewService(cartService, orderService, notifier, menuService, m, log)

	app := fiber.New(fiber.Config{AppName: "cafe-order-backend", DisableStartupMessage: true})
	setupCORS(app)
	app.Use(logger.Middleware(log))
	app.Use(m.Middleware())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if db != nil {
			if err := db.PingContext(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": "database unavailable"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler(reg))

	menu.NewHandler(menuService).RegisterPublicRoutes(app)
	auth.NewHandler(cfg.AdminUsername, cfg.AdminPasswordHash, []byte(cfg.JWTSecret), log).RegisterPublicRoutes(app)

	app.Use(auth.Middleware([]byte(cfg.JWTSecret), isPublic))
	cart.NewHandler(cartService, log).RegisterProtectedRoutes(app)
	checkout.NewHandler(checkoutService).RegisterProtectedRoutes(app)
	order.NewHandler(orderService).RegisterProtectedRoutes(app)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr),
			zap.String("order_store", cfg.OrderStore), zap.String("cart_store", cfg.CartStore))
		return app.Listen(cfg.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	if cartSweeper != nil {
		g.Go(func() error {
			ticker := time.NewTicker(sweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if n := cartSweeper.Sweep(); n > 0 {
						log.Debug("swept idle carts", zap.Int("count", n))
					}
				}
			}
		})
	}
	return g.Wait()
}

// isPublic lists the routes reachable without a token.
func isPublic(c *fiber.Ctx) bool {
	p := c.Path()
	switch {
	case p == "/healthz", p == "/metrics", p == "/api/v1/admin/sign-in":
		return true
	case c.Method() == fiber.MethodGet && strings.HasPrefix(p, "/api/v1/menu"):
		return true
	}
	return false
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

func openDB(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// buildMenu loads the menu from MENU_FILE or the built-in defaults. With a
// database the items seed an empty menu_items table, which then serves reads.
func buildMenu(ctx context.Context, cfg config.Config, db *sql.DB, log *zap.Logger) (menu.Repository, error) {
	items := menu.DefaultItems()
	if cfg.MenuFile != "" {
		loaded, err := menu.LoadFile(cfg.MenuFile)
		if err != nil {
			return nil, fmt.Errorf("menu: %w", err)
		}
		items = loaded
	}
	if db == nil {
		log.Info("menu loaded", zap.Int("items", len(items)))
		return menu.NewInMemoryRepository(items), nil
	}
	if _, err := db.ExecContext(ctx, menu.CreateTableSQL); err != nil {
		return nil, fmt.Errorf("create menu table: %w", err)
	}
	repo := menu.NewPostgresRepository(db)
	if err := repo.Seed(ctx, items); err != nil {
		return nil, err
	}
	return repo, nil
}

type sweeper interface {
	Sweep() int
}

func buildCartStore(ctx context.Context, cfg config.Config) (cart.Store, sweeper, func(), error) {
	if cfg.CartStore == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return cart.NewRedisRepository(client, cfg.MaxCartItems, cfg.CartTTL), nil, func() { client.Close() }, nil
	}
	repo := cart.NewInMemoryRepository(cfg.MaxCartItems, cfg.CartTTL)
	return repo, repo, func() {}, nil
}

func buildOrderRepository(ctx context.Context, cfg config.Config, db *sql.DB, log *zap.Logger) (order.Repository, error) {
	switch cfg.OrderStore {
	case "postgres":
		if _, err := db.ExecContext(ctx, order.CreateTableSQL); err != nil {
			return nil, fmt.Errorf("create orders table: %w", err)
		}
		return order.NewPostgresRepository(db), nil
	case "memory":
		log.Warn("orders are kept in memory and will be lost on restart")
		return order.NewInMemoryRepository(), nil
	}
	return order.NewFileRepository(cfg.OrdersFile, log), nil
}

func buildNotifier(cfg config.Config, log *zap.Logger) (notify.Notifier, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return notify.NewLogNotifier(log), func() {}
	}
	n := notify.NewKafkaNotifier(notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
	return n, func() {
		if err := n.Close(); err != nil {
			log.Warn("closing kafka writer", zap.Error(err))
		}
	}
}
