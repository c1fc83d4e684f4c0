package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homepage/pkg/broker"
	"homepage/pkg/cache"
	"homepage/pkg/config"
	"homepage/pkg/database"
	"homepage/pkg/hub"
	"homepage/pkg/repository"
	"homepage/pkg/server"
	"homepage/pkg/services"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "homepage",
	Short: "Message board backend for the homepage",
	Long: `Serves the homepage message board API, the admin endpoints and the
live board feed. Every flag can also be set through the environment in upper
snake case (--store-driver -> STORE_DRIVER); a .env file is read if present.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String(config.KeyPort, "8082", "HTTP port")
	flags.String(config.KeyStoreDriver, config.DriverFile, "post store backend: file, redis, postgres or memory")
	flags.String(config.KeyStoreKey, "posts", "key holding the board in redis/postgres")
	flags.String(config.KeyStoreFile, "/tmp/forum-data.json", "JSON file used by the file driver")
	flags.String(config.KeyRedisURL, "", "redis URL; enables the stats cache and the cross-instance feed")
	flags.String(config.KeyDatabaseURL, "", "postgres DSN for the postgres driver")
	flags.String(config.KeyStaticDir, "", "serve this directory at / when set")

	rootCmd.AddCommand(migrateCmd, watchCmd)
}

func bindConfig(cmd *cobra.Command) (config.Config, error) {
	config.LoadDotEnv()
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	return config.Load(v)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := bindConfig(cmd)
	if err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		log.Println("[PORTAL] Connecting to Redis...")
		rdb, err = cache.Connect(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		log.Println("[PORTAL] Redis connected")
	}

	store, err := openStore(cfg, rdb)
	if err != nil {
		return err
	}
	defer store.Close()

	wsHub := hub.New(cfg.ServiceName)
	var b *broker.Broker
	if rdb != nil {
		b = broker.New(rdb)
		defer b.Close()
	}
	feed, err := hub.NewFeed(wsHub, b, cfg.ServiceName)
	if err != nil {
		return err
	}

	auth, err := services.NewAuthService(services.AuthOptions{
		Password:     cfg.AdminPassword,
		PasswordHash: cfg.AdminPasswordHash,
		Secret:       cfg.JWTSecret,
		TTL:          cfg.AdminTokenTTL,
	})
	if err != nil {
		return err
	}
	posts := services.NewPostsService(store, cache.New(rdb), feed, services.PostsOptions{
		MaxContentLength: cfg.MaxContentLength,
	})

	app := server.NewApp(server.AppOptions{Name: cfg.ServiceName})
	server.Mount(app, server.Deps{
		Posts:      posts,
		Auth:       auth,
		Hub:        wsHub,
		LoginLimit: cfg.LoginRateLimit,
		StaticDir:  cfg.StaticDir,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[PORTAL] store=%s WebSocket: ws://<host>:%s/ws", cfg.StoreDriver, cfg.Port)
		log.Printf("[PORTAL] Server starting on %s", cfg.Addr())
		errCh <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		log.Println("[PORTAL] shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

func openStore(cfg config.Config, rdb *redis.Client) (repository.PostStore, error) {
	var store repository.PostStore
	switch cfg.StoreDriver {
	case config.DriverFile:
		store = repository.NewFileStore(cfg.StoreFile)
	case config.DriverMemory:
		store = repository.NewMemoryStore()
	case config.DriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis driver without a redis connection")
		}
		store = repository.NewRedisStore(rdb, cfg.StoreKey)
	case config.DriverPostgres:
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		store = repository.NewPostgresStore(db, cfg.StoreKey)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	log.Printf("[STORE] using %s driver", cfg.StoreDriver)
	return repository.Instrument(cfg.StoreDriver, store), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("[PORTAL] %v", err)
		os.Exit(1)
	}
}
