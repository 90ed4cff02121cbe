package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/burakenal/data/core/config"
	"github.com/burakenal/data/core/database"
	"github.com/burakenal/data/core/loader"
	"github.com/burakenal/data/core/logger"
	"github.com/burakenal/data/core/middleware/auth"
	"github.com/burakenal/data/core/middleware/rayid"
	"github.com/burakenal/data/core/storage"

	"github.com/burakenal/data/feature/snapshot"
	"github.com/burakenal/data/feature/tables"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the data server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database (Optional, features disable themselves without it)
		var adapter *database.Adapter
		if db, err := database.Connect(cfg.Database); err != nil {
			logg.Warn("Database connection failed", zap.Error(err))
		} else {
			logg = logg.With(zap.String("database", cfg.Database.Name))
			adapter, err = database.NewAdapter(db, cfg.Adapter, logg)
			if err != nil {
				logg.Fatal("Failed to create database adapter", zap.Error(err))
			}
			logg.Info("Connected to database", zap.String("driver", adapter.Dialect()))
		}

		// 4. Initialize Storage (Optional, snapshots need it)
		var store storage.Client
		if client, err := storage.NewClient(cfg.Storage); err != nil {
			logg.Warn("Storage client unavailable", zap.Error(err))
		} else {
			store = client
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		// 5. Register Features
		mgr := loader.NewManager(logg)
		mgr.Register(tables.NewFeature(adapter, cfg.Server, logg))
		mgr.Register(snapshot.NewFeature(adapter, store, cfg.Storage, cfg.Server, logg))

		// Middleware Registration
		// RayID must be first to trace everything
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			start := time.Now()
			l := logger.WithRayID(logg, c)
			err := c.Next()
			fields := []zap.Field{
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
				zap.Int("status", c.Response().StatusCode()),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				l.Error("Request error", append(fields, zap.Error(err))...)
				return err
			}
			l.Info("Request completed", fields...)
			return nil
		})

		// Protect every request
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 6. Start Server
		go func() {
			logg.Info("Starting server",
				zap.String("port", cfg.Server.Port),
				zap.Bool("read_only", cfg.Server.ReadOnly))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 7. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
