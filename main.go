package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"fapiaobox/pkg/batch"
	"fapiaobox/pkg/ingest"
	"fapiaobox/pkg/lifecycle"
	"fapiaobox/pkg/ocr"
	"fapiaobox/pkg/store"
	"fapiaobox/process/inbox"
)

var jwtSecret []byte // loaded from env JWT_SECRET (fallback to dev default)

var (
	invStore       *store.Store
	invManager     *lifecycle.Manager
	invCoordinator *batch.Coordinator
	ingestSvc      *ingest.Service
)

func main() {
	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	jwtSecret = []byte(secret)

	// Lightweight migrate command: `./fapiaobox migrate` runs AutoMigrate and
	// exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration completed")
		return
	}

	initDB()
	initServices()

	ctx := context.Background()
	sweeper := &lifecycle.Sweeper{Manager: invManager, Interval: sweepInterval()}
	go sweeper.Run(ctx)

	if dir := os.Getenv("INBOX_DIR"); dir != "" {
		go func() {
			if err := inbox.Watch(ctx, dir, ingestSvc, inbox.Defaults{
				Type:      os.Getenv("INBOX_TYPE"),
				Purchaser: os.Getenv("INBOX_PURCHASER"),
			}); err != nil {
				log.Printf("inbox watcher stopped: %v", err)
			}
		}()
	}

	r := gin.Default()
	setupRoutes(r)
	r.Run(":" + port())
}

func initServices() {
	invStore = store.New(db, pdfBaseDir())
	invManager = lifecycle.NewManager(invStore, nil)
	invCoordinator = batch.NewCoordinator(invStore, invManager)
	ingestSvc = ingest.NewService(invStore, ocr.NewClient())
}

func port() string {
	if v := os.Getenv("PORT"); v != "" {
		return v
	}
	return "8080"
}

// sweepInterval reads SWEEP_INTERVAL_MINUTES (default hourly). Retention
// itself is 30 days; the interval only controls how promptly expiry is seen.
func sweepInterval() time.Duration {
	if v := os.Getenv("SWEEP_INTERVAL_MINUTES"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			return time.Duration(m) * time.Minute
		}
	}
	return time.Hour
}
