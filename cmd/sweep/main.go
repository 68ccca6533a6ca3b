// Command sweep runs one retention pass by hand: every record recycled more
// than the retention window ago is purged and its PDF reclaimed.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"fapiaobox/pkg/lifecycle"
	"fapiaobox/pkg/store"
)

func main() {
	retentionDays := flag.Int("retention-days", 30, "recycle bin retention in days")
	flag.Parse()

	st := store.New(mustOpenDB(), pdfBaseDir())
	mgr := lifecycle.NewManager(st, nil)
	mgr.SetRetention(time.Duration(*retentionDays) * 24 * time.Hour)

	n, err := mgr.SweepExpired(time.Now())
	if err != nil {
		log.Fatalf("sweep failed: %v", err)
	}
	fmt.Printf("purged %d expired records\n", n)
}

func mustOpenDB() *gorm.DB {
	var gdb *gorm.DB
	var err error
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		gdb, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	} else {
		path := os.Getenv("DB_PATH")
		if path == "" {
			path = "invoices.db"
		}
		gdb, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
	}
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

func pdfBaseDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "uploads"
}
