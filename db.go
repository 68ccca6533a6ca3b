package main

import (
	"log"
	"os"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"fapiaobox/models"
)

var db *gorm.DB

// initDB connects to Postgres when DB_DSN is set, otherwise falls back to a
// local sqlite file so the service runs zero-config.
func initDB() {
	var err error
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	} else {
		path := os.Getenv("DB_PATH")
		if path == "" {
			path = "invoices.db"
		}
		db, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
	}
	if err != nil {
		log.Fatal("failed to connect database:", err)
	}

	// Migrate models individually so a failure on one doesn't block others
	if err := db.AutoMigrate(&models.User{}); err != nil {
		log.Printf("migration warning (users): %v", err)
	}
	if err := db.AutoMigrate(&models.InvoiceRecord{}); err != nil {
		log.Printf("migration warning (invoice_records): %v", err)
	}

	ensurePdfBase()
}

// ensurePdfBase creates the base directory of the PDF side-store.
func ensurePdfBase() {
	base := pdfBaseDir()
	if err := os.MkdirAll(base, 0o755); err != nil {
		log.Printf("failed to create pdf base dir %s: %v", base, err)
	}
}

// pdfBaseDir returns the base directory for stored PDF binaries (configurable
// via UPLOAD_BASE env).
func pdfBaseDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "uploads"
}
