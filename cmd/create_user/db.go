package main

import (
	"log"
	"os"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// mustOpenDB mirrors the server's driver selection: Postgres when DB_DSN is
// set, local sqlite otherwise.
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
