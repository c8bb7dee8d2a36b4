package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/kevin07696/chit-service/internal/adapters/postgres"
	"github.com/kevin07696/chit-service/internal/config"
)

var flags = flag.NewFlagSet("migrate", flag.ExitOnError)

func main() {
	flags.Usage = usage
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) < 1 {
		flags.Usage()
		return
	}

	// A missing .env is fine outside local development
	_ = godotenv.Load()

	command := args[0]

	dbCfg := config.DatabaseFromEnv()

	db, err := sql.Open("pgx", dbCfg.ConnectionString())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := postgres.Migrate(ctx, db, command, args[1:]...); err != nil {
		log.Fatalf("%v", err)
	}
}

func usage() {
	fmt.Print(`Usage: migrate COMMAND

Applies the embedded chit-service schema migrations.
Reads DATABASE_URL, or DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME and DB_SSL_MODE.

Commands:
    up                   apply all pending migrations
    up-by-one            apply the next migration
    up-to VERSION        apply migrations up to VERSION
    down                 roll back the latest migration
    down-to VERSION      roll back to VERSION
    redo                 roll back and re-apply the latest migration
    reset                roll back every migration
    status               list applied and pending migrations
    version              print the schema version
`)
}
