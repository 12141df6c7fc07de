// Command migrate manages the worker's sqlite schema from the command
// line. The worker applies pending migrations itself on startup; this tool
// exists for rollbacks and for inspecting migration state.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"topicbot/migrations"
)

const usage = `Usage: migrate [-db path] <command>

Commands:
  up       Apply all pending migrations
  up-one   Apply the next pending migration
  down     Roll back the most recent migration
  status   Print per-migration applied state
  version  Print the current schema version
  reset    Roll back everything
`

func main() {
	dbPath := flag.String("db", defaultDBPath(), "path to sqlite database")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}

	cmd := args[0]
	switch cmd {
	case "up":
		err = goose.Up(db, ".")
	case "up-one":
		err = goose.UpByOne(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "version":
		err = goose.Version(db, ".")
	case "reset":
		err = goose.Reset(db, ".")
	default:
		fmt.Fprint(os.Stderr, usage)
		log.Fatalf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func defaultDBPath() string {
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		return v
	}
	return "./data/topicbot.db"
}
