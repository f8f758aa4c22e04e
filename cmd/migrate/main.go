package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/samirrijal/trackmotion/internal/adapters/postgres"
	"github.com/samirrijal/trackmotion/internal/pkg/config"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding the SQL files")
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("usage: migrate [-dir migrations] <up|down>")
	}

	cfg, err := config.Load("trackmotion-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var files []string
	switch flag.Arg(0) {
	case "up":
		files, err = upFiles(*dir)
		if err != nil {
			log.Fatalf("list migrations: %v", err)
		}
	case "down":
		files = []string{filepath.Join(*dir, "down.sql")}
	default:
		log.Fatalf("unknown command: %s", flag.Arg(0))
	}

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}
		fmt.Printf("OK  %s\n", f)
	}

	log.Printf("%s: %d files applied", flag.Arg(0), len(files))
}

// upFiles returns the numbered migrations in apply order.
func upFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "[0-9]*.sql"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no migrations in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}
