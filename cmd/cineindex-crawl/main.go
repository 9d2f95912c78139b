package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cineindex/internal/crawler"
	"cineindex/internal/startup"
	"cineindex/internal/store"
	"cineindex/internal/workers"
)

func main() {
	dataDir := flag.String("data-dir", envOr("DATA_DIR", "/data"), "data directory holding the index database")
	rootsPath := flag.String("roots", "", "path to roots.json (default: <data-dir>/roots.json)")
	filtersPath := flag.String("filters", "", "path to filters.json (default: <data-dir>/filters.json)")
	workerCount := flag.Int("workers", workers.ForIO(8), "concurrent fetches per root")
	fetchTimeout := flag.Duration("fetch-timeout", 15*time.Second, "per-request timeout")
	fetchRetries := flag.Int("fetch-retries", 3, "attempts per directory before marking it stale")
	fullRebuild := flag.Bool("full", false, "ignore stored fingerprints and reconcile every directory")
	flag.Parse()

	if *rootsPath == "" {
		*rootsPath = filepath.Join(*dataDir, "roots.json")
	}
	if *filtersPath == "" {
		*filtersPath = filepath.Join(*dataDir, "filters.json")
	}

	// Cancel the crawl on interrupt; in-flight directories finish, the
	// rest is left for the next run.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, finishing in-flight directories...")
		cancel()
	}()

	roots, err := startup.LoadRoots(*rootsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	filters, err := startup.LoadFilters(*filtersPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	idx, err := store.New(ctx, filepath.Join(*dataDir, "cineindex.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open index store: %v\n", err)
		os.Exit(1)
	}
	defer idx.Close()

	c := crawler.New(idx, crawler.Config{
		Workers:      *workerCount,
		FetchTimeout: *fetchTimeout,
		FetchRetries: *fetchRetries,
	})

	result, err := c.Run(ctx, roots, filters, *fullRebuild)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: crawl failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Crawl finished in %v\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("  directories visited:  %d\n", result.DirsVisited)
	fmt.Printf("  directories skipped:  %d\n", result.DirsSkipped)
	fmt.Printf("  entries added:        %d\n", result.EntriesAdded)
	fmt.Printf("  entries updated:      %d\n", result.EntriesUpdated)
	fmt.Printf("  entries marked stale: %d\n", result.EntriesStale)
	fmt.Printf("  errors:               %d\n", result.Errors)
	if result.Cancelled {
		fmt.Println("  (cancelled before completion)")
	}

	if result.Errors > 0 || result.Cancelled {
		os.Exit(2)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
