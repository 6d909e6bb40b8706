package main

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/ebtfinder/internal/adapters/postgres"
	"github.com/samirrijal/ebtfinder/internal/adapters/usda"
	"github.com/samirrijal/ebtfinder/internal/core/domain"
	"github.com/samirrijal/ebtfinder/internal/core/usecases"
	"github.com/samirrijal/ebtfinder/internal/pkg/config"
	"github.com/samirrijal/ebtfinder/internal/pkg/logging"
	"github.com/samirrijal/ebtfinder/internal/pkg/metrics"
)

const (
	batchSize = 500
	workers   = 4
)

// usage: ingestor <file.csv|file.zip|https://...> [more sources]
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: ingestor <csv|zip|url>...")
	}

	cfg, err := config.Load("ebtfinder-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	svc := usecases.NewLocationService(postgres.NewLocationRepo(db), nil)
	client := &http.Client{Timeout: 120 * time.Second}

	for _, src := range os.Args[1:] {
		start := time.Now()
		res, err := ingestSource(ctx, svc, client, src)
		if err != nil {
			slog.Error("ingest failed", "source", src, "error", err)
			continue
		}
		slog.Info("ingest complete",
			"source", src,
			"upserted", res.Upserted,
			"skipped", res.Skipped,
			"unlocated", res.Unlocated,
			"elapsed", time.Since(start))
	}
}

func ingestSource(ctx context.Context, svc *usecases.LocationService, client *http.Client, src string) (usecases.ImportResult, error) {
	var total usecases.ImportResult

	rc, err := open(client, src)
	if err != nil {
		return total, err
	}
	defer rc.Close()

	rd, err := usda.NewReader(rc, time.Now())
	if err != nil {
		return total, err
	}

	// One reader feeds a bounded pool of upsert workers.
	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan []domain.Location, workers)
	results := make(chan usecases.ImportResult, workers)

	g.Go(func() error {
		defer close(batches)
		for {
			locs, err := rd.Next(batchSize)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read rows: %w", err)
			}
			select {
			case batches <- locs:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for locs := range batches {
				res, err := svc.Import(gctx, locs)
				if err != nil {
					metrics.LocationsIngested.WithLabelValues("failed").Add(float64(len(locs)))
					return err
				}
				metrics.LocationsIngested.WithLabelValues("upserted").Add(float64(res.Upserted))
				metrics.LocationsIngested.WithLabelValues("skipped").Add(float64(res.Skipped))
				metrics.LocationsIngested.WithLabelValues("unlocated").Add(float64(res.Unlocated))
				select {
				case results <- res:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	errc := make(chan error, 1)
	go func() {
		errc <- g.Wait()
		close(results)
	}()

	for res := range results {
		total.Upserted += res.Upserted
		total.Skipped += res.Skipped
		total.Unlocated += res.Unlocated
	}
	if err := <-errc; err != nil {
		return total, err
	}
	if rd.Malformed > 0 {
		slog.Warn("malformed rows skipped", "source", src, "count", rd.Malformed)
		metrics.LocationsIngested.WithLabelValues("malformed").Add(float64(rd.Malformed))
	}
	return total, nil
}

// open returns the CSV stream for a local path or URL. Zip archives yield
// their first .csv entry.
func open(client *http.Client, src string) (io.ReadCloser, error) {
	var data []byte
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		resp, err := client.Get(src)
		if err != nil {
			return nil, fmt.Errorf("download: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, src)
		}
		if data, err = io.ReadAll(resp.Body); err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
	} else {
		if !strings.EqualFold(filepath.Ext(src), ".zip") {
			return os.Open(src)
		}
		var err error
		if data, err = os.ReadFile(src); err != nil {
			return nil, err
		}
	}

	if !bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("no .csv file in %s", src)
}
