package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"room-viz/internal/catalog"
	"room-viz/internal/codec"
	"room-viz/internal/config"
	"room-viz/internal/fetch"
)

func main() {
	url := flag.String("url", config.DefaultCatalogURL, "Catalog JSON URL")
	outputDir := flag.String("out", "swatches", "Directory for WebP previews")
	format := flag.String("format", "jpeg", "Swatch image format (jpeg, png, webp, bmp, tiff, tga)")
	workers := flag.Int("workers", catalog.DefaultWorkers, "Concurrent image downloads")
	timeout := flag.Duration("timeout", fetch.DefaultTimeout, "Per-request timeout (0 = none)")
	size := flag.Int("size", 0, "Longest preview edge in pixels (0 = full size)")
	wait := flag.Duration("wait", 2*time.Minute, "How long to wait for the catalog to complete")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	imgFormat, err := codec.ParseFormat(*format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERR %v\n", err)
		os.Exit(2)
	}
	decoder, err := codec.NewDecoder(imgFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERR %v\n", err)
		os.Exit(2)
	}

	client := fetch.NewClient(fetch.WithTimeout(*timeout), fetch.WithLogger(logger))
	pipeline := catalog.NewPipeline(client, decoder,
		catalog.WithWorkers(*workers),
		catalog.WithLogger(logger),
	)

	ready := make(chan catalog.MaterialsReady, 1)
	pipeline.OnMaterialsReady(func(ev catalog.MaterialsReady) {
		ready <- ev
	})

	ctx, cancel := context.WithTimeout(context.Background(), *wait)
	defer cancel()

	start := time.Now()
	pipeline.FetchCatalog(ctx, *url)

	var ev catalog.MaterialsReady
	select {
	case ev = <-ready:
	case <-ctx.Done():
		fmt.Fprintf(os.Stderr, "ERR catalog did not complete within %s (state: %s)\n", *wait, pipeline.State())
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "ERR create %s: %v\n", *outputDir, err)
		os.Exit(1)
	}

	errors := 0
	for i, tile := range ev.Tiles {
		if !tile.HasImage() {
			fmt.Printf("MISS %-24s %s\n", tile.ID, tile.ImageURL)
			continue
		}
		dst := filepath.Join(*outputDir, fmt.Sprintf("%s_%d.webp", sanitize(tile.ID), i))
		if err := writePreview(dst, tile.Image, *size); err != nil {
			fmt.Fprintf(os.Stderr, "ERR %v\n", err)
			errors++
			continue
		}
		fmt.Printf("OK   %-24s %dx%d -> %s\n", tile.ID, tile.Image.Width, tile.Image.Height, dst)
	}

	fmt.Printf("\n%d tiles, %d with images, in %s\n", len(ev.Tiles), ev.Resolved(), time.Since(start).Round(time.Millisecond))
	if errors > 0 {
		fmt.Printf("Done with %d error(s).\n", errors)
		os.Exit(1)
	}
}

func writePreview(path string, r *codec.Raster, size int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := codec.EncodePreview(f, r, size); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// sanitize makes a tile id safe to use as a file name
func sanitize(id string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
	if s == "" {
		return "tile"
	}
	return s
}
