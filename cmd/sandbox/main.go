// Command sandbox exercises the object service end to end against the configured bucket:
// it downloads a sample image, uploads it, reads it back as a file and deletes it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"

	"blobapi/internal/codec"
	"blobapi/internal/config"
	"blobapi/internal/logger"
	"blobapi/internal/service"
	"blobapi/internal/storage"
)

const (
	defaultImageURL = "https://placehold.co/400x400/png"
	defaultLocation = "sandbox/400x400-image.png"
)

// fetchFunc downloads url and returns its body.
type fetchFunc func(url string) ([]byte, error)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	imageURL := flag.String("url", defaultImageURL, "image to download")
	location := flag.String("location", defaultLocation, "object key to upload to")
	keep := flag.Bool("keep", false, "keep the uploaded object")
	flag.Parse()

	cfg := config.Load()
	if *configPath != "" {
		fileCfg, err := config.LoadFile(*configPath)
		if err != nil {
			slog.Error("failed to load config file", slog.String("error", err.Error()))
			os.Exit(1)
		}
		cfg = fileCfg
	}

	log := logger.New(cfg.LogLevel).With(slog.String("run_id", uuid.NewString()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	backend, err := storage.New(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize object storage", logger.Context("SandboxService", "init"), slog.String("error", err.Error()))
		os.Exit(1)
	}
	svc := service.NewObjectService(backend, log, service.WithUploadDefaults(storage.UploadDefaults(cfg.Upload)))

	if err := run(ctx, svc, log, fetch, *imageURL, *location, *keep); err != nil {
		log.Error("sandbox run failed", logger.Context("SandboxService", "run"), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// fetch downloads url with the fiber HTTP client.
func fetch(url string) ([]byte, error) {
	code, body, errs := fiber.Get(url).Timeout(30 * time.Second).Bytes()
	if len(errs) > 0 {
		return nil, errs[0]
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", url, code)
	}
	return body, nil
}

func run(ctx context.Context, svc service.ObjectService, log *slog.Logger, get fetchFunc, imageURL, location string, keep bool) error {
	logCtx := logger.Context("SandboxService", "run")

	log.Info("downloading image", logCtx, slog.String("url", imageURL))
	image, err := get(imageURL)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	log.Info("image downloaded", logCtx, slog.Int("bytes", len(image)))

	res, err := svc.Create(ctx, service.CreateInput{
		Location: location,
		Payload:  codec.Raw(image),
	})
	if err != nil {
		return fmt.Errorf("upload image: %w", err)
	}
	log.Info("image uploaded", logCtx, slog.Group("params",
		slog.String("key", res.Key),
		slog.String("etag", res.ETag),
	))

	p, err := svc.FindOne(ctx, location, codec.FormatNamedFile)
	if err != nil {
		return fmt.Errorf("retrieve image: %w", err)
	}
	file, ok := p.(*codec.NamedFile)
	if !ok || len(file.Data) == 0 {
		return fmt.Errorf("retrieve image: unexpected payload %T", p)
	}
	log.Info("image retrieved", logCtx, slog.String("name", file.Name), slog.Int64("size", file.Size))

	if keep {
		return nil
	}
	ack, err := svc.Remove(ctx, location)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	log.Info("image deleted", logCtx, slog.String("location", location), slog.String("version_id", ack.VersionID))
	return nil
}
