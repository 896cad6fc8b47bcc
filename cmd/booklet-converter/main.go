package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/bookletflow/internal/config"
	"github.com/Lllllllleong/bookletflow/internal/gcp"
	"github.com/Lllllllleong/bookletflow/internal/logger"
	"github.com/Lllllllleong/bookletflow/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	inbox   *services.InboxFunction
	once    sync.Once
	initErr error
)

func init() {
	logger.Init(logger.Config{Level: "info", Format: "json"})

	functions.CloudEvent("ConvertBooklet", convertBooklet)
}

// main is required by the Go Functions Framework.
func main() {}

func setup(ctx context.Context) (*services.InboxFunction, error) {
	cfg, err := config.Load(gcp.GetEnv("CONFIG_PATH", ""))
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	app, err := services.NewApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	fn, err := services.NewInboxFromApp(ctx, app)
	if err != nil {
		app.Close()
		return nil, err
	}
	return fn, nil
}

// convertBooklet turns a PDF finalized in the inbox prefix into a booklet.
func convertBooklet(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		inbox, initErr = setup(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	return inbox.Process(ctx, gcsEvent)
}
