package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/bookletflow/internal/blobstore"
	"github.com/Lllllllleong/bookletflow/internal/catalog"
	"github.com/Lllllllleong/bookletflow/internal/config"
	"github.com/Lllllllleong/bookletflow/internal/gcp"
	"github.com/Lllllllleong/bookletflow/internal/language"
	"github.com/Lllllllleong/bookletflow/internal/narration"
	"github.com/Lllllllleong/bookletflow/internal/vision"
	"golang.org/x/sync/semaphore"
)

// App holds the process-scoped clients shared by every request.
type App struct {
	Config    *config.Config
	Blobs     blobstore.Store
	Store     catalog.Store
	Catalog   *catalog.Service
	Converter *ConverterFunction
	Narration *NarrationFunction

	closers []func() error
}

// NewApp creates every client from cfg. It is called once per process.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	blobs, err := blobstore.New(ctx, blobstore.Config{
		Backend:        cfg.Blob.Backend,
		Bucket:         cfg.Blob.Bucket,
		URLExpiry:      cfg.URLExpiry(),
		MinioEndpoint:  cfg.Blob.MinioEndpoint,
		MinioAccessKey: cfg.Blob.MinioAccessKey,
		MinioSecretKey: cfg.Blob.MinioSecretKey,
		MinioUseSSL:    cfg.Blob.MinioUseSSL,
		MinioRegion:    cfg.Blob.MinioRegion,
		Retry: blobstore.RetryPolicy{
			MaxAttempts:    cfg.Pipeline.UploadAttempts,
			InitialBackoff: cfg.Pipeline.UploadBackoff,
			WriteTimeout:   cfg.Pipeline.UploadWriteTimeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}
	app.Blobs = blobs

	switch cfg.GCP.CatalogBackend {
	case "memory":
		app.Store = catalog.NewMemoryStore()
	default:
		firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.GCP.ProjectID)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, firestoreClient.Close)
		app.Store = catalog.NewFirestoreStore(firestoreClient, cfg.GCP.Collection)
	}
	app.Catalog = catalog.NewService(app.Store, app.Blobs)

	vertexClient, err := gcp.NewVertexClient(ctx, gcp.VertexConfig{
		ProjectID:       cfg.GCP.ProjectID,
		Region:          cfg.GCP.Region,
		Model:           cfg.Vision.Model,
		MaxOutputTokens: cfg.Vision.MaxTokens,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	app.closers = append(app.closers, vertexClient.Close)

	ttsService, err := gcp.NewTextToSpeechService(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	detector := language.NewDetector(language.NewLinguaClassifier(language.LanguagesFromCodes(cfg.Language.Languages)...))
	synthesizer := narration.NewSynthesizer(ttsService, narration.Config{
		FemaleVoice:  narration.Voice{LanguageCode: cfg.Narration.LanguageCode, Name: cfg.Narration.FemaleVoice},
		DefaultVoice: narration.Voice{LanguageCode: cfg.Narration.LanguageCode, Name: cfg.Narration.DefaultVoice},
	})
	describer := vision.NewDescriber(vertexClient, vision.Config{
		MaxLines: cfg.Vision.MaxLines,
		MaxChars: cfg.Vision.MaxChars,
	})

	app.Converter = NewConverter(ConverterConfig{
		DPI:            cfg.Pipeline.DPI,
		CallTimeout:    cfg.Pipeline.CallTimeout,
		MaxDescription: cfg.Vision.MaxChars,
		MaxUploadBytes: cfg.Pipeline.MaxUploadBytes,
	}, ConverterDeps{
		Blobs:     app.Blobs,
		Detector:  detector,
		Narrator:  synthesizer,
		Describer: describer,
		Catalog:   app.Catalog,
		Pool:      semaphore.NewWeighted(int64(cfg.Pipeline.WorkerPoolSize)),
	})

	app.Narration = NewNarration(synthesizer, app.Blobs, app.Catalog)

	slog.Info("Booklet services initialized.",
		"blobBackend", cfg.Blob.Backend,
		"catalogBackend", cfg.GCP.CatalogBackend,
		"visionModel", cfg.Vision.Model,
	)
	return app, nil
}

// NewInboxFromApp wires the inbox converter, with a workflow hand-off when
// a workflow id is configured.
func NewInboxFromApp(ctx context.Context, app *App) (*InboxFunction, error) {
	reader, ok := app.Blobs.(ObjectReader)
	if !ok {
		return nil, fmt.Errorf("blob backend %q cannot read inbox objects", app.Config.Blob.Backend)
	}

	var notifier Notifier
	if app.Config.GCP.WorkflowID != "" {
		client, err := gcp.NewExecutionsClient(ctx)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		notifier = NewWorkflowNotifier(client, app.Config.GCP.ProjectID, app.Config.GCP.WorkflowLocation, app.Config.GCP.WorkflowID)
	}
	return NewInbox(app.Converter, reader, app.Store, notifier, app.Config.GCP.InboxPrefix), nil
}

// Close releases every client created by NewApp.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
