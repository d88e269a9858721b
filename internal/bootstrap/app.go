package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gallery-backend/internal/collections"
	"gallery-backend/internal/files"
	"gallery-backend/internal/queue"
	"gallery-backend/internal/shared/config"
	"gallery-backend/internal/shared/server"
	"gallery-backend/internal/shared/storage/db"
	"gallery-backend/internal/shared/storage/object"
	localstore "gallery-backend/internal/shared/storage/object/local"
	"gallery-backend/internal/shared/storage/object/r2"
	"gallery-backend/internal/shared/telemetry"
	"gallery-backend/internal/variants"
	"gallery-backend/internal/workerproc"
)

// App holds shared dependencies built from configuration.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.Store
	Queue  queue.Client

	FilesRepo       files.FilesRepo
	CollectionsRepo collections.CollectionsRepo

	FilesService       *files.Service
	CollectionsService *collections.Service
	VariantsService    *variants.Service

	// VariantProcessor runs variant generation for one file; the worker
	// consumes it, and without a queue the API dispatches to it inline.
	VariantProcessor workerproc.Processor

	FilesHandler       *files.Handler
	CollectionsHandler *collections.Handler
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.StorageBackend) == "" {
		cfg.StorageBackend = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:             app.Config,
		CollectionsHandler: app.CollectionsHandler,
		FilesHandler:       app.FilesHandler,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.StorageBackend {
	case object.BackendR2:
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		client, err := r2.New(ctx, r2.Config{
			AccountID:         cfg.R2AccountID,
			AccessKeyID:       cfg.R2AccessKey,
			SecretAccessKey:   cfg.R2SecretKey,
			Bucket:            cfg.R2Bucket,
			Region:            cfg.R2Region,
			RequireDigestEcho: cfg.RequireDigestEcho,
		})
		if err != nil {
			return nil, err
		}
		if err := client.VerifyConnection(ctx); err != nil {
			return nil, err
		}
		return r2.NewStore(client), nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func buildServices(app *App) {
	if app.DB != nil {
		app.FilesRepo = &files.PGRepo{DB: app.DB}
		app.CollectionsRepo = &collections.PGRepo{DB: app.DB}
	} else {
		app.FilesRepo = files.NewMemoryRepo()
		app.CollectionsRepo = collections.NewMemoryRepo()
	}

	filesSvc := &files.Service{
		Store: app.Store,
		Repo:  app.FilesRepo,
	}
	collectionsSvc := &collections.Service{
		Repo:  app.CollectionsRepo,
		Files: filesSvc,
	}
	variantsSvc := &variants.Service{
		Store:   app.Store,
		Catalog: &catalogAdapter{repo: app.FilesRepo},
	}
	processor := &variantProcessor{
		repo:     app.FilesRepo,
		variants: variantsSvc,
	}

	// With a queue configured the API enqueues jobs for the worker;
	// without one, variants are generated in-process right after upload.
	if app.Queue != nil {
		filesSvc.Dispatch = &queueDispatcher{client: app.Queue}
	} else {
		filesSvc.Dispatch = &inlineDispatcher{processor: processor}
	}

	app.FilesService = filesSvc
	app.CollectionsService = collectionsSvc
	app.VariantsService = variantsSvc
	app.VariantProcessor = processor
	app.FilesHandler = files.NewHandler(filesSvc, collectionsSvc)
	app.CollectionsHandler = collections.NewHandler(collectionsSvc)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// catalogAdapter bridges the variant pipeline's path updates onto the files
// repository.
type catalogAdapter struct {
	repo files.FilesRepo
}

func (a *catalogAdapter) UpdateVariantPaths(ctx context.Context, updates []variants.PathUpdate) error {
	converted := make([]files.VariantUpdate, 0, len(updates))
	for _, u := range updates {
		converted = append(converted, files.VariantUpdate{
			FileID:     u.FileID,
			ThumbPath:  u.ThumbPath,
			MediumPath: u.MediumPath,
		})
	}
	return a.repo.UpdateVariantPaths(ctx, converted)
}

// variantProcessor loads the catalog record and runs variant generation.
type variantProcessor struct {
	repo     files.FilesRepo
	variants *variants.Service
}

func (p *variantProcessor) ProcessFile(ctx context.Context, fileID string) error {
	f, err := p.repo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	_, err = p.variants.GenerateAll(ctx, variants.FileRef{
		ID:          f.ID,
		StoragePath: f.StoragePath,
		MimeType:    f.MimeType,
	})
	return err
}

// queueDispatcher enqueues a variant job for the worker.
type queueDispatcher struct {
	client queue.Client
}

func (d *queueDispatcher) Dispatch(ctx context.Context, fileID string) error {
	return d.client.Send(ctx, queue.Message{
		FileID:     fileID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	})
}

// inlineDispatcher generates variants synchronously when no queue is
// configured.
type inlineDispatcher struct {
	processor workerproc.Processor
}

func (d *inlineDispatcher) Dispatch(ctx context.Context, fileID string) error {
	if err := d.processor.ProcessFile(ctx, fileID); err != nil {
		telemetry.Warn("bootstrap.inline_variants_failed", map[string]any{
			"file_id": fileID,
			"error":   err.Error(),
		})
		return err
	}
	return nil
}
