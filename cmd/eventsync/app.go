package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"eventregistry/config"
	"eventregistry/internal/adapters/auth"
	"eventregistry/internal/adapters/email"
	"eventregistry/internal/adapters/observer"
	"eventregistry/internal/codec"
	"eventregistry/internal/domain"
	"eventregistry/internal/repository/filestore"
	"eventregistry/internal/repository/memory"
	"eventregistry/internal/repository/postgres"
	"eventregistry/internal/services"
)

const dbPingTimeout = 5 * time.Second

// app is the wired object graph shared by the commands.
type app struct {
	logger *slog.Logger
	sync   *services.Synchronizer
	auth   domain.AuthService
	close  func() error
}

// bootstrapFunc builds an initialized app. Tests substitute their own.
type bootstrapFunc func(ctx context.Context) (*app, error)

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger()

	users, db := openUserRepository(ctx, cfg.DBUrl, logger)
	closeDB := func() error {
		if db != nil {
			return db.Close()
		}
		return nil
	}
	fail := func(err error) (*app, error) {
		_ = closeDB()
		return nil, err
	}
	jwt := auth.NewJWTIssuer(cfg.JWTSecret)
	authSvc := services.NewAuthService(users, auth.NewBcryptHasher(0), jwt, jwt, cfg.JWTExpiry)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
		Logger: logger,
	})
	if err != nil {
		return fail(fmt.Errorf("create mailer: %w", err))
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return fail(fmt.Errorf("load email templates: %w", err))
	}

	store := filestore.NewEventStore(filestore.Config{
		Primary:   filestore.Target{Path: cfg.EventsJSONPath, Codec: codec.NewJSONCodec()},
		Alternate: filestore.Target{Path: cfg.EventsXMLPath, Codec: codec.NewXMLCodec()},
		BackupDir: cfg.BackupDir,
		Logger:    logger,
	})

	syncer, err := services.NewSynchronizer(services.SynchronizerConfig{
		Registry:         memory.NewEventRegistry(),
		Store:            store,
		Users:            authSvc,
		Notifier:         email.NewNotifier(mailer, renderer, cfg.NotifyRecipients, logger),
		Logger:           logger,
		AutosaveInterval: cfg.AutosaveInterval,
		BackupInterval:   cfg.BackupInterval,
		ShutdownTimeout:  cfg.ShutdownTimeout,
	})
	if err != nil {
		return fail(err)
	}
	syncer.AddGlobalObserver(observer.NewLogger(logger))
	if err := syncer.Init(ctx); err != nil {
		return fail(err)
	}

	return &app{
		logger: logger,
		sync:   syncer,
		auth:   authSvc,
		close:  closeDB,
	}, nil
}

// openUserRepository connects to postgres when a URL is configured and falls
// back to an in-memory repository when it is empty or unreachable.
func openUserRepository(ctx context.Context, url string, logger *slog.Logger) (domain.UserRepository, *sql.DB) {
	if url == "" {
		logger.Info("DATABASE_URL not set, users are kept in memory")
		return memory.NewUserRepository(), nil
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		logger.Warn("open database failed, users are kept in memory", "error", err)
		return memory.NewUserRepository(), nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Warn("database unreachable, users are kept in memory", "error", err)
		_ = db.Close()
		return memory.NewUserRepository(), nil
	}
	if err := postgres.Migrate(pingCtx, db); err != nil {
		logger.Warn("migrate users table failed, users are kept in memory", "error", err)
		_ = db.Close()
		return memory.NewUserRepository(), nil
	}
	return postgres.NewUserRepository(db), db
}

// shutdown saves and stops the synchronizer, then releases the database.
func (a *app) shutdown(ctx context.Context) error {
	err := a.sync.Shutdown(ctx)
	if a.close != nil {
		if cerr := a.close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
