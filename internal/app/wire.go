package app

import (
	"context"
	"fmt"
	"io"

	"family-os/internal/config"
	"family-os/internal/database"
	"family-os/internal/feedback"
	"family-os/internal/llm"
	"family-os/internal/logger"
	"family-os/internal/metrics"
	"family-os/internal/planner"
	"family-os/internal/session"
	"family-os/internal/shopping"
	"family-os/internal/store"
)

// Services is everything a front end needs, built from configuration.
type Services struct {
	App      *App
	Sessions *session.Manager
	Metrics  *metrics.Store

	closers []io.Closer
}

// Close releases the model client, the caches and the databases.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
}

// Build wires the application from cfg. The SQLite database always backs
// sessions and metrics; the family document lives in SQLite or Firestore.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Services, error) {
	svc := &Services{}
	fail := func(err error) (*Services, error) {
		svc.Close()
		return nil, err
	}

	db, err := database.NewDB(cfg.DatabasePath, log)
	if err != nil {
		return fail(err)
	}
	svc.closers = append(svc.closers, db)

	var docs store.DocumentStore
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		fs, err := store.NewFirestoreStore(ctx, store.FirestoreOptions{
			ProjectID:       cfg.FirestoreProjectID,
			CredentialsJSON: cfg.FirebaseCredentialsJSON,
			CredentialsFile: cfg.FirebaseCredentialsFile,
		})
		if err != nil {
			return fail(err)
		}
		svc.closers = append(svc.closers, fs)
		docs = fs
	default:
		docs = store.NewSQLiteStore(db.SQL)
	}

	var cache store.Cache = store.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rc, err := store.NewRedisCache(ctx, cfg.RedisAddr)
		if err != nil {
			return fail(fmt.Errorf("failed to connect to redis: %w", err))
		}
		svc.closers = append(svc.closers, rc)
		cache = rc
	}
	cached := store.NewCached(docs, cache, cfg.CacheTTL, log)

	client, err := llm.New(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	svc.closers = append(svc.closers, client)

	sessions, err := session.NewManager(session.NewRepository(db.SQL), cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return fail(err)
	}

	svc.Metrics = metrics.NewStore(db.SQL)
	svc.Sessions = sessions
	svc.App = NewApp(
		cfg.FamilyID,
		cached,
		planner.NewPlanner(client, log),
		shopping.NewBuilder(client, log),
		feedback.NewRecorder(cached, log),
		svc.Metrics,
		log,
	)

	log.Info("services ready",
		"store", cfg.StoreBackend,
		"llm", cfg.LLMProvider,
		"shared_cache", cfg.RedisAddr != "",
		"cache_ttl", cfg.CacheTTL.String())
	return svc, nil
}
