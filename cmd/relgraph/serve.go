package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/persistorai/relgraph/internal/api"
	"github.com/persistorai/relgraph/internal/config"
	"github.com/persistorai/relgraph/internal/dbpool"
	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/guard"
	"github.com/persistorai/relgraph/internal/network"
	"github.com/persistorai/relgraph/internal/ontology"
	"github.com/persistorai/relgraph/internal/pathfind"
	"github.com/persistorai/relgraph/internal/service"
	"github.com/persistorai/relgraph/internal/store"
	"github.com/persistorai/relgraph/internal/store/memstore"
	"github.com/persistorai/relgraph/internal/traversal"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP query server",
		Long: `Run the HTTP query server. Configuration comes from the environment:
MAPPING_PATH plus either DATABASE_URL or FIXTURE_PATH, and the GRAPH_*
safety ceilings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx)
		},
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown LOG_LEVEL, using info")

		lvl = logrus.InfoLevel
	}

	log.SetLevel(lvl)

	return log
}

// backend is the relational source the engines read through.
type backend interface {
	domain.Source
	api.ReadinessChecker
}

func openBackend(ctx context.Context, cfg *config.Config, log *logrus.Logger) (backend, func(), error) {
	if cfg.Mode() == config.ModeFixture {
		s, err := memstore.LoadFile(cfg.FixturePath)
		if err != nil {
			return nil, nil, err
		}

		log.WithField("path", cfg.FixturePath).Warn("serving from an in-memory fixture; not for production")

		return s, func() {}, nil
	}

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), dbpool.Options{
		MaxConns:         int32(cfg.DBMaxConns), //nolint:gosec // bounded to 1..200 by config validation.
		StatementTimeout: cfg.QueryTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	return store.New(store.Base{Pool: pool, Log: log}, cfg.QueryTimeout), pool.Close, nil
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)
	if log.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	mapping, err := ontology.LoadFile(cfg.MappingPath)
	if err != nil {
		return err
	}

	// Refuse to start on an invalid mapping rather than fail every request.
	if err := mapping.Err(); err != nil {
		var verrs *ontology.ValidationErrors
		if errors.As(err, &verrs) {
			for _, e := range verrs.Errors {
				log.WithField("path", e.Path).Error(e.Message)
			}
		}

		return fmt.Errorf("mapping %s: %w", cfg.MappingPath, err)
	}

	src, closeBackend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	g := guard.New(cfg.Limits(), log)

	router := api.NewRouter(&api.RouterDeps{
		Log:         log,
		Backend:     src,
		BackendMode: cfg.Mode(),
		Mapping:     mapping,
		Traversal:   service.NewTraversalService(traversal.New(src, mapping, g, log), log),
		Paths:       service.NewPathService(pathfind.New(src, mapping, g, log), log),
		Network:     service.NewNetworkService(network.New(src, mapping, g, log), log),
		CORSOrigins: cfg.CORSOrigins,
		Version:     config.Version,
		MaxInFlight: cfg.DBMaxConns,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.QueryTimeout + 10*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)

	go func() {
		log.WithFields(logrus.Fields{
			"addr":          cfg.Addr(),
			"mode":          cfg.Mode(),
			"mapping":       mapping.Name(),
			"relationships": len(mapping.RelationshipNames()),
			"version":       config.Version,
		}).Info("relgraph listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("shutdown complete")

	return nil
}
