package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sentinel-authz/sentinel/internal/cache"
	"github.com/sentinel-authz/sentinel/internal/cache/inmemory"
	redisCache "github.com/sentinel-authz/sentinel/internal/cache/redis"
	"github.com/sentinel-authz/sentinel/internal/config"
	"github.com/sentinel-authz/sentinel/internal/datastore"
	"github.com/sentinel-authz/sentinel/internal/datastore/memdb"
	"github.com/sentinel-authz/sentinel/internal/datastore/proxy"
	scyllaStore "github.com/sentinel-authz/sentinel/internal/datastore/scylla"
	"github.com/sentinel-authz/sentinel/internal/services"
	"github.com/sentinel-authz/sentinel/pkg/zookie"
)

func newServeCommand() *cobra.Command {
	var dev bool
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the sentinel HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runServe(cmd.Context(), cfg, dev, readOnly)
		},
	}

	config.BindFlags(cmd.Flags())
	cmd.Flags().BoolVar(&dev, "dev", false, "run against in-process memdb/in-memory backends instead of Scylla/Redis")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "reject write requests, serving this node as a read replica")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, dev, readOnly bool) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Info().Str("node_id", cfg.NodeID).Bool("dev", dev).Msg("starting sentinel")

	store, closeStore, err := openDatastore(cfg, dev)
	if err != nil {
		return fmt.Errorf("open datastore: %w", err)
	}
	defer closeStore()

	if readOnly {
		store = proxy.NewReadOnlyDatastore(store)
		log.Info().Msg("datastore opened in read-only mode")
	}

	resultCache, err := openCache(ctx, cfg, dev)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	zookies := zookie.NewManager(resultCache, cfg.NodeID)

	server := services.NewServer(store, resultCache, zookies)
	router := services.NewRouter(server)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

// openDatastore returns the configured Datastore and a cleanup func. The
// dev profile uses the in-process memdb store so the binary can run with
// no external dependencies; production dials ScyllaDB per spec.md §6.
func openDatastore(cfg config.Config, dev bool) (datastore.Datastore, func(), error) {
	if dev {
		store, err := memdb.New()
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}

	store, err := scyllaStore.Connect(cfg.ScyllaAddr())
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func openCache(ctx context.Context, cfg config.Config, dev bool) (cache.Cache, error) {
	if dev {
		return inmemory.New(), nil
	}
	return redisCache.Connect(ctx, cfg.RedisAddr())
}
