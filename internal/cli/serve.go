package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/api"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/config"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/eventlog"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/generate"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/interpret"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/machine"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/notify"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.ReadConfig(configPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			// No config file: run on defaults (memory store, dev use).
			cfg = config.DefaultConfig()
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	st, tier, err := store.Select(ctx, store.Config{
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		RedisTTL:      time.Duration(cfg.Store.RedisTTLHours) * time.Hour,
		SupabaseURL:   cfg.Store.SupabaseURL,
		SupabaseKey:   cfg.Store.SupabaseKey,
	})
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer st.Close()
	log.Printf("serve: session store tier %q", tier)

	gen, err := generate.NewHTTPClient(cfg.Collaborators.GeneratorURL, nil)
	if err != nil {
		return fmt.Errorf("generator client: %w", err)
	}
	reasoner, err := interpret.NewHTTPReasoner(cfg.Collaborators.ReasonerURL, nil)
	if err != nil {
		return fmt.Errorf("reasoner client: %w", err)
	}

	events, err := eventlog.NewLogger(cfg.EventLog.Path)
	if err != nil {
		return fmt.Errorf("event log: %w", err)
	}

	hub := notify.NewHub(time.Duration(cfg.Notify.HeartbeatSecs) * time.Second)
	interp := interpret.New(reasoner, interpret.WithMaxTurns(cfg.Workflow.HistorySuffixTurns))
	m := machine.New(st, gen, interp, hub, events, machine.Options{
		GenTimeout: time.Duration(cfg.Workflow.GenerationTimeoutSecs) * time.Second,
		SuffixLen:  cfg.Workflow.HistorySuffixTurns,
	})

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: api.NewServer(m, hub).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("serve: listening on %s", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
