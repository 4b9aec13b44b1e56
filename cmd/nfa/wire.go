package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"nfa/internal/agent"
	"nfa/internal/config"
	"nfa/internal/metrics"
	"nfa/internal/metrics/datadog"
	"nfa/internal/query"
	"nfa/internal/session"
	"nfa/internal/store"
	_ "nfa/internal/store/all"
)

// buildController assembles the full pipeline from config. The returned
// cleanup closes whatever was opened; call it on shutdown.
func buildController(ctx context.Context, cfg *config.Config, logger *log.Logger) (*session.Controller, func(), error) {
	var tr query.Translator
	if cfg.Agent.APIKey != "" {
		tr = agent.NewClient(agent.Config{
			APIKey:   cfg.Agent.APIKey,
			Model:    cfg.Agent.Model,
			Endpoint: cfg.Agent.Endpoint,
		})
	} else {
		logger.Printf("stage=wire agent=disabled reason=no_api_key")
	}

	qopt := cfg.QueryOptions()
	qopt.Logger = logger
	engine := query.New(tr, qopt)

	var st store.Store
	if cfg.Store.Kind != "" {
		var err error
		st, err = store.New(ctx, store.Config{Kind: cfg.Store.Kind, DSN: cfg.Store.DSN})
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
	}

	met := metrics.Nop()
	var ddClose func() error
	if cfg.Metrics.Backend == "datadog" {
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    cfg.Metrics.JobName,
			Tags:       datadog.ParseTagsCSV(cfg.Metrics.Tags),
			FlushEvery: time.Duration(cfg.Metrics.FlushSeconds) * time.Second,
		})
		if err != nil {
			if st != nil {
				st.Close()
			}
			return nil, nil, fmt.Errorf("open metrics backend: %w", err)
		}
		met = b
		ddClose = b.Close
	}

	ctrl := session.NewController(engine, session.Options{
		Archive: cfg.ArchiveOptions(),
		Store:   st,
		Metrics: met,
		Logger:  logger,
	})

	cleanup := func() {
		if ddClose != nil {
			if err := ddClose(); err != nil {
				logger.Printf("stage=shutdown metrics_flush error=%q", err)
			}
		}
		if st != nil {
			st.Close()
		}
	}
	return ctrl, cleanup, nil
}
