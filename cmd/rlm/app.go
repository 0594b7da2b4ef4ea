package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/PodJamz/8gent-sub005/config"
	"github.com/PodJamz/8gent-sub005/ingest"
	"github.com/PodJamz/8gent-sub005/llm"
	"github.com/PodJamz/8gent-sub005/memory"
)

// app holds the components shared by every command.
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	manager    *memory.Manager
	closeStore func() error
}

func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	store, closeStore, err := config.NewStoreClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}
	manager, err := memory.NewManager(store, logger)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	return &app{
		cfg:        cfg,
		logger:     logger,
		manager:    manager,
		closeStore: closeStore,
	}, nil
}

func (a *app) Close() error {
	if a.closeStore == nil {
		return nil
	}
	return a.closeStore()
}

// newImporter builds an importer that uses model extraction when enabled in
// the configuration and heuristics otherwise.
func (a *app) newImporter(forceHeuristic bool) (*ingest.Importer, error) {
	var chunker *ingest.Chunker
	if a.cfg.Ingestion.AIEnabled() && !forceHeuristic {
		client, key, err := config.NewLLMClient(a.cfg, a.logger)
		if err != nil {
			return nil, err
		}
		a.logger.Info().
			Str("provider", key.Provider).
			Str("model", key.Model).
			Msg("Using model extraction for ingestion")
		if n := a.cfg.LLM.MaxRetries; n > 0 {
			client = llm.NewRetryClient(client, uint64(n), a.logger)
		}
		extractor := ingest.NewExtractor(client, key.Model, a.logger)
		chunker = ingest.NewChunker(extractor, a.logger,
			ingest.WithChunkSize(a.cfg.Ingestion.ChunkSize),
			ingest.WithRequestsPerMinute(a.cfg.Ingestion.RequestsPerMinute),
			ingest.WithExtractOptions(ingest.ExtractOptions{
				MaxEpisodic: a.cfg.Ingestion.MaxEpisodic,
				MaxSemantic: a.cfg.Ingestion.MaxSemantic,
			}),
		)
	} else {
		a.logger.Info().Msg("Using heuristic extraction for ingestion")
	}
	return ingest.NewImporter(a.manager, chunker, a.logger)
}
