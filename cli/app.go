package cli

import (
	"context"
	"fmt"

	"github/itish2003/docchat/chunker"
	"github/itish2003/docchat/composer"
	"github/itish2003/docchat/config"
	"github/itish2003/docchat/embedding"
	"github/itish2003/docchat/generation"
	"github/itish2003/docchat/retriever"
	"github/itish2003/docchat/services"
	"github/itish2003/docchat/vectorstore"
)

// app holds the components every command builds from the config.
type app struct {
	cfg      *config.AppConfig
	store    *vectorstore.SQLStore
	embedder *embedding.Client
	ingest   *services.IngestService
	rag      services.RAGService
	indexer  *services.FileIndexingService
}

func newApp(ctx context.Context, cfg *config.AppConfig) (*app, error) {
	store, err := vectorstore.Open(ctx, cfg.Store, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	splitter, err := chunker.New(cfg.Chunker)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	embedder := embedding.NewClient(cfg.Embedding, nil)
	ingest := services.NewIngestService(store, splitter, embedder, services.NewDocumentExtractor(cfg.PDF.LicenseKey))
	ret := retriever.New(embedder, store, retriever.OptionsFromConfig(cfg.Retrieval))
	comp := composer.New(generation.NewGemini(cfg.Generation), cfg.Generation)

	return &app{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		ingest:   ingest,
		rag:      services.NewRAGService(ingest, ret, comp, composer.Fallback, store),
		indexer:  services.NewFileIndexingService(ingest),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
