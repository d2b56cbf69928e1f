package cli

import (
	"context"
	"fmt"

	configfile "github.com/dhluong90/presale-assistance-backend/internal/adapters/driven/config/file"
	embeddinggemini "github.com/dhluong90/presale-assistance-backend/internal/adapters/driven/embedding/gemini"
	embeddingollama "github.com/dhluong90/presale-assistance-backend/internal/adapters/driven/embedding/ollama"
	indexfile "github.com/dhluong90/presale-assistance-backend/internal/adapters/driven/indexstore/file"
	indexsqlite "github.com/dhluong90/presale-assistance-backend/internal/adapters/driven/indexstore/sqlite"
	llmgemini "github.com/dhluong90/presale-assistance-backend/internal/adapters/driven/llm/gemini"
	"github.com/dhluong90/presale-assistance-backend/internal/connectors/filesystem"
	"github.com/dhluong90/presale-assistance-backend/internal/connectors/google"
	"github.com/dhluong90/presale-assistance-backend/internal/connectors/google/drive"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driven"
	"github.com/dhluong90/presale-assistance-backend/internal/core/services"
	"github.com/dhluong90/presale-assistance-backend/internal/normalisers"
)

// wiredServices bundles everything a command needs plus a cleanup.
type wiredServices struct {
	agent  *services.Agent
	index  *services.KnowledgeIndex
	source driven.DocumentSource
	close  func()
}

// buildServices assembles the service graph from configuration.
func buildServices(ctx context.Context, cfg configfile.Config) (*wiredServices, error) {
	store, err := buildIndexStore(cfg)
	if err != nil {
		return nil, err
	}

	source, location, err := buildSource(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		store.Close()
		source.Close()
		return nil, err
	}

	generator := llmgemini.NewGenerationService(llmgemini.Config{
		APIKey:  cfg.Generation.APIKey,
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		Timeout: cfg.Generation.Timeout(),
	})

	index := services.NewKnowledgeIndex(
		source,
		normalisers.DefaultRegistry(),
		embedder,
		store,
		location,
	)

	agent := services.NewAgent(index, embedder, generator,
		services.WithTopK(cfg.Agent.TopK),
		services.WithGenerateOptions(driven.GenerateOptions{
			Temperature:     cfg.Agent.SamplingTemperature(),
			TopP:            cfg.Agent.SamplingTopP(),
			TopK:            cfg.Agent.TopKSampling,
			MaxOutputTokens: cfg.Agent.MaxOutputTokens,
		}),
	)

	return &wiredServices{
		agent:  agent,
		index:  index,
		source: source,
		close: func() {
			embedder.Close()
			generator.Close()
			source.Close()
			store.Close()
		},
	}, nil
}

func buildIndexStore(cfg configfile.Config) (driven.IndexStore, error) {
	switch cfg.Index.Driver {
	case configfile.DriverSQLite:
		store, err := indexsqlite.NewStore(cfg.Index.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite index: %w", err)
		}
		return store, nil
	default:
		store, err := indexfile.NewStore(cfg.Index.Path)
		if err != nil {
			return nil, fmt.Errorf("open index file: %w", err)
		}
		return store, nil
	}
}

// buildSource returns the document source and its listing location.
func buildSource(ctx context.Context, cfg configfile.Config) (driven.DocumentSource, string, error) {
	switch cfg.Source.Kind {
	case configfile.SourceGoogleDrive:
		svc, err := google.NewDriveService(ctx,
			google.StaticTokenSource(cfg.Source.AccessToken))
		if err != nil {
			return nil, "", fmt.Errorf("create drive service: %w", err)
		}
		return drive.New(svc, drive.Config{
			FolderID: cfg.Source.FolderID,
			PageSize: cfg.Source.PageSize,
		}), cfg.Source.FolderID, nil
	default:
		return filesystem.New(cfg.Source.Root), cfg.Source.Root, nil
	}
}

func buildEmbedder(cfg configfile.ModelConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case "ollama":
		return embeddingollama.NewEmbeddingService(embeddingollama.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout(),
		}), nil
	case "gemini":
		return embeddinggemini.NewEmbeddingService(embeddinggemini.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
