package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"

	"document-qa/internal/chromemdb"
	"document-qa/internal/config"
	"document-qa/internal/db"
	"document-qa/internal/document"
	"document-qa/internal/embedding"
	"document-qa/internal/helper"
	"document-qa/internal/llmservice"
	"document-qa/internal/parser"
	"document-qa/internal/rag"
	"document-qa/internal/server"
)

const configFilePath = "./configs/config.yaml"

type app struct {
	rag      *rag.RAG
	vdb      *chromemdb.VectorDBManager
	registry *db.Registry
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("docqa failed")
	}
}

// run returns instead of exiting so deferred cleanup such as closing the registry always happens
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("docqa", flag.ContinueOnError)
	configPath := fs.String("config", configFilePath, "Path to the YAML config file")
	filePath := fs.String("file", "", "Upload a pdf or docx file and print its document id")
	query := fs.String("query", "", "Question to answer from the uploaded documents")
	exportPath := fs.String("export", "", "Write the vector database to this file and exit")
	importPath := fs.String("import", "", "Load a vector database snapshot before starting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	helper.SetupLogger(cfg.Log.Level, cfg.Log.Pretty)
	log.Debug().Interface("rag", cfg.RAG).Str("embedder", cfg.EmbedLLM.Provider).Str("model", cfg.InferenceLLM.Model).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}
	if a.registry != nil {
		defer func() {
			if err := a.registry.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing registry")
			}
		}()
	}

	if *importPath != "" {
		if err := a.vdb.Import(*importPath); err != nil {
			return fmt.Errorf("error importing vector database: %w", err)
		}
	}
	loaded, err := a.rag.Rehydrate(ctx)
	if err != nil {
		return fmt.Errorf("error restoring documents: %w", err)
	}
	if a.registry != nil {
		registered, err := a.registry.Documents(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Error listing registered documents")
		} else if len(registered) != loaded {
			log.Warn().Int("registered", len(registered)).Int("loaded", loaded).Msg("Registry and vector database disagree")
		}
	}

	switch {
	case *exportPath != "":
		if err := a.vdb.Export(*exportPath); err != nil {
			return fmt.Errorf("error exporting vector database: %w", err)
		}
		log.Info().Str("file", *exportPath).Msg("Exported vector database")
		return nil
	case *filePath != "" || *query != "":
		return runOnce(ctx, a, *filePath, *query)
	default:
		return server.NewServer(a.rag, &cfg.Server).Run(ctx)
	}
}

func setup(ctx context.Context, cfg *config.Config) (*app, error) {
	vdb, err := chromemdb.NewVectorDBManager(&cfg.VectorDB)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.New(&cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}

	model, err := llmservice.NewModel(&cfg.InferenceLLM)
	if err != nil {
		return nil, err
	}

	a := &app{vdb: vdb}
	deps := rag.Deps{
		Store:     document.NewStore(),
		Builder:   document.NewBuilder(vdb, embedder, cfg.RAG.MinPassageChars),
		Extractor: parser.Default,
		Retriever: rag.NewRetriever(embedder, rag.RetrieverOptionsFromConfig(&cfg.RAG)),
		Generator: rag.NewGenerator(model, rag.GeneratorOptionsFromConfig(&cfg.InferenceLLM)),
	}

	if cfg.Database.DSN != "" {
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		bunDB := db.NewDB(sqldb, cfg.Database.Debug)
		if err := db.InitDB(ctx, bunDB); err != nil {
			bunDB.Close()
			return nil, err
		}
		a.registry = db.NewRegistry(bunDB)
		deps.Registry = a.registry
	}

	a.rag = rag.NewRAG(deps, &cfg.RAG)
	return a, nil
}

// runOnce uploads filePath when given and answers query against it,
// or against every stored document when no file is given
func runOnce(ctx context.Context, a *app, filePath, query string) error {
	var ids []string
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("error reading file: %w", err)
		}
		res, err := a.rag.Upload(ctx, filepath.Base(filePath), "", data)
		if err != nil {
			return fmt.Errorf("error uploading document: %w", err)
		}
		helper.PrettyPrint(os.Stdout, res)
		ids = []string{res.DocumentID}
	} else {
		for _, d := range a.rag.Documents() {
			ids = append(ids, d.DocumentID)
		}
	}

	if query == "" {
		return nil
	}
	if len(ids) == 0 {
		return errors.New("no documents to answer from, upload one with -file")
	}

	resp, err := a.rag.Ask(ctx, ids, query)
	if err != nil {
		return fmt.Errorf("error answering question: %w", err)
	}
	helper.PrettyPrint(os.Stdout, resp)
	return nil
}
