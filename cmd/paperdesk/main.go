package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"paperdesk/internal/chunker"
	"paperdesk/internal/config"
	"paperdesk/internal/extract"
	"paperdesk/internal/httpapi"
	"paperdesk/internal/index"
	"paperdesk/internal/index/chroma"
	"paperdesk/internal/index/memory"
	"paperdesk/internal/llm"
	"paperdesk/internal/preview"
	"paperdesk/internal/service"
	"paperdesk/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	root := &cobra.Command{
		Use:           "paperdesk",
		Short:         "Ask questions about research papers with page-cited answers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config YAML (default: ./config.yaml, then ~/.config/paperdesk/config.yaml)")

	root.AddCommand(serveCmd(&cfgPath), askCmd(&cfgPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig(cfgPath string) (*config.AppConfig, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	cfg, path, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	slog.Debug("config loaded", "path", path)
	return cfg, nil
}

func buildIndex(cfg *config.AppConfig) (index.Store, error) {
	switch cfg.Index.Type {
	case "memory", "":
		return memory.New(), nil
	case "chroma":
		ccfg := chroma.Config{}
		if cfg.Index.Chroma != nil {
			ccfg.URL = cfg.Index.Chroma.URL
			ccfg.Timeout = time.Duration(cfg.Index.Chroma.TimeoutSecs) * time.Second
		}
		return chroma.New(ccfg), nil
	default:
		return nil, fmt.Errorf("unknown index type: %s", cfg.Index.Type)
	}
}

func buildAssistant(cfg *config.AppConfig, store index.Store, client *llm.Client, logger *slog.Logger) *service.Assistant {
	ch := chunker.New(cfg.Chunker.MaxChunkWords, cfg.Chunker.MinChunkChars)
	return service.New(store, ch, client, logger, service.Options{
		TopK:                cfg.Retrieval.TopK,
		BatchSize:           cfg.Index.BatchSize,
		MaxCompareDocuments: cfg.Compare.MaxDocuments,
		CompareSampleSize:   cfg.Compare.SampleSize,
		SummarySampleSize:   cfg.Summary.SampleSize,
		QualitySampleSize:   cfg.Quality.SampleSize,
		MinQuestionRunes:    cfg.Retrieval.MinQuestionRunes,
	})
}

func probeOllama(ctx context.Context, client *llm.Client, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.CheckConnection(ctx); err != nil {
		logger.Warn("ollama unreachable, generation will fail until it is up", "err", err)
		return
	}
	ok, err := client.HasModel(ctx)
	if err != nil {
		logger.Warn("could not list ollama models", "err", err)
		return
	}
	if !ok {
		logger.Warn("configured model is not installed", "model", client.Model())
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			slog.SetDefault(logger)

			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := buildIndex(cfg)
			if err != nil {
				return err
			}
			client := llm.New(llm.Config{
				BaseURL: cfg.Ollama.BaseURL,
				Model:   cfg.Ollama.Model,
				Timeout: time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
			})
			probeOllama(cmd.Context(), client, logger)

			svc := buildAssistant(cfg, store, client, logger)
			srv := httpapi.NewServer(svc, client, logger, cfg.Server.UploadDir, cfg.Server.MaxUploadMB)

			logger.Info("listening", "addr", cfg.Server.Addr, "index", cfg.Index.Type, "model", cfg.Ollama.Model)
			return http.ListenAndServe(cfg.Server.Addr, srv.Router())
		},
	}
}

func askCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <file.pdf|file.txt>",
		Short: "Ingest one document and ask questions interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			path := args[0]
			var result *extract.Result
			switch strings.ToLower(filepath.Ext(path)) {
			case ".pdf":
				result, err = extract.PDF(path)
			default:
				result, err = extract.Text(path)
			}
			if err != nil {
				return fmt.Errorf("extract %s: %w", path, err)
			}

			client := llm.New(llm.Config{
				BaseURL: cfg.Ollama.BaseURL,
				Model:   cfg.Ollama.Model,
				Timeout: time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
			})
			probeOllama(cmd.Context(), client, logger)

			// interactive mode always runs against the in-process index
			svc := buildAssistant(cfg, memory.New(), client, logger)
			res, err := svc.Ingest(cmd.Context(), filepath.Base(path), result.Pages, service.Metadata{
				Title:     result.Title,
				Author:    result.Author,
				PageCount: result.PageCount,
			})
			if err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}

			var pageText strings.Builder
			for _, p := range result.Pages {
				pageText.WriteString(p.Text)
				pageText.WriteString(" ")
			}
			quick := preview.Summarize(pageText.String(), 3)

			m := tui.New(svc, res.DocumentID, filepath.Base(path), quick)
			_, err = tea.NewProgram(m).Run()
			return err
		},
	}
}
