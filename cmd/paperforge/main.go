// Command paperforge generates research documents from the terminal, without
// the HTTP service: one run, exported straight to files.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"

	"paperforge/internal/config"
	"paperforge/internal/document"
	"paperforge/internal/export"
	"paperforge/internal/llm"
	"paperforge/internal/outline"
	"paperforge/internal/pipeline"
)

func main() {
	godotenv.Load()

	app := &cli.Command{
		Name:  "paperforge",
		Usage: "Generate structured research documents with a language model",
		Commands: []*cli.Command{
			generateCmd(),
			checkOutlineCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func generateCmd() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate a document for a research topic",
		ArgsUsage: "<topic>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Value: "basic", Usage: "Depth profile: basic, advanced, expert"},
			&cli.StringFlag{Name: "type", Value: "general", Usage: "Document type: general, literature, experiment, article"},
			&cli.StringFlag{Name: "citation-style", Value: "apa", Usage: "Citation style: apa, mla, chicago, harvard"},
			&cli.StringFlag{Name: "author", Usage: "Author name for the title page"},
			&cli.StringFlag{Name: "out", Value: ".", Usage: "Output directory"},
			&cli.StringSliceFlag{Name: "format", Value: []string{"md"}, Usage: "Export formats: md, docx, pdf (repeatable)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			topic := cmd.Args().First()
			if topic == "" {
				return fmt.Errorf("topic argument is required")
			}

			mode, err := document.ParseMode(cmd.String("mode"))
			if err != nil {
				return err
			}
			docType, err := document.ParseType(cmd.String("type"))
			if err != nil {
				return err
			}
			style, err := document.ParseCitationStyle(cmd.String("citation-style"))
			if err != nil {
				return err
			}
			var formats []export.Format
			for _, f := range cmd.StringSlice("format") {
				format, err := export.ParseFormat(f)
				if err != nil {
					return err
				}
				formats = append(formats, format)
			}

			cfg := config.Load()
			if cfg.AnthropicAPIKey == "" {
				return fmt.Errorf("ANTHROPIC_API_KEY is required")
			}
			profiles, err := cfg.Profiles()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			claude := llm.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
			defer claude.Close()

			gen := pipeline.NewGenerator(claude, pipeline.Config{
				PaceBaseDelay:        cfg.PaceBaseDelay,
				PaceMultiplier:       cfg.PaceMultiplier,
				MaxRateLimitRetries:  cfg.MaxRateLimitRetries,
				MaxConsecutiveErrors: cfg.MaxConsecutiveErrors,
				MinSectionWords:      cfg.MinSectionWords,
				BackoffMaxRetries:    cfg.BackoffMaxRetries,
				BackoffMaxDelay:      cfg.BackoffMaxDelay,
			}, profiles, log)

			doc, err := gen.Generate(ctx, document.GenerationConfig{
				Topic:         topic,
				Mode:          mode,
				Type:          docType,
				CitationStyle: style,
			}, cmd.String("author"), pipeline.Hooks{
				Progress: func(pct int, msg string) {
					fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", pct, msg)
				},
			})
			if err != nil {
				return err
			}

			outDir := cmd.String("out")
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for _, format := range formats {
				result, err := export.Export(doc, format)
				if err != nil {
					return fmt.Errorf("export %s: %w", format, err)
				}
				path := filepath.Join(outDir, result.Filename)
				if err := os.WriteFile(path, result.Data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Println(path)
			}
			return nil
		},
	}
}

func checkOutlineCmd() *cli.Command {
	return &cli.Command{
		Name:      "check-outline",
		Usage:     "Parse and validate an outline file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Value: "basic", Usage: "Depth profile: basic, advanced, expert"},
			&cli.StringFlag{Name: "type", Value: "general", Usage: "Document type: general, literature, experiment, article"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("file argument is required")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			mode, err := document.ParseMode(cmd.String("mode"))
			if err != nil {
				return err
			}
			docType, err := document.ParseType(cmd.String("type"))
			if err != nil {
				return err
			}

			cfg := config.Load()
			profiles, err := cfg.Profiles()
			if err != nil {
				return err
			}

			sections := outline.Parse(string(data))
			var count func([]*document.Section) int
			count = func(secs []*document.Section) int {
				n := len(secs)
				for _, s := range secs {
					n += count(s.Subsections)
				}
				return n
			}
			fmt.Printf("parsed %d sections (%d top-level)\n", count(sections), len(sections))

			result := outline.ValidateStructure(string(data), mode, docType, profiles)
			if !result.Valid {
				return fmt.Errorf("structure check failed: %s", result.Reason)
			}
			fmt.Println("structure check passed")
			return nil
		},
	}
}
