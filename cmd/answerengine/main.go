// Command answerengine runs one research query from the command line and
// prints the synthesized answer with its citations as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftlynx/answerengine/internal/app"
	"github.com/driftlynx/answerengine/internal/config"
)

var (
	mode        string
	reranker    string
	maxDepth    int
	maxEvidence int
	timeout     time.Duration
	configPath  string
)

var rootCmd = &cobra.Command{
	Use:   "answerengine [query]",
	Short: "Run the research orchestrator against a single query.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		a := app.New(app.EnvFromOS())

		var cfg config.Config
		if configPath != "" {
			fileMode, overrides, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}
			if fileMode == "" {
				fileMode = config.Mode(mode)
			}
			cfg = config.Build(fileMode, overrides)
		} else {
			cfg = a.BuildConfig(config.Mode(mode))
		}
		if reranker != "" {
			cfg.RerankerType = config.RerankerType(reranker)
		}
		if maxDepth > 0 {
			cfg.MaxDepth = maxDepth
		}
		if maxEvidence > 0 {
			cfg.MaxEvidence = maxEvidence
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		l := a.BuildLoop(cfg)
		out := l.Run(ctx, query)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&mode, "mode", string(config.ModeBalanced), "run preset: turbo, fast, balanced, deep")
	rootCmd.PersistentFlags().StringVar(&reranker, "reranker", "", "override the reranker: fast or flash")
	rootCmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 0, "override the research loop's max rounds")
	rootCmd.PersistentFlags().IntVar(&maxEvidence, "max-evidence", 0, "override the evidence count passed to synthesis")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline for the run")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (overrides --mode and env settings)")
}
