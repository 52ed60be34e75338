package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/helpchat/internal/client"
	"github.com/zhouzirui/helpchat/internal/config"
	"github.com/zhouzirui/helpchat/internal/tui"
	"github.com/zhouzirui/helpchat/internal/widget"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		endpoint string
		timeout  time.Duration
		logFile  string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:           "widget",
		Short:         "Terminal chat panel for the CloudDefense.AI assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cmd.Flags().Changed("endpoint") {
				cfg.Widget.Endpoint = endpoint
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Widget.Timeout = timeout
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = config.ParseLogLevel(logLevel)
			}
			return run(cmd.Context(), cfg, logFile)
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", client.DefaultBaseURL, "assistant base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-request timeout (0 disables)")
	cmd.Flags().StringVar(&logFile, "log-file", "widget.log", "file diagnostics are written to")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "diagnostic log level")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, logFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// The terminal belongs to the panel, so diagnostics go to a file.
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	logger := zerolog.New(f).Level(cfg.LogLevel).With().Timestamp().Str("component", "widget").Logger()

	httpClient := &http.Client{Timeout: cfg.Widget.Timeout}
	view := tui.NewProgramView()
	w := widget.New(view, client.New(cfg.Widget.Endpoint, httpClient), widget.WithLogger(logger))

	p := tea.NewProgram(tui.NewModel(ctx, w), tea.WithAltScreen(), tea.WithContext(ctx))
	view.Attach(p.Send)

	logger.Info().Str("endpoint", cfg.Widget.Endpoint).Msg("starting chat widget")
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat widget exited: %w", err)
	}

	return nil
}
