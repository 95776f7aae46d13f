package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Peppe37/mask/internal/app"
	"github.com/Peppe37/mask/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const version = "0.3.0"

var (
	flagConfig string
	flagServer string
	flagMock   bool
)

// buildConfig loads the config file and applies the command-line overrides
// on top. Flags win over the file and over MASK_SERVER_URL.
func buildConfig() (app.Config, error) {
	cfg, err := app.LoadConfig(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagServer != "" {
		cfg.ServerURL = flagServer
	}
	if flagMock {
		cfg.Mock = true
	}
	return cfg, nil
}

func main() {
	root := &cobra.Command{
		Use:     "mask",
		Short:   "mask - terminal client for the mask chat backend",
		Long:    "mask is a terminal chat client. It streams assistant replies token by token,\nkeeps your conversations and projects in sync with the backend, and works\nfully offline with --mock.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig()
			if err != nil {
				return err
			}
			application, err := app.NewApplication(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
			if err := application.Bootstrap(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "warning: backend not reachable: %v\n", err)
			}
			cancel()

			p := tea.NewProgram(tui.New(application), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return err
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: user config dir)")
	root.PersistentFlags().StringVar(&flagServer, "server", "", "backend base URL including the API prefix")
	root.PersistentFlags().BoolVar(&flagMock, "mock", false, "run against the in-process mock backend")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig()
			if err != nil {
				return err
			}
			serverURL := cfg.ServerURL
			if cfg.Mock {
				serverURL = "mock://"
			}
			client := app.NewClient(serverURL, cfg.Timeout())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			start := time.Now()
			if err := client.Health(ctx); err != nil {
				fmt.Printf("unhealthy: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("ok: %s (%s)\n", serverURL, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	root.AddCommand(healthCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
