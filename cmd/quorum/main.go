package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"quorum-cli/internal/app"
	"quorum-cli/internal/tui"
)

var version = "0.3.0"

func main() {
	// Local .env files are how the backend repo carries endpoints around;
	// honor them here too. Absence is not an error.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		serverURL string
		apiBase   string
		userID    string
		threadID  string
		themeName string
	)

	root := &cobra.Command{
		Use:     "quorum",
		Short:   "Terminal client for the quorum multi-agent backend",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(serverURL, apiBase, userID, threadID, themeName)
			if err != nil {
				return err
			}
			application, err := app.NewApplication(cfg)
			if err != nil {
				return err
			}
			p := tea.NewProgram(tui.NewMainModel(application), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&serverURL, "server", "", "websocket endpoint (overrides config)")
	flags.StringVar(&apiBase, "api", "", "history REST base url (overrides config)")
	flags.StringVar(&userID, "user", "", "user identity for history")
	flags.StringVar(&threadID, "thread", "", "conversation thread to resume on startup")
	flags.StringVar(&themeName, "theme", "", "ui theme: porcelain or midnight")

	root.AddCommand(newThreadsCmd(&serverURL, &apiBase, &userID, &threadID, &themeName))
	return root
}

// newThreadsCmd lists saved conversations without entering the TUI, for
// scripting and for picking a --thread value.
func newThreadsCmd(serverURL, apiBase, userID, threadID, themeName *string) *cobra.Command {
	return &cobra.Command{
		Use:   "threads",
		Short: "List saved conversation threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*serverURL, *apiBase, *userID, *threadID, *themeName)
			if err != nil {
				return err
			}
			application, err := app.NewApplication(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			threads, err := application.History.Conversations(ctx, application.Config.UserID)
			if err != nil {
				return err
			}
			if len(threads) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no saved conversations")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "THREAD\tPROMPT")
			for _, t := range threads {
				fmt.Fprintf(w, "%s\t%s\n", t.ThreadID, t.UserPrompt)
			}
			return w.Flush()
		},
	}
}

func loadConfig(serverURL, apiBase, userID, threadID, themeName string) (app.Config, error) {
	cfg, err := app.LoadConfig(app.DefaultConfigPath())
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if apiBase != "" {
		cfg.APIBase = apiBase
	}
	if userID != "" {
		cfg.UserID = userID
	}
	if threadID != "" {
		cfg.ThreadID = threadID
	}
	if themeName != "" {
		cfg.Theme = themeName
	}
	return cfg, nil
}
