// Command checkwatch follows the CI checks of one pull request in the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	browseradapter "github.com/ericfisherdev/checkpanel/internal/adapter/driven/browser"
	githubadapter "github.com/ericfisherdev/checkpanel/internal/adapter/driven/github"
	"github.com/ericfisherdev/checkpanel/internal/application"
	"github.com/ericfisherdev/checkpanel/internal/config"
	"github.com/ericfisherdev/checkpanel/internal/domain/model"
)

var (
	branchName string
	htmlURL    string
	rerun      bool
	openCheck  string
	once       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "checkwatch <owner/repo> <pr-number>",
		Short: "Watch the CI checks of a GitHub pull request",
		Args:  cobra.ExactArgs(2),
		RunE:  run,
	}

	rootCmd.Flags().StringVar(&branchName, "branch", "", "Head branch of the pull request, used to find workflow runs")
	rootCmd.Flags().StringVar(&htmlURL, "html-url", "", "Web URL of the repository (default https://github.com/<owner/repo>)")
	rootCmd.Flags().BoolVar(&rerun, "rerun", false, "Re-request every check suite once the first status has loaded")
	rootCmd.Flags().StringVar(&openCheck, "open", "", "Open the named check in the browser once it has loaded")
	rootCmd.Flags().BoolVar(&once, "once", false, "Exit after the first fully enriched status")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	prNumber, err := strconv.Atoi(args[1])
	if err != nil || prNumber <= 0 {
		return fmt.Errorf("invalid pull request number %q", args[1])
	}

	webURL := htmlURL
	if webURL == "" {
		webURL = "https://github.com/" + args[0]
	}
	repo, err := model.ParseRepository(args[0], webURL)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ghClient, err := githubadapter.NewClient(cfg.GitHubToken, cfg.GitHubAPIURL)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Snapshots are not persisted for a one-off watch.
	store := application.NewCommitStatusStore(ghClient, nil, cfg.PollInterval)
	go store.Start(ctx)

	out := cmd.OutOrStdout()
	panel := application.NewStatusPanel(application.PanelDeps{
		Status:   store,
		Enricher: application.NewEnrichService(ghClient),
		Rerunner: ghClient,
		Opener:   browseradapter.NewOpener(),
		OnChange: func(v application.PanelView) {
			fmt.Fprintln(out, renderView(v, time.Now()))
		},
	})
	defer panel.Close()

	panel.Activate(repo, branchName, prNumber)

	ref := model.PullRequestRef(prNumber)
	if err := store.Refresh(ctx, repo, ref); err != nil {
		return fmt.Errorf("fetch checks for %s: %w", ref, err)
	}
	panel.Wait()

	if err := runActions(ctx, out, panel); err != nil {
		return err
	}

	if once {
		return nil
	}

	<-ctx.Done()
	return nil
}

// runActions performs the one-shot --rerun and --open requests.
func runActions(ctx context.Context, out io.Writer, panel *application.StatusPanel) error {
	if rerun {
		ids := panel.Rerun(ctx)
		fmt.Fprintf(out, "re-requested %d check suite(s)\n", len(ids))
	}

	if openCheck != "" {
		check, ok := findCheck(panel.View().Checks, openCheck)
		if !ok {
			return fmt.Errorf("no check named %q", openCheck)
		}
		if !panel.OpenOnProvider(check) {
			return fmt.Errorf("check %q has no URL to open", openCheck)
		}
	}

	return nil
}

func findCheck(checks []model.CheckResult, name string) (model.CheckResult, bool) {
	for _, c := range checks {
		if c.Name == name {
			return c, true
		}
	}
	return model.CheckResult{}, false
}
