package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/snuggle-app/snuggle-core/config"
	"github.com/snuggle-app/snuggle-core/internal/app"
	"github.com/snuggle-app/snuggle-core/internal/application/eventhandler"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/pkg/logger"
)

// asyncEvents marks commands that run handlers on the bus worker pool.
const asyncEvents = "async_events"

var (
	userID string
	asJSON bool

	appCtx *app.App
)

// Execute runs the CLI with the process arguments.
func Execute() error {
	return ExecuteArgs(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

// ExecuteArgs runs the CLI with explicit arguments and writers. Logs go to
// errOut so out stays parseable.
func ExecuteArgs(ctx context.Context, args []string, out, errOut io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	defer closeApp()
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "snuggle",
		Short:        "Growth percentiles and parent engagement for the Snuggle baby app",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts := cfg.LoggerOptions()
			opts.Output = cmd.ErrOrStderr()
			log := logger.New(opts).With(logger.String("app", cfg.App.Name))

			a, err := app.New(cmd.Context(), cfg, log, app.Options{
				AsyncEvents: cmd.Annotations[asyncEvents] == "true",
			})
			if err != nil {
				return err
			}
			appCtx = a
			cmd.SetContext(logger.WithContext(cmd.Context(), log))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&userID, "user", "u", envOr("SNUGGLE_USER", "local"), "parent account ID")
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON instead of text")

	root.AddCommand(
		percentileCmd(),
		curvesCmd(),
		historyCmd(),
		childCmd(),
		openCmd(),
		momentCmd(),
		awardCmd(),
		photoCmd(),
		summaryCmd(),
		remindersCmd(),
		migrateCmd(),
		featuresCmd(),
		workerCmd(),
	)
	return root
}

func closeApp() {
	if appCtx == nil {
		return
	}
	if err := appCtx.Close(); err != nil {
		appCtx.Log.Warn("shutdown", logger.Err(err))
	}
	appCtx = nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func currentUser() (shared.UserID, error) {
	return shared.NewUserID(userID)
}

// ══════════════════════════════════════════════════════════════════════════════
// OUTPUT
// ══════════════════════════════════════════════════════════════════════════════

// emit writes v as JSON with --json, otherwise calls text.
func emit(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

// drainCelebrations returns what the last command earned.
func drainCelebrations(user shared.UserID) []eventhandler.Celebration {
	return appCtx.Celebrations.Drain(user.String())
}

func writeCelebrations(w io.Writer, list []eventhandler.Celebration) {
	for _, c := range list {
		icon := "*"
		switch c.Kind {
		case eventhandler.CelebrationLevelUp:
			icon = "^"
		case eventhandler.CelebrationStreakLost:
			icon = "!"
		}
		fmt.Fprintf(w, "%s %s\n", icon, c.Message)
	}
}
