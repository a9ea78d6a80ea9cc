package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ppiankov/policyscout/internal/schedule"
)

var runNow bool

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Refresh every stored institution on a daily schedule",
	Long: `Serve keeps running and re-researches every institution in the local
database once a day (02:00 UTC by default, see schedule.cron). Each
refresh writes back the institution summary; with schedule.persist_results
the policies and sources are stored too. A failure for one institution
never stops the others.

Example:
  policyscout serve
  policyscout serve --run-now`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&runNow, "run-now", false, "run one refresh immediately before waiting for the schedule")
	serveCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the completion cache")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	orch, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sched := schedule.New(orch,
		schedule.WithSpec(cfg.Schedule.Cron),
		schedule.WithPersistResults(cfg.Schedule.PersistResults),
		schedule.WithLogger(logger))

	if err := sched.ScheduleDailyRefresh(store); err != nil {
		return err
	}
	defer sched.StopAll()

	green := color.New(color.FgGreen).SprintFunc()
	next, _ := sched.NextRun(schedule.RefreshJobName)
	fmt.Fprintf(os.Stderr, "%s Scheduler started (%s, next run %s)\n", green("✓"), cfg.Schedule.Cron, next.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(os.Stderr, "  Database: %s\n", store.Path())

	if runNow {
		printRefreshReport(sched.RunRefresh(ctx))
	}

	<-ctx.Done()
	fmt.Fprintf(os.Stderr, "\nShutting down scheduler\n")
	return nil
}

func printRefreshReport(report schedule.RefreshReport) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(os.Stderr, "%s Refreshed %d institutions\n", green("✓"), report.Updated)
	for name, err := range report.Errors {
		if name == "" {
			name = "store"
		}
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", red("✗"), name, err)
	}
}
