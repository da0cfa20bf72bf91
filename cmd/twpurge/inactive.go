package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aatumaykin/twpurge/internal/inactive"
	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/prompt"
	"github.com/aatumaykin/twpurge/internal/storage"
	"github.com/aatumaykin/twpurge/internal/twitter"
	"github.com/spf13/cobra"
)

var (
	inactiveUnfollow   bool
	inactiveYes        bool
	inactiveFormat     string
	inactivePeriodDays int
)

// inactiveCmd represents the inactive command
var inactiveCmd = &cobra.Command{
	Use:   "inactive",
	Short: "Report followed accounts that stopped tweeting",
	Long: `Page through the accounts you follow and report those whose latest tweet
is older than the inactivity period. Results are merged into the report file.
With --unfollow every reported account is unfollowed and dropped from the report.`,
	Args: cobra.NoArgs,
	RunE: runInactive,
}

func init() {
	inactiveCmd.Flags().BoolVar(&inactiveUnfollow, "unfollow", false, "unfollow every reported account")
	inactiveCmd.Flags().BoolVarP(&inactiveYes, "yes", "y", false, "do not ask before unfollowing")
	inactiveCmd.Flags().StringVar(&inactiveFormat, "format", "", "report output format: json or yaml (default from config)")
	inactiveCmd.Flags().IntVar(&inactivePeriodDays, "period-days", 0, "inactivity period in days (default from config)")
}

func runInactive(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format := rt.cfg.Inactive.Format
	if inactiveFormat != "" {
		format = inactiveFormat
	}
	period := rt.cfg.Inactive.Period()
	if inactivePeriodDays > 0 {
		period = time.Duration(inactivePeriodDays) * 24 * time.Hour
	}

	report := storage.NewReport(rt.cfg.Inactive.ReportFile, rt.log)
	reporter := inactive.NewReporter(rt.client, report, inactive.Options{
		PageSize:  twitter.MaxPageSize,
		PageDelay: rt.cfg.Purge.PageDelay(),
		Fetch:     rt.fetchRetry(),
	}, rt.log, rt.metrics)

	users, err := reporter.Collect(ctx, period)
	if err != nil {
		rt.log.ErrorCtx(ctx, "inactive report failed", err)
		rt.printer.Error("%v", err)
		return err
	}

	if err := writeReport(cmd.OutOrStdout(), format, users); err != nil {
		return err
	}
	rt.printer.Info("%d inactive accounts saved to %s", len(users), report.Path())

	if !inactiveUnfollow || len(users) == 0 {
		return nil
	}

	if !inactiveYes {
		asker := prompt.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout(), rt.colors)
		ok, err := asker.Confirm(fmt.Sprintf("Unfollow these %d accounts?", len(users)), "")
		if err != nil {
			return err
		}
		if !ok {
			rt.printer.Info("Nothing unfollowed.")
			return nil
		}
	}

	n, err := reporter.Unfollow(ctx, users)
	rt.log.InfoCtx(ctx, "unfollow finished", logger.Field{Key: "unfollowed", Value: n})
	if err != nil {
		rt.printer.Error("%v", err)
		return err
	}
	rt.printer.Success("Unfollowed %d accounts.", n)
	return nil
}

func writeReport(w io.Writer, format string, users []twitter.User) error {
	switch format {
	case "yaml":
		return inactive.WriteYAML(w, users)
	case "json":
		data, err := json.MarshalIndent(users, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	default:
		return fmt.Errorf("unknown report format %q: expected json or yaml", format)
	}
}
