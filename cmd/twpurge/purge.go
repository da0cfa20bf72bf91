package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/prompt"
	"github.com/aatumaykin/twpurge/internal/purge"
	"github.com/aatumaykin/twpurge/internal/storage"
	"github.com/spf13/cobra"
	"github.com/wasilibs/go-re2"
)

var cutoffPattern = re2.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// purgeCmd represents the purge command
var purgeCmd = &cobra.Command{
	Use:   "purge YYYY-MM-DD",
	Short: "Delete tweets created up to the given day",
	Long: `Delete every tweet created on or before the given day (UTC).

The newest candidate tweets are shown one at a time until the operator
confirms the last tweet to delete. A leftover checkpoint from an interrupted
run is resumed without asking again.`,
	Args: cobra.MatchAll(cobra.ExactArgs(1), validateCutoffArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPurge(cmd, args[0])
	},
}

// parseCutoff resolves a YYYY-MM-DD day to its last millisecond in UTC.
func parseCutoff(s string) (time.Time, error) {
	if !cutoffPattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	day, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return day.Add(24*time.Hour - time.Millisecond), nil
}

func validateCutoffArgs(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	_, err := parseCutoff(args[0])
	return err
}

func runPurge(cmd *cobra.Command, date string) error {
	cutoff, err := parseCutoff(date)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	whitelist, err := storage.LoadWhitelist(rt.cfg.Storage.WhitelistFile, rt.log)
	if err != nil {
		return err
	}
	checkpoint := storage.NewCheckpoint(rt.cfg.Storage.CheckpointFile, rt.log)
	asker := prompt.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout(), rt.colors)

	pipeline := purge.New(rt.client, checkpoint, whitelist, asker, purge.Options{
		PageSize:        rt.cfg.Purge.PageSize,
		MaxCutoffPages:  rt.cfg.Purge.MaxCutoffPages,
		PageDelay:       rt.cfg.Purge.PageDelay(),
		StopOnShortPage: rt.cfg.Purge.StopOnShortPage,
		DeleteAttempts:  rt.cfg.Purge.DeleteAttempts,
		DeletePause:     rt.cfg.Purge.DeleteDelay(),
		Workers:         rt.cfg.Purge.Workers,
		Fetch:           rt.fetchRetry(),
	}, rt.log, rt.metrics)

	rt.log.InfoCtx(ctx, "purge started",
		logger.Field{Key: "cutoff", Value: cutoff.Format(time.RFC3339Nano)},
		logger.Field{Key: "checkpoint_file", Value: checkpoint.Path()},
		logger.Field{Key: "whitelisted", Value: whitelist.Len()})

	summary, err := pipeline.Run(ctx, cutoff)
	printSummary(rt.printer, summary)

	if err != nil {
		rt.log.ErrorCtx(ctx, "purge failed", err)
		switch {
		case errors.Is(err, purge.ErrCutoffNotFound):
			rt.printer.Warning("No cutoff tweet was confirmed, nothing was deleted.")
		case errors.Is(err, prompt.ErrNoInput):
			rt.printer.Warning("Input closed. Run the same command again to resume.")
		case errors.Is(err, purge.ErrBatchAborted), ctx.Err() != nil:
			rt.printer.Warning("Run stopped. Remaining tweets are kept in %s.", checkpoint.Path())
		}
		rt.printer.Error("%v", err)
		return err
	}

	rt.log.InfoCtx(ctx, "purge finished",
		logger.Field{Key: "deleted", Value: summary.Deleted},
		logger.Field{Key: "already_gone", Value: summary.AlreadyGone},
		logger.Field{Key: "whitelisted", Value: summary.Whitelisted})
	rt.printer.Success("Purge complete.")
	return nil
}

func printSummary(p *prompt.Printer, s purge.Summary) {
	p.Header("Summary")
	switch {
	case s.Resumed:
		p.Info("Resumed an interrupted run")
	case s.CutoffID != "":
		p.Info("Cutoff tweet:  %s", s.CutoffID)
	}
	p.Info("Collected:     %d", s.Collected)
	p.Info("Deleted:       %d", s.Deleted)
	if s.AlreadyGone > 0 {
		p.Info("Already gone:  %d", s.AlreadyGone)
	}
	if s.Skipped > 0 {
		p.Info("Whitelisted, skipped: %d", s.Skipped)
	}
	p.Info("Reviewed:      %d", s.Reviewed)
	p.Info("Kept:          %d", s.Whitelisted)
}
