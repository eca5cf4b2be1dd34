// Command attendance punches in and out and shows the attendance calendar
// from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"attendance.tracker/internal/app"
	"attendance.tracker/internal/config"
	"attendance.tracker/internal/core"
	"attendance.tracker/internal/core/model"
	"attendance.tracker/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "attendance",
		Short:         "Punch in/out and browse your attendance calendar",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetupQuiet(verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newStatusCmd(),
		newWatchCmd(),
		newPunchCmd("punch", "Perform the action the punch button offers", (*core.PunchSession).Punch),
		newPunchCmd("punch-in", "Punch in", (*core.PunchSession).PunchIn),
		newPunchCmd("punch-out", "Punch out, or move today's punch-out forward", (*core.PunchSession).PunchOut),
		newCalendarCmd(),
		newDayCmd(),
		newSummaryCmd(),
	)
	return root
}

// withApp loads configuration, wires the agent and mounts the punch session
// when mount is set.
func withApp(cmd *cobra.Command, mount bool, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	if err := cfg.Validate(true); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if mount {
		if err := a.Session.Mount(ctx); err != nil {
			return err
		}
		defer a.Session.Unmount()
	}
	return fn(ctx, a)
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show today's punch status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				printState(cmd.OutOrStdout(), a.Session.State())
				return nil
			})
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show the running timer until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				ticker := time.NewTicker(a.Config.TickInterval)
				defer ticker.Stop()
				for {
					s := a.Session.State()
					fmt.Fprintf(out, "\r%s  %-16s %s ", s.Now.In(a.Config.Location()).Format("15:04:05"), s.Phase, s.Elapsed)
					select {
					case <-ctx.Done():
						fmt.Fprintln(out)
						return nil
					case <-ticker.C:
					}
				}
			})
		},
	}
}

func newPunchCmd(use, short string, do func(*core.PunchSession, context.Context) (core.PunchOutcome, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				outcome, err := do(a.Session, ctx)
				if err != nil {
					return errors.New(model.UserMessage(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
				printState(cmd.OutOrStdout(), outcome.State)
				return nil
			})
		},
	}
}

func newCalendarCmd() *cobra.Command {
	var month, year int
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show the merged attendance calendar of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				m, y := monthOrCurrent(month, year, a.Config.Location())
				view, err := a.Calendar.LoadMonth(ctx, m, y)
				if err != nil {
					return err
				}
				printMonth(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&month, "month", 0, "Month 1-12 (default current)")
	cmd.Flags().IntVar(&year, "year", 0, "Year (default current)")
	return cmd
}

func newDayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "day YYYY-MM-DD",
		Short: "Show the attendance detail of a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				day, err := core.ParseISODate(args[0], a.Config.Location())
				if err != nil {
					return err
				}
				// Load the month first so holidays and week-offs are known.
				if _, err := a.Calendar.LoadMonth(ctx, int(day.Month()), day.Year()); err != nil {
					return err
				}
				detail, err := a.Calendar.SelectDay(ctx, args[0])
				printDetail(cmd.OutOrStdout(), detail)
				return err
			})
		},
	}
}

func newSummaryCmd() *cobra.Command {
	var month, year int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the monthly attendance performance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				m, y := monthOrCurrent(month, year, a.Config.Location())
				perf, err := a.Calendar.Performance(ctx, m, y)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if perf == nil {
					fmt.Fprintln(out, "No performance data for this month")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "Working days\t%d\n", perf.TotalWorkingDays)
				fmt.Fprintf(tw, "Missed punches\t%d\n", perf.MissPunch)
				fmt.Fprintf(tw, "On time\t%.1f%%\n", perf.OnTimePercentage)
				fmt.Fprintf(tw, "Late\t%.1f%%\n", perf.LatePercentage)
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&month, "month", 0, "Month 1-12 (default current)")
	cmd.Flags().IntVar(&year, "year", 0, "Year (default current)")
	return cmd
}

func monthOrCurrent(month, year int, loc *time.Location) (int, int) {
	now := time.Now().In(loc)
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	return month, year
}

func printState(w io.Writer, s model.SessionState) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Status\t%s\n", s.Phase)
	fmt.Fprintf(tw, "Punch in\t%s\n", orDash(s.PunchInTime))
	fmt.Fprintf(tw, "Punch out\t%s\n", orDash(s.PunchOutTime))
	fmt.Fprintf(tw, "Elapsed\t%s\n", s.Elapsed)
	fmt.Fprintf(tw, "Next\t%s\n", s.ButtonLabel)
	tw.Flush()
}

func printMonth(w io.Writer, view model.MonthView) {
	keys := make([]string, 0, len(view.Days))
	for k := range view.Days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		d := view.Days[k]
		day, _ := time.Parse("2006-01-02", k)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", k, day.Weekday().String()[:3], d.Label, d.ColorHint, d.HolidayName)
	}
	tw.Flush()
	if len(view.Degraded) > 0 {
		fmt.Fprintf(w, "\nShown without: %v\n", view.Degraded)
	}
}

func printDetail(w io.Writer, d model.DayDetail) {
	if d.Kind == "" {
		return
	}
	fmt.Fprintln(w, d.Title)
	switch d.Kind {
	case model.DetailHoliday:
		fmt.Fprintln(w, d.HolidayName)
	case model.DetailAttendance:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "Punch in\t%s\t%s\n", d.PunchIn, d.PunchInMap)
		fmt.Fprintf(tw, "Punch out\t%s\t%s\n", d.PunchOut, d.PunchOutMap)
		fmt.Fprintf(tw, "Status\t%s\n", d.Status)
		fmt.Fprintf(tw, "Working hours\t%s\n", d.WorkingHours)
		tw.Flush()
	}
}

func orDash(s string) string {
	if s == "" {
		return "--/--"
	}
	return s
}
