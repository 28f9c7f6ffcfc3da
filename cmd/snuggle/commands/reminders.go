package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func remindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Inspect and deliver photo reminders",
	}
	cmd.AddCommand(remindersPendingCmd(), remindersDeliverCmd())
	return cmd
}

func remindersPendingCmd() *cobra.Command {
	var before string
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List reminders due before a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff := time.Now().UTC()
			if before != "" {
				d, err := appCtx.Config.Calendar().ParseDate(before)
				if err != nil {
					return fmt.Errorf("--before must be YYYY-MM-DD: %w", err)
				}
				cutoff = d
			}
			due, err := appCtx.Outbox.Pending(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			return emit(cmd, due, func(w io.Writer) {
				if len(due) == 0 {
					fmt.Fprintln(w, "nothing due")
					return
				}
				for _, r := range due {
					fmt.Fprintf(w, "%s  month %2d  %s  %s\n", r.TargetDate.Format("2006-01-02"), r.Month, r.ChildID, r.Title)
				}
			})
		},
	}
	cmd.Flags().StringVar(&before, "before", "", "cutoff date, YYYY-MM-DD (default now)")
	return cmd
}

func remindersDeliverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deliver",
		Short: "Send every due reminder once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := appCtx.DeliverJob().Deliver(cmd.Context())
			if err != nil {
				return err
			}
			return emit(cmd, map[string]int{"delivered": n}, func(w io.Writer) {
				fmt.Fprintf(w, "delivered %d reminder(s)\n", n)
			})
		},
	}
}
