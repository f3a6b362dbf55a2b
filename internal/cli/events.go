package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plugpoint/plugpoint/internal/app/gamification"
	"github.com/plugpoint/plugpoint/internal/daemon"
	"github.com/plugpoint/plugpoint/internal/domain"
)

func init() {
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 20, "Number of events")
	rootCmd.AddCommand(eventsCmd)
}

var eventsLimit int

var eventsCmd = &cobra.Command{
	Use:   "events <user-id>",
	Short: "Show a user's most recent ledger events",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvents,
}

func runEvents(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	limit := eventsLimit
	if limit > gamification.MaxLimit {
		limit = gamification.MaxLimit
	}
	events, err := d.Service.ListEvents(context.Background(), args[0], limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(events)
	}

	if len(events) == 0 {
		fmt.Printf("No events for %s.\n", args[0])
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tACTION\tPOINTS\tREASON\tREF")
	for _, ev := range events {
		points := "-"
		if ev.Kind == domain.EventPointsTransaction {
			points = fmt.Sprintf("%+d", ev.Delta())
		}
		ref := ev.Details.QuestID
		if ev.Details.ItemID != "" {
			ref = ev.Details.ItemID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ev.Timestamp.Format("2006-01-02 15:04:05"),
			ev.Kind,
			orDash(string(ev.ActionType)),
			points,
			orDash(string(ev.Details.Reason)),
			orDash(ref),
		)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
