package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plugpoint/plugpoint/internal/app/gamification"
	"github.com/plugpoint/plugpoint/internal/daemon"
)

func init() {
	leaderboardCmd.Flags().IntVarP(&leaderboardLimit, "limit", "n", gamification.DefaultLimit, "Number of entries")
	rootCmd.AddCommand(leaderboardCmd)
}

var leaderboardLimit int

var leaderboardCmd = &cobra.Command{
	Use:     "leaderboard",
	Aliases: []string{"top"},
	Short:   "Show the top users by net worth",
	RunE:    runLeaderboard,
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	entries, err := d.Service.GetLeaderboard(context.Background(), leaderboardLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No profiles yet. Run 'plugpoint log <user> <action>' to get started.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tUSER\tPERSONA\tNET WORTH")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", e.Rank, e.UserID, e.Persona, e.NetWorth)
	}
	return w.Flush()
}
