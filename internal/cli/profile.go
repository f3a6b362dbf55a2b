package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plugpoint/plugpoint/internal/daemon"
	"github.com/plugpoint/plugpoint/internal/domain"
)

func init() {
	rootCmd.AddCommand(profileCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile <user-id>",
	Short: "Show a user's gamification profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfile,
}

func runProfile(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	p, err := d.Service.GetProfile(context.Background(), args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(p)
	}
	return printProfile(p)
}

// printProfile renders a profile as aligned key/value lines.
func printProfile(p domain.Profile) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "User:\t%s\n", p.UserID)
	fmt.Fprintf(w, "Persona:\t%s\n", p.Persona)
	fmt.Fprintf(w, "Points:\t%d\n", p.PointsBalance)
	fmt.Fprintf(w, "Net worth:\t%d\n", p.NetWorth)
	fmt.Fprintf(w, "Login streak:\t%d (best %d)\n", p.LoginStreak.Current, p.LoginStreak.Longest)
	fmt.Fprintf(w, "Badges:\t%s\n", joinOrDash(p.Inventory.BadgesEarned))
	fmt.Fprintf(w, "Items:\t%s\n", joinOrDash(p.Inventory.ItemsOwned))
	fmt.Fprintf(w, "Active quests:\t%s\n", joinOrDash(p.ActiveQuests))
	fmt.Fprintf(w, "Completed quests:\t%s\n", joinOrDash(p.CompletedQuests))

	keys := make([]string, 0, len(p.Counters))
	for c := range p.Counters {
		keys = append(keys, string(c))
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s:\t%d\n", k, p.Counters[domain.Counter(k)])
	}
	return w.Flush()
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}
