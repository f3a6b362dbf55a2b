package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plugpoint/plugpoint/internal/app/gamification"
	"github.com/plugpoint/plugpoint/internal/daemon"
	"github.com/plugpoint/plugpoint/internal/domain"
)

func init() {
	logCmd.Flags().StringVar(&logSession, "session", "", "Session id recorded on the events")
	logCmd.Flags().StringVar(&logDetails, "details", "", "Action details as a JSON object")
	rootCmd.AddCommand(logCmd)
}

var (
	logSession string
	logDetails string
)

var logCmd = &cobra.Command{
	Use:   "log <user-id> <action-type>",
	Short: "Log a user action and apply its rewards",
	Long: `Log a user action and apply its rewards.

Action types: ` + actionTypeList(),
	Args: cobra.ExactArgs(2),
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	in := gamification.LogActionInput{
		UserID:     args[0],
		ActionType: domain.ActionType(args[1]),
		SessionID:  logSession,
	}
	if logDetails != "" {
		if err := json.Unmarshal([]byte(logDetails), &in.Details); err != nil {
			return fmt.Errorf("--details: %w", err)
		}
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	before, err := d.Service.GetProfile(context.Background(), in.UserID)
	if err != nil {
		return err
	}
	p, err := d.Service.LogAction(context.Background(), in)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(p)
	}

	fmt.Printf("Logged %s for %s: %+d points (balance %d)\n",
		in.ActionType, p.UserID, p.PointsBalance-before.PointsBalance, p.PointsBalance)
	if badges := newIDs(before.Inventory.BadgesEarned, p.Inventory.BadgesEarned); len(badges) > 0 {
		fmt.Printf("  New badges: %s\n", strings.Join(badges, ", "))
	}
	if quests := newIDs(before.CompletedQuests, p.CompletedQuests); len(quests) > 0 {
		fmt.Printf("  Quests completed: %s\n", strings.Join(quests, ", "))
	}
	return nil
}

func actionTypeList() string {
	types := domain.KnownActionTypes()
	names := make([]string, len(types))
	for i, a := range types {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

// newIDs returns ids present in after but not in before.
func newIDs(before, after []string) []string {
	seen := make(map[string]bool, len(before))
	for _, id := range before {
		seen[id] = true
	}
	var out []string
	for _, id := range after {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}
