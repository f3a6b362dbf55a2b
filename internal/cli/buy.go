package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plugpoint/plugpoint/internal/app/gamification"
	"github.com/plugpoint/plugpoint/internal/daemon"
)

func init() {
	buyCmd.Flags().StringVar(&buySession, "session", "", "Session id recorded on the purchase event")
	rootCmd.AddCommand(buyCmd)
}

var buySession string

var buyCmd = &cobra.Command{
	Use:   "buy <user-id> <item-id>",
	Short: "Purchase a catalog item with points",
	Args:  cobra.ExactArgs(2),
	RunE:  runBuy,
}

func runBuy(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Service.PurchaseVirtualItem(context.Background(), gamification.PurchaseInput{
		UserID:    args[0],
		ItemID:    args[1],
		SessionID: buySession,
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}

	fmt.Printf("%s bought %s. Balance: %d, net worth: %d\n",
		res.Profile.UserID, args[1], res.NewBalance, res.Profile.NetWorth)
	return nil
}
