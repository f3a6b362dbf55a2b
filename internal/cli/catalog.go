package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plugpoint/plugpoint/internal/daemon"
	"github.com/plugpoint/plugpoint/internal/domain"
	"github.com/plugpoint/plugpoint/internal/infra/catalog"
)

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogImportCmd)
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and load item, badge and quest definitions",
}

var catalogListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the loaded catalog",
	RunE:    runCatalogList,
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.toml>",
	Short: "Import definitions from a TOML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogImport,
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	c, err := d.Catalog.Snapshot(context.Background())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(c)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tNAME\tCOST\tVALUE\tRARITY")
	for _, it := range c.Items {
		cost := "-"
		if it.CostPoints != nil {
			cost = fmt.Sprintf("%d", *it.CostPoints)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", it.ID, it.Name, cost, it.ValuePoints, it.Rarity)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "BADGE\tNAME\tSTATUS\tCRITERIA")
	for _, b := range c.Badges {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, b.Name, b.Status, describeCriteria(b.Criteria))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "QUEST\tNAME\tSTATUS\tCRITERIA")
	for _, q := range c.Quests {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", q.ID, q.Name, q.Status, describeCriteria(q.Criteria))
	}
	return w.Flush()
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	defs, err := catalog.LoadFile(args[0])
	if err != nil {
		return err
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Catalog.Import(context.Background(), defs); err != nil {
		return err
	}
	fmt.Printf("Imported %d items, %d badges, %d quests from %s\n",
		len(defs.Items), len(defs.Badges), len(defs.Quests), args[0])
	return nil
}

func describeCriteria(c domain.Criteria) string {
	if c.ActionType != "" {
		return "on " + string(c.ActionType)
	}
	return fmt.Sprintf("%s >= %d", c.SourceCounter, c.Threshold)
}
