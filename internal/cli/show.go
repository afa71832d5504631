package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/stranddb/strand/internal/catalog"
)

func init() {
	showCmd.Flags().BoolVar(&showHuman, "human", false, "print row counts with thousands separators")
	rootCmd.AddCommand(showCmd)
}

var showHuman bool

var showCmd = &cobra.Command{
	Use:   "show TABLE",
	Short: "Dump the current membership of a table",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	table := args[0]

	if addr != "" {
		out, err := newHTTPClient(addr).dumpTable(table)
		if err != nil {
			return err
		}
		rows, _ := out["rows"].([]interface{})
		for _, row := range rows {
			fmt.Println(row)
		}
		printRows(table, len(rows))
		return nil
	}

	d, err := embeddedEngine()
	if err != nil {
		return err
	}
	defer d.Close()

	var notFound error
	var count int
	snapErr := d.Engine.Router.Snapshot(func(cat *catalog.Catalog) {
		store, ok := cat.Table(table)
		if !ok {
			notFound = fmt.Errorf("unknown table %q", table)
			return
		}
		it := store.Scan()
		for it.Next() {
			t := it.Tuple()
			row := make([]interface{}, t.Len())
			for i := 0; i < t.Len(); i++ {
				row[i] = t.Get(i)
			}
			fmt.Println(row)
			count++
		}
	})
	if snapErr != nil {
		return snapErr
	}
	if notFound != nil {
		return notFound
	}

	printRows(table, count)
	return nil
}

func printRows(table string, n int) {
	if showHuman {
		fmt.Printf("%s: %s rows\n", table, humanize.Comma(int64(n)))
		return
	}
	fmt.Printf("%s: %d rows\n", table, n)
}
