package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loadCmd)
}

var loadCmd = &cobra.Command{
	Use:   "load FILE",
	Short: "Install a program, against a running daemon (--addr) or an embedded in-process engine",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func runLoad(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	if addr != "" {
		if err := newHTTPClient(addr).installProgram(src); err != nil {
			return err
		}
		fmt.Println("program installed")
		return nil
	}

	d, err := embeddedEngine()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Engine.InstallProgram(string(src)); err != nil {
		return err
	}
	fmt.Println("program installed")
	return nil
}
