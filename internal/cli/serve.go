package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/stranddb/strand/internal/daemon"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveProgram, "load", "", "program file to install at startup")
	rootCmd.AddCommand(serveCmd)
}

var (
	serveHost    string
	servePort    int
	serveProgram string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the strand daemon",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}

	if serveHost != "" {
		d.Config.API.Host = serveHost
	}
	if servePort > 0 {
		d.Config.API.Port = servePort
	}
	if serveProgram != "" {
		if err := d.InstallProgramFile(serveProgram); err != nil {
			return err
		}
	}

	return d.Serve(context.Background())
}
