package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Inspect the managed host",
}

var hostInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the host's identity, CPU and memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		info, err := client.HostInfo(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Name:         %s\n", info.Name)
		fmt.Printf("Product:      %s\n", info.Product)
		fmt.Printf("CPU packages: %d\n", info.NumCPUPkgs)
		fmt.Printf("CPU cores:    %d\n", info.NumCPUCores)
		fmt.Printf("CPU threads:  %d\n", info.NumCPUThreads)
		fmt.Printf("Memory MB:    %d\n", info.MemoryMB)
		return nil
	},
}

func init() {
	hostCmd.AddCommand(hostInfoCmd)
}
