package commands

import (
	"strconv"

	"github.com/spf13/cobra"
)

var datastoreCmd = &cobra.Command{
	Use:   "datastore",
	Short: "Inspect the host's datastores",
}

var datastoreListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the datastores on the host",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		stores, err := client.Datastores().List(ctx, nil)
		if err != nil {
			return err
		}

		var rows [][]string
		for _, store := range stores {
			info, err := store.Info(ctx)
			if err != nil {
				return err
			}
			rows = append(rows, []string{
				info.Name, info.Type,
				strconv.FormatInt(info.CapacityGB, 10),
				strconv.FormatInt(info.FreeGB, 10),
			})
		}
		printTable([]string{"NAME", "TYPE", "CAPACITY GB", "FREE GB"}, rows)
		return nil
	},
}

func init() {
	datastoreCmd.AddCommand(datastoreListCmd)
}
