package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	snapshotDescription    string
	snapshotRemoveChildren bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage the snapshots of a virtual machine",
}

var snapshotListCmd = &cobra.Command{
	Use:   "list <vm>",
	Short: "List the snapshots of a VM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		vm, err := getVM(ctx, client, args[0])
		if err != nil {
			return err
		}

		snapshots, err := vm.Snapshots().List(ctx)
		if err != nil {
			return err
		}

		var rows [][]string
		for _, snap := range snapshots {
			rows = append(rows, []string{
				snap.Name, snap.Description, snap.State,
				snap.Created.Format(time.RFC3339),
			})
		}
		printTable([]string{"NAME", "DESCRIPTION", "STATE", "CREATED"}, rows)
		return nil
	},
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create <vm> <name>",
	Short: "Take a new snapshot of a VM",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		vm, err := getVM(ctx, client, args[0])
		if err != nil {
			return err
		}

		snap, err := vm.Snapshots().Create(ctx, args[1], snapshotDescription)
		if err != nil {
			return err
		}
		fmt.Printf("Created snapshot %s of %s\n", snap.Name, args[0])
		return nil
	},
}

var snapshotRevertCmd = &cobra.Command{
	Use:   "revert <vm> <name>",
	Short: "Revert a VM to a snapshot without powering it on",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		vm, err := getVM(ctx, client, args[0])
		if err != nil {
			return err
		}

		snap, err := vm.Snapshots().Get(ctx, args[1])
		if err != nil {
			return err
		}
		if err := vm.Snapshots().Revert(ctx, snap); err != nil {
			return err
		}
		fmt.Printf("Reverted %s to snapshot %s\n", args[0], args[1])
		return nil
	},
}

var snapshotDestroyCmd = &cobra.Command{
	Use:   "destroy <vm> <name>",
	Short: "Remove a snapshot of a VM",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		vm, err := getVM(ctx, client, args[0])
		if err != nil {
			return err
		}

		snap, err := vm.Snapshots().Get(ctx, args[1])
		if err != nil {
			return err
		}
		if err := vm.Snapshots().Delete(ctx, snap, snapshotRemoveChildren); err != nil {
			return err
		}
		fmt.Printf("Destroyed snapshot %s of %s\n", args[1], args[0])
		return nil
	},
}

func init() {
	snapshotCreateCmd.Flags().StringVar(&snapshotDescription, "description", "", "description of the snapshot")
	snapshotDestroyCmd.Flags().BoolVar(&snapshotRemoveChildren, "remove-children", false, "also remove all child snapshots")

	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotCreateCmd)
	snapshotCmd.AddCommand(snapshotRevertCmd)
	snapshotCmd.AddCommand(snapshotDestroyCmd)
}
