package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/esxctl/esxctl/internal/models"
	"github.com/esxctl/esxctl/internal/query"
	"github.com/esxctl/esxctl/internal/vsphere"
)

var (
	diskListField string
	diskListValue string
	diskAddThin   bool
)

// diskInfoFields maps --field names to DiskInfo accessors for declarative
// list filtering.
var diskInfoFields = map[string]func(models.DiskInfo) string{
	"label":          func(i models.DiskInfo) string { return i.Label },
	"summary":        func(i models.DiskInfo) string { return i.Summary },
	"controller-key": func(i models.DiskInfo) string { return strconv.FormatInt(int64(i.ControllerKey), 10) },
	"unit":           func(i models.DiskInfo) string { return strconv.FormatInt(int64(i.UnitNumber), 10) },
}

var diskCmd = &cobra.Command{
	Use:   "disk",
	Short: "Manage the disks of a virtual machine",
}

var diskListCmd = &cobra.Command{
	Use:   "list <vm>",
	Short: "List the disks attached to a VM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireBothOrNeither(diskListField, diskListValue); err != nil {
			return err
		}
		var extract func(models.DiskInfo) string
		if diskListField != "" {
			var ok bool
			if extract, ok = diskInfoFields[diskListField]; !ok {
				return fmt.Errorf("unknown field %q", diskListField)
			}
		}

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

		disks, err := vm.Disks().List(ctx, nil)
		if err != nil {
			return err
		}

		var rows [][]string
		for _, disk := range disks {
			info := disk.Info()
			if extract != nil && extract(info) != diskListValue {
				continue
			}
			rows = append(rows, []string{
				info.Label, info.Summary,
				strconv.FormatInt(int64(info.ControllerKey), 10),
				strconv.FormatInt(int64(info.UnitNumber), 10),
			})
		}
		printTable([]string{"NAME", "SIZE", "CONTROLLER KEY", "UNIT"}, rows)
		return nil
	},
}

var diskAddCmd = &cobra.Command{
	Use:   "add <vm> <size-gb>",
	Short: "Attach a new disk to a VM",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sizeGB, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || sizeGB <= 0 {
			return fmt.Errorf("size must be a positive number of GB, got %q", args[1])
		}

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

		disk, err := vm.Disks().Add(ctx, sizeGB, diskAddThin)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%d GB) to %s\n", disk.Name(), sizeGB, args[0])
		return nil
	},
}

var diskRemoveCmd = &cobra.Command{
	Use:   "remove <vm> <number>",
	Short: "Detach a disk from a VM and destroy its backing file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ordinal, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("disk number must be an integer, got %q", args[1])
		}

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

		if err := vm.Disks().Remove(ctx, ordinal); err != nil {
			return err
		}
		fmt.Printf("Removed Hard disk %d from %s\n", ordinal, args[0])
		return nil
	},
}

// getVM resolves a VM by display name.
func getVM(ctx context.Context, client *vsphere.Client, name string) (*vsphere.VM, error) {
	vm, err := client.VMs().Get(ctx, query.NameIs[*vsphere.VM](name))
	if err != nil {
		return nil, fmt.Errorf("VM %q: %w", name, err)
	}
	return vm, nil
}

func init() {
	diskListCmd.Flags().StringVar(&diskListField, "field", "", "field to filter on (label, summary, controller-key, unit)")
	diskListCmd.Flags().StringVar(&diskListValue, "value", "", "value the field must equal")
	diskAddCmd.Flags().BoolVar(&diskAddThin, "thin", true, "thin-provision the disk backing")

	diskCmd.AddCommand(diskListCmd)
	diskCmd.AddCommand(diskAddCmd)
	diskCmd.AddCommand(diskRemoveCmd)
}
