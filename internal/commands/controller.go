package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/esxctl/esxctl/internal/models"
)

var (
	controllerListField string
	controllerListValue string
)

// controllerInfoFields maps --field names to ControllerInfo accessors for
// declarative list filtering.
var controllerInfoFields = map[string]func(models.ControllerInfo) string{
	"label":   func(i models.ControllerInfo) string { return i.Label },
	"summary": func(i models.ControllerInfo) string { return i.Summary },
	"bus":     func(i models.ControllerInfo) string { return strconv.FormatInt(int64(i.BusNumber), 10) },
	"key":     func(i models.ControllerInfo) string { return strconv.FormatInt(int64(i.Key), 10) },
}

var controllerCmd = &cobra.Command{
	Use:   "controller",
	Short: "Manage the SCSI controllers of a virtual machine",
}

var controllerListCmd = &cobra.Command{
	Use:   "list <vm>",
	Short: "List the SCSI controllers attached to a VM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireBothOrNeither(controllerListField, controllerListValue); err != nil {
			return err
		}
		var extract func(models.ControllerInfo) string
		if controllerListField != "" {
			var ok bool
			if extract, ok = controllerInfoFields[controllerListField]; !ok {
				return fmt.Errorf("unknown field %q", controllerListField)
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

		ctrls, err := vm.Controllers().List(ctx, nil)
		if err != nil {
			return err
		}

		var rows [][]string
		for _, ctrl := range ctrls {
			info := ctrl.Info()
			if extract != nil && extract(info) != controllerListValue {
				continue
			}
			rows = append(rows, []string{
				info.Label, info.Summary,
				strconv.FormatInt(int64(info.BusNumber), 10),
				strconv.FormatInt(int64(info.Key), 10),
			})
		}
		printTable([]string{"NAME", "DESCRIPTION", "BUS", "KEY"}, rows)
		return nil
	},
}

var controllerAddCmd = &cobra.Command{
	Use:   "add <vm>",
	Short: "Attach a paravirtual SCSI controller to a VM",
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

		ctrl, err := vm.Controllers().Add(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (bus %d) to %s\n", ctrl.Name(), ctrl.BusNumber(), args[0])
		return nil
	},
}

var controllerRemoveCmd = &cobra.Command{
	Use:   "remove <vm> <bus>",
	Short: "Detach the SCSI controller on the given bus",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("bus number must be an integer, got %q", args[1])
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

		if err := vm.Controllers().Remove(ctx, int32(bus)); err != nil {
			return err
		}
		fmt.Printf("Removed SCSI controller on bus %d from %s\n", bus, args[0])
		return nil
	},
}

func init() {
	controllerListCmd.Flags().StringVar(&controllerListField, "field", "", "field to filter on (label, summary, bus, key)")
	controllerListCmd.Flags().StringVar(&controllerListValue, "value", "", "value the field must equal")

	controllerCmd.AddCommand(controllerListCmd)
	controllerCmd.AddCommand(controllerAddCmd)
	controllerCmd.AddCommand(controllerRemoveCmd)
}
