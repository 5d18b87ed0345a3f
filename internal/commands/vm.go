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
	vmListField string
	vmListValue string

	vmCreateDatastore  string
	vmCreateAnnotation string
	vmCreateMemoryMB   int64
	vmCreateGuestID    string
	vmCreateNumCPUs    int32

	vmEditName       string
	vmEditAnnotation string
	vmEditGuestID    string
	vmEditMemoryMB   int64
	vmEditNumCPUs    int32
	vmEditCores      int32

	vmImportURL          string
	vmImportDatastore    string
	vmImportNetwork      string
	vmImportProvisioning string
)

// vmInfoFields maps --field names to VMInfo accessors for declarative
// list filtering.
var vmInfoFields = map[string]func(*models.VMInfo) string{
	"name":        func(i *models.VMInfo) string { return i.Name },
	"path":        func(i *models.VMInfo) string { return i.Path },
	"power-state": func(i *models.VMInfo) string { return i.PowerState },
	"primary-ip":  func(i *models.VMInfo) string { return i.PrimaryIP },
	"memory":      func(i *models.VMInfo) string { return strconv.FormatInt(int64(i.MemoryMB), 10) },
	"cpus":        func(i *models.VMInfo) string { return strconv.FormatInt(int64(i.NumCPUs), 10) },
}

var vmCmd = &cobra.Command{
	Use:   "vm",
	Short: "Manage virtual machines",
}

var vmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the virtual machines on the host",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireBothOrNeither(vmListField, vmListValue); err != nil {
			return err
		}
		extract, err := vmFieldExtractor(vmListField)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		vms, err := client.VMs().List(ctx, nil)
		if err != nil {
			return err
		}

		var rows [][]string
		for _, vm := range vms {
			info, err := vm.Info(ctx)
			if err != nil {
				return err
			}
			if extract != nil && extract(info) != vmListValue {
				continue
			}
			rows = append(rows, []string{
				info.Name, info.PrimaryIP, info.Path, info.PowerState,
				strconv.FormatInt(int64(info.MemoryMB), 10),
				strconv.FormatInt(int64(info.NumCPUs), 10),
			})
		}
		printTable([]string{"NAME", "PRIMARY IP", "PATH", "POWER STATE", "MEMORY MB", "CPUS"}, rows)
		return nil
	},
}

var vmCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new virtual machine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		ds, err := client.Datastores().Get(ctx, query.NameIs[*vsphere.Datastore](vmCreateDatastore))
		if err != nil {
			return fmt.Errorf("datastore %q: %w", vmCreateDatastore, err)
		}

		vm, err := client.VMs().Create(ctx, vsphere.CreateSpec{
			Name:       args[0],
			Datastore:  ds,
			Annotation: vmCreateAnnotation,
			MemoryMB:   vmCreateMemoryMB,
			GuestID:    vmCreateGuestID,
			NumCPUs:    vmCreateNumCPUs,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created VM %s\n", vm.Name())
		return nil
	},
}

var vmEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Reconfigure a virtual machine",
	Long: `Reconfigure a virtual machine. Only the settings passed as flags
change; CPU and memory edits require the VM to be powered off.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		vm, err := client.VMs().Get(ctx, query.NameIs[*vsphere.VM](args[0]))
		if err != nil {
			return fmt.Errorf("VM %q: %w", args[0], err)
		}

		err = vm.Edit(ctx, vsphere.EditSpec{
			Name:           vmEditName,
			Annotation:     vmEditAnnotation,
			GuestID:        vmEditGuestID,
			MemoryMB:       vmEditMemoryMB,
			NumCPUs:        vmEditNumCPUs,
			CoresPerSocket: vmEditCores,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Reconfigured VM %s\n", args[0])
		return nil
	},
}

var vmDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Power off and destroy a virtual machine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		vm, err := client.VMs().Get(ctx, query.NameIs[*vsphere.VM](args[0]))
		if err != nil {
			return fmt.Errorf("VM %q: %w", args[0], err)
		}
		if err := client.VMs().Delete(ctx, vm); err != nil {
			return err
		}
		fmt.Printf("Deleted VM %s\n", args[0])
		return nil
	},
}

var vmImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Import an OVF appliance from a URL",
	Long: `Import an OVF appliance from a remote URL. The host pulls the
appliance's disk files itself, so the URL must be reachable from the
host. Large appliances can take several minutes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		ds, err := client.Datastores().Get(ctx, query.NameIs[*vsphere.Datastore](vmImportDatastore))
		if err != nil {
			return fmt.Errorf("datastore %q: %w", vmImportDatastore, err)
		}

		fmt.Printf("Importing %s, this might take several minutes...\n", vmImportURL)

		vm, err := client.VMs().ImportOVF(ctx, vsphere.ImportOptions{
			Name:             args[0],
			URL:              vmImportURL,
			Datastore:        ds,
			NetworkName:      vmImportNetwork,
			DiskProvisioning: vmImportProvisioning,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Imported VM %s\n", vm.Name())
		return nil
	},
}

func newPowerCmd(use, short string, run func(ctx context.Context, vm *vsphere.VM) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			vm, err := client.VMs().Get(ctx, query.NameIs[*vsphere.VM](args[0]))
			if err != nil {
				return fmt.Errorf("VM %q: %w", args[0], err)
			}
			return run(ctx, vm)
		},
	}
}

func vmFieldExtractor(field string) (func(*models.VMInfo) string, error) {
	if field == "" {
		return nil, nil
	}
	extract, ok := vmInfoFields[field]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", field)
	}
	return extract, nil
}

func init() {
	vmListCmd.Flags().StringVar(&vmListField, "field", "", "field to filter on (name, path, power-state, primary-ip, memory, cpus)")
	vmListCmd.Flags().StringVar(&vmListValue, "value", "", "value the field must equal")

	vmCreateCmd.Flags().StringVar(&vmCreateDatastore, "datastore", "datastore1", "datastore to place the VM on")
	vmCreateCmd.Flags().StringVar(&vmCreateAnnotation, "annotation", "Sample", "description of the VM")
	vmCreateCmd.Flags().Int64Var(&vmCreateMemoryMB, "memory", 128, "memory size in MB")
	vmCreateCmd.Flags().StringVar(&vmCreateGuestID, "guest-id", "otherGuest", "short guest OS identifier")
	vmCreateCmd.Flags().Int32Var(&vmCreateNumCPUs, "cpus", 1, "number of CPUs")

	vmEditCmd.Flags().StringVar(&vmEditName, "name", "", "new display name")
	vmEditCmd.Flags().StringVar(&vmEditAnnotation, "annotation", "", "new description")
	vmEditCmd.Flags().StringVar(&vmEditGuestID, "guest-id", "", "new guest OS identifier")
	vmEditCmd.Flags().Int64Var(&vmEditMemoryMB, "memory", 0, "new memory size in MB")
	vmEditCmd.Flags().Int32Var(&vmEditNumCPUs, "cpus", 0, "new number of CPUs")
	vmEditCmd.Flags().Int32Var(&vmEditCores, "cores-per-socket", 0, "new cores per socket")

	vmImportCmd.Flags().StringVar(&vmImportURL, "url", "", "OVF descriptor URL (required)")
	vmImportCmd.Flags().StringVar(&vmImportDatastore, "datastore", "datastore1", "datastore to place the VM on")
	vmImportCmd.Flags().StringVar(&vmImportNetwork, "network", "VM Network", "network to map the appliance to")
	vmImportCmd.Flags().StringVar(&vmImportProvisioning, "disk-provisioning", "thin", "disk provisioning mode")
	_ = vmImportCmd.MarkFlagRequired("url")

	vmCmd.AddCommand(vmListCmd)
	vmCmd.AddCommand(vmCreateCmd)
	vmCmd.AddCommand(vmEditCmd)
	vmCmd.AddCommand(vmDeleteCmd)
	vmCmd.AddCommand(vmImportCmd)
	vmCmd.AddCommand(newPowerCmd("power-on", "Power on the VM",
		func(ctx context.Context, vm *vsphere.VM) error { return vm.PowerOn(ctx) }))
	vmCmd.AddCommand(newPowerCmd("power-off", "Power off the VM",
		func(ctx context.Context, vm *vsphere.VM) error { return vm.PowerOff(ctx) }))
	vmCmd.AddCommand(newPowerCmd("suspend", "Suspend the VM",
		func(ctx context.Context, vm *vsphere.VM) error { return vm.Suspend(ctx) }))
	vmCmd.AddCommand(diskCmd)
	vmCmd.AddCommand(controllerCmd)
	vmCmd.AddCommand(snapshotCmd)
}
