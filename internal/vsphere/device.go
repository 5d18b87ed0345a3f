package vsphere

import (
	"context"
	"fmt"
	"sort"

	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"
)

// defaultSCSIMaxDevices is the fallback device ceiling per SCSI controller
// when the host's config option cannot be queried: 15 disks plus the
// controller's own target.
const defaultSCSIMaxDevices = 16

// keyAllocator hands out placeholder device keys for not-yet-committed
// devices: strictly decreasing negative integers starting at -1, unique
// within one reconfiguration batch. The host assigns real positive keys on
// commit.
type keyAllocator struct {
	next int32
}

func newKeyAllocator() *keyAllocator {
	return &keyAllocator{next: -1}
}

func (a *keyAllocator) Next() int32 {
	key := a.next
	a.next--
	return key
}

// scsiControllers returns all SCSI controllers in the device list, in
// device-list order.
func scsiControllers(devices []types.BaseVirtualDevice) []types.BaseVirtualSCSIController {
	var ctrls []types.BaseVirtualSCSIController
	for _, device := range devices {
		if ctrl, ok := device.(types.BaseVirtualSCSIController); ok {
			ctrls = append(ctrls, ctrl)
		}
	}
	return ctrls
}

// nextSCSIBusNumber returns the bus number for a new SCSI controller: the
// count of controllers already present.
func nextSCSIBusNumber(devices []types.BaseVirtualDevice) int32 {
	return int32(len(scsiControllers(devices)))
}

// occupiedUnits collects the unit numbers in use on the controller: the
// controller's own SCSI target unit (7 by convention) plus the unit of
// every device attached to it.
func occupiedUnits(ctrl types.BaseVirtualSCSIController, devices []types.BaseVirtualDevice) []int32 {
	scsi := ctrl.GetVirtualSCSIController()
	units := []int32{scsi.ScsiCtlrUnitNumber}

	for _, device := range devices {
		d := device.GetVirtualDevice()
		if d.ControllerKey == scsi.Key && d.Key != scsi.Key && d.UnitNumber != nil {
			units = append(units, *d.UnitNumber)
		}
	}
	return units
}

// nextFreeUnit returns the smallest unoccupied unit number on the
// controller: walk the sorted occupied list and return the first index
// whose value disagrees with its position, else the length of the run.
// Fails with ErrControllerAtCapacity when the controller is at its device
// ceiling.
func nextFreeUnit(ctrl types.BaseVirtualSCSIController, devices []types.BaseVirtualDevice, maxDevices int) (int32, error) {
	units := occupiedUnits(ctrl, devices)
	if len(units) >= maxDevices {
		return 0, fmt.Errorf("%w: %d of %d units occupied",
			ErrControllerAtCapacity, len(units), maxDevices)
	}

	sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })
	for i, unit := range units {
		if unit != int32(i) {
			return int32(i), nil
		}
	}
	return int32(len(units)), nil
}

// scsiMaxDevices extracts the per-controller device ceiling from the host's
// config option, falling back to the conventional limit when absent.
func scsiMaxDevices(opt *types.VirtualMachineConfigOption) int {
	if opt == nil {
		return defaultSCSIMaxDevices
	}
	for _, devOpt := range opt.HardwareOptions.VirtualDeviceOption {
		if scsiOpt, ok := devOpt.(types.BaseVirtualSCSIControllerOption); ok {
			if max := scsiOpt.GetVirtualSCSIControllerOption().Devices.Max; max > 0 {
				return int(max)
			}
		}
	}
	return defaultSCSIMaxDevices
}

// configOption queries the host's capability metadata through the compute
// resource's environment browser.
func (c *Client) configOption(ctx context.Context) (*types.VirtualMachineConfigOption, error) {
	host, err := c.hostSystem(ctx)
	if err != nil {
		return nil, err
	}

	var mh mo.HostSystem
	if err := host.Properties(ctx, host.Reference(), []string{"parent"}, &mh); err != nil {
		return nil, fmt.Errorf("failed to get host parent: %w", err)
	}
	if mh.Parent == nil {
		return nil, fmt.Errorf("host has no compute resource parent")
	}

	var mcr mo.ComputeResource
	pc := property.DefaultCollector(c.vim.Client)
	if err := pc.RetrieveOne(ctx, *mh.Parent, []string{"environmentBrowser"}, &mcr); err != nil {
		return nil, fmt.Errorf("failed to get environment browser: %w", err)
	}
	if mcr.EnvironmentBrowser == nil {
		return nil, fmt.Errorf("compute resource has no environment browser")
	}

	req := types.QueryConfigOption{
		This: *mcr.EnvironmentBrowser,
	}
	res, err := methods.QueryConfigOption(ctx, c.vim.Client, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to query config option: %w", err)
	}
	return res.Returnval, nil
}
