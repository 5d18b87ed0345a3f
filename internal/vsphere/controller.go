package vsphere

import (
	"context"
	"fmt"

	"github.com/esxctl/esxctl/internal/logger"
	"github.com/esxctl/esxctl/internal/models"
	"github.com/esxctl/esxctl/internal/query"
	"github.com/vmware/govmomi/vim25/types"
)

// SCSIController is one SCSI controller attached to a VM.
type SCSIController struct {
	device types.BaseVirtualSCSIController
}

// Name returns the controller's display label.
func (c *SCSIController) Name() string {
	return deviceLabel(&c.device.GetVirtualSCSIController().VirtualDevice)
}

// Key returns the controller's device key.
func (c *SCSIController) Key() int32 {
	return c.device.GetVirtualSCSIController().Key
}

// BusNumber returns the controller's SCSI bus number.
func (c *SCSIController) BusNumber() int32 {
	return c.device.GetVirtualSCSIController().BusNumber
}

// Info returns the presentation view of the controller.
func (c *SCSIController) Info() models.ControllerInfo {
	scsi := c.device.GetVirtualSCSIController()
	return models.ControllerInfo{
		Label:     c.Name(),
		Summary:   deviceSummary(&scsi.VirtualDevice),
		BusNumber: scsi.BusNumber,
		Key:       scsi.Key,
	}
}

// ControllerManager lists and mutates the SCSI controllers of one VM.
type ControllerManager struct {
	vm *VM
}

// List returns the VM's SCSI controllers matching the predicate.
func (m *ControllerManager) List(ctx context.Context, p query.Predicate[*SCSIController]) ([]*SCSIController, error) {
	devices, err := m.vm.devices(ctx)
	if err != nil {
		return nil, err
	}

	var ctrls []*SCSIController
	for _, ctrl := range scsiControllers(devices) {
		ctrls = append(ctrls, &SCSIController{device: ctrl})
	}
	return query.Filter(ctrls, p), nil
}

// Get returns the first controller matching the predicate.
func (m *ControllerManager) Get(ctx context.Context, p query.Predicate[*SCSIController]) (*SCSIController, error) {
	ctrls, err := m.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	ctrl, ok := query.First(ctrls, p)
	if !ok {
		return nil, fmt.Errorf("SCSI controller: %w", ErrNotFound)
	}
	return ctrl, nil
}

// Add attaches a paravirtual SCSI controller on the next free bus. A VM
// that already has a SCSI controller is rejected before any remote call.
func (m *ControllerManager) Add(ctx context.Context) (*SCSIController, error) {
	devices, err := m.vm.devices(ctx)
	if err != nil {
		return nil, err
	}
	if len(scsiControllers(devices)) > 0 {
		return nil, fmt.Errorf("%w on VM %q", ErrControllerExists, m.vm.Name())
	}

	bus := nextSCSIBusNumber(devices)
	keys := newKeyAllocator()
	ctrl := &types.ParaVirtualSCSIController{
		VirtualSCSIController: types.VirtualSCSIController{
			VirtualController: types.VirtualController{
				VirtualDevice: types.VirtualDevice{
					Key: keys.Next(),
				},
				BusNumber: bus,
			},
			SharedBus: types.VirtualSCSISharingNoSharing,
		},
	}

	spec := types.VirtualMachineConfigSpec{
		DeviceChange: []types.BaseVirtualDeviceConfigSpec{
			&types.VirtualDeviceConfigSpec{
				Operation: types.VirtualDeviceConfigSpecOperationAdd,
				Device:    ctrl,
			},
		},
	}

	m.vm.c.logger.Info("Adding SCSI controller", logger.VM(m.vm.Name()), logger.Bus(bus))

	if err := m.vm.reconfigure(ctx, spec); err != nil {
		return nil, err
	}

	added, err := m.Get(ctx, func(c *SCSIController) bool { return c.BusNumber() == bus })
	if err != nil {
		return nil, fmt.Errorf("controller added but not visible: %w", err)
	}
	return added, nil
}

// Remove detaches the SCSI controller on the given bus.
func (m *ControllerManager) Remove(ctx context.Context, bus int32) error {
	ctrl, err := m.Get(ctx, func(c *SCSIController) bool { return c.BusNumber() == bus })
	if err != nil {
		return fmt.Errorf("bus %d: %w", bus, err)
	}

	spec := types.VirtualMachineConfigSpec{
		DeviceChange: []types.BaseVirtualDeviceConfigSpec{
			&types.VirtualDeviceConfigSpec{
				Operation: types.VirtualDeviceConfigSpecOperationRemove,
				Device:    ctrl.device.(types.BaseVirtualDevice),
			},
		},
	}

	m.vm.c.logger.Info("Removing SCSI controller", logger.VM(m.vm.Name()), logger.Bus(bus))

	return m.vm.reconfigure(ctx, spec)
}
