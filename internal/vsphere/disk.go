package vsphere

import (
	"context"
	"fmt"

	"github.com/esxctl/esxctl/internal/logger"
	"github.com/esxctl/esxctl/internal/models"
	"github.com/esxctl/esxctl/internal/query"
	"github.com/vmware/govmomi/vim25/types"
)

// Disk is one virtual disk attached to a VM. The VM owns the device; the
// controller relation is a key lookup, not a pointer.
type Disk struct {
	vm     *VM
	device *types.VirtualDisk
}

// Name returns the disk's display label, conventionally "Hard disk N".
func (d *Disk) Name() string {
	return deviceLabel(&d.device.VirtualDevice)
}

// Info returns the presentation view of the disk.
func (d *Disk) Info() models.DiskInfo {
	info := models.DiskInfo{
		Label:         d.Name(),
		Summary:       deviceSummary(&d.device.VirtualDevice),
		CapacityKB:    d.device.CapacityInKB,
		ControllerKey: d.device.ControllerKey,
	}
	if d.device.UnitNumber != nil {
		info.UnitNumber = *d.device.UnitNumber
	}
	return info
}

// Controller resolves the disk's controller by key against the VM's
// current device list.
func (d *Disk) Controller(ctx context.Context) (*SCSIController, error) {
	return d.vm.Controllers().Get(ctx, func(c *SCSIController) bool {
		return c.Key() == d.device.ControllerKey
	})
}

// DiskManager lists and mutates the disks of one VM.
type DiskManager struct {
	vm *VM
}

// List returns the VM's disks matching the predicate.
func (m *DiskManager) List(ctx context.Context, p query.Predicate[*Disk]) ([]*Disk, error) {
	devices, err := m.vm.devices(ctx)
	if err != nil {
		return nil, err
	}

	var disks []*Disk
	for _, device := range devices {
		if disk, ok := device.(*types.VirtualDisk); ok {
			disks = append(disks, &Disk{vm: m.vm, device: disk})
		}
	}
	return query.Filter(disks, p), nil
}

// Get returns the first disk matching the predicate.
func (m *DiskManager) Get(ctx context.Context, p query.Predicate[*Disk]) (*Disk, error) {
	disks, err := m.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	disk, ok := query.First(disks, p)
	if !ok {
		return nil, fmt.Errorf("disk: %w", ErrNotFound)
	}
	return disk, nil
}

// Add attaches a new disk of the given size to the VM's SCSI controller,
// allocating the next free unit number, and returns the committed disk.
func (m *DiskManager) Add(ctx context.Context, sizeGB int64, thin bool) (*Disk, error) {
	devices, err := m.vm.devices(ctx)
	if err != nil {
		return nil, err
	}

	ctrls := scsiControllers(devices)
	if len(ctrls) == 0 {
		return nil, fmt.Errorf("%w on VM %q", ErrNoSCSIController, m.vm.Name())
	}
	ctrl := ctrls[0].GetVirtualSCSIController()

	maxDevices := defaultSCSIMaxDevices
	if opt, err := m.vm.c.configOption(ctx); err != nil {
		m.vm.c.logger.Warn("Falling back to default controller capacity", logger.Error(err))
	} else {
		maxDevices = scsiMaxDevices(opt)
	}

	unit, err := nextFreeUnit(ctrls[0], devices, maxDevices)
	if err != nil {
		return nil, err
	}

	keys := newKeyAllocator()
	disk := &types.VirtualDisk{
		VirtualDevice: types.VirtualDevice{
			Key:           keys.Next(),
			ControllerKey: ctrl.Key,
			UnitNumber:    types.NewInt32(unit),
			Backing: &types.VirtualDiskFlatVer2BackingInfo{
				VirtualDeviceFileBackingInfo: types.VirtualDeviceFileBackingInfo{
					FileName: "",
				},
				DiskMode:        string(types.VirtualDiskModePersistent),
				ThinProvisioned: types.NewBool(thin),
			},
		},
		CapacityInKB: sizeGB * 1024 * 1024,
	}

	spec := types.VirtualMachineConfigSpec{
		DeviceChange: []types.BaseVirtualDeviceConfigSpec{
			&types.VirtualDeviceConfigSpec{
				Operation:     types.VirtualDeviceConfigSpecOperationAdd,
				FileOperation: types.VirtualDeviceConfigSpecFileOperationCreate,
				Device:        disk,
			},
		},
	}

	m.vm.c.logger.Info("Adding disk", logger.VM(m.vm.Name()),
		logger.SizeGB(sizeGB), logger.Unit(unit), logger.Bus(ctrl.BusNumber))

	if err := m.vm.reconfigure(ctx, spec); err != nil {
		return nil, err
	}

	// Re-resolve by controller and unit to pick up the host-assigned key
	// and label.
	added, err := m.Get(ctx, func(d *Disk) bool {
		return d.device.ControllerKey == ctrl.Key &&
			d.device.UnitNumber != nil && *d.device.UnitNumber == unit
	})
	if err != nil {
		return nil, fmt.Errorf("disk added but not visible: %w", err)
	}
	return added, nil
}

// Remove detaches the disk with the given ordinal (label "Hard disk N")
// and destroys its backing file.
func (m *DiskManager) Remove(ctx context.Context, ordinal int) error {
	label := fmt.Sprintf("Hard disk %d", ordinal)
	disk, err := m.Get(ctx, func(d *Disk) bool { return d.Name() == label })
	if err != nil {
		return fmt.Errorf("%q: %w", label, err)
	}

	spec := types.VirtualMachineConfigSpec{
		DeviceChange: []types.BaseVirtualDeviceConfigSpec{
			&types.VirtualDeviceConfigSpec{
				Operation:     types.VirtualDeviceConfigSpecOperationRemove,
				FileOperation: types.VirtualDeviceConfigSpecFileOperationDestroy,
				Device:        disk.device,
			},
		},
	}

	m.vm.c.logger.Info("Removing disk", logger.VM(m.vm.Name()), logger.Disk(label))

	return m.vm.reconfigure(ctx, spec)
}

func deviceLabel(d *types.VirtualDevice) string {
	if d.DeviceInfo == nil {
		return ""
	}
	return d.DeviceInfo.GetDescription().Label
}

func deviceSummary(d *types.VirtualDevice) string {
	if d.DeviceInfo == nil {
		return ""
	}
	return d.DeviceInfo.GetDescription().Summary
}
