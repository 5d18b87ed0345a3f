package vsphere

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmware/govmomi/vim25/types"
)

func newTestController(key, bus int32) *types.ParaVirtualSCSIController {
	return &types.ParaVirtualSCSIController{
		VirtualSCSIController: types.VirtualSCSIController{
			VirtualController: types.VirtualController{
				VirtualDevice: types.VirtualDevice{Key: key},
				BusNumber:     bus,
			},
			ScsiCtlrUnitNumber: 7,
		},
	}
}

func newTestDisk(controllerKey, unit int32) *types.VirtualDisk {
	return &types.VirtualDisk{
		VirtualDevice: types.VirtualDevice{
			Key:           controllerKey*100 + unit,
			ControllerKey: controllerKey,
			UnitNumber:    types.NewInt32(unit),
		},
	}
}

// --- key allocator tests ---

func TestKeyAllocatorHandsOutDecreasingNegativeKeys(t *testing.T) {
	keys := newKeyAllocator()

	assert.Equal(t, int32(-1), keys.Next())
	assert.Equal(t, int32(-2), keys.Next())
	assert.Equal(t, int32(-3), keys.Next())
}

// --- controller discovery tests ---

func TestScsiControllersFiltersDeviceList(t *testing.T) {
	devices := []types.BaseVirtualDevice{
		&types.VirtualIDEController{},
		newTestController(1000, 0),
		newTestDisk(1000, 0),
		newTestController(1001, 1),
	}

	ctrls := scsiControllers(devices)

	require.Len(t, ctrls, 2)
	assert.Equal(t, int32(1000), ctrls[0].GetVirtualSCSIController().Key)
	assert.Equal(t, int32(1001), ctrls[1].GetVirtualSCSIController().Key)
}

func TestNextSCSIBusNumberCountsExistingControllers(t *testing.T) {
	assert.Equal(t, int32(0), nextSCSIBusNumber(nil))

	devices := []types.BaseVirtualDevice{
		newTestController(1000, 0),
		newTestController(1001, 1),
		newTestDisk(1000, 0),
	}
	assert.Equal(t, int32(2), nextSCSIBusNumber(devices))
}

// --- unit allocation tests ---

func TestOccupiedUnitsIncludesControllerTarget(t *testing.T) {
	ctrl := newTestController(1000, 0)
	devices := []types.BaseVirtualDevice{
		ctrl,
		newTestDisk(1000, 0),
		newTestDisk(1000, 2),
		newTestDisk(1001, 1), // other controller, ignored
	}

	units := occupiedUnits(ctrl, devices)

	assert.ElementsMatch(t, []int32{7, 0, 2}, units)
}

func TestNextFreeUnitAppendsAfterContiguousRun(t *testing.T) {
	ctrl := newTestController(1000, 0)
	devices := []types.BaseVirtualDevice{
		ctrl,
		newTestDisk(1000, 0),
		newTestDisk(1000, 1),
		newTestDisk(1000, 2),
	}

	unit, err := nextFreeUnit(ctrl, devices, defaultSCSIMaxDevices)

	require.NoError(t, err)
	assert.Equal(t, int32(3), unit)
}

func TestNextFreeUnitFillsGap(t *testing.T) {
	ctrl := newTestController(1000, 0)
	devices := []types.BaseVirtualDevice{
		ctrl,
		newTestDisk(1000, 0),
		newTestDisk(1000, 2),
	}

	unit, err := nextFreeUnit(ctrl, devices, defaultSCSIMaxDevices)

	require.NoError(t, err)
	assert.Equal(t, int32(1), unit)
}

func TestNextFreeUnitSkipsControllerTarget(t *testing.T) {
	ctrl := newTestController(1000, 0)
	devices := []types.BaseVirtualDevice{ctrl}
	for unit := int32(0); unit < 7; unit++ {
		devices = append(devices, newTestDisk(1000, unit))
	}

	// Units 0..6 and the controller's own 7 are taken; 8 is next.
	unit, err := nextFreeUnit(ctrl, devices, defaultSCSIMaxDevices)

	require.NoError(t, err)
	assert.Equal(t, int32(8), unit)
}

func TestNextFreeUnitRejectsFullController(t *testing.T) {
	ctrl := newTestController(1000, 0)
	devices := []types.BaseVirtualDevice{ctrl}
	devices = append(devices, newTestDisk(1000, 0))

	_, err := nextFreeUnit(ctrl, devices, 2)

	assert.ErrorIs(t, err, ErrControllerAtCapacity)
}

// --- capacity metadata tests ---

func TestScsiMaxDevicesReadsControllerOption(t *testing.T) {
	opt := &types.VirtualMachineConfigOption{
		HardwareOptions: types.VirtualHardwareOption{
			VirtualDeviceOption: []types.BaseVirtualDeviceOption{
				&types.VirtualIDEControllerOption{},
				&types.ParaVirtualSCSIControllerOption{
					VirtualSCSIControllerOption: types.VirtualSCSIControllerOption{
						VirtualControllerOption: types.VirtualControllerOption{
							Devices: types.IntOption{Max: 64},
						},
					},
				},
			},
		},
	}

	assert.Equal(t, 64, scsiMaxDevices(opt))
}

func TestScsiMaxDevicesFallsBackToDefault(t *testing.T) {
	assert.Equal(t, defaultSCSIMaxDevices, scsiMaxDevices(nil))
	assert.Equal(t, defaultSCSIMaxDevices, scsiMaxDevices(&types.VirtualMachineConfigOption{}))
}
