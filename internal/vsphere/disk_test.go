package vsphere

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vmware/govmomi/vim25/types"
)

func describedDisk(label, summary string, controllerKey, unit int32, capacityKB int64) *types.VirtualDisk {
	return &types.VirtualDisk{
		VirtualDevice: types.VirtualDevice{
			DeviceInfo: &types.Description{
				Label:   label,
				Summary: summary,
			},
			ControllerKey: controllerKey,
			UnitNumber:    types.NewInt32(unit),
		},
		CapacityInKB: capacityKB,
	}
}

// --- disk presentation tests ---

func TestDiskInfoReflectsDevice(t *testing.T) {
	disk := &Disk{device: describedDisk("Hard disk 2", "20,971,520 KB", 1000, 1, 20971520)}

	info := disk.Info()

	assert.Equal(t, "Hard disk 2", info.Label)
	assert.Equal(t, "20,971,520 KB", info.Summary)
	assert.Equal(t, int64(20971520), info.CapacityKB)
	assert.Equal(t, int32(1000), info.ControllerKey)
	assert.Equal(t, int32(1), info.UnitNumber)
}

func TestDeviceLabelToleratesMissingDescription(t *testing.T) {
	bare := &types.VirtualDevice{}

	assert.Empty(t, deviceLabel(bare))
	assert.Empty(t, deviceSummary(bare))
}
