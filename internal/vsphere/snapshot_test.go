package vsphere

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/types"
)

func snapshotNode(name string, children ...types.VirtualMachineSnapshotTree) types.VirtualMachineSnapshotTree {
	return types.VirtualMachineSnapshotTree{
		Snapshot:          types.ManagedObjectReference{Type: "VirtualMachineSnapshot", Value: name},
		Name:              name,
		ChildSnapshotList: children,
	}
}

// --- forest traversal tests ---

func TestFlattenSnapshotForestIsPreOrder(t *testing.T) {
	roots := []types.VirtualMachineSnapshotTree{
		snapshotNode("base",
			snapshotNode("patched",
				snapshotNode("patched-again")),
			snapshotNode("experiment")),
		snapshotNode("other-root"),
	}

	flat := flattenSnapshotForest(roots)

	names := make([]string, 0, len(flat))
	for _, node := range flat {
		names = append(names, node.Name)
	}
	assert.Equal(t, []string{"base", "patched", "patched-again", "experiment", "other-root"}, names)
}

func TestFlattenSnapshotForestEmpty(t *testing.T) {
	assert.Empty(t, flattenSnapshotForest(nil))
}

func TestFindSnapshotInForestLocatesNestedNode(t *testing.T) {
	roots := []types.VirtualMachineSnapshotTree{
		snapshotNode("base",
			snapshotNode("patched",
				snapshotNode("patched-again"))),
	}

	found := findSnapshotInForest(roots, types.ManagedObjectReference{
		Type: "VirtualMachineSnapshot", Value: "patched-again",
	})

	require.NotNil(t, found)
	assert.Equal(t, "patched-again", found.Name)
}

func TestFindSnapshotInForestMissing(t *testing.T) {
	roots := []types.VirtualMachineSnapshotTree{snapshotNode("base")}

	found := findSnapshotInForest(roots, types.ManagedObjectReference{
		Type: "VirtualMachineSnapshot", Value: "nope",
	})

	assert.Nil(t, found)
}

func TestSnapshotNameExistsSearchesWholeForest(t *testing.T) {
	roots := []types.VirtualMachineSnapshotTree{
		snapshotNode("base",
			snapshotNode("patched")),
	}

	assert.True(t, snapshotNameExists(roots, "patched"))
	assert.False(t, snapshotNameExists(roots, "missing"))
}

// --- ownership guard tests ---

func TestRequireOwnershipRejectsForeignSnapshot(t *testing.T) {
	vmRef := types.ManagedObjectReference{Type: "VirtualMachine", Value: "vm-10"}
	otherRef := types.ManagedObjectReference{Type: "VirtualMachine", Value: "vm-20"}

	manager := &SnapshotManager{vm: &VM{obj: object.NewVirtualMachine(nil, vmRef)}}

	err := manager.requireOwnership(&Snapshot{Name: "base", owner: otherRef})
	assert.ErrorIs(t, err, ErrWrongOwner)

	err = manager.requireOwnership(&Snapshot{Name: "base", owner: vmRef})
	assert.NoError(t, err)
}
