package vsphere

import (
	"context"
	"fmt"
	"time"

	"github.com/esxctl/esxctl/internal/logger"
	"github.com/esxctl/esxctl/internal/models"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/types"
)

// Snapshot is a handle to one node of a VM's snapshot tree. It records the
// owning VM so operations routed through the wrong VM fail loudly.
type Snapshot struct {
	ref   types.ManagedObjectReference
	owner types.ManagedObjectReference

	Name        string
	Description string
	Created     time.Time
	State       string
}

// Info returns the presentation view of the snapshot.
func (s *Snapshot) Info() models.SnapshotInfo {
	return models.SnapshotInfo{
		Name:        s.Name,
		Description: s.Description,
		Created:     s.Created,
		State:       s.State,
	}
}

// SnapshotManager reads and mutates one VM's snapshot tree. The tree is
// re-read from the host on every call; nothing is cached.
type SnapshotManager struct {
	vm *VM
}

// List returns the snapshot forest flattened in pre-order.
func (m *SnapshotManager) List(ctx context.Context) ([]*Snapshot, error) {
	roots, err := m.roots(ctx)
	if err != nil {
		return nil, err
	}

	flat := flattenSnapshotForest(roots)
	snapshots := make([]*Snapshot, 0, len(flat))
	for _, node := range flat {
		snapshots = append(snapshots, m.handle(node))
	}
	return snapshots, nil
}

// Get returns the snapshot with the given name.
func (m *SnapshotManager) Get(ctx context.Context, name string) (*Snapshot, error) {
	snapshots, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, snap := range snapshots {
		if snap.Name == name {
			return snap, nil
		}
	}
	return nil, fmt.Errorf("snapshot %q: %w", name, ErrNotFound)
}

// Create takes a new snapshot. A name already present anywhere in this
// VM's tree is rejected before any remote call; the new node is then
// re-resolved from the refreshed tree to recover its metadata, which the
// creation task does not return.
func (m *SnapshotManager) Create(ctx context.Context, name, description string) (*Snapshot, error) {
	roots, err := m.roots(ctx)
	if err != nil {
		return nil, err
	}
	if snapshotNameExists(roots, name) {
		return nil, fmt.Errorf("%w: %q on VM %q", ErrSnapshotExists, name, m.vm.Name())
	}

	m.vm.c.logger.Info("Creating snapshot", logger.VM(m.vm.Name()), logger.Snapshot(name))

	task, err := m.vm.obj.CreateSnapshot(ctx, name, description, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to submit snapshot creation: %w", err)
	}
	info, err := task.WaitForResult(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot creation task failed: %w", err)
	}
	ref, ok := info.Result.(types.ManagedObjectReference)
	if !ok {
		return nil, fmt.Errorf("unexpected snapshot creation result %T", info.Result)
	}

	roots, err = m.roots(ctx)
	if err != nil {
		return nil, err
	}
	node := findSnapshotInForest(roots, ref)
	if node == nil {
		return nil, fmt.Errorf("snapshot %q created but not visible in tree", name)
	}
	return m.handle(*node), nil
}

// Revert reverts the VM to the snapshot without powering it on.
func (m *SnapshotManager) Revert(ctx context.Context, snap *Snapshot) error {
	if err := m.requireOwnership(snap); err != nil {
		return err
	}

	m.vm.c.logger.Info("Reverting to snapshot", logger.VM(m.vm.Name()), logger.Snapshot(snap.Name))

	req := types.RevertToSnapshot_Task{
		This:            snap.ref,
		SuppressPowerOn: types.NewBool(true),
	}
	res, err := methods.RevertToSnapshot_Task(ctx, m.vm.c.vim.Client, &req)
	if err != nil {
		return fmt.Errorf("failed to submit snapshot revert: %w", err)
	}
	task := object.NewTask(m.vm.c.vim.Client, res.Returnval)
	if err := task.Wait(ctx); err != nil {
		return fmt.Errorf("snapshot revert task failed: %w", err)
	}
	return nil
}

// Delete removes the snapshot. Children are kept unless removeChildren is
// set.
func (m *SnapshotManager) Delete(ctx context.Context, snap *Snapshot, removeChildren bool) error {
	if err := m.requireOwnership(snap); err != nil {
		return err
	}

	m.vm.c.logger.Info("Removing snapshot", logger.VM(m.vm.Name()), logger.Snapshot(snap.Name))

	req := types.RemoveSnapshot_Task{
		This:           snap.ref,
		RemoveChildren: removeChildren,
	}
	res, err := methods.RemoveSnapshot_Task(ctx, m.vm.c.vim.Client, &req)
	if err != nil {
		return fmt.Errorf("failed to submit snapshot removal: %w", err)
	}
	task := object.NewTask(m.vm.c.vim.Client, res.Returnval)
	if err := task.Wait(ctx); err != nil {
		return fmt.Errorf("snapshot removal task failed: %w", err)
	}
	return nil
}

func (m *SnapshotManager) requireOwnership(snap *Snapshot) error {
	if snap.owner != m.vm.Reference() {
		return fmt.Errorf("%w: snapshot %q is owned by %s, operation invoked via %s",
			ErrWrongOwner, snap.Name, snap.owner.Value, m.vm.Reference().Value)
	}
	return nil
}

func (m *SnapshotManager) roots(ctx context.Context) ([]types.VirtualMachineSnapshotTree, error) {
	mvm, err := m.vm.properties(ctx, "snapshot")
	if err != nil {
		return nil, err
	}
	if mvm.Snapshot == nil {
		return nil, nil
	}
	return mvm.Snapshot.RootSnapshotList, nil
}

func (m *SnapshotManager) handle(node types.VirtualMachineSnapshotTree) *Snapshot {
	return &Snapshot{
		ref:         node.Snapshot,
		owner:       m.vm.Reference(),
		Name:        node.Name,
		Description: node.Description,
		Created:     node.CreateTime,
		State:       string(node.State),
	}
}

// flattenSnapshotForest linearizes the forest in pre-order: every parent
// precedes all of its descendants. Iterative with an explicit stack.
func flattenSnapshotForest(roots []types.VirtualMachineSnapshotTree) []types.VirtualMachineSnapshotTree {
	var flat []types.VirtualMachineSnapshotTree

	stack := make([]types.VirtualMachineSnapshotTree, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		flat = append(flat, node)

		children := node.ChildSnapshotList
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return flat
}

// findSnapshotInForest locates the node carrying the given snapshot
// reference, depth-first.
func findSnapshotInForest(roots []types.VirtualMachineSnapshotTree, ref types.ManagedObjectReference) *types.VirtualMachineSnapshotTree {
	for i := range roots {
		if roots[i].Snapshot == ref {
			return &roots[i]
		}
		if found := findSnapshotInForest(roots[i].ChildSnapshotList, ref); found != nil {
			return found
		}
	}
	return nil
}

func snapshotNameExists(roots []types.VirtualMachineSnapshotTree, name string) bool {
	for _, node := range flattenSnapshotForest(roots) {
		if node.Name == name {
			return true
		}
	}
	return false
}
