package vsphere

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/esxctl/esxctl/internal/logger"
	"github.com/esxctl/esxctl/internal/models"
	"github.com/esxctl/esxctl/internal/query"
	"github.com/esxctl/esxctl/internal/retry"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"
)

// Power transition policies. The host's state propagation is eventually
// consistent relative to task completion, so submission and confirmation
// get separate retry budgets.
var (
	powerInvokePolicy  = retry.Policy{Attempts: 12, Delay: 5 * time.Second}
	powerConfirmPolicy = retry.Policy{Attempts: 60, Delay: 10 * time.Second}
)

// VM wraps one virtual machine managed object.
type VM struct {
	c   *Client
	obj *object.VirtualMachine
}

// Name returns the VM's display name.
func (v *VM) Name() string {
	return v.obj.Name()
}

// Reference returns the VM's managed object reference.
func (v *VM) Reference() types.ManagedObjectReference {
	return v.obj.Reference()
}

// Disks returns the disk manager for this VM.
func (v *VM) Disks() *DiskManager {
	return &DiskManager{vm: v}
}

// Controllers returns the SCSI controller manager for this VM.
func (v *VM) Controllers() *ControllerManager {
	return &ControllerManager{vm: v}
}

// Snapshots returns the snapshot manager for this VM.
func (v *VM) Snapshots() *SnapshotManager {
	return &SnapshotManager{vm: v}
}

// Info retrieves the presentation view of the VM.
func (v *VM) Info(ctx context.Context) (*models.VMInfo, error) {
	mvm, err := v.properties(ctx, "summary", "config")
	if err != nil {
		return nil, err
	}

	info := &models.VMInfo{
		Name:       mvm.Summary.Config.Name,
		Path:       mvm.Summary.Config.VmPathName,
		PowerState: string(mvm.Summary.Runtime.PowerState),
		MemoryMB:   mvm.Summary.Config.MemorySizeMB,
		NumCPUs:    mvm.Summary.Config.NumCpu,
	}
	if mvm.Summary.Guest != nil {
		info.PrimaryIP = mvm.Summary.Guest.IpAddress
	}
	if mvm.Config != nil {
		info.CoresPerSocket = mvm.Config.Hardware.NumCoresPerSocket
		info.HardwareVersion = mvm.Config.Version
	}
	return info, nil
}

// PowerOn powers the VM on and waits until the host confirms the state.
func (v *VM) PowerOn(ctx context.Context) error {
	return v.transition(ctx, types.VirtualMachinePowerStatePoweredOn, v.obj.PowerOn)
}

// PowerOff powers the VM off and waits until the host confirms the state.
func (v *VM) PowerOff(ctx context.Context) error {
	return v.transition(ctx, types.VirtualMachinePowerStatePoweredOff, v.obj.PowerOff)
}

// Suspend suspends the VM and waits until the host confirms the state.
func (v *VM) Suspend(ctx context.Context) error {
	return v.transition(ctx, types.VirtualMachinePowerStateSuspended, v.obj.Suspend)
}

func (v *VM) transition(ctx context.Context, target types.VirtualMachinePowerState, submit func(context.Context) (*object.Task, error)) error {
	return transitionPower(ctx, v.c.logger, v.Name(), target, powerInvokePolicy, powerConfirmPolicy,
		v.powerState,
		func(ctx context.Context) error {
			task, err := submit(ctx)
			if err != nil {
				return err
			}
			return task.Wait(ctx)
		})
}

// transitionPower drives one power transition: an idempotent-submit loop
// under invokePolicy, then a state-confirmation poll under confirmPolicy.
// A VM already in the target state is a successful no-op and submit is
// never called.
func transitionPower(
	ctx context.Context,
	log *logger.Logger,
	name string,
	target types.VirtualMachinePowerState,
	invokePolicy, confirmPolicy retry.Policy,
	state func(context.Context) (types.VirtualMachinePowerState, error),
	submit func(context.Context) error,
) error {
	err := retry.Do(ctx, invokePolicy, func(ctx context.Context) error {
		current, err := state(ctx)
		if err != nil {
			return err
		}
		if current == target {
			log.Warn("Power state already matches, nothing to do",
				logger.VM(name), logger.PowerState(string(target)))
			return nil
		}
		return submit(ctx)
	})
	if err != nil {
		return fmt.Errorf("power transition to %s failed: %w", target, err)
	}

	err = retry.Do(ctx, confirmPolicy, func(ctx context.Context) error {
		current, err := state(ctx)
		if err != nil {
			return err
		}
		if current != target {
			log.Warn("Power state not yet propagated",
				logger.VM(name), logger.PowerState(string(current)))
			return fmt.Errorf("power state is %s, expected %s", current, target)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("power state %s not confirmed: %w", target, err)
	}

	log.Info("Power state confirmed", logger.VM(name), logger.PowerState(string(target)))
	return nil
}

func (v *VM) powerState(ctx context.Context) (types.VirtualMachinePowerState, error) {
	return v.obj.PowerState(ctx)
}

func (v *VM) properties(ctx context.Context, props ...string) (mo.VirtualMachine, error) {
	var mvm mo.VirtualMachine
	if err := v.obj.Properties(ctx, v.obj.Reference(), props, &mvm); err != nil {
		return mvm, fmt.Errorf("failed to get VM properties: %w", err)
	}
	return mvm, nil
}

func (v *VM) devices(ctx context.Context) ([]types.BaseVirtualDevice, error) {
	mvm, err := v.properties(ctx, "config.hardware.device")
	if err != nil {
		return nil, err
	}
	if mvm.Config == nil {
		return nil, fmt.Errorf("VM %q has no config", v.Name())
	}
	return mvm.Config.Hardware.Device, nil
}

// reconfigure submits one reconfiguration change-set and waits for the
// task. No retry: reconfiguration failures surface directly.
func (v *VM) reconfigure(ctx context.Context, spec types.VirtualMachineConfigSpec) error {
	task, err := v.obj.Reconfigure(ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to submit reconfiguration: %w", err)
	}
	if err := task.Wait(ctx); err != nil {
		return fmt.Errorf("reconfiguration task failed: %w", err)
	}
	return nil
}

// CreateSpec describes a VM to create from scratch.
type CreateSpec struct {
	Name       string
	Datastore  *Datastore
	Annotation string
	MemoryMB   int64
	GuestID    string
	NumCPUs    int32
}

// VMManager lists, creates and deletes virtual machines.
type VMManager struct {
	c *Client
}

// List returns all VMs matching the predicate. A nil predicate matches
// everything.
func (m *VMManager) List(ctx context.Context, p query.Predicate[*VM]) ([]*VM, error) {
	objs, err := m.c.finder.VirtualMachineList(ctx, "*")
	if err != nil {
		var nf *find.NotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list virtual machines: %w", err)
	}

	vms := make([]*VM, 0, len(objs))
	for _, obj := range objs {
		vms = append(vms, &VM{c: m.c, obj: obj})
	}
	return query.Filter(vms, p), nil
}

// Get returns the first VM matching the predicate.
func (m *VMManager) Get(ctx context.Context, p query.Predicate[*VM]) (*VM, error) {
	vms, err := m.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	vm, ok := query.First(vms, p)
	if !ok {
		return nil, fmt.Errorf("virtual machine: %w", ErrNotFound)
	}
	return vm, nil
}

// Create builds a new VM on the given datastore. The returned handle is
// re-resolved from inventory so it carries the VM's path and name.
func (m *VMManager) Create(ctx context.Context, spec CreateSpec) (*VM, error) {
	if spec.Datastore == nil {
		return nil, fmt.Errorf("datastore: %w", ErrNotFound)
	}

	pool, err := m.c.resourcePool(ctx)
	if err != nil {
		return nil, err
	}
	folder, err := m.c.vmFolder(ctx)
	if err != nil {
		return nil, err
	}
	host, err := m.c.hostSystem(ctx)
	if err != nil {
		return nil, err
	}

	configSpec := types.VirtualMachineConfigSpec{
		Name:       spec.Name,
		Annotation: spec.Annotation,
		MemoryMB:   spec.MemoryMB,
		GuestId:    spec.GuestID,
		NumCPUs:    spec.NumCPUs,
		Files: &types.VirtualMachineFileInfo{
			VmPathName: fmt.Sprintf("[%s]", spec.Datastore.Name()),
		},
	}

	m.c.logger.Info("Creating VM", logger.VM(spec.Name), logger.Datastore(spec.Datastore.Name()))

	task, err := folder.CreateVM(ctx, configSpec, pool, host)
	if err != nil {
		return nil, fmt.Errorf("failed to submit VM creation: %w", err)
	}
	info, err := task.WaitForResult(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("VM creation task failed: %w", err)
	}

	ref, ok := info.Result.(types.ManagedObjectReference)
	if !ok {
		return nil, fmt.Errorf("unexpected VM creation result %T", info.Result)
	}

	created, err := m.Get(ctx, refIs(ref))
	if err != nil {
		return nil, fmt.Errorf("VM created but not visible: %w", err)
	}
	return created, nil
}

// refIs matches a VM by managed object reference. Used to re-resolve
// freshly created VMs through the finder, whose handles carry the
// inventory path a bare reference lacks.
func refIs(ref types.ManagedObjectReference) query.Predicate[*VM] {
	return func(vm *VM) bool { return vm.Reference() == ref }
}

// Delete powers the VM off if needed and destroys it.
func (m *VMManager) Delete(ctx context.Context, vm *VM) error {
	state, err := vm.powerState(ctx)
	if err != nil {
		return err
	}
	if state != types.VirtualMachinePowerStatePoweredOff {
		if err := vm.PowerOff(ctx); err != nil {
			return err
		}
	}

	m.c.logger.Info("Destroying VM", logger.VM(vm.Name()))

	task, err := vm.obj.Destroy(ctx)
	if err != nil {
		return fmt.Errorf("failed to submit VM destroy: %w", err)
	}
	if err := task.Wait(ctx); err != nil {
		return fmt.Errorf("VM destroy task failed: %w", err)
	}
	return nil
}
