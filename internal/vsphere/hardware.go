package vsphere

import (
	"context"
	"fmt"

	"github.com/esxctl/esxctl/internal/logger"
	"github.com/vmware/govmomi/vim25/types"
)

// EditSpec carries the mutable VM settings. Zero values mean "leave
// unchanged"; CPU and memory edits require the VM to be powered off.
type EditSpec struct {
	Name           string
	Annotation     string
	GuestID        string
	MemoryMB       int64
	NumCPUs        int32
	CoresPerSocket int32
}

func (s EditSpec) touchesComputeResources() bool {
	return s.MemoryMB != 0 || s.NumCPUs != 0 || s.CoresPerSocket != 0
}

// Edit applies the spec through one reconfiguration task.
func (v *VM) Edit(ctx context.Context, spec EditSpec) error {
	if spec.touchesComputeResources() {
		if err := v.requirePoweredOff(ctx); err != nil {
			return err
		}
	}

	configSpec := types.VirtualMachineConfigSpec{
		Name:              spec.Name,
		Annotation:        spec.Annotation,
		GuestId:           spec.GuestID,
		MemoryMB:          spec.MemoryMB,
		NumCPUs:           spec.NumCPUs,
		NumCoresPerSocket: spec.CoresPerSocket,
	}

	v.c.logger.Info("Reconfiguring VM", logger.VM(v.Name()))

	return v.reconfigure(ctx, configSpec)
}

// requirePoweredOff rejects compute-resource edits on a running or
// suspended VM. Caller error, not retried.
func (v *VM) requirePoweredOff(ctx context.Context) error {
	state, err := v.powerState(ctx)
	if err != nil {
		return err
	}
	if state != types.VirtualMachinePowerStatePoweredOff {
		return fmt.Errorf("%w: VM %q is %s, power it off first",
			ErrInvalidPowerState, v.Name(), state)
	}
	return nil
}
