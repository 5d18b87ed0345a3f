package vsphere

import "errors"

// Sentinel errors, one per failure class, so callers can pick targeted
// remediation with errors.Is instead of matching message text.
var (
	// ErrNotFound reports that no entity matched the lookup.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPowerState reports an operation attempted in a power state
	// that does not allow it. Caller error, never retried.
	ErrInvalidPowerState = errors.New("invalid power state for operation")

	// ErrNoSCSIController reports a disk-add against a VM with no SCSI
	// controller. The caller can remediate by adding a controller first.
	ErrNoSCSIController = errors.New("no SCSI controller found")

	// ErrControllerAtCapacity reports that a controller has no free unit
	// left under its device limit.
	ErrControllerAtCapacity = errors.New("controller device limit reached")

	// ErrControllerExists reports a duplicate SCSI controller add.
	ErrControllerExists = errors.New("SCSI controller already present")

	// ErrSnapshotExists reports a snapshot create with a name already used
	// somewhere in the VM's snapshot tree.
	ErrSnapshotExists = errors.New("snapshot name already in use")

	// ErrWrongOwner reports a snapshot operation invoked through a VM that
	// does not own the snapshot. Structural consistency error, distinct
	// from ErrNotFound.
	ErrWrongOwner = errors.New("snapshot belongs to a different VM")

	// ErrLeaseNotReady reports an import lease that never reached the
	// ready state, or entered the error state.
	ErrLeaseNotReady = errors.New("lease did not become ready")
)
