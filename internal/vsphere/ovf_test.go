package vsphere

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"
)

// --- source file resolution tests ---

func TestSourceFilesResolvesRelativeToDescriptor(t *testing.T) {
	base, err := url.Parse("http://mirror.example.com/images/alpine/alpine.ovf")
	require.NoError(t, err)

	files, err := sourceFiles(base, []types.OvfFileItem{
		{DeviceId: "/disk/0", Path: "alpine-disk1.vmdk", Size: 1 << 30, Create: false},
		{DeviceId: "/disk/1", Path: "extra/data.vmdk", Size: 512, Create: true},
	})

	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "/disk/0", files[0].TargetDeviceId)
	assert.Equal(t, "http://mirror.example.com/images/alpine/alpine-disk1.vmdk", files[0].Url)
	assert.Equal(t, int64(1<<30), files[0].Size)
	assert.False(t, files[0].Create)

	assert.Equal(t, "http://mirror.example.com/images/alpine/extra/data.vmdk", files[1].Url)
	assert.True(t, files[1].Create)
}

func TestSourceFilesKeepsAbsoluteURLs(t *testing.T) {
	base, err := url.Parse("http://mirror.example.com/images/alpine.ovf")
	require.NoError(t, err)

	files, err := sourceFiles(base, []types.OvfFileItem{
		{DeviceId: "/disk/0", Path: "http://cdn.example.com/alpine-disk1.vmdk"},
	})

	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "http://cdn.example.com/alpine-disk1.vmdk", files[0].Url)
}

func TestSourceFilesEmptySpec(t *testing.T) {
	base, err := url.Parse("http://mirror.example.com/alpine.ovf")
	require.NoError(t, err)

	files, err := sourceFiles(base, nil)

	require.NoError(t, err)
	assert.Empty(t, files)
}

// --- lease state classification tests ---

func TestLeaseReadyStoresInfo(t *testing.T) {
	var info *types.HttpNfcLeaseInfo
	lease := &mo.HttpNfcLease{
		State: types.HttpNfcLeaseStateReady,
		Info: &types.HttpNfcLeaseInfo{
			Entity: types.ManagedObjectReference{Type: "VirtualMachine", Value: "vm-42"},
		},
	}

	err := leaseReady(lease, &info)

	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "vm-42", info.Entity.Value)
}

func TestLeaseReadyPendingIsRetryable(t *testing.T) {
	var info *types.HttpNfcLeaseInfo
	lease := &mo.HttpNfcLease{State: types.HttpNfcLeaseStateInitializing}

	err := leaseReady(lease, &info)

	assert.ErrorIs(t, err, ErrLeaseNotReady)
	assert.Nil(t, info)
}

func TestLeaseReadyErrorStateIsTerminal(t *testing.T) {
	var info *types.HttpNfcLeaseInfo
	lease := &mo.HttpNfcLease{
		State: types.HttpNfcLeaseStateError,
		Error: &types.LocalizedMethodFault{LocalizedMessage: "insufficient disk space"},
	}

	err := leaseReady(lease, &info)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLeaseNotReady)
	assert.ErrorContains(t, err, "insufficient disk space")
}
