package commands

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esxctl/esxctl/internal/models"
	"github.com/esxctl/esxctl/internal/vsphere"
)

// --- remediation tests ---

func TestRemediationMapsSentinelsToHints(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("disk add: %w", vsphere.ErrNoSCSIController), "esxctl vm controller add"},
		{fmt.Errorf("disk add: %w", vsphere.ErrControllerAtCapacity), "esxctl vm disk remove"},
		{fmt.Errorf("edit: %w", vsphere.ErrInvalidPowerState), "esxctl vm power-off"},
		{fmt.Errorf("%w: bad credentials", errConnection), "esxctl config set"},
	}
	for _, tc := range cases {
		assert.Contains(t, remediation(tc.err), tc.want)
	}

	assert.Empty(t, remediation(fmt.Errorf("something unrelated")))
	assert.Empty(t, remediation(nil))
}

// --- flag validation tests ---

func TestRequireBothOrNeither(t *testing.T) {
	assert.NoError(t, requireBothOrNeither("", ""))
	assert.NoError(t, requireBothOrNeither("name", "vm1"))

	assert.Error(t, requireBothOrNeither("name", ""))
	assert.Error(t, requireBothOrNeither("", "vm1"))
}

func TestVMFieldExtractor(t *testing.T) {
	info := &models.VMInfo{
		Name:       "vm1",
		Path:       "[datastore1] vm1/vm1.vmx",
		PowerState: "poweredOn",
		PrimaryIP:  "10.0.0.5",
		MemoryMB:   128,
		NumCPUs:    1,
	}

	extract, err := vmFieldExtractor("power-state")
	require.NoError(t, err)
	assert.Equal(t, "poweredOn", extract(info))

	extract, err = vmFieldExtractor("memory")
	require.NoError(t, err)
	assert.Equal(t, "128", extract(info))

	extract, err = vmFieldExtractor("")
	require.NoError(t, err)
	assert.Nil(t, extract)

	_, err = vmFieldExtractor("bogus")
	assert.ErrorContains(t, err, `unknown field "bogus"`)
}

func TestMaskSecret(t *testing.T) {
	assert.Empty(t, maskSecret(""))
	assert.Equal(t, "********", maskSecret("hunter2"))
}
