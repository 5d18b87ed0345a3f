package vsphere

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/esxctl/esxctl/internal/logger"
	"github.com/esxctl/esxctl/internal/retry"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"
)

// leaseReadyPolicy bounds the wait for a freshly acquired import lease to
// reach the ready state.
var leaseReadyPolicy = retry.Policy{Attempts: 6, Delay: 5 * time.Second}

// ImportOptions describes one OVF appliance import. The appliance's disks
// are pulled by the host directly from URL, so the descriptor's file
// references must be reachable from the host, not just from this client.
type ImportOptions struct {
	Name             string
	URL              string
	Datastore        *Datastore
	NetworkName      string
	DiskProvisioning string
}

// ImportOVF deploys an OVF appliance from a remote descriptor URL: fetch
// the descriptor, translate it into an import spec, acquire an import
// lease, and have the host pull the referenced files itself. The lease is
// completed on success and left to expire on failure, which makes the host
// discard the partial import.
func (m *VMManager) ImportOVF(ctx context.Context, opts ImportOptions) (*VM, error) {
	if opts.Datastore == nil {
		return nil, fmt.Errorf("datastore: %w", ErrNotFound)
	}
	if opts.NetworkName == "" {
		opts.NetworkName = "VM Network"
	}

	ovfURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OVF URL: %w", err)
	}
	if ovfURL.Scheme != "http" && ovfURL.Scheme != "https" {
		return nil, fmt.Errorf("OVF URL scheme must be http or https, got %q", ovfURL.Scheme)
	}

	m.c.logger.Info("Fetching OVF descriptor", logger.URL(opts.URL))
	descriptor, err := fetchDescriptor(ctx, opts.URL)
	if err != nil {
		return nil, err
	}

	specRes, err := m.createImportSpec(ctx, descriptor, opts)
	if err != nil {
		return nil, err
	}

	leaseRef, err := m.acquireLease(ctx, specRes.ImportSpec)
	if err != nil {
		return nil, err
	}
	m.c.logger.Info("Acquired import lease", logger.VM(opts.Name), logger.Lease(leaseRef.Value))

	leaseInfo, err := m.waitForLeaseReady(ctx, leaseRef)
	if err != nil {
		return nil, err
	}

	files, err := sourceFiles(ovfURL, specRes.FileItem)
	if err != nil {
		return nil, err
	}

	m.c.logger.Info("Pulling appliance files", logger.VM(opts.Name), logger.Count(len(files)))
	pullReq := types.HttpNfcLeasePullFromUrls_Task{
		This:  leaseRef,
		Files: files,
	}
	pullRes, err := methods.HttpNfcLeasePullFromUrls_Task(ctx, m.c.vim.Client, &pullReq)
	if err != nil {
		return nil, fmt.Errorf("failed to submit file pull: %w", err)
	}
	task := object.NewTask(m.c.vim.Client, pullRes.Returnval)
	if err := task.Wait(ctx); err != nil {
		return nil, fmt.Errorf("file pull task failed: %w", err)
	}

	completeReq := types.HttpNfcLeaseComplete{This: leaseRef}
	if _, err := methods.HttpNfcLeaseComplete(ctx, m.c.vim.Client, &completeReq); err != nil {
		return nil, fmt.Errorf("failed to complete import lease: %w", err)
	}

	m.c.logger.Info("Appliance imported", logger.VM(opts.Name))

	imported, err := m.Get(ctx, refIs(leaseInfo.Entity))
	if err != nil {
		return nil, fmt.Errorf("appliance imported but not visible: %w", err)
	}
	return imported, nil
}

// fetchDescriptor downloads the OVF descriptor document.
func fetchDescriptor(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build descriptor request: %w", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch OVF descriptor: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch OVF descriptor: status %s", res.Status)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read OVF descriptor: %w", err)
	}
	return string(body), nil
}

// createImportSpec asks the host's OVF manager to translate the descriptor
// into an import spec bound to the target pool, datastore and network.
func (m *VMManager) createImportSpec(ctx context.Context, descriptor string, opts ImportOptions) (*types.OvfCreateImportSpecResult, error) {
	pool, err := m.c.resourcePool(ctx)
	if err != nil {
		return nil, err
	}
	network, err := m.c.finder.Network(ctx, opts.NetworkName)
	if err != nil {
		return nil, fmt.Errorf("failed to get network %q: %w", opts.NetworkName, err)
	}

	ovfManager := m.c.vim.ServiceContent.OvfManager
	if ovfManager == nil {
		return nil, fmt.Errorf("host has no OVF manager")
	}

	req := types.CreateImportSpec{
		This:          *ovfManager,
		OvfDescriptor: descriptor,
		ResourcePool:  pool.Reference(),
		Datastore:     opts.Datastore.obj.Reference(),
		Cisp: types.OvfCreateImportSpecParams{
			EntityName:       opts.Name,
			DiskProvisioning: opts.DiskProvisioning,
			NetworkMapping: []types.OvfNetworkMapping{{
				Name:    opts.NetworkName,
				Network: network.Reference(),
			}},
		},
	}
	res, err := methods.CreateImportSpec(ctx, m.c.vim.Client, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to create import spec: %w", err)
	}
	result := &res.Returnval
	if result == nil {
		return nil, fmt.Errorf("import spec result is empty")
	}
	if len(result.Error) > 0 {
		return nil, fmt.Errorf("import spec rejected: %s", result.Error[0].LocalizedMessage)
	}
	for _, warning := range result.Warning {
		m.c.logger.Warn("Import spec warning", logger.Reason(warning.LocalizedMessage))
	}
	if result.ImportSpec == nil {
		return nil, fmt.Errorf("import spec result carries no spec")
	}
	return result, nil
}

// acquireLease starts the import and returns the HttpNfcLease reference.
func (m *VMManager) acquireLease(ctx context.Context, spec types.BaseImportSpec) (types.ManagedObjectReference, error) {
	var zero types.ManagedObjectReference

	pool, err := m.c.resourcePool(ctx)
	if err != nil {
		return zero, err
	}
	folder, err := m.c.vmFolder(ctx)
	if err != nil {
		return zero, err
	}
	host, err := m.c.hostSystem(ctx)
	if err != nil {
		return zero, err
	}

	folderRef := folder.Reference()
	hostRef := host.Reference()
	req := types.ImportVApp{
		This:   pool.Reference(),
		Spec:   spec,
		Folder: &folderRef,
		Host:   &hostRef,
	}
	res, err := methods.ImportVApp(ctx, m.c.vim.Client, &req)
	if err != nil {
		return zero, fmt.Errorf("failed to start import: %w", err)
	}
	return res.Returnval, nil
}

// waitForLeaseReady polls the lease until it is ready. An errored lease is
// terminal and aborts the poll early.
func (m *VMManager) waitForLeaseReady(ctx context.Context, leaseRef types.ManagedObjectReference) (*types.HttpNfcLeaseInfo, error) {
	collector := property.DefaultCollector(m.c.vim.Client)

	var info *types.HttpNfcLeaseInfo
	err := retry.Do(ctx, leaseReadyPolicy, func(ctx context.Context) error {
		var lease mo.HttpNfcLease
		if err := collector.RetrieveOne(ctx, leaseRef, []string{"state", "info", "error"}, &lease); err != nil {
			return fmt.Errorf("failed to read lease state: %w", err)
		}
		return leaseReady(&lease, &info)
	})
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("lease ready but carries no info")
	}
	return info, nil
}

// leaseReady classifies one lease observation: ready stores the lease info
// and succeeds, the error state fails permanently, anything else is
// retryable.
func leaseReady(lease *mo.HttpNfcLease, info **types.HttpNfcLeaseInfo) error {
	switch lease.State {
	case types.HttpNfcLeaseStateReady:
		*info = lease.Info
		return nil
	case types.HttpNfcLeaseStateError:
		message := "no fault recorded"
		if lease.Error != nil {
			message = lease.Error.LocalizedMessage
		}
		return retry.Permanent(fmt.Errorf("%w: lease errored: %s", ErrLeaseNotReady, message))
	default:
		return fmt.Errorf("%w: lease state is %s", ErrLeaseNotReady, lease.State)
	}
}

// sourceFiles pairs each device in the import spec with the URL the host
// should pull it from, resolved against the descriptor's own URL.
func sourceFiles(ovfURL *url.URL, items []types.OvfFileItem) ([]types.HttpNfcLeaseSourceFile, error) {
	files := make([]types.HttpNfcLeaseSourceFile, 0, len(items))
	for _, item := range items {
		ref, err := url.Parse(item.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse file path %q: %w", item.Path, err)
		}
		files = append(files, types.HttpNfcLeaseSourceFile{
			TargetDeviceId: item.DeviceId,
			Url:            ovfURL.ResolveReference(ref).String(),
			Create:         item.Create,
			Size:           item.Size,
		})
	}
	return files, nil
}
