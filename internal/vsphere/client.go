package vsphere

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/esxctl/esxctl/internal/config"
	"github.com/esxctl/esxctl/internal/logger"
	"github.com/esxctl/esxctl/internal/models"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/soap"
)

// Client is the connection to a single ESXi host. All managed-object access
// goes through it.
type Client struct {
	vim    *govmomi.Client
	finder *find.Finder
	logger *logger.Logger
}

// Connect authenticates against the host named in cfg and prepares a finder
// scoped to its default datacenter.
func Connect(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.NewWithWriter(io.Discard)
	}
	u, err := soap.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	u.User = url.UserPassword(cfg.Username, cfg.Password)

	client, err := govmomi.NewClient(ctx, u, cfg.Insecure)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	finder := find.NewFinder(client.Client, true)
	dc, err := finder.DefaultDatacenter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get datacenter: %w", err)
	}
	finder.SetDatacenter(dc)

	log.Info("Connected to host", logger.URL(u.Host), logger.F("USER", cfg.Username))

	return &Client{
		vim:    client,
		finder: finder,
		logger: log,
	}, nil
}

// Close logs out the session.
func (c *Client) Close(ctx context.Context) error {
	if c.vim == nil {
		return nil
	}
	return c.vim.Logout(ctx)
}

// VMs returns the virtual machine manager.
func (c *Client) VMs() *VMManager {
	return &VMManager{c: c}
}

// Datastores returns the datastore manager.
func (c *Client) Datastores() *DatastoreManager {
	return &DatastoreManager{c: c}
}

// HostInfo summarizes the managed host's identity, CPU and memory.
func (c *Client) HostInfo(ctx context.Context) (*models.HostInfo, error) {
	host, err := c.hostSystem(ctx)
	if err != nil {
		return nil, err
	}

	var mh mo.HostSystem
	if err := host.Properties(ctx, host.Reference(), []string{"summary"}, &mh); err != nil {
		return nil, fmt.Errorf("failed to get host properties: %w", err)
	}

	info := &models.HostInfo{
		Name: mh.Summary.Config.Name,
	}
	if mh.Summary.Config.Product != nil {
		info.Product = mh.Summary.Config.Product.FullName
	}
	if hw := mh.Summary.Hardware; hw != nil {
		info.NumCPUPkgs = hw.NumCpuPkgs
		info.NumCPUCores = hw.NumCpuCores
		info.NumCPUThreads = hw.NumCpuThreads
		info.MemoryMB = hw.MemorySize / (1024 * 1024)
	}
	return info, nil
}

func (c *Client) hostSystem(ctx context.Context) (*object.HostSystem, error) {
	host, err := c.finder.DefaultHostSystem(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get host system: %w", err)
	}
	return host, nil
}

func (c *Client) resourcePool(ctx context.Context) (*object.ResourcePool, error) {
	pool, err := c.finder.DefaultResourcePool(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get resource pool: %w", err)
	}
	return pool, nil
}

func (c *Client) vmFolder(ctx context.Context) (*object.Folder, error) {
	dc, err := c.finder.DefaultDatacenter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get datacenter: %w", err)
	}
	folders, err := dc.Folders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get datacenter folders: %w", err)
	}
	return folders.VmFolder, nil
}
