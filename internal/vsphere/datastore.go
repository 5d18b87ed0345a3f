package vsphere

import (
	"context"
	"errors"
	"fmt"

	"github.com/esxctl/esxctl/internal/models"
	"github.com/esxctl/esxctl/internal/query"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/mo"
)

// Datastore wraps one datastore managed object.
type Datastore struct {
	c   *Client
	obj *object.Datastore
}

// Name returns the datastore's display name.
func (d *Datastore) Name() string {
	return d.obj.Name()
}

// Info retrieves the presentation view of the datastore.
func (d *Datastore) Info(ctx context.Context) (*models.DatastoreInfo, error) {
	var mds mo.Datastore
	if err := d.obj.Properties(ctx, d.obj.Reference(), []string{"summary"}, &mds); err != nil {
		return nil, fmt.Errorf("failed to get datastore properties: %w", err)
	}
	return &models.DatastoreInfo{
		Name:       mds.Summary.Name,
		Type:       mds.Summary.Type,
		CapacityGB: mds.Summary.Capacity / (1024 * 1024 * 1024),
		FreeGB:     mds.Summary.FreeSpace / (1024 * 1024 * 1024),
	}, nil
}

// DatastoreManager lists the host's datastores.
type DatastoreManager struct {
	c *Client
}

// List returns all datastores matching the predicate.
func (m *DatastoreManager) List(ctx context.Context, p query.Predicate[*Datastore]) ([]*Datastore, error) {
	objs, err := m.c.finder.DatastoreList(ctx, "*")
	if err != nil {
		var nf *find.NotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list datastores: %w", err)
	}

	stores := make([]*Datastore, 0, len(objs))
	for _, obj := range objs {
		stores = append(stores, &Datastore{c: m.c, obj: obj})
	}
	return query.Filter(stores, p), nil
}

// Get returns the first datastore matching the predicate.
func (m *DatastoreManager) Get(ctx context.Context, p query.Predicate[*Datastore]) (*Datastore, error) {
	stores, err := m.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	store, ok := query.First(stores, p)
	if !ok {
		return nil, fmt.Errorf("datastore: %w", ErrNotFound)
	}
	return store, nil
}
