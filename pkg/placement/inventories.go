package placement

import (
	"context"
	"net/http"

	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
)

// ListInventories returns every inventory of a provider.
func (c *Client) ListInventories(ctx context.Context, providerUUID string) (*Inventories, error) {
	if err := checkUUID(providerUUID); err != nil {
		return nil, err
	}
	var out Inventories
	if _, err := c.do(ctx, http.MethodGet, providerPath(providerUUID, "inventories"), nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Inventories == nil {
		out.Inventories = map[string]Inventory{}
	}
	return &out, nil
}

// UpdateInventories replaces every inventory of a provider. A zero
// generation is fetched first, and generation conflicts are then retried;
// a caller supplied generation is sent once.
func (c *Client) UpdateInventories(ctx context.Context, providerUUID string, inv Inventories) (*Inventories, error) {
	if err := checkUUID(providerUUID); err != nil {
		return nil, err
	}
	if inv.Inventories == nil {
		inv.Inventories = map[string]Inventory{}
	}

	put := func(body Inventories) (*Inventories, error) {
		var out Inventories
		if _, err := c.do(ctx, http.MethodPut, providerPath(providerUUID, "inventories"), nil, body, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	if inv.Generation != 0 {
		return put(inv)
	}

	var out *Inventories
	err := c.retryConflicts(ctx, "update inventories", func() error {
		current, err := c.ListInventories(ctx, providerUUID)
		if err != nil {
			return err
		}
		body := inv
		body.Generation = current.Generation
		out, err = put(body)
		return err
	})
	return out, err
}

type inventoryBody struct {
	Generation int `json:"resource_provider_generation"`
	Inventory
}

// UpdateInventory creates or replaces the inventory of one resource class
// at the given provider generation.
func (c *Client) UpdateInventory(ctx context.Context, providerUUID, resourceClass string, generation int, inv Inventory) (*Inventory, int, error) {
	if err := checkUUID(providerUUID); err != nil {
		return nil, 0, err
	}
	if resourceClass == "" {
		return nil, 0, neterrors.Invalid("resource class is required")
	}
	var out inventoryBody
	body := inventoryBody{Generation: generation, Inventory: inv}
	if _, err := c.do(ctx, http.MethodPut, providerPath(providerUUID, "inventories", resourceClass), nil, body, &out); err != nil {
		return nil, 0, err
	}
	return &out.Inventory, out.Generation, nil
}

// DeleteInventory removes the inventory of one resource class.
func (c *Client) DeleteInventory(ctx context.Context, providerUUID, resourceClass string) error {
	if err := checkUUID(providerUUID); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodDelete, providerPath(providerUUID, "inventories", resourceClass), nil, nil, nil)
	return err
}

// DeleteInventories removes every inventory of a provider.
func (c *Client) DeleteInventories(ctx context.Context, providerUUID string) error {
	if err := checkUUID(providerUUID); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodDelete, providerPath(providerUUID, "inventories"), nil, nil, nil)
	return err
}
