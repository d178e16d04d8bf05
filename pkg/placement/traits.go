package placement

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
)

// ListTraits returns the known traits. A non-empty names restricts the
// result to those names.
func (c *Client) ListTraits(ctx context.Context, names ...string) ([]string, error) {
	var query url.Values
	if len(names) > 0 {
		query = url.Values{"name": {"in:" + strings.Join(names, ",")}}
	}
	var out struct {
		Traits []string `json:"traits"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/traits", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Traits, nil
}

// EnsureTrait creates a custom trait if it does not exist.
func (c *Client) EnsureTrait(ctx context.Context, name string) error {
	if !strings.HasPrefix(name, "CUSTOM_") {
		return neterrors.Invalid("custom trait names must start with CUSTOM_: " + name)
	}
	_, err := c.do(ctx, http.MethodPut, "/traits/"+name, nil, nil, nil)
	return err
}

// DeleteTrait deletes a custom trait.
func (c *Client) DeleteTrait(ctx context.Context, name string) error {
	_, err := c.do(ctx, http.MethodDelete, "/traits/"+name, nil, nil, nil)
	return err
}

// ListProviderTraits returns the traits of a provider.
func (c *Client) ListProviderTraits(ctx context.Context, providerUUID string) (*Traits, error) {
	if err := checkUUID(providerUUID); err != nil {
		return nil, err
	}
	var out Traits
	if _, err := c.do(ctx, http.MethodGet, providerPath(providerUUID, "traits"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProviderTraits replaces the traits of a provider. A zero generation
// is fetched first, and generation conflicts are then retried.
func (c *Client) UpdateProviderTraits(ctx context.Context, providerUUID string, traits []string, generation int) (*Traits, error) {
	if err := checkUUID(providerUUID); err != nil {
		return nil, err
	}
	put := func(gen int) (*Traits, error) {
		var out Traits
		body := Traits{Generation: gen, Traits: nonNil(traits)}
		if _, err := c.do(ctx, http.MethodPut, providerPath(providerUUID, "traits"), nil, body, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	if generation != 0 {
		return put(generation)
	}

	var out *Traits
	err := c.retryConflicts(ctx, "update provider traits", func() error {
		current, err := c.ListProviderTraits(ctx, providerUUID)
		if err != nil {
			return err
		}
		out, err = put(current.Generation)
		return err
	})
	return out, err
}

// DeleteProviderTraits removes every trait of a provider.
func (c *Client) DeleteProviderTraits(ctx context.Context, providerUUID string) error {
	if err := checkUUID(providerUUID); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodDelete, providerPath(providerUUID, "traits"), nil, nil, nil)
	return err
}

// ListResourceClasses returns every resource class.
func (c *Client) ListResourceClasses(ctx context.Context) ([]ResourceClass, error) {
	var out struct {
		ResourceClasses []ResourceClass `json:"resource_classes"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/resource_classes", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.ResourceClasses, nil
}

// EnsureResourceClass creates a custom resource class if it does not exist.
func (c *Client) EnsureResourceClass(ctx context.Context, name string) error {
	if !strings.HasPrefix(name, "CUSTOM_") {
		return neterrors.Invalid("custom resource class names must start with CUSTOM_: " + name)
	}
	_, err := c.do(ctx, http.MethodPut, "/resource_classes/"+name, nil, nil, nil)
	return err
}

// DeleteResourceClass deletes a custom resource class.
func (c *Client) DeleteResourceClass(ctx context.Context, name string) error {
	_, err := c.do(ctx, http.MethodDelete, "/resource_classes/"+name, nil, nil, nil)
	return err
}
