package placement

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"

	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
)

type providerBody struct {
	Name               string `json:"name"`
	UUID               string `json:"uuid,omitempty"`
	ParentProviderUUID string `json:"parent_provider_uuid,omitempty"`
}

func providerPath(providerUUID string, parts ...string) string {
	path := "/resource_providers/" + providerUUID
	for _, part := range parts {
		path += "/" + part
	}
	return path
}

func checkUUID(providerUUID string) error {
	if _, err := uuid.Parse(providerUUID); err != nil {
		return neterrors.Invalid(fmt.Sprintf("'%s' is not a valid resource provider UUID", providerUUID))
	}
	return nil
}

// CreateResourceProvider creates rp. An empty UUID is generated.
func (c *Client) CreateResourceProvider(ctx context.Context, rp ResourceProvider) (*ResourceProvider, error) {
	if rp.Name == "" {
		return nil, neterrors.Invalid("resource provider name is required")
	}
	if rp.UUID == "" {
		rp.UUID = uuid.NewString()
	}
	body := providerBody{Name: rp.Name, UUID: rp.UUID, ParentProviderUUID: rp.ParentProviderUUID}

	var created ResourceProvider
	if _, err := c.do(ctx, http.MethodPost, "/resource_providers", nil, body, &created); err != nil {
		return nil, err
	}
	if created.UUID == "" {
		// Microversions before 1.20 answer 201 with no body.
		return c.GetResourceProvider(ctx, rp.UUID)
	}
	return &created, nil
}

// GetResourceProvider fetches one provider.
func (c *Client) GetResourceProvider(ctx context.Context, providerUUID string) (*ResourceProvider, error) {
	if err := checkUUID(providerUUID); err != nil {
		return nil, err
	}
	var rp ResourceProvider
	if _, err := c.do(ctx, http.MethodGet, providerPath(providerUUID), nil, nil, &rp); err != nil {
		return nil, err
	}
	return &rp, nil
}

// ListResourceProviders returns the providers matching filter.
func (c *Client) ListResourceProviders(ctx context.Context, filter ProviderFilter) ([]ResourceProvider, error) {
	var out struct {
		ResourceProviders []ResourceProvider `json:"resource_providers"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/resource_providers", filter.query(), nil, &out); err != nil {
		return nil, err
	}
	return out.ResourceProviders, nil
}

func (f ProviderFilter) query() url.Values {
	q := url.Values{}
	if f.Name != "" {
		q.Set("name", f.Name)
	}
	if f.UUID != "" {
		q.Set("uuid", f.UUID)
	}
	if f.InTree != "" {
		q.Set("in_tree", f.InTree)
	}
	switch len(f.MemberOf) {
	case 0:
	case 1:
		q.Set("member_of", f.MemberOf[0])
	default:
		q.Set("member_of", "in:"+strings.Join(f.MemberOf, ","))
	}
	if len(f.Resources) > 0 {
		classes := make([]string, 0, len(f.Resources))
		for class := range f.Resources {
			classes = append(classes, class)
		}
		sort.Strings(classes)
		pairs := make([]string, 0, len(classes))
		for _, class := range classes {
			pairs = append(pairs, fmt.Sprintf("%s:%d", class, f.Resources[class]))
		}
		q.Set("resources", strings.Join(pairs, ","))
	}
	if len(f.Required) > 0 {
		q.Set("required", strings.Join(f.Required, ","))
	}
	return q
}

// UpdateResourceProvider renames or reparents the provider rp.UUID.
func (c *Client) UpdateResourceProvider(ctx context.Context, rp ResourceProvider) (*ResourceProvider, error) {
	if err := checkUUID(rp.UUID); err != nil {
		return nil, err
	}
	body := providerBody{Name: rp.Name, ParentProviderUUID: rp.ParentProviderUUID}
	var updated ResourceProvider
	if _, err := c.do(ctx, http.MethodPut, providerPath(rp.UUID), nil, body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteResourceProvider deletes a provider. A missing provider is not an error.
func (c *Client) DeleteResourceProvider(ctx context.Context, providerUUID string) error {
	if err := checkUUID(providerUUID); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodDelete, providerPath(providerUUID), nil, nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// EnsureResourceProvider returns the provider rp.UUID, creating it when it
// does not exist yet.
func (c *Client) EnsureResourceProvider(ctx context.Context, rp ResourceProvider) (*ResourceProvider, error) {
	if rp.UUID != "" {
		existing, err := c.GetResourceProvider(ctx, rp.UUID)
		if err == nil {
			return existing, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	created, err := c.CreateResourceProvider(ctx, rp)
	if err != nil && rp.UUID != "" && errors.Is(err, neterrors.ErrConflict) {
		// Lost a creation race.
		return c.GetResourceProvider(ctx, rp.UUID)
	}
	return created, err
}

// ListAggregates returns the aggregates of a provider.
func (c *Client) ListAggregates(ctx context.Context, providerUUID string) (*Aggregates, error) {
	if err := checkUUID(providerUUID); err != nil {
		return nil, err
	}
	var out Aggregates
	if _, err := c.do(ctx, http.MethodGet, providerPath(providerUUID, "aggregates"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssociateAggregates replaces the aggregates of a provider. The provider
// generation is fetched and conflicts are retried.
func (c *Client) AssociateAggregates(ctx context.Context, providerUUID string, aggregates []string) (*Aggregates, error) {
	var out *Aggregates
	err := c.retryConflicts(ctx, "associate aggregates", func() error {
		current, err := c.ListAggregates(ctx, providerUUID)
		if err != nil {
			return err
		}
		body := Aggregates{Generation: current.Generation, Aggregates: nonNil(aggregates)}
		var updated Aggregates
		if _, err := c.do(ctx, http.MethodPut, providerPath(providerUUID, "aggregates"), nil, body, &updated); err != nil {
			return err
		}
		out = &updated
		return nil
	})
	return out, err
}

// ProviderUsages returns the consumed resources of a provider.
func (c *Client) ProviderUsages(ctx context.Context, providerUUID string) (*Usages, error) {
	if err := checkUUID(providerUUID); err != nil {
		return nil, err
	}
	var out Usages
	if _, err := c.do(ctx, http.MethodGet, providerPath(providerUUID, "usages"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
