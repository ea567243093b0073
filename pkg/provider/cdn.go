package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultCDNURL is the CDN API root.
const DefaultCDNURL = "https://api.fastly.com"

// CDNAuthority names the CDN in logs, spans and metrics.
const CDNAuthority = "cdn"

// EdgeSecurityDictionary is the dictionary the edge deployment installs on the service.
const EdgeSecurityDictionary = "Edge_Security"

// EdgeSecurityProduct is the CDN product identifier of the next-gen WAF.
const EdgeSecurityProduct = "ngwaf"

// CDNClient talks to the CDN management API.
type CDNClient struct {
	*Client
}

// NewCDNClient creates a client authenticated with an API key.
func NewCDNClient(key string, opts ...Option) *CDNClient {
	headers := http.Header{}
	headers.Set("Fastly-Key", key)
	return &CDNClient{
		Client: newClient(CDNAuthority, DefaultCDNURL, headers, opts...),
	}
}

func servicePath(serviceID string) string {
	return "/service/" + segment(serviceID)
}

// Service is a CDN service summary.
type Service struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	CustomerID    string `json:"customer_id"`
	ActiveVersion int    `json:"version"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	DeletedAt     string `json:"deleted_at,omitempty"`
}

// ListServicesInput pages through the service list.
type ListServicesInput struct {
	Direction string
	Page      int
	PerPage   int
	Sort      string
}

// ListServices lists the services visible to the key.
func (c *CDNClient) ListServices(ctx context.Context, in ListServicesInput) ([]Service, error) {
	if in.Direction == "" {
		in.Direction = "ascend"
	}
	if in.Page == 0 {
		in.Page = 1
	}
	if in.PerPage == 0 {
		in.PerPage = 20
	}
	if in.Sort == "" {
		in.Sort = "created"
	}
	q := url.Values{}
	q.Set("direction", in.Direction)
	q.Set("page", strconv.Itoa(in.Page))
	q.Set("per_page", strconv.Itoa(in.PerPage))
	q.Set("sort", in.Sort)

	resp, err := c.do(ctx, request{
		operation: "list_services",
		method:    http.MethodGet,
		path:      "/service",
		query:     q,
	})
	if err != nil {
		return nil, err
	}
	var out []Service
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// ServiceDetails is the detailed view of one service.
type ServiceDetails struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	CustomerID    string `json:"customer_id"`
	ActiveVersion *struct {
		Number int  `json:"number"`
		Active bool `json:"active"`
	} `json:"active_version"`
}

// ServiceDetails fetches a service by ID.
func (c *CDNClient) ServiceDetails(ctx context.Context, serviceID string) (*ServiceDetails, error) {
	resp, err := c.do(ctx, request{
		operation: "service_details",
		method:    http.MethodGet,
		path:      servicePath(serviceID) + "/details",
	})
	if err != nil {
		return nil, err
	}
	var out ServiceDetails
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Version is one configuration version of a service.
type Version struct {
	Number int  `json:"number"`
	Active bool `json:"active"`
	Locked bool `json:"locked"`
}

// LatestVersion returns the highest version number of the service.
// The API lists versions in ascending order.
func (c *CDNClient) LatestVersion(ctx context.Context, serviceID string) (int, error) {
	resp, err := c.do(ctx, request{
		operation: "list_versions",
		method:    http.MethodGet,
		path:      servicePath(serviceID) + "/version",
	})
	if err != nil {
		return 0, err
	}
	var versions []Version
	if err := resp.DecodeJSON(&versions); err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, fmt.Errorf("service %s has no versions", serviceID)
	}
	return versions[len(versions)-1].Number, nil
}

// Dictionary is an edge dictionary attached to a service version.
type Dictionary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ServiceID string `json:"service_id"`
	Version   int    `json:"version"`
	WriteOnly bool   `json:"write_only"`
}

// GetDictionary fetches a dictionary by name from a service version.
func (c *CDNClient) GetDictionary(ctx context.Context, serviceID string, version int, name string) (*Dictionary, error) {
	resp, err := c.do(ctx, request{
		operation: "get_dictionary",
		method:    http.MethodGet,
		path:      servicePath(serviceID) + "/version/" + strconv.Itoa(version) + "/dictionary/" + segment(name),
	})
	if err != nil {
		return nil, err
	}
	var out Dictionary
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DictionaryItem is one key/value entry of a dictionary.
type DictionaryItem struct {
	DictionaryID string `json:"dictionary_id"`
	ServiceID    string `json:"service_id"`
	Key          string `json:"item_key"`
	Value        string `json:"item_value"`
}

// UpdateDictionaryItem upserts an item. Dictionary items are versionless,
// so the change is live without activating a new service version.
func (c *CDNClient) UpdateDictionaryItem(ctx context.Context, serviceID, dictionaryID, key, value string) (*DictionaryItem, error) {
	form := url.Values{}
	form.Set("item_value", value)

	resp, err := c.do(ctx, request{
		operation:   "update_dictionary_item",
		method:      http.MethodPut,
		path:        servicePath(serviceID) + "/dictionary/" + segment(dictionaryID) + "/item/" + segment(key),
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	})
	if err != nil {
		return nil, err
	}
	var out DictionaryItem
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductStatus reports whether a product is enabled on a service.
// A 404 from the API means the product is not enabled.
func (c *CDNClient) ProductStatus(ctx context.Context, product, serviceID string) (bool, error) {
	_, err := c.do(ctx, request{
		operation: "product_status",
		method:    http.MethodGet,
		path:      "/enabled-products/" + segment(product) + "/services/" + segment(serviceID),
	})
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// EnableProduct enables a product on a service.
func (c *CDNClient) EnableProduct(ctx context.Context, product, serviceID string) (*Response, error) {
	return c.do(ctx, request{
		operation: "enable_product",
		method:    http.MethodPut,
		path:      "/enabled-products/" + segment(product) + "/services/" + segment(serviceID),
	})
}
