package provider

import (
	"context"
	"net/http"
)

// DefaultSecurityURL is the security authority API root.
const DefaultSecurityURL = "https://dashboard.signalsciences.net/api/v0"

// SecurityAuthority names the security authority in logs, spans and metrics.
const SecurityAuthority = "security"

// SecurityClient talks to the WAF management API.
type SecurityClient struct {
	*Client
	cdnKey string
}

// NewSecurityClient creates a client authenticated as email with token.
// cdnKey is forwarded on the calls that make the authority act on the CDN.
func NewSecurityClient(email, token, cdnKey string, opts ...Option) *SecurityClient {
	headers := http.Header{}
	headers.Set("x-api-user", email)
	headers.Set("x-api-token", token)
	return &SecurityClient{
		Client: newClient(SecurityAuthority, DefaultSecurityURL, headers, opts...),
		cdnKey: cdnKey,
	}
}

func (c *SecurityClient) cdnHeader() http.Header {
	h := http.Header{}
	h.Set("Fastly-Key", c.cdnKey)
	return h
}

func edgeDeploymentPath(corp, site string) string {
	return "/corps/" + segment(corp) + "/sites/" + segment(site) + "/edgeDeployment"
}

// Corp is a corporation visible to the authenticated user.
type Corp struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// ListCorps returns every corp the credentials can access.
func (c *SecurityClient) ListCorps(ctx context.Context) ([]Corp, error) {
	resp, err := c.do(ctx, request{
		operation: "list_corps",
		method:    http.MethodGet,
		path:      "/corps",
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []Corp `json:"data"`
	}
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateEdgeDeployment creates the edge deployment container for a site.
func (c *SecurityClient) CreateEdgeDeployment(ctx context.Context, corp, site string) (*Response, error) {
	return c.do(ctx, request{
		operation: "create_edge_deployment",
		method:    http.MethodPut,
		path:      edgeDeploymentPath(corp, site),
	})
}

// GetEdgeDeployment returns the edge deployment of a site.
func (c *SecurityClient) GetEdgeDeployment(ctx context.Context, corp, site string) (*Response, error) {
	return c.do(ctx, request{
		operation: "get_edge_deployment",
		method:    http.MethodGet,
		path:      edgeDeploymentPath(corp, site),
	})
}

// BindOptions tunes the service binding. Nil fields are left to the authority.
type BindOptions struct {
	ActivateVersion *bool `json:"activateVersion,omitempty"`
	PercentEnabled  *int  `json:"percentEnabled,omitempty"`
}

func (o BindOptions) empty() bool {
	return o.ActivateVersion == nil && o.PercentEnabled == nil
}

// BindService maps the site's edge deployment to a CDN service.
//
// This is the call that fails until provisioning of the edge deployment
// completes; callers are expected to retry it.
func (c *SecurityClient) BindService(ctx context.Context, corp, site, serviceID string, opts BindOptions) (*Response, error) {
	req := request{
		operation: "bind_service",
		method:    http.MethodPut,
		path:      edgeDeploymentPath(corp, site) + "/" + segment(serviceID),
		header:    c.cdnHeader(),
	}
	if !opts.empty() {
		body, err := jsonBody(opts)
		if err != nil {
			return nil, err
		}
		req.body = body
	}
	return c.do(ctx, req)
}

// ResyncBackends refreshes the origins of an already bound service.
func (c *SecurityClient) ResyncBackends(ctx context.Context, corp, site, serviceID string) (*Response, error) {
	return c.do(ctx, request{
		operation: "resync_backends",
		method:    http.MethodPut,
		path:      edgeDeploymentPath(corp, site) + "/" + segment(serviceID) + "/backends",
		header:    c.cdnHeader(),
	})
}

// DetachService removes the delivery integration between site and service.
func (c *SecurityClient) DetachService(ctx context.Context, corp, site, serviceID string) (*Response, error) {
	return c.do(ctx, request{
		operation: "detach_service",
		method:    http.MethodDelete,
		path:      "/corps/" + segment(corp) + "/sites/" + segment(site) + "/deliveryIntegration/" + segment(serviceID),
		header:    c.cdnHeader(),
	})
}

// RemoveEdgeDeployment deletes the site's edge deployment.
func (c *SecurityClient) RemoveEdgeDeployment(ctx context.Context, corp, site string) (*Response, error) {
	return c.do(ctx, request{
		operation: "remove_edge_deployment",
		method:    http.MethodDelete,
		path:      edgeDeploymentPath(corp, site),
		header:    c.cdnHeader(),
	})
}
