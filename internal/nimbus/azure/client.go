// Package azure provides the HTTP client for the cloud resource-management
// API. Every call authenticates with an OAuth client-credentials exchange
// built from the caller's credential triple; no token is cached between
// calls, so a revoked credential fails on the very next operation.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultLoginBase      = "https://login.windows.net"
	defaultManagementBase = "https://management.azure.com"
	defaultLocation       = "westus"
	defaultTimeout        = 30 * time.Second

	groupsAPIVersion = "2018-02-01"
	sitesAPIVersion  = "2016-08-01"
	vmAPIVersion     = "2017-12-01"
)

// Credentials is the triple required by every management call.
type Credentials struct {
	SubscriptionID string
	ApplicationID  string
	SecretKey      string
}

// Complete reports whether all three credential fields are present.
func (c Credentials) Complete() bool {
	return c.SubscriptionID != "" && c.ApplicationID != "" && c.SecretKey != ""
}

// Client is the resource-management surface Nimbus orchestrates.
// Implementations must be safe for concurrent use.
type Client interface {
	// ListResourceGroups returns all resource groups in the subscription.
	ListResourceGroups(ctx context.Context, creds Credentials) ([]ResourceGroup, error)

	// ListResources returns all resources in the subscription.
	ListResources(ctx context.Context, creds Credentials) ([]Resource, error)

	// StartStopResource starts or stops a web app. Operation must be
	// "start" or "stop". Returns false (no error) when the API answers with a
	// non-success status.
	StartStopResource(ctx context.Context, creds Credentials, resourceGroup, resourceName, operation string) (bool, error)

	// StartDeallocateVM starts or deallocates a virtual machine. Operation
	// must be "start" or "deallocate".
	StartDeallocateVM(ctx context.Context, creds Credentials, resourceGroup, resourceName, operation string) (bool, error)

	// CreateWebApp provisions a new web app in the given resource group.
	CreateWebApp(ctx context.Context, creds Credentials, resourceGroup, resourceName string) (bool, error)
}

// Config configures the REST client.
type Config struct {
	// TenantID is the directory tenant used for the token exchange.
	TenantID string

	// LoginBase overrides the identity endpoint. Defaults to
	// https://login.windows.net when empty.
	LoginBase string

	// ManagementBase overrides the management API endpoint. Defaults to
	// https://management.azure.com when empty.
	ManagementBase string

	// Location is the region new web apps are created in. Defaults to westus.
	Location string

	// Timeout is the per-request HTTP timeout. Defaults to 30 s.
	Timeout time.Duration
}

// restClient implements Client against the management REST API.
type restClient struct {
	cfg    Config
	client *http.Client
}

// New returns a Client backed by the management REST API.
func New(cfg Config) Client {
	if cfg.LoginBase == "" {
		cfg.LoginBase = defaultLoginBase
	}
	if cfg.ManagementBase == "" {
		cfg.ManagementBase = defaultManagementBase
	}
	if cfg.Location == "" {
		cfg.Location = defaultLocation
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &restClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// tokenResponse is the relevant subset of the OAuth token endpoint reply.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// accessToken performs one client-credentials exchange for the management
// resource.
func (c *restClient) accessToken(ctx context.Context, creds Credentials) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", creds.ApplicationID)
	form.Set("client_secret", creds.SecretKey)
	form.Set("resource", c.cfg.ManagementBase+"/")

	endpoint := fmt.Sprintf("%s/%s/oauth2/token", c.cfg.LoginBase, c.cfg.TenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("azure: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("azure: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("azure: read token response: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("azure: decode token response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || tok.AccessToken == "" {
		if tok.Error != "" {
			return "", fmt.Errorf("azure: token exchange failed (%s): %s", tok.Error, tok.ErrorDesc)
		}
		return "", fmt.Errorf("azure: token exchange failed (HTTP %d)", resp.StatusCode)
	}
	return tok.AccessToken, nil
}

// execute performs one authenticated management call against the subscription
// path. It returns the raw body and whether the status was OK or Accepted.
func (c *restClient) execute(ctx context.Context, creds Credentials, method, resource string, body any) ([]byte, bool, error) {
	token, err := c.accessToken(ctx, creds)
	if err != nil {
		return nil, false, err
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, false, fmt.Errorf("azure: marshal request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	endpoint := fmt.Sprintf("%s/subscriptions/%s/%s", c.cfg.ManagementBase, creds.SubscriptionID, resource)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return nil, false, fmt.Errorf("azure: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("azure: %s %s: %w", method, resource, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("azure: read response body: %w", err)
	}

	ok := resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted
	return raw, ok, nil
}

// valueEnvelope is the {"value": [...]} wrapper the list endpoints use.
type valueEnvelope struct {
	Value json.RawMessage `json:"value"`
}

// ListResourceGroups implements Client.
func (c *restClient) ListResourceGroups(ctx context.Context, creds Credentials) ([]ResourceGroup, error) {
	raw, ok, err := c.execute(ctx, creds, http.MethodGet,
		"resourcegroups?api-version="+groupsAPIVersion, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("azure: list resource groups: non-success status")
	}

	var envelope valueEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("azure: decode resource groups: %w", err)
	}
	var groups []ResourceGroup
	if err := json.Unmarshal(envelope.Value, &groups); err != nil {
		return nil, fmt.Errorf("azure: decode resource groups value: %w", err)
	}
	return groups, nil
}

// ListResources implements Client.
func (c *restClient) ListResources(ctx context.Context, creds Credentials) ([]Resource, error) {
	raw, ok, err := c.execute(ctx, creds, http.MethodGet,
		"resources?api-version="+groupsAPIVersion, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("azure: list resources: non-success status")
	}

	var envelope valueEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("azure: decode resources: %w", err)
	}
	var resources []Resource
	if err := json.Unmarshal(envelope.Value, &resources); err != nil {
		return nil, fmt.Errorf("azure: decode resources value: %w", err)
	}
	return resources, nil
}

// StartStopResource implements Client.
func (c *restClient) StartStopResource(ctx context.Context, creds Credentials, resourceGroup, resourceName, operation string) (bool, error) {
	if operation != "start" && operation != "stop" {
		return false, fmt.Errorf("azure: invalid site operation %q", operation)
	}
	resource := fmt.Sprintf("resourceGroups/%s/providers/Microsoft.Web/sites/%s/%s?api-version=%s",
		resourceGroup, resourceName, operation, sitesAPIVersion)
	_, ok, err := c.execute(ctx, creds, http.MethodPost, resource, nil)
	return ok, err
}

// StartDeallocateVM implements Client.
func (c *restClient) StartDeallocateVM(ctx context.Context, creds Credentials, resourceGroup, resourceName, operation string) (bool, error) {
	if operation != "start" && operation != "deallocate" {
		return false, fmt.Errorf("azure: invalid vm operation %q", operation)
	}
	resource := fmt.Sprintf("resourceGroups/%s/providers/Microsoft.Compute/virtualMachines/%s/%s?api-version=%s",
		resourceGroup, resourceName, operation, vmAPIVersion)
	_, ok, err := c.execute(ctx, creds, http.MethodPost, resource, nil)
	return ok, err
}

// CreateWebApp implements Client.
func (c *restClient) CreateWebApp(ctx context.Context, creds Credentials, resourceGroup, resourceName string) (bool, error) {
	resource := fmt.Sprintf("resourceGroups/%s/providers/Microsoft.Web/sites/%s?api-version=%s",
		resourceGroup, resourceName, sitesAPIVersion)

	body := map[string]any{
		"kind":     "app",
		"location": c.cfg.Location,
		"properties": map[string]any{
			"clientAffinityEnabled": false,
			"clientCertEnabled":     false,
		},
	}

	_, ok, err := c.execute(ctx, creds, http.MethodPut, resource, body)
	return ok, err
}
