// Package remote resolves service endpoints (object storage, htsget) for
// archives hosted behind a modos server. The core only consumes the
// resolved connection parameters.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Services maps a service name ("s3", "htsget") to its base URL.
type Services map[string]string

// EndpointManager resolves service URLs either from explicit overrides or
// by querying a modos server, which answers a GET on its base URL with a
// JSON object of service URLs.
type EndpointManager struct {
	server   string
	services Services
	client   *http.Client
}

// New returns a manager for the given server URL (may be empty) and
// explicit service overrides (may be nil). Overrides win over discovery.
func New(server string, services Services) *EndpointManager {
	return &EndpointManager{
		server:   server,
		services: services,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// List returns all known service endpoints.
func (m *EndpointManager) List(ctx context.Context) (Services, error) {
	if m.server == "" {
		return m.services, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.server, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query endpoints from %s: %w", m.server, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query endpoints from %s: status %s", m.server, resp.Status)
	}
	discovered := make(Services)
	if err := json.NewDecoder(resp.Body).Decode(&discovered); err != nil {
		return nil, fmt.Errorf("decode endpoints from %s: %w", m.server, err)
	}
	for name, url := range m.services {
		discovered[name] = url
	}
	return discovered, nil
}

// Service resolves one service URL; an empty string means unavailable.
func (m *EndpointManager) Service(ctx context.Context, name string) (string, error) {
	if url, ok := m.services[name]; ok {
		return url, nil
	}
	if m.server == "" {
		return "", nil
	}
	services, err := m.List(ctx)
	if err != nil {
		return "", err
	}
	return services[name], nil
}

// S3 resolves the object storage endpoint.
func (m *EndpointManager) S3(ctx context.Context) (string, error) {
	return m.Service(ctx, "s3")
}

// Htsget resolves the htsget streaming endpoint.
func (m *EndpointManager) Htsget(ctx context.Context) (string, error) {
	return m.Service(ctx, "htsget")
}
