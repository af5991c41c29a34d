package hcloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/hetznercloud/hcloud-go/v2/hcloud/metadata"
)

// DefaultEchoURL returns the caller's IPv4 address as plain text.
const DefaultEchoURL = "https://ipv4.icanhazip.com"

// Resolver finds the host's public IPv4 address.
type Resolver struct {
	metadata   *metadata.Client
	api        *hcloud.Client
	httpClient *http.Client
	echoURL    string
	hostname   func() (string, error)

	metadataEndpoint string
	apiEndpoint      string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMetadataEndpoint overrides the metadata service URL.
func WithMetadataEndpoint(u string) Option {
	return func(r *Resolver) { r.metadataEndpoint = u }
}

// WithAPIEndpoint overrides the Hetzner Cloud API URL.
func WithAPIEndpoint(u string) Option {
	return func(r *Resolver) { r.apiEndpoint = u }
}

// WithEchoURL overrides the echo service. Empty disables it.
func WithEchoURL(u string) Option {
	return func(r *Resolver) { r.echoURL = u }
}

// WithHTTPClient sets the client used for metadata and echo requests.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.httpClient = c }
}

// WithHostname replaces os.Hostname for the API lookup.
func WithHostname(fn func() (string, error)) Option {
	return func(r *Resolver) { r.hostname = fn }
}

// NewResolver creates a Resolver. An empty token skips the API lookup.
func NewResolver(token string, opts ...Option) *Resolver {
	r := &Resolver{
		httpClient: &http.Client{Timeout: 3 * time.Second},
		echoURL:    DefaultEchoURL,
		hostname:   os.Hostname,
	}
	for _, o := range opts {
		o(r)
	}

	mopts := []metadata.ClientOption{metadata.WithHTTPClient(r.httpClient)}
	if r.metadataEndpoint != "" {
		mopts = append(mopts, metadata.WithEndpoint(r.metadataEndpoint))
	}
	r.metadata = metadata.NewClient(mopts...)

	if token != "" {
		copts := []hcloud.ClientOption{hcloud.WithToken(token), hcloud.WithApplication("hostup", "")}
		if r.apiEndpoint != "" {
			copts = append(copts, hcloud.WithEndpoint(r.apiEndpoint))
		}
		r.api = hcloud.NewClient(copts...)
	}
	return r
}

// PublicIP returns the first IPv4 address any source reports.
func (r *Resolver) PublicIP(ctx context.Context) (string, error) {
	var errs []error

	if r.metadata.IsHcloudServer() {
		ip, err := r.metadata.PublicIPv4()
		if err == nil && ip.To4() != nil {
			return ip.String(), nil
		}
		errs = append(errs, fmt.Errorf("metadata service: %w", orInvalid(err, ip)))
	}

	if r.api != nil {
		ip, err := r.serverIP(ctx)
		if err == nil {
			return ip, nil
		}
		errs = append(errs, fmt.Errorf("hetzner cloud API: %w", err))
	}

	if r.echoURL != "" {
		ip, err := r.echo(ctx)
		if err == nil {
			return ip, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", r.echoURL, err))
	}

	if len(errs) == 0 {
		return "", errors.New("no public IP source available")
	}
	return "", fmt.Errorf("failed to discover public IP: %w", errors.Join(errs...))
}

func (r *Resolver) serverIP(ctx context.Context) (string, error) {
	name, err := r.hostname()
	if err != nil {
		return "", err
	}
	name, _, _ = strings.Cut(name, ".")

	server, _, err := r.api.Server.GetByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to get server: %w", err)
	}
	if server == nil {
		return "", fmt.Errorf("server not found: %s", name)
	}
	if server.PublicNet.IPv4.IP == nil || server.PublicNet.IPv4.IP.To4() == nil {
		return "", fmt.Errorf("server %s has no public IPv4", name)
	}
	return server.PublicNet.IPv4.IP.String(), nil
}

func (r *Resolver) echo(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.echoURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}
	ip := net.ParseIP(strings.TrimSpace(string(body)))
	if ip.To4() == nil {
		return "", fmt.Errorf("response %q is not an IPv4 address", strings.TrimSpace(string(body)))
	}
	return ip.String(), nil
}

func orInvalid(err error, ip net.IP) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("%q is not an IPv4 address", ip.String())
}
