package steps

import (
	"context"
	"strings"

	"github.com/imamik/hostup/internal/provisioning"
)

// DNSRecords points the target's domains at this host. It is skipped when
// no DNS provider is configured.
type DNSRecords struct {
	DNS      DNS
	PublicIP func(ctx context.Context) (string, error)
}

// Name implements provisioning.Step.
func (*DNSRecords) Name() string { return "dns" }

// Provision implements provisioning.Step.
func (d *DNSRecords) Provision(c *provisioning.Context) error {
	if d.DNS == nil {
		for _, name := range c.Target.Domains() {
			c.Skipped("dns record", name, "no DNS provider configured")
		}
		return nil
	}

	ip, err := d.address(c)
	if err != nil {
		return err
	}
	c.State.PublicIP = ip

	for _, name := range c.Target.Domains() {
		zone := c.Settings.Cloudflare.Zone
		if zone == "" {
			zone = apexZone(name)
		}
		ch, err := d.DNS.EnsureA(c, zone, name, ip, c.Settings.Cloudflare.Proxied)
		if err != nil {
			return c.Failf("create an A record for "+name+" pointing at "+ip+" manually, or fix the Cloudflare token",
				"failed to update DNS for %s: %w", name, err)
		}
		c.Change("dns record", name+" A "+ip, ch)
	}
	return nil
}

func (d *DNSRecords) address(c *provisioning.Context) (string, error) {
	if c.Options.PublicIP != "" {
		return c.Options.PublicIP, nil
	}
	if d.PublicIP == nil {
		return "", c.Failf("pass --public-ip", "cannot determine the public address of this host")
	}
	ip, err := d.PublicIP(c)
	if err != nil {
		return "", c.Failf("pass --public-ip", "failed to discover the public address: %w", err)
	}
	return ip, nil
}

// apexZone returns the registrable zone of name, assuming a single-label
// public suffix.
func apexZone(name string) string {
	labels := strings.Split(strings.TrimSuffix(name, "."), ".")
	if len(labels) <= 2 {
		return name
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

