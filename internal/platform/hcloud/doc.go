// Package hcloud discovers the public IPv4 address of the host hostup runs on.
//
// Resolution order:
//
//   - the Hetzner Cloud metadata service, when the host is a Hetzner server
//   - the Hetzner Cloud API, looking up the server named like the host
//     (needs an API token)
//   - a plain-text echo service such as ipv4.icanhazip.com
//
// The first source that yields a valid IPv4 address wins.
package hcloud
