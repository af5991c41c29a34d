package render

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	serverNameRe = regexp.MustCompile(`^[a-z0-9.-]+$`)
	bodySizeRe   = regexp.MustCompile(`^[0-9]+[kKmMgG]?$`)
	upstreamRe   = regexp.MustCompile(`^http://127\.0\.0\.1:[0-9]{1,5}(/[A-Za-z0-9._/-]*)?$`)
)

// Vhost is an nginx server block.
type Vhost struct {
	ServerName  string
	Listen      int
	AccessLog   string
	ErrorLog    string
	MaxBodySize string
	Locations   []VhostLocation
}

// VhostLocation is one location block. Root serves static files,
// otherwise requests are proxied to ProxyPass.
type VhostLocation struct {
	Path      string
	ProxyPass string
	Root      string
	Websocket bool
	AuthFile  string
	AuthRealm string
}

// Validate checks every interpolated value.
func (v Vhost) Validate() error {
	if !serverNameRe.MatchString(v.ServerName) {
		return fmt.Errorf("server_name %q is not a hostname", v.ServerName)
	}
	if v.Listen < 1 || v.Listen > 65535 {
		return fmt.Errorf("listen port %d out of range", v.Listen)
	}
	if !bodySizeRe.MatchString(v.MaxBodySize) {
		return fmt.Errorf("client_max_body_size %q is invalid", v.MaxBodySize)
	}
	if err := firstErr(absPath("access_log", v.AccessLog), absPath("error_log", v.ErrorLog)); err != nil {
		return err
	}
	if len(v.Locations) == 0 {
		return fmt.Errorf("vhost %s has no locations", v.ServerName)
	}
	for _, l := range v.Locations {
		if err := token("location", l.Path); err != nil {
			return err
		}
		if !strings.HasPrefix(l.Path, "/") {
			return fmt.Errorf("location %q must start with /", l.Path)
		}
		switch {
		case l.Root != "":
			if err := absPath("alias", l.Root); err != nil {
				return err
			}
		case !upstreamRe.MatchString(l.ProxyPass):
			return fmt.Errorf("proxy_pass %q must be a local http upstream", l.ProxyPass)
		}
		if l.AuthFile != "" {
			if err := absPath("auth_basic_user_file", l.AuthFile); err != nil {
				return err
			}
			if strings.ContainsAny(l.AuthRealm, "\"\\\n") {
				return fmt.Errorf("auth_basic realm %q contains quotes", l.AuthRealm)
			}
		}
	}
	return nil
}

// Render returns the vhost file content.
func (v Vhost) Render() ([]byte, error) {
	if v.Listen == 0 {
		v.Listen = 80
	}
	if v.MaxBodySize == "" {
		v.MaxBodySize = "10m"
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vhost: %w", err)
	}
	return execute("nginx.conf.tmpl", v)
}
