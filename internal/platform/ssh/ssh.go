package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/imamik/hostup/internal/util/ansi"
	"github.com/imamik/hostup/internal/util/retry"
)

const (
	defaultPort         = 22
	defaultDialTimeout  = 10 * time.Second
	defaultDialAttempts = 5
	defaultDialDelay    = 2 * time.Second
	defaultMaxDelay     = 10 * time.Second
)

// Config holds SSH client configuration.
type Config struct {
	Host       string
	Port       int
	User       string
	PrivateKey []byte

	// DialTimeout bounds one TCP connect and handshake.
	DialTimeout time.Duration
	// DialAttempts is the number of connection attempts.
	DialAttempts int
	// DialDelay is the initial delay between connection attempts.
	DialDelay time.Duration

	// KnownHosts is an OpenSSH known_hosts file used to verify the host key.
	// Empty accepts any host key.
	KnownHosts string
	// HostKeyCallback overrides KnownHosts.
	HostKeyCallback ssh.HostKeyCallback
}

// Client executes commands on a remote server via SSH.
type Client struct {
	config *Config
	signer ssh.Signer
}

// ExitError reports a remote command that exited non-zero.
type ExitError struct {
	Host   string
	Status int
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("remote command on %s exited with status %d", e.Host, e.Status)
}

// NewClient validates cfg and parses the private key.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("config host cannot be empty")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("config private key cannot be empty")
	}

	c := *cfg
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.DialAttempts == 0 {
		c.DialAttempts = defaultDialAttempts
	}
	if c.DialDelay == 0 {
		c.DialDelay = defaultDialDelay
	}
	if c.HostKeyCallback == nil {
		if c.KnownHosts != "" {
			cb, err := knownhosts.New(c.KnownHosts)
			if err != nil {
				return nil, fmt.Errorf("failed to read known hosts: %w", err)
			}
			c.HostKeyCallback = cb
		} else {
			c.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in verification via KnownHosts
		}
	}

	signer, err := ssh.ParsePrivateKey(c.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Client{config: &c, signer: signer}, nil
}

// Addr returns host:port.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))
}

// Execute runs command remotely and returns its combined output with escape
// sequences stripped. A non-zero remote exit is an *ExitError.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create SSH session on %s: %w", c.config.Host, err)
	}
	defer func() { _ = session.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	raw, err := session.CombinedOutput(command)
	output := ansi.Strip(string(raw))

	var exitErr *ssh.ExitError
	switch {
	case err == nil:
		return output, nil
	case errors.As(err, &exitErr):
		return output, &ExitError{Host: c.config.Host, Status: exitErr.ExitStatus(), Output: output}
	case ctx.Err() != nil:
		return output, ctx.Err()
	default:
		return output, fmt.Errorf("command failed on %s: %w", c.config.Host, err)
	}
}

func (c *Client) connect(ctx context.Context) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(c.signer)},
		HostKeyCallback: c.config.HostKeyCallback,
		Timeout:         c.config.DialTimeout,
	}

	addr := c.Addr()
	var client *ssh.Client
	err := retry.Do(ctx, func(int) error {
		var dialErr error
		client, dialErr = dial(ctx, addr, config)
		if dialErr != nil && isAuthError(dialErr) {
			return retry.Fatal(dialErr)
		}
		return dialErr
	},
		retry.WithMaxAttempts(c.config.DialAttempts),
		retry.WithInitialDelay(c.config.DialDelay),
		retry.WithMaxDelay(defaultMaxDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}
	return client, nil
}

func dial(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	dctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := dctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	sc, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(sc, chans, reqs), nil
}

func isAuthError(err error) bool {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return true
	}
	return strings.Contains(err.Error(), "unable to authenticate")
}

// Command quotes args into a single POSIX shell command line.
func Command(args ...string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = quote(a)
	}
	return strings.Join(quoted, " ")
}

func quote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:@=,+", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
