package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/imamik/hostup/internal/config"
	"github.com/imamik/hostup/internal/platform/ssh"
)

// RemoteOptions are the remote command flags.
type RemoteOptions struct {
	Host       string
	Port       int
	User       string
	KeyPath    string
	KnownHosts string
	// Binary is the hostup executable on the remote host.
	Binary string
}

// readKey loads the SSH private key (for testing injection).
var readKey = os.ReadFile

// Remote runs hostup with args on another host over SSH and prints its
// output. A non-zero remote exit status becomes the local exit status.
func Remote(ctx context.Context, opts RemoteOptions, args []string) error {
	if len(args) == 0 {
		return errors.New("no hostup command given (example: hostup remote --host h -- install uptime-kuma status.example.com)")
	}
	if opts.KeyPath == "" {
		return errors.New("--key is required")
	}
	key, err := readKey(opts.KeyPath)
	if err != nil {
		return fmt.Errorf("failed to read SSH key: %w", err)
	}

	binary := opts.Binary
	if binary == "" {
		binary = "hostup"
	}
	t := config.LoadTimeouts()
	client, err := newRemote(&ssh.Config{
		Host:         opts.Host,
		Port:         opts.Port,
		User:         opts.User,
		PrivateKey:   key,
		DialAttempts: t.SSHDialAttempts,
		DialDelay:    t.SSHDialDelay,
		KnownHosts:   opts.KnownHosts,
	})
	if err != nil {
		return err
	}

	out, err := client.Execute(ctx, ssh.Command(append([]string{binary}, args...)...))
	_, _ = fmt.Fprint(stdout, out)

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.Status
		if code <= 0 {
			code = 1
		}
		return &ExitStatusError{Code: code, Err: exitErr}
	}
	return err
}
