// Package host is the boundary between the provisioning pipeline and the
// machine it provisions.
//
// A [Host] bundles a [Runner] that executes commands (package manager, git,
// systemctl, certbot, database clients) and an [FS] rooted at a directory so
// that every generated file can be redirected into a scratch tree in tests.
// Steps never call os/exec or touch absolute paths directly.
package host
