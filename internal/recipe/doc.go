// Package recipe describes the applications hostup knows how to install.
//
// A [Recipe] is declarative: packages, where the source comes from, which
// secrets to generate, the environment file, the supervised processes and
// the reverse-proxy layout. The provisioning steps interpret it. Built-in
// recipes are embedded YAML files; operators may add their own with
// [LoadDir].
package recipe
