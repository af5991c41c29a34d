// Package secret generates the credentials hostup persists for installed
// applications: random passwords and tokens, bcrypt htpasswd entries for
// Nginx basic auth, and ed25519 deploy keys for private git sources.
//
// Keys are produced in OpenSSH formats: the private key as an
// "OPENSSH PRIVATE KEY" PEM block and the public key in authorized_keys form.
package secret
