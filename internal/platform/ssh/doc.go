// Package ssh runs hostup on another host over SSH.
//
// Connections are dialed with retry so a freshly booted machine can be
// targeted directly. Captured output has terminal escape sequences removed
// before it is returned.
package ssh
