// Package render turns typed descriptions into the files hostup writes:
// systemd units, supervisor programs, nginx vhosts, environment files, TOML
// configuration and the credentials report.
//
// Every renderer validates the values it interpolates. A value that would
// break out of its directive (a newline in a unit, a semicolon in a
// server_name) is rejected instead of escaped.
package render
