// Package retry provides bounded retry with exponential backoff.
//
// [Do] runs an operation up to a fixed number of attempts, sleeping between
// attempts with a delay that starts at the initial delay and is multiplied
// after every failure. hostup uses it for certificate issuance, the one
// pipeline step that talks to an external authority and may fail
// transiently, and for SSH dialing in remote mode.
package retry
