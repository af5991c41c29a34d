// Package ansi removes terminal escape sequences from captured command output.
//
// Output captured from a remote install run contains colour codes in three
// spellings: raw ESC sequences, caret notation (^[[0;36m) and JSON-escaped
// caret notation (\^[[0;36m). Strip removes all of them together with NUL and
// other control characters, keeping tab, newline and carriage return.
package ansi

import "regexp"

var (
	// CSI and OSC sequences introduced by a real ESC byte.
	escSequence = regexp.MustCompile(`\x1b(?:\[[0-9;?]*[ -/]*[@-~]|\][^\x07\x1b]*(?:\x07|\x1b\\)|[@-Z\\-_])`)

	// CSI sequences written in caret notation, optionally backslash-escaped.
	caretSequence = regexp.MustCompile(`\\?\^\[\[[0-9;?]*[A-Za-z]`)

	// Remaining caret control characters such as ^@ or ^A.
	caretControl = regexp.MustCompile(`\\?\^[@A-Z\[\\\]^_]`)

	// Raw control characters except \t, \n and \r.
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// Strip returns s without escape sequences and control characters.
func Strip(s string) string {
	if s == "" {
		return s
	}
	s = escSequence.ReplaceAllString(s, "")
	s = caretSequence.ReplaceAllString(s, "")
	s = caretControl.ReplaceAllString(s, "")
	return controlChars.ReplaceAllString(s, "")
}
