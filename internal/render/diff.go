package render

import (
	"strings"

	"github.com/aymanbagabas/go-udiff"
)

const masked = "********"

// Diff returns a unified diff between two versions of a generated file with
// every occurrence of the given secrets masked. It is empty when the files
// are equal.
func Diff(path string, old, updated []byte, secrets []string) string {
	if string(old) == string(updated) {
		return ""
	}
	a, b := mask(string(old), secrets), mask(string(updated), secrets)
	if a == b {
		return "--- " + path + "\n+++ " + path + "\n(only secret values changed)\n"
	}
	return udiff.Unified(path, path, a, b)
}

func mask(s string, secrets []string) string {
	for _, sec := range secrets {
		if sec != "" {
			s = strings.ReplaceAll(s, sec, masked)
		}
	}
	return s
}
