package render

import (
	"fmt"
	"path"
	"strings"
	"unicode"
)

// singleLine rejects values containing line breaks or control characters.
func singleLine(field, v string) error {
	if strings.IndexFunc(v, unicode.IsControl) >= 0 {
		return fmt.Errorf("%s contains control characters: %q", field, v)
	}
	return nil
}

// token rejects values that are not a single nginx directive argument.
func token(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is empty", field)
	}
	if strings.ContainsAny(v, " \t\r\n;{}\"'#$\\") {
		return fmt.Errorf("%s %q contains characters not allowed in a directive", field, v)
	}
	return nil
}

func absPath(field, v string) error {
	if err := token(field, v); err != nil {
		return err
	}
	if !path.IsAbs(v) {
		return fmt.Errorf("%s %q must be an absolute path", field, v)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
