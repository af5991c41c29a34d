package provisioning

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/imamik/hostup/internal/recipe"
)

var (
	labelRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	tldRe   = regexp.MustCompile(`^([a-z]{2,63}|xn--[a-z0-9-]{1,59})$`)
)

// ValidateDomain checks the host-name shape of d and returns it lower-cased.
// Labels are 1-63 characters of letters, digits and inner hyphens; there
// are at least two labels, the last one alphabetic; no trailing dot.
func ValidateDomain(d string) (string, error) {
	invalid := func(reason string) error {
		return &PreconditionError{
			Message: fmt.Sprintf("invalid domain %q: %s", d, reason),
			Remedy:  "pass a fully qualified host name such as status.example.com",
		}
	}

	if d == "" {
		return "", invalid("empty")
	}
	if len(d) > 253 {
		return "", invalid("longer than 253 characters")
	}
	name := strings.ToLower(d)
	if strings.HasSuffix(name, ".") {
		return "", invalid("trailing dot")
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return "", invalid("missing top-level label")
	}
	for _, l := range labels {
		if l == "" {
			return "", invalid("empty label")
		}
		if !labelRe.MatchString(l) {
			return "", invalid(fmt.Sprintf("label %q must be 1-63 letters, digits or inner hyphens", l))
		}
	}
	if !tldRe.MatchString(labels[len(labels)-1]) {
		return "", invalid("top-level label must be alphabetic")
	}
	return name, nil
}

// Privileges reports whether the caller may change the host.
type Privileges interface {
	IsRoot() bool
}

// CheckPreconditions validates the invocation before any side effect and
// returns the Target to provision. Privileges are checked first, then the
// domain, then the optional argument.
func CheckPreconditions(p Privileges, r *recipe.Recipe, domain, arg string) (*Target, error) {
	usage := Usage(r)

	if !p.IsRoot() {
		return nil, &PreconditionError{
			Message: "hostup install must run as root",
			Remedy:  usage,
		}
	}
	if domain == "" {
		return nil, &PreconditionError{Message: "domain is required", Remedy: usage}
	}

	name, err := ValidateDomain(domain)
	if err != nil {
		return nil, err
	}

	secondary := NoSecondary()
	variant := ""
	switch r.ArgKind() {
	case recipe.ArgSecondary:
		if arg != "" {
			second, err := ValidateDomain(arg)
			if err != nil {
				return nil, err
			}
			if second == name {
				return nil, &PreconditionError{
					Message: fmt.Sprintf("secondary domain %s equals the primary domain", second),
					Remedy:  usage,
				}
			}
			secondary = Secondary(second)
		}
	case recipe.ArgVariant:
		variant, err = r.ResolveVariant(arg)
		if err != nil {
			return nil, &PreconditionError{Message: err.Error(), Remedy: usage}
		}
	default:
		if arg != "" {
			return nil, &PreconditionError{
				Message: fmt.Sprintf("%s takes no second argument, got %q", r.Name, arg),
				Remedy:  usage,
			}
		}
		variant, _ = r.ResolveVariant("")
	}

	return NewTarget(r, name, secondary, variant), nil
}

// Usage returns the install command line for r.
func Usage(r *recipe.Recipe) string {
	return fmt.Sprintf("sudo hostup install %s <domain>%s", r.Name, argUsage(r))
}

func argUsage(r *recipe.Recipe) string {
	switch r.ArgKind() {
	case recipe.ArgSecondary:
		return " [secondary-domain]"
	case recipe.ArgVariant:
		return " [" + strings.Join(r.Database.EngineNames(), "|") + "]"
	default:
		return ""
	}
}
