package provisioning

import "time"

// Outcome summarizes what happened to a resource or a step.
type Outcome int

// Outcomes, from least to most significant.
const (
	Skipped Outcome = iota
	Exists
	Updated
	Created
	Warned
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Exists:
		return "exists"
	case Updated:
		return "updated"
	case Created:
		return "created"
	case Warned:
		return "warned"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ResourceRecord is one resource touched by a step.
type ResourceRecord struct {
	Step    string
	Kind    string
	Name    string
	Outcome Outcome
}

// StepOutcome is the result of one step.
type StepOutcome struct {
	Step     string
	Outcome  Outcome
	Detail   string
	Duration time.Duration
}

// Warning is a soft failure kept for the report.
type Warning struct {
	Step    string
	Message string
	Remedy  string
}

// State holds the shared results of provisioning steps.
// It is progressively populated as each step completes and is read by
// later steps (the report lists warnings and files, backup uploads files).
type State struct {
	Steps     []StepOutcome
	Resources []ResourceRecord
	Warnings  []Warning

	// Files are generated files in the order they were written or checked.
	Files []string

	// EnvFile is the path of the application environment file.
	EnvFile string
	// ReportFile is the path of the credentials report.
	ReportFile string
	// ServiceChanged is set when a unit or program file was rewritten.
	ServiceChanged bool
	// ProxyRewritten is set when a vhost was written while a certificate
	// already existed, so TLS must be reattached.
	ProxyRewritten bool
	// PublicIP is the address DNS records point at.
	PublicIP string
	// CertAttempts counts certificate issuance attempts.
	CertAttempts int
}

// NewState creates an empty provisioning state.
func NewState() *State {
	return &State{}
}

// AddFile records a managed file once.
func (s *State) AddFile(path string) {
	for _, f := range s.Files {
		if f == path {
			return
		}
	}
	s.Files = append(s.Files, path)
}

// ResourcesOf returns the records for step.
func (s *State) ResourcesOf(step string) []ResourceRecord {
	var out []ResourceRecord
	for _, r := range s.Resources {
		if r.Step == step {
			out = append(out, r)
		}
	}
	return out
}

// Outcome returns the outcome recorded for step, and whether it ran.
func (s *State) Outcome(step string) (Outcome, bool) {
	for _, o := range s.Steps {
		if o.Step == step {
			return o.Outcome, true
		}
	}
	return Skipped, false
}

// Count returns how many resources ended with outcome o.
func (s *State) Count(o Outcome) int {
	n := 0
	for _, r := range s.Resources {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// stepOutcome folds the resource outcomes of a step into one.
func (s *State) stepOutcome(step string) Outcome {
	best := Skipped
	for _, r := range s.ResourcesOf(step) {
		if r.Outcome > best {
			best = r.Outcome
		}
	}
	return best
}
