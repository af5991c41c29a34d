package render

import (
	"strings"
	"unicode/utf8"
)

// Report is the plaintext credentials summary left for the operator.
type Report struct {
	Title            string
	App              string
	Domain           string
	Secondary        string
	SecondaryPurpose string
	User             string
	InstallDir       string
	EnvFile          string
	URLs             []string
	Services         []string
	Database         *ReportDatabase
	Secrets          []EnvEntry
	Files            []string
	Notes            []string
	Warnings         []string
}

// ReportDatabase summarizes the database for the report.
type ReportDatabase struct {
	Engine   string
	Name     string
	User     string
	Password string
}

// Render returns the report text. Equal reports render identically.
func (r Report) Render() ([]byte, error) {
	return execute("report.txt.tmpl", struct {
		Report
		Rule string
	}{r, strings.Repeat("=", utf8.RuneCountInString(r.Title))})
}
