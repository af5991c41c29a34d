// Package steps implements the install pipeline, one file per step:
//
//	user → packages → source → secrets → database → config → build →
//	service → dns → proxy → certificate → report → backup
//
// Each step probes before it acts. A present resource is reported as
// existing and reused, or updated in place; an absent one is created.
// Nothing is deleted and no generated secret is ever replaced.
package steps
