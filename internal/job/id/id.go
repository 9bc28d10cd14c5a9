// Package id provides unique identifier generation for jobs.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// Prefix starts every job ID.
const Prefix = "job-"

// Generate creates a new unique job ID.
// Format: job-<uuid v4>
// Example: job-6f1c2a4e-8d4b-4a59-9a0e-3c1f7d2b9e10
func Generate() string {
	return Prefix + uuid.NewString()
}

// Valid reports whether s has the shape produced by Generate.
func Valid(s string) bool {
	rest, ok := strings.CutPrefix(s, Prefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}
