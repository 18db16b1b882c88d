// Package id provides unique identifier generation for projects.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
)

// Prefix starts every project ID.
const Prefix = "prj-"

var pattern = regexp.MustCompile(`^prj-\d+(-[0-9a-f]{8})?$`)

// Generate creates a new unique project ID.
// Format: prj-<timestamp>-<random>
// Example: prj-1701432000-a1b2c3d4
func Generate() string {
	timestamp := time.Now().Unix()
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		return fmt.Sprintf("%s%d", Prefix, timestamp)
	}
	return fmt.Sprintf("%s%d-%s", Prefix, timestamp, hex.EncodeToString(random))
}

// Valid reports whether s has the shape Generate produces.
func Valid(s string) bool {
	return pattern.MatchString(s)
}
