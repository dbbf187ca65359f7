// Package common holds small helpers shared across packages.
package common

import "strings"

// HasAny reports whether s contains any of the substrings. The archive
// client uses it to classify status descriptions that only vary in
// wording.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
