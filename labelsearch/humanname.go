// SPDX-License-Identifier: MIT

package labelsearch

import "strings"

// AbbreviateHumanName returns the "F. Lastname"-style abbreviation of a
// multi-word personal name, and whether one could be formed (single-word
// names have no abbreviation). This realizes db_entity_labels.py's
// human-name heuristic, applied to labels of Q5 (human) entities so that
// e.g. "Douglas Adams" also indexes as "D. Adams".
func AbbreviateHumanName(label string) (string, bool) {
	parts := strings.Fields(label)
	if len(parts) < 2 {
		return "", false
	}
	first := parts[0]
	if first == "" {
		return "", false
	}
	initial := string([]rune(first)[:1])
	return initial + ". " + strings.Join(parts[1:], " "), true
}
