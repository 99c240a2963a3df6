package utils

import "strings"

// ParseNameList splits a comma-separated list of identifiers such as biome
// names. Entries are trimmed and lowercased, blanks and repeats are dropped,
// and the first-seen order is kept. Blank input yields nil.
func ParseNameList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var result []string
	seen := make(map[string]bool)
	for _, v := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(v))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, name)
	}

	if len(result) == 0 {
		return nil
	}

	return result
}
