package index

import "strings"

// NgramSize is the gram length used by substring indexes.
const NgramSize = 3

// GenerateNgrams returns the rune n-grams of s, lowercased. A string
// shorter than n yields itself as its only gram.
func GenerateNgrams(s string, n int) []string {
	if s == "" || n <= 0 {
		return nil
	}

	runes := []rune(strings.ToLower(s))
	if len(runes) <= n {
		return []string{string(runes)}
	}

	grams := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+n]))
	}
	return grams
}

// GenerateUniqueNgrams is GenerateNgrams without repeats.
func GenerateUniqueNgrams(s string, n int) []string {
	return uniqueValues(GenerateNgrams(s, n))
}

// ExtractSearchableNgrams returns the grams every value matching pattern
// must contain. Pattern segments between '*' wildcards that are shorter
// than n contribute nothing.
func ExtractSearchableNgrams(pattern string, n int) []string {
	var grams []string
	for _, part := range strings.Split(pattern, "*") {
		if len([]rune(part)) < n {
			continue
		}
		grams = append(grams, GenerateNgrams(part, n)...)
	}
	return uniqueValues(grams)
}

// MatchesPattern reports whether value matches a '*' wildcard pattern,
// ignoring case.
func MatchesPattern(value, pattern string) bool {
	if pattern == "" {
		return value == ""
	}
	return matchWildcard([]rune(strings.ToLower(value)), []rune(strings.ToLower(pattern)))
}

func matchWildcard(value, pattern []rune) bool {
	// match[j] holds whether value[:i] matches pattern[:j] for the current i.
	match := make([]bool, len(pattern)+1)
	match[0] = true
	for j := 1; j <= len(pattern) && pattern[j-1] == '*'; j++ {
		match[j] = true
	}

	for i := 1; i <= len(value); i++ {
		prev := match[0]
		match[0] = false
		for j := 1; j <= len(pattern); j++ {
			cur := match[j]
			if pattern[j-1] == '*' {
				match[j] = match[j-1] || match[j]
			} else {
				match[j] = prev && pattern[j-1] == value[i-1]
			}
			prev = cur
		}
	}
	return match[len(pattern)]
}
