package motor

import (
	"fmt"
	"regexp"
	"strings"
)

// SearchMode defines the type of search to perform
type SearchMode int

const (
	PlainText SearchMode = iota
	Regex
)

type compiledPattern struct {
	mode       SearchMode
	plainText  string
	ignoreCase bool
	regex      *regexp.Regexp
}

// compilePattern compiles a search pattern once per search
func compilePattern(pattern string, opts SearchOptions) (compiledPattern, error) {
	cp := compiledPattern{
		mode:       opts.Mode,
		ignoreCase: opts.IgnoreCase,
	}

	if opts.Mode == Regex {
		if opts.IgnoreCase {
			pattern = "(?i)" + pattern
		}
		regex, err := regexp.Compile(pattern)
		if err != nil {
			return cp, fmt.Errorf("invalid regex pattern: %w", err)
		}
		cp.regex = regex
		return cp, nil
	}

	cp.plainText = pattern
	if opts.IgnoreCase {
		cp.plainText = strings.ToLower(pattern)
	}
	return cp, nil
}

func matches(haystack string, pattern compiledPattern) bool {
	if pattern.mode == Regex {
		return pattern.regex.MatchString(haystack)
	}
	if pattern.ignoreCase {
		haystack = strings.ToLower(haystack)
	}
	return strings.Contains(haystack, pattern.plainText)
}
