package schema

import (
	"regexp"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// PatternCache compiles string constraint patterns once and reuses them
type PatternCache struct {
	mu       sync.RWMutex
	compiled map[string]*regexp.Regexp
	failed   map[string]error
}

// NewPatternCache creates an empty pattern cache
func NewPatternCache() *PatternCache {
	return &PatternCache{
		compiled: make(map[string]*regexp.Regexp),
		failed:   make(map[string]error),
	}
}

// used by the combiner and assignability checks, which have no validator at hand
var defaultPatterns = NewPatternCache()

// Compile returns the compiled form of pattern
func (c *PatternCache) Compile(pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	re, ok := c.compiled[pattern]
	err := c.failed[pattern]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}
	if err != nil {
		return nil, err
	}

	re, err = regexp.Compile(pattern)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.failed[pattern] = err
		return nil, err
	}
	c.compiled[pattern] = re
	return re, nil
}

// Match reports whether pattern matches anywhere in s
func (c *PatternCache) Match(pattern, s string) (bool, error) {
	re, err := c.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

// StringLength counts code points of the NFC form of s. Length bounds of
// string constraints are measured this way.
func StringLength(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}
