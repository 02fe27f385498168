package extract

import (
	"regexp"
	"strings"
)

// Strategy is one candidate pattern of a cascade. Extract may reject a match,
// in which case the cascade moves on to the next strategy.
type Strategy struct {
	Name    string
	Pattern *regexp.Regexp
	Extract func(m []string) (string, bool)
}

// Cascade is an ordered list of strategies, most specific first.
type Cascade []Strategy

// First returns the value of the first strategy that matches and accepts its match.
func (c Cascade) First(text string) (value, strategy string, ok bool) {
	for _, s := range c {
		m := s.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		extract := s.Extract
		if extract == nil {
			extract = firstGroup
		}
		if v, ok := extract(m); ok {
			return v, s.Name, true
		}
	}
	return "", "", false
}

// firstGroup accepts the first non-empty capture group, trimmed.
func firstGroup(m []string) (string, bool) {
	for _, g := range m[1:] {
		if g = strings.TrimSpace(g); g != "" {
			return g, true
		}
	}
	return "", false
}

// patterns builds a cascade whose strategies all use the same extract func.
func patterns(extract func([]string) (string, bool), named ...string) Cascade {
	if len(named)%2 != 0 {
		panic("extract: patterns needs name/pattern pairs")
	}
	c := make(Cascade, 0, len(named)/2)
	for i := 0; i < len(named); i += 2 {
		c = append(c, Strategy{Name: named[i], Pattern: regexp.MustCompile(named[i+1]), Extract: extract})
	}
	return c
}
