package core

import (
	"strconv"
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanCode trims and upper-cases codes like departments ("cse" -> "CSE") or subject codes.
func CleanCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// TermOf returns the academic term `t` falls in, e.g. "2025-fall".
func TermOf(t time.Time) string {
	var season string
	switch m := t.Month(); {
	case m <= time.April:
		season = "spring"
	case m <= time.July:
		season = "summer"
	default:
		season = "fall"
	}
	return strconv.Itoa(t.Year()) + "-" + season
}

// CurrentTerm returns the configured term, or the one of today when none is configured.
func (conf *Config) CurrentTerm() string {
	if conf.Feedback.CurrentTerm != "" {
		return conf.Feedback.CurrentTerm
	}
	return TermOf(time.Now().UTC())
}
