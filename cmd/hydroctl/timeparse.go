package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var layouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

var compactClock = regexp.MustCompile(`(\d{1,2})(\d{2})(am|pm)`)

// timeParser turns operator input such as "tomorrow 9am" or
// "2026-03-01 09:00" into an absolute instant in loc.
type timeParser struct {
	loc *time.Location
	w   *when.Parser
}

func newTimeParser(zone string) (*timeParser, error) {
	loc := time.UTC
	if zone != "" {
		l, err := time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", zone, err)
		}
		loc = l
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &timeParser{loc: loc, w: w}, nil
}

// Parse resolves input relative to now. Absolute layouts win over natural
// language so "2026-03-01 09:00" is never reinterpreted.
func (p *timeParser) Parse(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, input, p.loc); err == nil {
			return t.UTC(), nil
		}
	}

	normalized := strings.ToLower(input)
	normalized = compactClock.ReplaceAllString(normalized, "$1:$2 $3")

	r, err := p.w.Parse(normalized, now.In(p.loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse time %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not recognize time format: %s", input)
	}
	return r.Time.In(p.loc).Truncate(time.Minute).UTC(), nil
}
