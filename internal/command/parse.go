// Package command parses /status commands out of issue comment bodies.
//
// Grammar (case-insensitive on every word):
//
//	/status cancel
//	/status <status words...> on YYYY-MM-DD
//	/status <status words...> in <number> <day|days|week|weeks|month|months>
//
// The status name is free text, so the on/in suffix is recognized by scanning
// from the end of the token list rather than the front. A status name that
// itself ends in a plausible suffix ("blocked on 2024-01-01") is therefore
// ambiguous and resolves in favor of the suffix.
package command

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind discriminates the parsed command variants.
type Kind int

const (
	// KindNone means the comment is not a /status command at all.
	KindNone Kind = iota
	// KindCancel drops the pending move for the item.
	KindCancel
	// KindSchedule requests a status change on a future date.
	KindSchedule
)

// Command is the parse result. Status and Date are only meaningful for
// KindSchedule; Status is lowercase-folded with single-space word joins.
type Command struct {
	Kind   Kind
	Status string
	Date   time.Time
}

// ParseError describes a comment that looked like a /status command but could
// not be understood. Reason is shown verbatim to the commenting user.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return e.Reason }

// Usage is appended to user-facing rejections of malformed commands.
const Usage = "usage: `/status cancel`, `/status <name> on YYYY-MM-DD`, or `/status <name> in <number> <days|weeks|months>`"

const dateLayout = "2006-01-02"

// maxHorizon caps how far out a relative date may land. Anything beyond it
// is a typo (or an exponent), not a plan.
const maxHorizon = 100 * 365 * 24 * time.Hour

// Fixed unit ratios: a month is always 30 days, a week always 7. Calendar
// arithmetic is intentionally not used here.
var units = map[string]time.Duration{
	"day":    24 * time.Hour,
	"days":   24 * time.Hour,
	"week":   7 * 24 * time.Hour,
	"weeks":  7 * 24 * time.Hour,
	"month":  30 * 24 * time.Hour,
	"months": 30 * 24 * time.Hour,
}

// Parse tokenizes body and resolves the /status grammar. A comment whose
// first word is not /status yields KindNone and no error. Relative dates
// ("in 2 weeks") are anchored at now and truncated to a calendar date.
func Parse(body string, now time.Time) (Command, error) {
	words := strings.Fields(strings.ToLower(body))
	if len(words) == 0 || words[0] != "/status" {
		return Command{Kind: KindNone}, nil
	}

	rest := words[1:]
	if len(rest) == 1 && rest[0] == "cancel" {
		return Command{Kind: KindCancel}, nil
	}
	if len(rest) < 3 {
		return Command{}, &ParseError{Reason: "not enough words to form a command; " + Usage}
	}

	if rest[len(rest)-2] == "on" {
		date, err := time.ParseInLocation(dateLayout, rest[len(rest)-1], time.UTC)
		if err != nil {
			return Command{}, &ParseError{
				Reason: fmt.Sprintf("could not parse %q as a date, expected YYYY-MM-DD", rest[len(rest)-1]),
			}
		}
		return Command{
			Kind:   KindSchedule,
			Status: strings.Join(rest[:len(rest)-2], " "),
			Date:   date,
		}, nil
	}

	if rest[len(rest)-3] == "in" {
		status := rest[:len(rest)-3]
		if len(status) == 0 {
			return Command{}, &ParseError{Reason: "missing a status name; " + Usage}
		}
		amount, err := strconv.ParseFloat(rest[len(rest)-2], 64)
		if err != nil {
			return Command{}, &ParseError{
				Reason: fmt.Sprintf("could not parse %q as a number", rest[len(rest)-2]),
			}
		}
		// ParseFloat accepts "nan" and "inf", and NaN slips past a plain
		// <= 0 check. All of those would turn into a garbage date.
		if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
			return Command{}, &ParseError{
				Reason: fmt.Sprintf("%q is not a positive number", rest[len(rest)-2]),
			}
		}
		unit, ok := units[rest[len(rest)-1]]
		if !ok {
			return Command{}, &ParseError{
				Reason: fmt.Sprintf("unknown unit %q, expected days, weeks or months", rest[len(rest)-1]),
			}
		}
		delay := amount * float64(unit)
		if delay > float64(maxHorizon) {
			return Command{}, &ParseError{
				Reason: fmt.Sprintf("%q %s is too far in the future", rest[len(rest)-2], rest[len(rest)-1]),
			}
		}
		return Command{
			Kind:   KindSchedule,
			Status: strings.Join(status, " "),
			Date:   truncateToDate(now.Add(time.Duration(delay))),
		}, nil
	}

	return Command{}, &ParseError{Reason: "could not determine which command form was meant; " + Usage}
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
