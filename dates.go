package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hugogrimmett/meeting-analyser/calendar"
)

// DefaultSpan is the length of the default date range.
const DefaultSpan = 7 * 24 * time.Hour

// dateInput decides how missing dates are obtained: asked for on a terminal,
// defaulted otherwise.
type dateInput struct {
	in     io.Reader
	out    io.Writer
	prompt bool
	today  time.Time
}

// resolveRange returns [from, to) at midnight UTC. end names the last
// excluded day.
func resolveRange(startArg, endArg string, di dateInput) (time.Time, time.Time, error) {
	today := midnight(di.today)
	var r *bufio.Reader
	if di.prompt {
		r = bufio.NewReader(di.in)
	}

	from, err := date("start", startArg, today.Add(-DefaultSpan), r, di.out)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := date("end", endArg, from.Add(DefaultSpan), r, di.out)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := calendar.ValidateRange(from, to); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end date must be after start date: %w", err)
	}
	return from, to, nil
}

// date parses arg, or asks for the date when r is set, or returns def.
func date(name, arg string, def time.Time, r *bufio.Reader, out io.Writer) (time.Time, error) {
	if arg != "" {
		d, err := parseDate(arg)
		if err != nil {
			return time.Time{}, fmt.Errorf("--%s: %w", name, err)
		}
		return d, nil
	}
	if r == nil {
		return def, nil
	}
	for {
		fmt.Fprintf(out, "Enter %s date (YYYY-MM-DD) [%s]: ", name, def.Format(time.DateOnly))
		line, err := r.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			if err != nil && !errors.Is(err, io.EOF) {
				return time.Time{}, err
			}
			return def, nil
		}
		d, perr := parseDate(line)
		if perr == nil {
			return d, nil
		}
		if err != nil {
			return time.Time{}, fmt.Errorf("%s date: %w", name, perr)
		}
		fmt.Fprintf(out, "Invalid date %q, use YYYY-MM-DD.\n", line)
	}
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
