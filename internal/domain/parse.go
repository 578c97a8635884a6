package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyInput     = errors.New("empty input")
	ErrInvalidOffset  = errors.New("invalid timezone offset")
	ErrOffsetOutRange = errors.New("timezone offset out of range")
	ErrInvalidDate    = errors.New("invalid date")
)

var offsetRe = regexp.MustCompile(`^([+-]?\d{1,2})(?::(\d{2}))?$`)

// ParseOffset parses a UTC offset like "+5", "-7" or "+03" to whole
// hours. Fractional offsets (":30" suffixes) are rejected; the record
// model only supports whole-hour zones.
func ParseOffset(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyInput
	}
	m := offsetRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, s)
	}
	if m[2] != "" && m[2] != "00" {
		return 0, fmt.Errorf("%w: minutes not supported", ErrInvalidOffset)
	}
	h, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, s)
	}
	if h < -12 || h > 14 {
		return 0, fmt.Errorf("%w: %d", ErrOffsetOutRange, h)
	}
	return h, nil
}

// ParseDate validates a YYYY-MM-DD date and returns its canonical form.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyInput
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t.Format(DateLayout), nil
}

// FormatDateDisplay renders a stored YYYY-MM-DD date as DD-MM-YYYY.
func FormatDateDisplay(isoDate string) string {
	t, err := time.Parse(DateLayout, isoDate)
	if err != nil {
		return isoDate
	}
	return t.Format("02-01-2006")
}
