// Package queue provides the ordered play queue with shuffle and repeat navigation.
package queue

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnknownRepeatMode is returned for an unrecognized repeat mode name.
var ErrUnknownRepeatMode = errors.New("unknown repeat mode")

// RepeatMode represents the repeat policy applied when advancing.
type RepeatMode int

const (
	RepeatNone RepeatMode = iota // Stop after the last track
	RepeatAll                    // Wrap around to the first track
	RepeatOne                    // Replay the current track
)

// String returns the string representation of the repeat mode.
func (r RepeatMode) String() string {
	switch r {
	case RepeatNone:
		return "none"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// Next returns the mode that follows r in the none -> all -> one cycle.
func (r RepeatMode) Next() RepeatMode {
	switch r {
	case RepeatNone:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatNone
	}
}

// ParseRepeatMode parses a repeat mode name.
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off":
		return RepeatNone, nil
	case "all":
		return RepeatAll, nil
	case "one":
		return RepeatOne, nil
	default:
		return RepeatNone, errors.Wrapf(ErrUnknownRepeatMode, "%q", s)
	}
}

// Direction selects which way Advance moves.
type Direction int

const (
	Next     Direction = iota // Forward
	Previous                  // Backward
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case Next:
		return "next"
	case Previous:
		return "previous"
	default:
		return "unknown"
	}
}
