package preference

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind identifies which liked set an item belongs to.
type Kind int

const (
	KindSong Kind = iota
	KindAlbum
	KindPlaylist
)

// ErrUnknownKind is returned for an unrecognised kind name.
var ErrUnknownKind = errors.New("unknown like kind")

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSong:
		return "song"
	case KindAlbum:
		return "album"
	case KindPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// ParseKind parses a kind name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "song":
		return KindSong, nil
	case "album":
		return KindAlbum, nil
	case "playlist":
		return KindPlaylist, nil
	default:
		return 0, errors.Wrapf(ErrUnknownKind, "%q", s)
	}
}
