// Package streamer implements the polymorphic sink for outgoing sample
// rows: every row pushed into a board preset is fanned out, synchronously
// and non-blockingly, to each streamer attached to that preset.
//
// A streamer is built from a URI-like string "type://dest:mods" — this
// parsing and dispatch shape mirrors the way the host framework's output
// components are constructed from a typed config (output/file.Config,
// output/websocket.Config): a small factory keyed by a type string, with
// the destination/mods extracted once at construction.
package streamer

import (
	"strings"

	"github.com/c360/boardkit/classify"
)

// Type identifies a streamer implementation.
type Type string

const (
	TypeFile           Type = "file"
	TypeStreamingBoard Type = "streaming_board"
)

// Streamer is the contract every sink implements. Stream must never block
// acquisition: slow sinks own the latency they introduce, not the
// acquisition goroutine.
type Streamer interface {
	// Init prepares the streamer's resources (opening a file, starting a
	// background worker). Called once, before the first Stream call.
	Init() error

	// Stream delivers one sample row. Must not block the caller.
	Stream(row []float64)

	// Equals reports whether this streamer was constructed from the given
	// type/dest/mods triple, used by delete_streamer to find a match.
	Equals(typ, dest, mods string) bool

	// Destroy releases resources. Idempotent.
	Destroy() error
}

// Parse splits a streamer URI of the form "type://dest:mods" into its
// three parts. dest is everything between "://" and the *last* ":"; mods
// is the tail after that last ":". Malformed strings return an error.
func Parse(uri string) (typ, dest, mods string, err error) {
	sep := "://"
	idx := strings.Index(uri, sep)
	if idx < 0 {
		return "", "", "", classify.WrapInvalid(classify.ErrInvalidConfig, "streamer", "Parse",
			"missing \"://\" in streamer URI")
	}
	typ = uri[:idx]
	rest := uri[idx+len(sep):]

	last := strings.LastIndex(rest, ":")
	if last < 0 {
		return "", "", "", classify.WrapInvalid(classify.ErrInvalidConfig, "streamer", "Parse",
			"missing mods separator in streamer URI")
	}
	dest = rest[:last]
	mods = rest[last+1:]

	if typ == "" || dest == "" {
		return "", "", "", classify.WrapInvalid(classify.ErrInvalidConfig, "streamer", "Parse",
			"empty type or destination in streamer URI")
	}

	return typ, dest, mods, nil
}

// New constructs a Streamer from a URI string for a preset with the given
// row width (num_rows).
func New(uri string, numRows int) (Streamer, error) {
	typ, dest, mods, err := Parse(uri)
	if err != nil {
		return nil, err
	}

	switch Type(typ) {
	case TypeFile:
		return newFileStreamer(dest, mods, numRows)
	case TypeStreamingBoard:
		return newMulticastStreamer(dest, mods, numRows)
	default:
		return nil, classify.WrapInvalid(classify.ErrInvalidConfig, "streamer", "New",
			"unknown streamer type \""+typ+"\"")
	}
}
