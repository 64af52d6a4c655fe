// Package idgen builds identifiers from UUIDs: object keys for uploaded
// files, business event ids and request trace ids.
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// Generator returns a new identifier on each call.
type Generator func() string

// Ordered yields UUID v7 strings. They sort by creation time, which keeps
// event rows and object listings in insertion order.
func Ordered() Generator {
	return func() string { return uuid.Must(uuid.NewV7()).String() }
}

// Random yields UUID v4 strings.
func Random() Generator {
	return func() string { return uuid.NewString() }
}

// Compact drops the hyphens of gen's output.
func Compact(gen Generator) Generator {
	return func() string { return strings.ReplaceAll(gen(), "-", "") }
}

// Prefixed puts prefix in front of gen's output ("evt_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string { return prefix + gen() }
}

// Short keeps the first n characters of gen's output. Used for ids read by
// humans in logs, where collisions only blur a search.
func Short(n int, gen Generator) Generator {
	return func() string {
		id := gen()
		if len(id) > n {
			id = id[:n]
		}
		return id
	}
}

var (
	// ObjectKey names uploaded files.
	ObjectKey = Compact(Ordered())
	// Event identifies business events.
	Event = Prefixed("evt_", Ordered())
	// Trace tags one HTTP request or MCP call.
	Trace = Short(12, Compact(Random()))
)
