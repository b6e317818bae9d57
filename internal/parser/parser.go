// Package parser defines the log-line parsing contract and the factory that
// selects a concrete variant by configuration name.
package parser

import (
	"fmt"

	"idsrs/internal/event"
	"idsrs/internal/parser/cef"
	"idsrs/internal/parser/gaia"
)

// Parser is a pure, side-effect-free mapping from a raw log line to a
// normalized Event. Safe to call concurrently from any goroutine.
type Parser interface {
	// Parse returns an Event and true if the line produced one, or the
	// zero Event and false if the line was discarded.
	Parse(line string) (event.Event, bool)

	// Name returns a stable, human-readable identifier for display.
	Name() string
}

// Select returns the Parser registered under name. An unrecognized name is
// a startup-time fatal error for the caller to surface.
func Select(name string) (Parser, error) {
	switch name {
	case "gaia":
		return gaia.New(), nil
	case "cef":
		return cef.New(), nil
	default:
		return nil, fmt.Errorf("unknown parser %q", name)
	}
}
