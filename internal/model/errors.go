package model

import (
	"fmt"
	"strings"
)

// SchemaError reports required columns absent from an input table.
type SchemaError struct {
	Stage   string
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: table %q is missing required column(s): %s",
		e.Stage, e.Table, strings.Join(e.Missing, ", "))
}

// ReferenceError summarizes events dropped because their station is not in
// the site table. It is reported, never fatal.
type ReferenceError struct {
	Dropped  int
	Stations []string
}

func (e *ReferenceError) Error() string {
	shown := e.Stations
	if len(shown) > 5 {
		shown = shown[:5]
	}
	more := ""
	if len(e.Stations) > len(shown) {
		more = fmt.Sprintf(" (+%d more)", len(e.Stations)-len(shown))
	}
	return fmt.Sprintf("dropped %d event(s) referencing unknown station(s): %s%s",
		e.Dropped, strings.Join(shown, ", "), more)
}

// BasisError reports an attempt to combine values on incompatible bases.
type BasisError struct {
	Stage  string
	Reason string
}

func (e *BasisError) Error() string {
	return fmt.Sprintf("%s: basis violation: %s", e.Stage, e.Reason)
}

// PreconditionError reports that a stage cannot run on its input.
type PreconditionError struct {
	Stage  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}
