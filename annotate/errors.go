package annotate

import "fmt"

// DecodeError reports an input that cannot be read or decoded into a raster.
type DecodeError struct {
	Source string // The path or name of the input.
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode image %q: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ArgumentError reports a malformed box or configuration value.
type ArgumentError struct {
	Name   string // The argument, e.g. "box" or "box[2]".
	Value  string // The offending input, if any.
	Reason string
	Err    error // The parse error, if any.
}

func (e *ArgumentError) Error() string {
	msg := fmt.Sprintf("invalid %s", e.Name)
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}
