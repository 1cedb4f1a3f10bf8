package logger

import "io"

type fder interface {
	Fd() uintptr
}

// WriterIsTerminal reports whether w is an *os.File (or anything else
// exposing a descriptor) attached to a terminal.
func WriterIsTerminal(w io.Writer) bool {
	f, ok := w.(fder)
	if !ok {
		return false
	}
	return IsTerminal(int(f.Fd()))
}
