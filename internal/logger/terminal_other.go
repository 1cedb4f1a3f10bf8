//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package logger

// IsTerminal always reports false where termios is unavailable.
func IsTerminal(int) bool { return false }
