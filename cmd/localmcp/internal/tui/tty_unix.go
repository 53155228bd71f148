//go:build darwin || dragonfly || freebsd || netbsd || openbsd || linux

package tui

import (
	"os"

	"golang.org/x/sys/unix"
)

// drainStdin discards bytes already queued on the terminal, such as keys
// typed while the configuration was loading, so they do not end up in the
// first prompt. Canonical mode only releases whole lines, so it is switched
// off while draining.
func drainStdin() {
	fd := int(os.Stdin.Fd()) //nolint:gosec // stdin fd is a small non-negative int

	old, err := unix.IoctlGetTermios(fd, getTermios)
	if err != nil {
		return
	}

	raw := *old
	raw.Lflag &^= unix.ECHO | unix.ICANON
	raw.Cc[unix.VMIN] = 0
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, setTermios, &raw); err != nil {
		return
	}
	defer func() { _ = unix.IoctlSetTermios(fd, setTermios, old) }()

	buf := make([]byte, 256)
	for {
		n, err := unix.Read(fd, buf)
		if n <= 0 || err != nil {
			return
		}
	}
}
