//go:build !(darwin || dragonfly || freebsd || netbsd || openbsd || linux)

package tui

func drainStdin() {}
