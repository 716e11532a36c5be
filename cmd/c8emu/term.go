package main

import (
	"os"

	"golang.org/x/sys/unix"
)

var termRestore unix.Termios

// enterRawTerm puts stdin into raw mode so single keypresses can be read
// without waiting for a newline, for the optional demonstration keyboard
// input this headless host offers.
func enterRawTerm() error {
	termios, err := unix.IoctlGetTermios(int(os.Stdin.Fd()), unix.TCGETS)
	if err != nil {
		return err
	}

	termRestore = *termios
	raw := *termios

	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.IEXTEN
	raw.Cc[unix.VMIN] = 0
	raw.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(int(os.Stdin.Fd()), unix.TCSETS, &raw)
}

func exitRawTerm() error {
	return unix.IoctlSetTermios(int(os.Stdin.Fd()), unix.TCSETS, &termRestore)
}
