//go:build unix

package droidusb

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// File returns an *os.File on a duplicate of the connection's descriptor.
// The duplicate is close-on-exec and independent of the connection: closing
// the file does not close the connection and vice versa.
func (c *Connection) File() (*os.File, error) {
	if c.Closed() {
		return nil, ErrClosed
	}
	fd, err := unix.FcntlInt(uintptr(c.fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("droidusb: duplicating descriptor %d of %s: %w", c.fd, c.path, err)
	}
	return os.NewFile(uintptr(fd), c.path), nil
}
