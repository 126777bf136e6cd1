//go:build unix

package listener

import (
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/rprtr258/hello-http/internal/errors"
)

// disableIPv6Only lets an IPv6 wildcard socket accept IPv4-mapped clients.
func disableIPv6Only(_, _ string, c syscall.RawConn) error {
	var errOpt error
	if err := c.Control(func(fd uintptr) {
		errOpt = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0)
	}); err != nil {
		return errors.Wrap(err, "control socket")
	}
	if errOpt != nil {
		return errors.Wrap(errOpt, "clear IPV6_V6ONLY")
	}
	return nil
}
