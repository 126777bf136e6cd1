//go:build !unix

package listener

import (
	"syscall"

	"github.com/rprtr258/hello-http/internal/errors"
)

func disableIPv6Only(_, _ string, _ syscall.RawConn) error {
	return errors.New("dual-stack sockets are only supported on unix")
}
