package core

import (
	"net"
	"strconv"
	"strings"

	"github.com/rprtr258/hello-http/internal/errors"
)

// FormatAddress renders host and port for display, bracketing IPv6 literals.
func FormatAddress(host string, port int) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	return host + ":" + strconv.Itoa(port)
}

// ListenAddress is a host and port to listen on. Port 0 lets the OS pick one.
type ListenAddress struct {
	Host string
	Port int
}

// Network returns tcp6 for IPv6 literals and tcp4 for anything else.
func (a ListenAddress) Network() string {
	if strings.Contains(a.Host, ":") {
		return "tcp6"
	}
	return "tcp4"
}

// DualStack reports whether the socket must accept both IPv4 and IPv6 clients.
// Only the literal "::" does, "[::]" stays IPv6 only.
func (a ListenAddress) DualStack() bool {
	return a.Host == "::"
}

// Hostname is the host without IPv6 brackets.
func (a ListenAddress) Hostname() string {
	return strings.TrimSuffix(strings.TrimPrefix(a.Host, "["), "]")
}

// BindAddress is the address in the form accepted by net.Listen.
func (a ListenAddress) BindAddress() string {
	return net.JoinHostPort(a.Hostname(), strconv.Itoa(a.Port))
}

func (a ListenAddress) Validate() error {
	if a.Host == "" {
		return errors.Wrap(ErrInvalidConfig, "empty host")
	}
	if a.Port < 0 || a.Port > 65535 {
		return errors.Wrapf(ErrInvalidConfig, "invalid port %d", a.Port)
	}
	return nil
}

func (a ListenAddress) String() string {
	return FormatAddress(a.Host, a.Port)
}
