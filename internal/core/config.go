package core

import (
	stdErrors "errors"
	"time"

	"github.com/rprtr258/hello-http/internal/errors"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"

var ErrInvalidConfig = stdErrors.New("invalid config")

// Config is built once before listening and never changed afterwards.
type Config struct {
	Listen  ListenAddress
	Policy  MethodPolicy
	Verbose bool
	// ReadTimeout - read deadline for a single connection, 0 disables it
	ReadTimeout time.Duration
	// ShutdownTimeout - how long in-flight connections are waited for on shutdown
	ShutdownTimeout time.Duration
	// MaxHeaderBytes - limit for request line and headers together
	MaxHeaderBytes int
}

var DefaultConfig = Config{
	Listen: ListenAddress{
		Host: "127.0.0.1",
		Port: 8080,
	},
	Policy:          MethodPolicy{},
	Verbose:         false,
	ReadTimeout:     0,
	ShutdownTimeout: 5 * time.Second,
	MaxHeaderBytes:  64 << 10,
}

func (c Config) Validate() error {
	if err := c.Listen.Validate(); err != nil {
		return errors.Wrap(err, "listen address")
	}
	if c.ReadTimeout < 0 {
		return errors.Wrapf(ErrInvalidConfig, "negative read timeout %s", c.ReadTimeout)
	}
	if c.ShutdownTimeout < 0 {
		return errors.Wrapf(ErrInvalidConfig, "negative shutdown timeout %s", c.ShutdownTimeout)
	}
	if c.MaxHeaderBytes <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "max header bytes must be positive, got %d", c.MaxHeaderBytes)
	}
	return nil
}
