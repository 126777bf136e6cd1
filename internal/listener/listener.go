// Package listener owns the listening socket and serves every accepted
// connection in its own goroutine.
package listener

import (
	"context"
	stdErrors "errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rprtr258/hello-http/internal/core"
	"github.com/rprtr258/hello-http/internal/errors"
)

// Handler serves a single connection. It must not close conn.
type Handler interface {
	ServeConn(ctx context.Context, conn net.Conn)
}

type HandlerFunc func(ctx context.Context, conn net.Conn)

func (f HandlerFunc) ServeConn(ctx context.Context, conn net.Conn) {
	f(ctx, conn)
}

type Listener struct {
	ln        net.Listener
	closeOnce sync.Once
	closeErr  error
}

// Listen binds addr. Only the literal "::" host gets a dual-stack socket.
func Listen(ctx context.Context, addr core.ListenAddress) (*Listener, error) {
	lc := net.ListenConfig{}
	if addr.DualStack() {
		lc.Control = disableIPv6Only
	}

	// on failure the runtime closes the socket before returning
	ln, err := lc.Listen(ctx, addr.Network(), addr.BindAddress())
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s %s", addr.Network(), addr.String())
	}

	l := &Listener{ln: ln}
	bound := l.Addr()
	log.Info().
		Str("addr", core.FormatAddress(bound.IP.String(), bound.Port)).
		Bool("dualStack", addr.DualStack()).
		Msg("listening")
	return l, nil
}

func (l *Listener) Addr() *net.TCPAddr {
	return l.ln.Addr().(*net.TCPAddr) //nolint:forcetypeassert // always tcp
}

// Close releases the listening socket, repeated calls return the first result.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.ln.Close()
	})
	return l.closeErr
}

const _maxAcceptDelay = time.Second

func isTemporary(err error) bool {
	var ne net.Error
	return stdErrors.As(err, &ne) && ne.Temporary() //nolint:staticcheck // accept errors still report it
}

// Serve accepts connections until ctx is done or the listener is closed, then
// waits up to grace for connections in flight. Shutdown is not an error.
func (l *Listener) Serve(ctx context.Context, h Handler, grace time.Duration) error {
	stop := context.AfterFunc(ctx, func() {
		if err := l.Close(); err != nil {
			log.Warn().Err(err).Msg("close listener")
		}
	})
	defer stop()
	defer l.Close()

	var (
		wg     sync.WaitGroup
		delay  time.Duration
		connID uint64
	)
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || stdErrors.Is(err, net.ErrClosed) {
				break
			}

			if !isTemporary(err) {
				return errors.Wrap(errors.Combine(err, l.Close()), "accept")
			}

			delay = min(max(2*delay, 5*time.Millisecond), _maxAcceptDelay)
			log.Warn().Err(err).Dur("retryIn", delay).Msg("accept")
			time.Sleep(delay)
			continue
		}
		delay = 0

		connID++
		connCtx := log.With().Uint64("conn", connID).Logger().WithContext(ctx)
		wg.Go(func() {
			serveConn(connCtx, h, conn)
		})
	}

	log.Info().Msg("stopped accepting connections")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		log.Warn().Dur("grace", grace).Msg("abandoning connections still in flight")
	}
	return nil
}

func serveConn(ctx context.Context, h Handler, conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil {
			log.Ctx(ctx).Debug().Err(err).Msg("close connection")
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).Error().Any("panic", r).Msg("connection handler panicked")
		}
	}()

	h.ServeConn(ctx, conn)
}
