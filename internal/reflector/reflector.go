// Package reflector answers every request with a greeting followed by the
// request line, headers and body it received.
package reflector

import (
	"bufio"
	"context"
	stdErrors "errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/rs/zerolog"

	"github.com/rprtr258/hello-http/internal/core"
	"github.com/rprtr258/hello-http/internal/httpwire"
)

const Greeting = "Hello HTTP\n\n"

type Reflector struct {
	policy         core.MethodPolicy
	readTimeout    time.Duration
	maxHeaderBytes int
}

type Option func(*Reflector)

// WithReadTimeout sets read deadline for the whole request, 0 disables it.
func WithReadTimeout(d time.Duration) Option {
	return func(r *Reflector) {
		r.readTimeout = d
	}
}

func WithMaxHeaderBytes(n int) Option {
	return func(r *Reflector) {
		r.maxHeaderBytes = n
	}
}

func New(policy core.MethodPolicy, opts ...Option) *Reflector {
	r := &Reflector{
		policy:         policy,
		readTimeout:    core.DefaultConfig.ReadTimeout,
		maxHeaderBytes: core.DefaultConfig.MaxHeaderBytes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func closeResponse(code int, headers ...httpwire.Header) httpwire.Response {
	return httpwire.Response{
		StatusCode: code,
		Headers:    append(headers, httpwire.Header{Name: "Connection", Value: "close"}),
		Body:       nil,
	}
}

// Reflect builds the response to req. Body of req is consumed unless the
// method is rejected or is HEAD.
func (r *Reflector) Reflect(req *httpwire.Request) httpwire.Response {
	if !r.policy.IsAllowed(req.Method) {
		return closeResponse(http.StatusMethodNotAllowed,
			httpwire.Header{Name: "Content-Length", Value: "0"},
		)
	}

	if req.Method == http.MethodHead {
		return closeResponse(http.StatusOK,
			httpwire.Header{Name: "Content-Type", Value: "text/plain"},
			httpwire.Header{Name: "Content-Length", Value: "0"},
		)
	}

	body := make([]byte, 0, len(Greeting)+len(req.RequestLine)+1+len(req.RawHeaders)+int(min(req.ContentLength, 4096)))
	body = append(body, Greeting...)
	body = append(body, req.RequestLine...)
	body = append(body, '\n')
	body = append(body, req.RawHeaders...)
	// read errors and early close keep whatever has arrived
	payload, _ := io.ReadAll(req.Body)
	body = append(body, payload...)

	resp := closeResponse(http.StatusOK,
		httpwire.Header{Name: "Content-Type", Value: "text/plain"},
		httpwire.Header{Name: "Content-Length", Value: strconv.Itoa(len(body))},
	)
	resp.Body = body
	return resp
}

const (
	_maxDiscardBytes = 256 << 10
	_discardTimeout  = 100 * time.Millisecond
)

// discardBody reads what is left of a body the response did not need (405,
// HEAD), so closing conn does not reset the connection under a client still
// sending. It never waits for the client longer than _discardTimeout.
func discardBody(conn net.Conn, body io.Reader, logger *zerolog.Logger) {
	if err := conn.SetReadDeadline(time.Now().Add(_discardTimeout)); err != nil {
		logger.Debug().Err(err).Msg("set discard deadline")
		return
	}

	if _, err := io.CopyN(io.Discard, body, _maxDiscardBytes); err != nil && !stdErrors.Is(err, io.EOF) {
		logger.Debug().Err(err).Msg("discard request body")
	}
}

// ServeConn handles exactly one request on conn. Closing conn is left to the
// caller.
func (r *Reflector) ServeConn(ctx context.Context, conn net.Conn) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Stringer("addr", conn.RemoteAddr()).Msg("accepted")

	if r.readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(r.readTimeout)); err != nil {
			logger.Debug().Err(err).Msg("set read deadline")
		}
	}

	req, err := httpwire.ReadRequest(bufio.NewReader(conn), r.maxHeaderBytes)
	if err != nil {
		logger.Debug().Err(err).Msg("read request")
		return
	}

	logger.Info().Msg(stripansi.Strip(req.RequestLine))

	resp := r.Reflect(req)
	if err := httpwire.WriteResponse(conn, resp); err != nil {
		logger.Debug().Err(err).Msg("write response")
		return
	}

	discardBody(conn, req.Body, logger)

	if len(resp.Body) > 0 {
		logger.Debug().Str("body", string(resp.Body)).Int("status", resp.StatusCode).Msg("reflected")
	}
}
