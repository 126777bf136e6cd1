// Package httpwire reads HTTP/1.x requests keeping the header block exactly as
// it was received, and writes plain responses.
package httpwire

import (
	"bufio"
	"bytes"
	stdErrors "errors"
	"io"
	"strconv"
	"strings"

	"github.com/rprtr258/hello-http/internal/errors"
)

var ErrMalformedRequest = stdErrors.New("malformed request")

type Header struct {
	Name  string
	Value string
}

type Request struct {
	Method string
	Target string
	Proto  string
	// RequestLine - first line of request without line terminator
	RequestLine string
	// Headers - fields in received order, folded lines joined with a space
	Headers []Header
	// RawHeaders - header block as received, including the empty line at the end
	RawHeaders []byte
	// ContentLength - declared body length, 0 if missing or invalid
	ContentLength int64
	// Body yields at most ContentLength bytes, less if the peer closes early
	Body io.Reader
}

// Get returns the first value of the named header, case-insensitively.
func (r *Request) Get(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func malformed(msg string, a ...any) error {
	return errors.Wrapf(ErrMalformedRequest, msg, a...)
}

type lineReader struct {
	br    *bufio.Reader
	limit int
	read  int
}

// readLine returns the next line including its terminator.
func (r *lineReader) readLine() ([]byte, error) {
	var line []byte
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			if stdErrors.Is(err, io.EOF) {
				return nil, malformed("connection closed before end of headers")
			}
			return nil, errors.Wrap(err, "read header line")
		}

		r.read++
		if r.limit > 0 && r.read > r.limit {
			return nil, malformed("header block exceeds %d bytes", r.limit)
		}

		line = append(line, b)
		if b == '\n' {
			return line, nil
		}
	}
}

func trimEOL(line []byte) string {
	return string(bytes.TrimSuffix(bytes.TrimSuffix(line, []byte{'\n'}), []byte{'\r'}))
}

func isTokenChar(c byte) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
		return true
	}
	return strings.IndexByte("!#$%&'*+-.^_`|~", c) != -1
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := range len(s) {
		if !isTokenChar(s[i]) {
			return false
		}
	}
	return true
}

func parseRequestLine(line string) (method, target, proto string, err error) {
	if strings.TrimSpace(line) == "" {
		return "", "", "", malformed("empty request line")
	}

	parts := strings.Fields(line)
	if len(parts) != 3 {
		return "", "", "", malformed("request line %q: want 3 parts, got %d", line, len(parts))
	}

	method, target, proto = parts[0], parts[1], parts[2]
	if !isToken(method) {
		return "", "", "", malformed("invalid method %q", method)
	}
	if !strings.HasPrefix(proto, "HTTP/1.") || len(proto) != len("HTTP/1.x") {
		return "", "", "", malformed("unsupported protocol %q", proto)
	}

	return method, target, proto, nil
}

func contentLength(headers []Header) int64 {
	for _, h := range headers {
		if !strings.EqualFold(h.Name, "Content-Length") {
			continue
		}

		n, err := strconv.ParseInt(strings.TrimSpace(h.Value), 10, 64)
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return 0
}

// ReadRequest reads request line and headers from br. Body is left in br and
// exposed through Request.Body. maxHeaderBytes <= 0 means no limit.
func ReadRequest(br *bufio.Reader, maxHeaderBytes int) (*Request, error) {
	lr := &lineReader{br: br, limit: maxHeaderBytes, read: 0}

	first, err := lr.readLine()
	if err != nil {
		return nil, errors.Wrap(err, "read request line")
	}

	requestLine := trimEOL(first)
	method, target, proto, err := parseRequestLine(requestLine)
	if err != nil {
		return nil, err
	}

	var (
		raw     bytes.Buffer
		headers []Header
	)
	for {
		line, err := lr.readLine()
		if err != nil {
			return nil, errors.Wrap(err, "read headers")
		}
		raw.Write(line)

		text := trimEOL(line)
		if text == "" {
			break
		}

		// obsolete line folding
		if text[0] == ' ' || text[0] == '\t' {
			if len(headers) == 0 {
				return nil, malformed("continuation line before first header")
			}
			last := &headers[len(headers)-1]
			last.Value = strings.TrimSpace(last.Value + " " + strings.TrimSpace(text))
			continue
		}

		name, value, ok := strings.Cut(text, ":")
		if !ok {
			return nil, malformed("header line without colon: %q", text)
		}
		if name == "" || strings.ContainsAny(name, " \t") {
			return nil, malformed("invalid header name %q", name)
		}

		headers = append(headers, Header{
			Name:  name,
			Value: strings.TrimSpace(value),
		})
	}

	length := contentLength(headers)
	return &Request{
		Method:        method,
		Target:        target,
		Proto:         proto,
		RequestLine:   requestLine,
		Headers:       headers,
		RawHeaders:    raw.Bytes(),
		ContentLength: length,
		Body:          io.LimitReader(br, length),
	}, nil
}
