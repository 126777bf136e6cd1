package httpwire

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/rprtr258/hello-http/internal/errors"
)

type Response struct {
	StatusCode int
	Headers    []Header
	Body       []byte
}

// WriteResponse writes status line, headers, empty line and body in one write.
func WriteResponse(w io.Writer, resp Response) error {
	var buf bytes.Buffer
	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(resp.StatusCode))
	buf.WriteByte(' ')
	buf.WriteString(http.StatusText(resp.StatusCode))
	buf.WriteString("\r\n")
	for _, h := range resp.Headers {
		buf.WriteString(h.Name)
		buf.WriteString(": ")
		buf.WriteString(h.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(resp.Body)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.Wrapf(err, "write %d response", resp.StatusCode)
	}
	return nil
}
