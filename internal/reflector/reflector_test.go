package reflector

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rprtr258/fun"
	"github.com/shoenig/test"
	"github.com/shoenig/test/must"

	"github.com/rprtr258/hello-http/internal/core"
	"github.com/rprtr258/hello-http/internal/httpwire"
)

// exchange sends raw to a fresh reflector over an in-memory connection and
// returns everything written back before the connection was closed.
func exchange(t *testing.T, r *Reflector, raw string) string {
	t.Helper()

	client, server := net.Pipe()
	go func() {
		defer server.Close()
		r.ServeConn(context.Background(), server)
	}()
	go func() {
		_, _ = io.WriteString(client, raw)
	}()

	must.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	resp, err := io.ReadAll(client)
	must.NoError(t, err)
	must.NoError(t, client.Close())
	return string(resp)
}

func policy(allow, deny string) core.MethodPolicy {
	return core.MethodPolicy{
		Allowed:    core.ParseMethods(fun.Optional(allow, allow != "")),
		Disallowed: core.ParseMethods(fun.Optional(deny, deny != "")),
	}
}

func TestReflectGet(t *testing.T) {
	t.Parallel()

	resp := exchange(t, New(core.MethodPolicy{}),
		"GET / HTTP/1.1\r\nHost: localhost\r\nUser-Agent: test\r\n\r\n")

	body := "Hello HTTP\n\n" +
		"GET / HTTP/1.1\n" +
		"Host: localhost\r\nUser-Agent: test\r\n\r\n"
	test.EqOp(t, "HTTP/1.1 200 OK\r\n"+
		"Content-Type: text/plain\r\n"+
		"Content-Length: 64\r\n"+
		"Connection: close\r\n"+
		"\r\n"+body, resp)
	test.EqOp(t, 64, len(body))
}

func TestReflectPostBody(t *testing.T) {
	t.Parallel()

	resp := exchange(t, New(core.MethodPolicy{}),
		"POST /x HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc")

	test.StrHasPrefix(t, "HTTP/1.1 200 OK\r\n", resp)
	test.StrHasSuffix(t, "Content-Length: 3\r\n\r\nabc", resp)
	test.StrContains(t, resp, "Hello HTTP\n\nPOST /x HTTP/1.1\n")
}

func TestReflectRejected(t *testing.T) {
	t.Parallel()

	r := New(policy("", "post"))

	resp := exchange(t, r, "POST / HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc")
	test.EqOp(t, "HTTP/1.1 405 Method Not Allowed\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", resp)

	resp = exchange(t, r, "GET / HTTP/1.1\r\n\r\n")
	test.StrHasPrefix(t, "HTTP/1.1 200 OK\r\n", resp)
}

func TestReflectAllowList(t *testing.T) {
	t.Parallel()

	r := New(policy("get,head", ""))

	test.StrHasPrefix(t, "HTTP/1.1 200 OK\r\n", exchange(t, r, "GET / HTTP/1.1\r\n\r\n"))
	test.StrHasPrefix(t, "HTTP/1.1 405 ", exchange(t, r, "PUT / HTTP/1.1\r\n\r\n"))
	test.StrHasPrefix(t, "HTTP/1.1 405 ", exchange(t, r, "BREW /pot HTTP/1.1\r\n\r\n"))
}

func TestReflectHead(t *testing.T) {
	t.Parallel()

	resp := exchange(t, New(core.MethodPolicy{}), "HEAD / HTTP/1.1\r\nHost: x\r\n\r\n")
	test.EqOp(t, "HTTP/1.1 200 OK\r\n"+
		"Content-Type: text/plain\r\n"+
		"Content-Length: 0\r\n"+
		"Connection: close\r\n"+
		"\r\n", resp)
}

func TestReflectMalformed(t *testing.T) {
	t.Parallel()

	test.EqOp(t, "", exchange(t, New(core.MethodPolicy{}), "garbage\r\n\r\n"))
}

func TestReflectHeaderLimit(t *testing.T) {
	t.Parallel()

	raw := "GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("a", 200) + "\r\n\r\n"
	test.EqOp(t, "", exchange(t, New(core.MethodPolicy{}, WithMaxHeaderBytes(100)), raw))
}

func TestReflectReadTimeout(t *testing.T) {
	t.Parallel()

	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer server.Close()
		New(core.MethodPolicy{}, WithReadTimeout(50*time.Millisecond)).ServeConn(context.Background(), server)
	}()

	// headers never finished
	_, err := io.WriteString(client, "GET / HTTP/1.1\r\n")
	must.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not give up on a stalled client")
	}
}

func TestReflectDeterministic(t *testing.T) {
	t.Parallel()

	r := New(core.MethodPolicy{})
	raw := "PATCH /a HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"
	test.EqOp(t, exchange(t, r, raw), exchange(t, r, raw))
}

func TestReflectPartialBody(t *testing.T) {
	t.Parallel()

	req, err := httpwire.ReadRequest(
		bufio.NewReader(strings.NewReader("POST / HTTP/1.1\r\nContent-Length: 100\r\n\r\nshort")),
		0,
	)
	must.NoError(t, err)

	resp := New(core.MethodPolicy{}).Reflect(req)
	test.EqOp(t, 200, resp.StatusCode)
	test.StrHasSuffix(t, "\r\n\r\nshort", string(resp.Body))
}

func TestRespondBeforeBodyArrives(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		raw  string
		want string
	}{
		"rejected": {
			raw:  "POST / HTTP/1.1\r\nContent-Length: 10\r\nExpect: 100-continue\r\n\r\n",
			want: "HTTP/1.1 405 Method Not Allowed\r\nContent-Length: 0\r\nConnection: close\r\n\r\n",
		},
		"head": {
			raw:  "HEAD / HTTP/1.1\r\nContent-Length: 10\r\n\r\n",
			want: "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 0\r\nConnection: close\r\n\r\n",
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			client, server := net.Pipe()
			defer client.Close()

			done := make(chan struct{})
			go func() {
				defer close(done)
				defer server.Close()
				New(policy("", "post")).ServeConn(context.Background(), server)
			}()

			// client declares a body but holds it back waiting for the status
			must.NoError(t, client.SetDeadline(time.Now().Add(time.Second)))
			_, err := io.WriteString(client, tc.raw)
			must.NoError(t, err)

			resp := make([]byte, len(tc.want))
			_, err = io.ReadFull(client, resp)
			must.NoError(t, err)
			test.EqOp(t, tc.want, string(resp))

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("handler kept waiting for the body")
			}
		})
	}
}
