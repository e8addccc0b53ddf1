package middleware

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout bounds each request with a context deadline. Store and
// ledger calls take the request context, so the deadline covers every
// blocking operation a handler performs. Handlers that need more time can
// derive a longer-lived context from the request context.
//
// The handler runs in its own goroutine and writes into a buffer; the
// buffer reaches the client only if the handler beats the deadline. When
// the deadline fires first the client gets a 504 and anything the orphaned
// handler writes afterwards is dropped, so the two responses never
// interleave on the wire.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			dst := c.Response().Writer
			buf := newBufferedWriter(dst)
			c.Response().Writer = buf

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				c.Response().Writer = dst
				buf.flush()
				return err
			case <-ctx.Done():
				buf.discard()
				if ctx.Err() == context.DeadlineExceeded {
					dst.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
					dst.WriteHeader(http.StatusGatewayTimeout)
					dst.Write([]byte(`{"error":"request processing exceeded the allowed time limit"}`))
					return nil
				}
				// Client went away; nothing useful left to send.
				return ctx.Err()
			}
		}
	}
}

// bufferedWriter holds a handler's response until the timeout middleware
// decides whether it may reach the client.
type bufferedWriter struct {
	mu        sync.Mutex
	dst       http.ResponseWriter
	header    http.Header
	body      bytes.Buffer
	status    int
	wrote     bool
	discarded bool
}

func newBufferedWriter(dst http.ResponseWriter) *bufferedWriter {
	return &bufferedWriter{dst: dst, header: make(http.Header)}
}

func (w *bufferedWriter) Header() http.Header { return w.header }

func (w *bufferedWriter) WriteHeader(status int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.discarded || w.wrote {
		return
	}
	w.status = status
	w.wrote = true
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.discarded {
		return len(b), nil
	}
	if !w.wrote {
		w.status = http.StatusOK
		w.wrote = true
	}
	return w.body.Write(b)
}

// flush copies the buffered response to the underlying writer. Nothing is
// written when the handler never wrote; an error return is answered by
// echo's error handler instead.
func (w *bufferedWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.discarded || !w.wrote {
		return
	}
	h := w.dst.Header()
	for k, v := range w.header {
		h[k] = v
	}
	w.dst.WriteHeader(w.status)
	w.dst.Write(w.body.Bytes())
}

// discard drops everything buffered so far and everything written later.
func (w *bufferedWriter) discard() {
	w.mu.Lock()
	w.discarded = true
	w.mu.Unlock()
}
