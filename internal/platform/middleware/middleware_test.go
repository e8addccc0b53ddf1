package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, req *http.Request, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, mw(handler)(c)
}

func TestRequestID_Generates(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := runMiddleware(t, RequestID(), req, func(c echo.Context) error {
		if c.Get("request_id") == "" {
			t.Error("request_id missing from context")
		}
		return c.NoContent(http.StatusOK)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("response missing generated request id header")
	}
}

func TestRequestID_PreservesClientID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")

	rec, err := runMiddleware(t, RequestID(), req, func(c echo.Context) error {
		if c.Get("request_id") != "client-supplied-id" {
			t.Errorf("context request_id = %v", c.Get("request_id"))
		}
		return c.NoContent(http.StatusOK)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "client-supplied-id" {
		t.Errorf("response header = %q, want client-supplied-id", got)
	}
}

func TestRecovery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := runMiddleware(t, Recovery(testLogger()), req, func(echo.Context) error {
		panic("boom")
	})

	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError from recovered panic, got %v", err)
	}
	if httpErr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", httpErr.Code)
	}
}

func TestRecovery_PassThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := runMiddleware(t, Recovery(testLogger()), req, func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestLogger_EmitsRequestMetadata(t *testing.T) {
	var out bytes.Buffer
	logger := zerolog.New(&out)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(requestIDKey, "rid-1")

	mw := Logger(logger)
	if err := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(out.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, out.String())
	}
	if entry["request_id"] != "rid-1" {
		t.Errorf("request_id = %v, want rid-1", entry["request_id"])
	}
	if entry["method"] != "GET" || entry["path"] != "/patients" {
		t.Errorf("request fields = %v %v", entry["method"], entry["path"])
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
}

func TestLogger_HandlerErrorLoggedAtErrorLevel(t *testing.T) {
	var out bytes.Buffer
	logger := zerolog.New(&out)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	wantErr := echo.NewHTTPError(http.StatusBadRequest, "nope")
	err := Logger(logger)(func(echo.Context) error { return wantErr })(c)
	if err != wantErr {
		t.Fatalf("handler error not passed through: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(out.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["level"] != "error" {
		t.Errorf("level = %v, want error", entry["level"])
	}
}

func TestRequestTimeout_FastHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := runMiddleware(t, RequestTimeout(time.Second), req, func(c echo.Context) error {
		c.Response().Header().Set("X-Custom", "yes")
		return c.String(http.StatusOK, "ok")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
	if rec.Header().Get("X-Custom") != "yes" {
		t.Error("handler headers lost on the way to the client")
	}
}

func TestRequestTimeout_SlowHandler(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := runMiddleware(t, RequestTimeout(10*time.Millisecond), req, func(c echo.Context) error {
		<-release
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
}

// A handler that keeps writing after the deadline must not corrupt the 504
// already sent to the client.
func TestRequestTimeout_LateWritesDropped(t *testing.T) {
	wrote := make(chan struct{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := runMiddleware(t, RequestTimeout(10*time.Millisecond), req, func(c echo.Context) error {
		<-c.Request().Context().Done()
		time.Sleep(50 * time.Millisecond)
		c.Response().Write([]byte("late body"))
		close(wrote)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-wrote

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "late body") {
		t.Errorf("late handler write reached the client: %q", rec.Body.String())
	}
}

// A handler error passes through unwritten so echo's error handler can
// respond.
func TestRequestTimeout_ErrorPassthrough(t *testing.T) {
	wantErr := echo.NewHTTPError(http.StatusBadRequest, "nope")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := runMiddleware(t, RequestTimeout(time.Second), req, func(echo.Context) error {
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("err = %v, want handler error", err)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("middleware wrote %q for an unhandled error", rec.Body.String())
	}
}

func TestRequestTimeout_HandlerSeesDeadline(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := runMiddleware(t, RequestTimeout(time.Second), req, func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); !ok {
			t.Error("handler context has no deadline")
		}
		return c.NoContent(http.StatusOK)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
