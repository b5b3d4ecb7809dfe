package middleware

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
)

// Logger writes one JSON access-log line per request to stdout.
func Logger(loc *time.Location) fiber.Handler {
	return LoggerWithWriter(os.Stdout, loc)
}

// LoggerWithWriter writes one JSON access-log line per request to w.
// Fields: ts, request_id (from RequestID), method, path, route, status, latency (ms),
// bytes_in, bytes_out and error when the handler failed.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	if loc == nil {
		loc = time.UTC
	}
	var mu sync.Mutex
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		entry := map[string]any{
			"ts":         start.In(loc).Format(time.RFC3339Nano),
			"request_id": rid,
			"method":     c.Method(),
			"path":       c.Path(),
			"route":      c.Route().Path,
			"status":     status,
			"latency":    float64(time.Since(start).Microseconds()) / 1000,
			"bytes_in":   len(c.Request().Body()),
			"bytes_out":  len(c.Response().Body()),
		}
		if err != nil {
			entry["error"] = err.Error()
		}

		mu.Lock()
		_ = enc.Encode(entry)
		mu.Unlock()

		return err
	}
}
