package httpapi

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_takedown/internal/engine"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

func (s *Server) progressStream(c *fiber.Ctx) error {
	if s.progress == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "progress stream not configured")
	}
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")

	events, cancel := s.progress.Subscribe()
	keepalive := s.keepalive
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		slog.Debug("sse: client connected")
		streamEvents(w, events, keepalive)
		slog.Debug("sse: client gone")
	}))
	return nil
}

// streamEvents writes one "data: <json>" frame per event until the channel closes or
// the client goes away. A comment line is sent every keepalive so a dead client is
// noticed by the next flush even when no run is active.
func streamEvents(w *bufio.Writer, events <-chan engine.ProgressEvent, keepalive time.Duration) {
	if _, err := w.WriteString(": connected\n\n"); err != nil {
		return
	}
	if err := w.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w *bufio.Writer, ev engine.ProgressEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := w.WriteString("data: "); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := w.WriteString("\n\n"); err != nil {
		return err
	}
	return w.Flush()
}
