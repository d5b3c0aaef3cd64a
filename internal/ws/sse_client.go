package ws

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// SSEClient streams hub frames as Server-Sent Events.
type SSEClient struct {
	mu      sync.Mutex
	writer  io.Writer
	flusher http.Flusher
	log     *slog.Logger
	closed  bool
	gone    chan struct{}
}

// NewSSEClient builds an SSE client instance.
func NewSSEClient(writer io.Writer, flusher http.Flusher, logger *slog.Logger) *SSEClient {
	return &SSEClient{writer: writer, flusher: flusher, log: logger, gone: make(chan struct{})}
}

// Send emits a data event to the stream.
func (c *SSEClient) Send(payload []byte) error {
	return c.write("data: %s\n\n", payload)
}

// Heartbeat emits a comment frame to keep proxies from closing the stream.
func (c *SSEClient) Heartbeat() error {
	return c.write(": ping\n\n")
}

func (c *SSEClient) write(format string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.EOF
	}
	if _, err := fmt.Fprintf(c.writer, format, args...); err != nil {
		c.log.Warn("sse write failed", "error", err)
		c.closeLocked()
		return err
	}
	c.flusher.Flush()
	return nil
}

// Close marks the stream as closed.
func (c *SSEClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *SSEClient) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.gone)
}

// Stream attaches client for userID, optionally joins projectID's room, and
// emits heartbeats until ctx ends or the hub drops the client.
func (h *Hub) Stream(ctx context.Context, client *SSEClient, userID, projectID string, heartbeat time.Duration) error {
	if projectID != "" {
		if _, err := h.access.ProjectForRead(ctx, userID, projectID); err != nil {
			return err
		}
	}
	if !h.Connect(userID, client) {
		return io.EOF
	}
	defer h.Disconnect(userID, client)
	if projectID != "" {
		if err := h.Join(ctx, userID, projectID, client); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-client.gone:
			return nil
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return nil
			}
		}
	}
}
