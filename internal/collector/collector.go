// Package collector subscribes to a game server's live update feed
// over a websocket and appends the raw update lines to a history log,
// one file per connected session.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	histlog "strategists.ai/internal/persistence/log"
	"strategists.ai/internal/update"
)

type Collector struct {
	url    string
	writer *histlog.HistoryWriter
	logger *log.Logger
}

func New(url string, writer *histlog.HistoryWriter, logger *log.Logger) *Collector {
	return &Collector{url: url, writer: writer, logger: logger}
}

// Run dials the feed and appends every well-formed update record until
// the context is cancelled or the connection drops. Frames that do not
// carry a gameCode and type are counted and skipped, not persisted.
func (c *Collector) Run(ctx context.Context) error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()
	c.logger.Printf("connected url=%s", c.url)

	// ReadMessage has no context form; unblock it on cancellation.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	var kept, skipped int64
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.logger.Printf("feed closed kept=%d skipped=%d", kept, skipped)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		var rec update.Record
		if err := json.Unmarshal(msg, &rec); err != nil || rec.GameCode == "" || rec.Type == "" {
			skipped++
			continue
		}
		if err := c.writer.WriteRaw(msg); err != nil {
			return fmt.Errorf("append update: %w", err)
		}
		kept++
	}
}
