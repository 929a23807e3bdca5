package collector

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	histlog "strategists.ai/internal/persistence/log"
	"strategists.ai/internal/update"
)

func TestCollector_AppendsWellFormedUpdates(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		frames := []string{
			`{"gameCode":"G1","gameStep":1,"type":"CREATE","payload":{}}`,
			`{"heartbeat":true}`,
			`{"gameCode":"G1","gameStep":2,"type":"TURN","payload":7}`,
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	// The compressed variant matters: the zstd frame is only finished
	// by Close, so a session ended by a dropped connection must still
	// read back whole once the caller closes the writer.
	for _, name := range []string{"india-live-100.jsonl", "india-live-100.jsonl.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			writer, err := histlog.NewHistoryWriter(path)
			if err != nil {
				t.Fatalf("NewHistoryWriter: %v", err)
			}

			url := "ws" + strings.TrimPrefix(srv.URL, "http")
			c := New(url, writer, log.New(io.Discard, "", 0))
			if err := c.Run(context.Background()); err == nil {
				t.Fatalf("expected connection-closed error")
			}
			if err := writer.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			text, err := histlog.ReadHistory(path)
			if err != nil {
				t.Fatalf("ReadHistory: %v", err)
			}
			records, err := update.DecodeLines(text)
			if err != nil {
				t.Fatalf("DecodeLines: %v", err)
			}
			if len(records) != 2 {
				t.Fatalf("records=%d want the heartbeat dropped", len(records))
			}
			if records[0].Type != update.TypeCreate || records[1].Type != "TURN" {
				t.Fatalf("records: %+v", records)
			}
		})
	}
}
