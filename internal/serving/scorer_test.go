package serving

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"strategists.ai/internal/sim/feature"
)

func TestHTTPScorer_Score(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/predictions-model/india/infer" {
			t.Errorf("path=%s", r.URL.Path)
		}
		var req struct {
			Data []map[string]string `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Data) != 2 {
			t.Errorf("records=%d", len(req.Data))
		}
		for _, rec := range req.Data {
			if _, ok := rec["player.state"]; ok {
				t.Errorf("target column sent to the model: %v", rec)
			}
			if _, ok := rec["game.code"]; !ok {
				t.Errorf("key column missing: %v", rec)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{
				{"game_code": "G1", "player_id": 1, "win_probability": 0.7},
				{"game_code": "G1", "player_id": 2, "win_probability": 0.3},
			},
		})
	}))
	defer srv.Close()

	scorer, err := NewHTTPScorer(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPScorer: %v", err)
	}
	m := feature.Matrix{
		Columns: []string{
			feature.ColExportTimestamp, feature.ColGameCode, feature.ColBankruptcyOrder,
			feature.ColPlayerID, feature.ColPlayerState, "ownership.total",
		},
		Rows: [][]string{
			{"", "G1", "2", "1", "ACTIVE", "16.67"},
			{"", "G1", "2", "2", "ACTIVE", "0"},
		},
	}

	scores, err := scorer.Score(context.Background(), "india", m)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("scores=%d", len(scores))
	}
	if scores[0].GameCode != "G1" || scores[0].PlayerID != 1 || scores[0].WinProbability != 0.7 {
		t.Fatalf("scores[0]=%+v", scores[0])
	}
}

func TestHTTPScorer_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not trained", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	scorer, err := NewHTTPScorer(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPScorer: %v", err)
	}
	if _, err := scorer.Score(context.Background(), "india", feature.Matrix{}); err == nil {
		t.Fatalf("expected error on 503")
	}
}
