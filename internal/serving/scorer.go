// Package serving is the model-serving boundary: it hands a
// keyed-by-(game.code, player.id) feature matrix to a remote
// predictions service and returns per-player win probabilities.
package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"strategists.ai/internal/sim/feature"
)

// InferenceDropColumns are removed before a matrix is sent for
// scoring: the state column is the model's target, timestamp and order
// are never model inputs. The (game.code, player.id) key columns stay.
var InferenceDropColumns = []string{
	feature.ColExportTimestamp,
	feature.ColBankruptcyOrder,
	feature.ColPlayerState,
}

// PlayerScore is one player's predicted probability of winning.
type PlayerScore struct {
	GameCode       string  `json:"game_code"`
	PlayerID       int64   `json:"player_id"`
	WinProbability float64 `json:"win_probability"`
}

// Scorer scores a finalized inference matrix.
type Scorer interface {
	Score(ctx context.Context, mapID string, m feature.Matrix) ([]PlayerScore, error)
}

// HTTPScorer posts matrices to the predictions service.
type HTTPScorer struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPScorer(baseURL string) (*HTTPScorer, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("serving base url is required")
	}
	return &HTTPScorer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type inferRequest struct {
	Data []map[string]string `json:"data"`
}

type inferResponse struct {
	Predictions []PlayerScore `json:"predictions"`
}

// Score drops the non-input columns and posts the remaining records to
// /api/predictions-model/<mapID>/infer.
func (s *HTTPScorer) Score(ctx context.Context, mapID string, m feature.Matrix) ([]PlayerScore, error) {
	if mapID == "" {
		return nil, fmt.Errorf("game map id is required")
	}
	input := feature.Drop(m, InferenceDropColumns...)

	reqBody := inferRequest{Data: make([]map[string]string, 0, len(input.Rows))}
	for _, row := range input.Rows {
		rec := make(map[string]string, len(input.Columns))
		for i, c := range input.Columns {
			rec[c] = row[i]
		}
		reqBody.Data = append(reqBody.Data, rec)
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/predictions-model/%s/infer", s.baseURL, mapID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return nil, fmt.Errorf("predictions service status=%d body=%s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("predictions response: %w", err)
	}
	return out.Predictions, nil
}
