package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"strategists.ai/internal/update"
)

// compactJSON collapses a multi-line JSON literal onto one line so it
// can be embedded in a line-oriented update log.
func compactJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		panic(err)
	}
	return buf.String()
}

// fullGameLog is a complete two-player game: p1 invests in mumbai, p2
// pays p1 rent on delhi, p2 goes bankrupt, p1 wins.
var fullGameLog = `
{"gameCode":"G1","gameStep":1,"type":"CREATE","payload":` + compactJSON(createTwoPlayers) + `}
{"gameCode":"G1","gameStep":2,"type":"INVEST","payload":` + compactJSON(investP1Mumbai) + `}
{"gameCode":"G1","gameStep":3,"type":"RENT","payload":` + compactJSON(rentP2PaysP1) + `}
{"gameCode":"G1","gameStep":4,"type":"BANKRUPTCY","payload":{"lands":[],"players":[{"id":2,"index":1,"state":"BANKRUPT","turn":true}]}}
{"gameCode":"G1","gameStep":5,"type":"WIN","payload":{"id":1,"index":0,"state":"ACTIVE"}}
`

func TestAggregate_TrainingFullGame(t *testing.T) {
	records, err := update.DecodeLines([]byte(fullGameLog))
	if err != nil {
		t.Fatalf("DecodeLines: %v", err)
	}
	res, err := Aggregate(records, ModeTraining, 1700000000)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if res.GameCode != "G1" {
		t.Fatalf("game code=%q", res.GameCode)
	}
	if len(res.Lands) != 2 || res.Lands[0].Name != "mumbai" {
		t.Fatalf("lands=%v", res.Lands)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("rows=%d", len(res.Rows))
	}

	// Sorted by bankruptcy order: loser first, winner last.
	loser, winner := res.Rows[0], res.Rows[1]
	if loser.PlayerID != 2 || loser.BankruptcyOrder != 1 || loser.State != update.StateBankrupt {
		t.Fatalf("loser: %+v", loser)
	}
	if winner.PlayerID != 1 || winner.BankruptcyOrder != 2 || winner.State != update.StateActive {
		t.Fatalf("winner: %+v", winner)
	}
	if got := winner.DebitInvestTotal.String(); got != "50.01" {
		t.Fatalf("winner invest total=%s", got)
	}
	if got := winner.CreditRentTotal.String(); got != "25.01" {
		t.Fatalf("winner credit total=%s", got)
	}
	if got := loser.DebitRentTotal.String(); got != "25.01" {
		t.Fatalf("loser debit rent total=%s", got)
	}
	if winner.ExportTimestamp != 1700000000 {
		t.Fatalf("export timestamp=%d", winner.ExportTimestamp)
	}
}

func TestAggregate_TrainingRequiresTimestamp(t *testing.T) {
	records, _ := update.DecodeLines([]byte(fullGameLog))
	_, err := Aggregate(records, ModeTraining, 0)
	var te *TrainingDataInvalidError
	if !errors.As(err, &te) || !strings.Contains(te.Clause, "export timestamp") {
		t.Fatalf("err=%v", err)
	}
}

func TestAggregate_TrainingRejectsUnfinishedGame(t *testing.T) {
	s := NewState(1700000000)
	mustApply(t, s, rec(1, update.TypeCreate, createTwoPlayers))

	_, err := s.Finalize(ModeTraining)
	var te *TrainingDataInvalidError
	if !errors.As(err, &te) || te.Clause != "only 1 active player should remain" {
		t.Fatalf("err=%v", err)
	}
}

func TestAggregate_TrainingRejectsSinglePlayer(t *testing.T) {
	s := NewState(1700000000)
	mustApply(t, s, rec(1, update.TypeCreate, `{
	  "game":{"code":"G1"},
	  "players":[{"id":1,"index":0,"state":"ACTIVE","cash":1000}],
	  "lands":[{"id":11,"name":"mumbai"}]
	}`))
	_, err := s.Finalize(ModeTraining)
	var te *TrainingDataInvalidError
	if !errors.As(err, &te) || te.Clause != "more than 1 player required" {
		t.Fatalf("err=%v", err)
	}
}

func TestAggregate_SkipExhaustionPoisonsTraining(t *testing.T) {
	records, _ := update.DecodeLines([]byte(fullGameLog))
	skip := rec(6, update.TypeSkip, `{"id":1,"state":"ACTIVE","remainingSkipsCount":0}`)
	records = append(records[:1], append([]update.Record{skip}, records[1:]...)...)

	_, err := Aggregate(records, ModeTraining, 1700000000)
	var te *TrainingDataInvalidError
	if !errors.As(err, &te) || te.Clause != "all players must have more than 0 remaining skips" {
		t.Fatalf("err=%v", err)
	}
}

func TestAggregate_SkipWithoutCounterIsNoOp(t *testing.T) {
	records, _ := update.DecodeLines([]byte(fullGameLog))
	skip := rec(6, update.TypeSkip, `{"id":1,"state":"ACTIVE"}`)
	records = append(records[:1], append([]update.Record{skip}, records[1:]...)...)

	if _, err := Aggregate(records, ModeTraining, 1700000000); err != nil {
		t.Fatalf("counter-less skip should not poison the log: %v", err)
	}
}

func TestFinalize_InferenceActivePlayers(t *testing.T) {
	s := NewState(0)
	mustApply(t, s, rec(1, update.TypeCreate, `{
	  "game":{"code":"G2"},
	  "players":[
	    {"id":1,"index":0,"state":"ACTIVE","cash":1000},
	    {"id":2,"index":1,"state":"ACTIVE","cash":1000},
	    {"id":3,"index":2,"state":"ACTIVE","cash":1000}
	  ],
	  "lands":[{"id":11,"name":"mumbai"},{"id":12,"name":"delhi"}]
	}`))
	mustApply(t, s, rec(2, update.TypeBankruptcy,
		`{"lands":[],"players":[{"id":2,"index":1,"state":"BANKRUPT","turn":true}]}`))

	res, err := s.Finalize(ModeInference)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("rows=%d want only the active players", len(res.Rows))
	}
	for _, row := range res.Rows {
		if row.State != update.StateActive {
			t.Fatalf("bankrupt row leaked: %+v", row)
		}
		if row.BankruptcyOrder != 3 {
			t.Fatalf("order=%d want total player count", row.BankruptcyOrder)
		}
	}
}

func TestFinalize_InferenceNeedsTwoActive(t *testing.T) {
	s := NewState(0)
	mustApply(t, s, rec(1, update.TypeCreate, createTwoPlayers))
	mustApply(t, s, rec(2, update.TypeBankruptcy,
		`{"lands":[],"players":[{"id":2,"index":1,"state":"BANKRUPT","turn":true}]}`))

	_, err := s.Finalize(ModeInference)
	var ie *InferenceDataInvalidError
	if !errors.As(err, &ie) {
		t.Fatalf("err=%v", err)
	}
}
