package game

import "fmt"

// Consistency rules the engine enforces per event. A violated rule
// aborts aggregation for the whole log; partial state is untrustworthy.
const (
	RuleJoinBeforeCreate  = "JOIN can't be processed before CREATE or RESET"
	RuleKickUnknownPlayer = "player must be in game to be kicked"
	RuleSingleTurnPlayer  = "only 1 player should have the turn"
	RuleSinglePlayerLand  = "only 1 PlayerLand entry should be there for INVEST"
	RuleUnknownPlayer     = "player is not in the game"
	RuleUnknownLand       = "land is not part of the game"
	RuleLandIndexRange    = "player's land index is out of range"
	RuleTargetRequired    = "at least 1 target player should be present"
	RulePlayerTotals      = "source player + targets should equal total players in payload"
	RuleAlreadyBankrupt   = "player already bankrupted"
	RuleNotBankruptState  = "player's state is not BANKRUPT"
	RuleWinnerNotActive   = "winner must have ACTIVE state"
)

// ConsistencyError reports an event that violates a structural
// precondition, identified by its game step.
type ConsistencyError struct {
	GameStep int
	Rule     string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("game step %d: %s", e.GameStep, e.Rule)
}

// TrainingDataInvalidError reports finalized rows that fail a training
// invariant. Clause names the violated requirement.
type TrainingDataInvalidError struct {
	Clause string
}

func (e *TrainingDataInvalidError) Error() string {
	return "training data invalid: " + e.Clause
}

// InferenceDataInvalidError reports finalized rows unusable for
// inference.
type InferenceDataInvalidError struct {
	Clause string
}

func (e *InferenceDataInvalidError) Error() string {
	return "inference data invalid: " + e.Clause
}

func consistency(step int, rule string) error {
	return &ConsistencyError{GameStep: step, Rule: rule}
}
