package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, automation.ErrRuleNotFound) {
//	    // handle not found case
//	}
var (
	// ErrRuleNotFound is returned when a rule ID does not exist.
	ErrRuleNotFound = errors.New("rule: not found")

	// ErrRuleExists is returned when adding a rule with an ID that already exists.
	ErrRuleExists = errors.New("rule: already exists")

	// ErrInvalidRule is returned when rule validation fails.
	ErrInvalidRule = errors.New("rule: invalid")

	// ErrInvalidOperator is returned for a comparison operator outside the supported set.
	ErrInvalidOperator = errors.New("rule: invalid operator")

	// ErrInvalidAction is returned for an action other than turn_on or turn_off.
	ErrInvalidAction = errors.New("rule: invalid action")

	// ErrConflictingRule is returned when two enabled rules would drive the
	// same device in opposite directions.
	ErrConflictingRule = errors.New("rule: conflicts with another enabled rule")
)
