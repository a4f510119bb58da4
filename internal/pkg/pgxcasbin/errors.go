package pgxcasbin

import "errors"

var (
	// ErrRuleTooLong indicates a rule carries more values than the table has columns.
	ErrRuleTooLong = errors.New("rule exceeds column count")
	// ErrRuleEmpty indicates a stored row without a policy type.
	ErrRuleEmpty = errors.New("rule is empty")
	// ErrEmptyPtype indicates a missing policy type.
	ErrEmptyPtype = errors.New("ptype is empty")
	// ErrSelect indicates a policy read failure.
	ErrSelect = errors.New("failed to select rules")
	// ErrWrite indicates a policy write failure.
	ErrWrite = errors.New("failed to write rules")
)
