package policy

import "fmt"

type UnsupportedEffectError struct {
	Sid    string
	Effect string
}

func (e UnsupportedEffectError) Error() string {
	return fmt.Sprintf("statement '%s' has unsupported effect '%s' (only '%s' is supported)",
		e.Sid, e.Effect, EffectAllow)
}

type DuplicateStatementIDError struct {
	Sid string
}

func (e DuplicateStatementIDError) Error() string {
	return fmt.Sprintf("duplicate statement ID '%s' (Sids must be unique, part IDs derive from them)", e.Sid)
}

type MissingStatementIDError struct {
	Index int
}

func (e MissingStatementIDError) Error() string {
	return fmt.Sprintf("statement at index %d has no Sid (every statement needs an explicit ID)", e.Index)
}
