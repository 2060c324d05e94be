package contextbuilder

import (
	"regexp"
	"strings"
)

// DefaultTurnThreshold is the number of user answers after which the
// interview wraps up on its own once the required fields are known.
const DefaultTurnThreshold = 12

// CompletionSignal carries everything the completion predicate looks at
// besides the collected fields.
type CompletionSignal struct {
	// ModelDone is the model's own judgment that the interview is over.
	ModelDone bool
	// Utterance is the latest user message.
	Utterance string
	// UserTurns counts user messages including the latest one.
	UserTurns int
}

// CompletionPolicy decides when an interview has gathered enough.
type CompletionPolicy struct {
	RequiredKeys  []string
	TurnThreshold int
}

// DefaultCompletionPolicy requires a business name and a description.
func DefaultCompletionPolicy() CompletionPolicy {
	return CompletionPolicy{
		RequiredKeys:  []string{KeyBusinessName, KeyDescription},
		TurnThreshold: DefaultTurnThreshold,
	}
}

var finishedPattern = regexp.MustCompile(`(?i)\b(nothing else|that'?s (all|it|everything)|no more|i'?m done|we'?re done|all done|nope,? that'?s it)\b`)

// SaysFinished reports whether the utterance is an explicit "nothing else"
// style answer.
func SaysFinished(utterance string) bool {
	u := strings.TrimSpace(utterance)
	if u == "" {
		return false
	}
	return finishedPattern.MatchString(u)
}

// HasRequired reports whether every required key carries a value.
func (p CompletionPolicy) HasRequired(f Fields) bool {
	for _, key := range p.RequiredKeys {
		if _, ok := f.Get(key); !ok {
			return false
		}
	}
	return true
}

// IsComplete is the single completion predicate. The interview is complete
// when the required fields are present and either the model or the user
// says there is nothing left to add, or the turn threshold is reached.
func (p CompletionPolicy) IsComplete(f Fields, sig CompletionSignal) bool {
	if !p.HasRequired(f) {
		return false
	}
	if sig.ModelDone || SaysFinished(sig.Utterance) {
		return true
	}
	return p.TurnThreshold > 0 && sig.UserTurns >= p.TurnThreshold
}
