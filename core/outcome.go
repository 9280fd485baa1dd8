package core

// LoopOutcome reports how a training run ended.
type LoopOutcome int

const (
	// OutcomeBudgetExhausted means the global step counter reached the
	// configured step budget.
	OutcomeBudgetExhausted LoopOutcome = iota
	// OutcomeSuccessThreshold means the evaluator's best score reached
	// the configured success threshold before the budget ran out. This is
	// a normal exit, checkpointed the same way as budget exhaustion.
	OutcomeSuccessThreshold
	// OutcomeFailure means a collaborator call failed or the run was
	// interrupted. The cause travels on the error return of Run.
	OutcomeFailure
)

func (o LoopOutcome) String() string {
	switch o {
	case OutcomeBudgetExhausted:
		return "budget-exhausted"
	case OutcomeSuccessThreshold:
		return "success-threshold"
	case OutcomeFailure:
		return "failure"
	}
	return "unknown"
}
