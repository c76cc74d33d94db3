package checkout

import (
	"fmt"

	pkgerrors "github.com/eshop/storefront/pkg/errors"
)

// Step is a checkout screen.
type Step string

const (
	StepCart    Step = "cart"
	StepAddress Step = "address"
	StepPayment Step = "payment"
	StepSuccess Step = "success"
)

var transitions = map[Step][]Step{
	StepCart:    {StepAddress},
	StepAddress: {StepCart, StepPayment},
	StepPayment: {StepAddress, StepSuccess},
}

var forward = map[Step]Step{
	StepCart:    StepAddress,
	StepAddress: StepPayment,
	StepPayment: StepSuccess,
}

var backward = map[Step]Step{
	StepAddress: StepCart,
	StepPayment: StepAddress,
}

func (s Step) String() string { return string(s) }

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Step) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func transitionName(from, to Step) string {
	return fmt.Sprintf("%s_to_%s", from, to)
}

func illegalTransition(from, to Step) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move from %s to %s", from, to)).
		WithDetails(map[string]any{"step": string(from)})
}
