package checkout

import "errors"

var ErrInvalidTransition = errors.New("invalid_step_transition")

// Step is the position of a client in the linear checkout flow.
type Step string

const (
	StepCartReview   Step = "cart_review"
	StepPayment      Step = "payment"
	StepConfirmation Step = "confirmation"
)

// ParseStep maps unknown or empty values to StepCartReview.
func ParseStep(s string) Step {
	switch Step(s) {
	case StepPayment, StepConfirmation:
		return Step(s)
	}
	return StepCartReview
}

// Proceed moves from cart review to payment; an empty cart cannot proceed.
func Proceed(from Step, cartLines int) (Step, error) {
	if from != StepCartReview {
		return from, ErrInvalidTransition
	}
	if cartLines == 0 {
		return from, ErrEmptyCart
	}
	return StepPayment, nil
}

// Back is the only backward move: payment returns to cart review.
func Back(from Step) (Step, error) {
	if from != StepPayment {
		return from, ErrInvalidTransition
	}
	return StepCartReview, nil
}

// Reset starts a new purchase after a confirmation.
func Reset(from Step) (Step, error) {
	if from != StepConfirmation {
		return from, ErrInvalidTransition
	}
	return StepCartReview, nil
}
