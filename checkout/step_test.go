package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStep(t *testing.T) {
	assert.Equal(t, StepCartReview, ParseStep(""))
	assert.Equal(t, StepCartReview, ParseStep("garbage"))
	assert.Equal(t, StepPayment, ParseStep("payment"))
	assert.Equal(t, StepConfirmation, ParseStep("confirmation"))
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name    string
		move    func() (Step, error)
		want    Step
		wantErr error
	}{
		{name: "proceed from review", move: func() (Step, error) { return Proceed(StepCartReview, 1) }, want: StepPayment},
		{name: "proceed with empty cart", move: func() (Step, error) { return Proceed(StepCartReview, 0) }, want: StepCartReview, wantErr: ErrEmptyCart},
		{name: "proceed from payment", move: func() (Step, error) { return Proceed(StepPayment, 1) }, want: StepPayment, wantErr: ErrInvalidTransition},
		{name: "proceed from confirmation", move: func() (Step, error) { return Proceed(StepConfirmation, 1) }, want: StepConfirmation, wantErr: ErrInvalidTransition},
		{name: "back from payment", move: func() (Step, error) { return Back(StepPayment) }, want: StepCartReview},
		{name: "back from confirmation", move: func() (Step, error) { return Back(StepConfirmation) }, want: StepConfirmation, wantErr: ErrInvalidTransition},
		{name: "back from review", move: func() (Step, error) { return Back(StepCartReview) }, want: StepCartReview, wantErr: ErrInvalidTransition},
		{name: "reset from confirmation", move: func() (Step, error) { return Reset(StepConfirmation) }, want: StepCartReview},
		{name: "reset from payment", move: func() (Step, error) { return Reset(StepPayment) }, want: StepPayment, wantErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.move()
			assert.Equal(t, tt.want, got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
