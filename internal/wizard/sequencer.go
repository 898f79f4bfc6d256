// Package wizard sequences the five box-building steps and decides which
// entry view a customer gets.
package wizard

import (
	"errors"
	"fmt"

	"github.com/mmynk/mealbox/internal/draft"
)

var (
	// ErrBlocked is returned by Next when the current step is incomplete.
	ErrBlocked = errors.New("current step is incomplete")
	// ErrAtEnd is returned by Next on the review step.
	ErrAtEnd = errors.New("already at the last step")
)

// Step is a 1-based wizard step.
type Step int

const (
	StepPlanAndDelivery Step = iota + 1
	StepMeals
	StepAddons
	StepDesserts
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepPlanAndDelivery:
		return "plan_and_delivery"
	case StepMeals:
		return "meals"
	case StepAddons:
		return "addons"
	case StepDesserts:
		return "desserts"
	case StepReview:
		return "review"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// State is what the completeness predicates look at.
type State struct {
	Draft draft.Draft
	// AvailabilityLoaded is false while delivery availability is still being fetched.
	AvailabilityLoaded bool
}

// Complete reports whether step s allows moving forward in st.
func (s Step) Complete(st State) bool {
	switch s {
	case StepPlanAndDelivery:
		return st.AvailabilityLoaded && st.Draft.Plan != nil && st.Draft.DeliveryDays.Valid()
	case StepMeals:
		return st.Draft.MealsComplete()
	case StepAddons, StepDesserts:
		return true
	}
	return false
}

// Sequencer tracks the current step. The zero value is not ready; use New.
type Sequencer struct {
	step Step
}

// New returns a sequencer on the first step.
func New() *Sequencer {
	return &Sequencer{step: StepPlanAndDelivery}
}

// Current returns the current step.
func (s *Sequencer) Current() Step {
	return s.step
}

// CanAdvance reports whether Next would succeed.
func (s *Sequencer) CanAdvance(st State) bool {
	return s.step < StepReview && s.step.Complete(st)
}

// Next moves forward one step. The step is unchanged on error.
func (s *Sequencer) Next(st State) error {
	if s.step >= StepReview {
		return ErrAtEnd
	}
	if !s.step.Complete(st) {
		return fmt.Errorf("%w: %s", ErrBlocked, s.step)
	}
	s.step++
	return nil
}

// Back moves back one step, stopping at the first.
func (s *Sequencer) Back() {
	if s.step > StepPlanAndDelivery {
		s.step--
	}
}

// Edit jumps back to the first step keeping the draft.
func (s *Sequencer) Edit() {
	s.step = StepPlanAndDelivery
}

// Restart returns to the first step. The caller resets the draft.
func (s *Sequencer) Restart() {
	s.step = StepPlanAndDelivery
}
