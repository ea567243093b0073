package engine

import (
	"slices"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultDelay is the fixed wait between bind attempts. The provider documents
// convergence within a few minutes, so a short constant delay keeps total wall
// time close to that bound without flooding it with requests.
const DefaultDelay = 3 * time.Second

// Policy controls how the Converger retries the bind call.
//
// The zero values of MaxAttempts and MaxElapsed mean "no ceiling": the loop
// keeps retrying until the provider reports success or a failure is
// classified fatal.
type Policy struct {
	// Delay is the fixed backoff between attempts. Policy files must set a
	// positive delay; a zero delay only makes sense with a manual clock.
	Delay time.Duration `yaml:"delay" json:"delay" validate:"gt=0"`

	// MaxAttempts caps the number of bind calls. 0 disables the cap.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" validate:"gte=0"`

	// MaxElapsed caps the total run time. 0 disables the cap.
	MaxElapsed time.Duration `yaml:"max_elapsed" json:"max_elapsed" validate:"gte=0"`

	// SuccessStatuses are the provider statuses that mean "converged".
	SuccessStatuses []int `yaml:"success_statuses" json:"success_statuses" validate:"dive,gte=100,lte=599"`

	// FatalStatuses are provider statuses reclassified as permanent rejections.
	FatalStatuses []int `yaml:"fatal_statuses" json:"fatal_statuses" validate:"dive,gte=100,lte=599"`
}

// DefaultPolicy retries forever every DefaultDelay until the provider answers 200.
func DefaultPolicy() Policy {
	return Policy{
		Delay:           DefaultDelay,
		SuccessStatuses: []int{200},
	}
}

// normalize clamps a negative delay to zero and fills an empty success set.
func (p Policy) normalize() Policy {
	if p.Delay < 0 {
		p.Delay = 0
	}
	if len(p.SuccessStatuses) == 0 {
		p.SuccessStatuses = []int{200}
	}
	return p
}

// IsSuccess reports whether status means the binding converged.
func (p Policy) IsSuccess(status int) bool {
	if len(p.SuccessStatuses) == 0 {
		return status == 200
	}
	return slices.Contains(p.SuccessStatuses, status)
}

// IsFatal reports whether status was configured as a permanent rejection.
func (p Policy) IsFatal(status int) bool {
	return slices.Contains(p.FatalStatuses, status)
}

// Unbounded reports whether the policy retries without any ceiling.
func (p Policy) Unbounded() bool {
	return p.MaxAttempts == 0 && p.MaxElapsed == 0
}

// BackOff returns the delay source for this policy.
func (p Policy) BackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(p.normalize().Delay)
}
