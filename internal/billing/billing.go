// Package billing derives an organization's access state and resource limits
// from its subscription record. Nothing is stored: the state is recomputed on
// every check from the record and a caller-supplied clock reading.
package billing

import (
	"time"

	"github.com/iwvelando/rental-analytics/internal/model"
	"github.com/iwvelando/rental-analytics/pkg/validation"
)

// AccessState is the derived access tier.
type AccessState string

const (
	StateActive  AccessState = "active"
	StateGrace   AccessState = "grace"
	StateBlocked AccessState = "blocked"
)

// Resource is something counted against a plan limit.
type Resource string

const (
	ResourceProperty Resource = "property"
	ResourceSeat     Resource = "seat"
)

// Limits are the resource caps of a plan.
type Limits struct {
	Properties int `json:"properties" yaml:"properties"`
	Seats      int `json:"seats" yaml:"seats"`
}

// LimitsFor returns the default limits of a plan.
func LimitsFor(plan model.Plan) (Limits, error) {
	switch plan {
	case model.PlanFree:
		return Limits{Properties: 2, Seats: 1}, nil
	case model.PlanSolo:
		return Limits{Properties: 10, Seats: 1}, nil
	case model.PlanPro:
		return Limits{Properties: 50, Seats: 3}, nil
	case model.PlanAgency:
		return Limits{Properties: 250, Seats: 10}, nil
	default:
		return Limits{}, validation.Invalidf("unknown plan %q", string(plan))
	}
}

// State is the resolved billing state of an organization.
type State struct {
	OrgID         string                   `json:"orgId,omitempty"`
	Plan          model.Plan               `json:"plan"`
	Status        model.SubscriptionStatus `json:"status"`
	State         AccessState              `json:"state"`
	HasAccess     bool                     `json:"hasAccess"`
	GraceUntil    *time.Time               `json:"graceUntil,omitempty"`
	PropertyLimit int                      `json:"propertyLimit"`
	SeatLimit     int                      `json:"seatLimit"`
}

// Allows reports whether an organization already holding currentCount of the
// resource may add one more.
func (s State) Allows(r Resource, currentCount int) bool {
	if !s.HasAccess {
		return false
	}
	switch r {
	case ResourceProperty:
		return currentCount < s.PropertyLimit
	case ResourceSeat:
		return currentCount < s.SeatLimit
	default:
		return false
	}
}

// Resolve derives the state of a record at now. A nil record is an
// organization that never subscribed: free plan, active.
//
//   - active, trialing: active
//   - past_due, unpaid: grace while now <= graceUntil, otherwise blocked
//   - canceled: blocked, whatever graceUntil says
func Resolve(record *model.BillingRecord, now time.Time) (State, error) {
	if record == nil {
		record = &model.BillingRecord{Plan: model.PlanFree, Status: model.StatusActive}
	}
	if err := record.Status.Validate(); err != nil {
		return State{}, err
	}

	limits, err := LimitsFor(record.Plan)
	if err != nil {
		return State{}, err
	}
	if record.PropertyLimit != nil {
		limits.Properties = *record.PropertyLimit
	}
	if record.SeatLimit != nil {
		limits.Seats = *record.SeatLimit
	}

	state := State{
		OrgID:         record.OrgID,
		Plan:          record.Plan,
		Status:        record.Status,
		PropertyLimit: limits.Properties,
		SeatLimit:     limits.Seats,
	}

	switch record.Status {
	case model.StatusActive, model.StatusTrialing:
		state.State = StateActive
	case model.StatusPastDue, model.StatusUnpaid:
		state.State = StateBlocked
		if record.GraceUntil != nil && !now.After(*record.GraceUntil) {
			state.State = StateGrace
			state.GraceUntil = record.GraceUntil
		}
	case model.StatusCanceled:
		state.State = StateBlocked
	}
	state.HasAccess = state.State == StateActive || state.State == StateGrace

	return state, nil
}
