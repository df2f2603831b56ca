package db

import (
	"context"
	"errors"
	"time"
)

// requested record is not in the store.
var ErrMissing = errors.New("missing")

// the store itself can not be reached.
//
// Keep this distinguishable from ErrMissing: "record missing" and
// "system broken" must not look alike to callers.
var ErrUnavailable = errors.New("store unavailable")

// Known values for TrialSpec.TrialPhase.
//
// These are the values the upstream registries use. The store accepts
// other strings as well; the spec of a simulated record is shape-checked
// only.
const (
	PhaseI   string = "Phase I"
	PhaseII  string = "Phase II"
	PhaseIII string = "Phase III"
	PhaseIV  string = "Phase IV"
)

// Known values for TrialSpec.Status.
const (
	StatusPlanned    string = "Planned"
	StatusOngoing    string = "Ongoing"
	StatusCompleted  string = "Completed"
	StatusTerminated string = "Terminated"
)

// TrialSpec is the creation subset of a clinical trial record:
// every field except the store-assigned id.
//
// Optional fields are pointers; nil means "not provided" and is stored
// as NULL.
type TrialSpec struct {
	OfficialTitle string
	Acronym       *string
	DiseaseArea   *string
	TrialPhase    *string
	Status        *string
	StartDate     *time.Time
	EndDate       *time.Time
	Country       *string
	Sponsor       *string
	Description   *string
}

func (s TrialSpec) Equal(o TrialSpec) bool {
	return s.OfficialTitle == o.OfficialTitle &&
		ptrEq(s.Acronym, o.Acronym) &&
		ptrEq(s.DiseaseArea, o.DiseaseArea) &&
		ptrEq(s.TrialPhase, o.TrialPhase) &&
		ptrEq(s.Status, o.Status) &&
		timeEq(s.StartDate, o.StartDate) &&
		timeEq(s.EndDate, o.EndDate) &&
		ptrEq(s.Country, o.Country) &&
		ptrEq(s.Sponsor, o.Sponsor) &&
		ptrEq(s.Description, o.Description)
}

// Trial is a stored clinical trial record: a TrialSpec projected with
// the id the store assigned at creation.
type Trial struct {
	Id int
	TrialSpec
}

func (t Trial) Equal(o Trial) bool {
	return t.Id == o.Id && t.TrialSpec.Equal(o.TrialSpec)
}

// ListQuery is the condition of TrialInterface.Find .
//
// Non-nil filters are combined with logical AND, each as exact string
// match. Limit/Offset select the page of the matching records.
type ListQuery struct {
	DiseaseArea *string
	Status      *string
	Country     *string
	Limit       int
	Offset      int
}

// page size used when a list request does not pass limit explicitly.
const DefaultLimit = 10

// TrialPage is the result of TrialInterface.Find .
//
// Total counts all records matching the filters, ignoring pagination.
// Trials is the page selected by Limit/Offset, ordered by id ascending.
type TrialPage struct {
	Total  int
	Trials []Trial
}

type TrialInterface interface {
	// Retrieve trials matching the query, with their total count.
	//
	// args:
	//     - ctx: context
	//     - ListQuery: filters and pagination
	//
	// returns:
	//     - TrialPage: matching records ordered by id ascending,
	//       and the count of all matches
	//     - error
	Find(ctx context.Context, q ListQuery) (TrialPage, error)

	// Retrieve a single trial by its id.
	//
	// returns:
	//     - Trial
	//     - error: ErrMissing when no trial has the id.
	Get(ctx context.Context, id int) (Trial, error)

	// Store a new trial and assign its id.
	//
	// The id is assigned by the store exactly once and is never reused,
	// even after the record is deleted.
	//
	// returns:
	//     - Trial: the stored record with its new id
	//     - error
	Create(ctx context.Context, spec TrialSpec) (Trial, error)

	// Overwrite every field of an existing trial with spec.
	//
	// This is full replacement: optional fields missing from spec are
	// reset, not preserved.
	//
	// returns:
	//     - Trial: the record after replacement
	//     - error: ErrMissing when no trial has the id.
	Replace(ctx context.Context, id int, spec TrialSpec) (Trial, error)

	// Remove a trial permanently.
	//
	// returns:
	//     - error: ErrMissing when no trial has the id.
	Delete(ctx context.Context, id int) error
}

func ptrEq[T comparable](a *T, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func timeEq(a *time.Time, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
