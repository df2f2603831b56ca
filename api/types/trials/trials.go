package trials

import (
	"errors"
	"fmt"
	"time"

	"github.com/eutrials/triald/api/types/misc/rfcdate"
	tdb "github.com/eutrials/triald/pkg/db"
)

var ErrInvalidChange = errors.New("invalid trial payload")

// Change is a trial record as sent by clients: the creation subset,
// without id. The same shape is used for POST (create) and PUT (full
// replace).
type Change struct {
	OfficialTitle string        `json:"official_title"`
	Acronym       *string       `json:"acronym,omitempty"`
	DiseaseArea   *string       `json:"disease_area,omitempty"`
	TrialPhase    *string       `json:"trial_phase,omitempty"`
	Status        *string       `json:"status,omitempty"`
	StartDate     *rfcdate.Date `json:"start_date,omitempty"`
	EndDate       *rfcdate.Date `json:"end_date,omitempty"`
	Country       *string       `json:"country,omitempty"`
	Sponsor       *string       `json:"sponsor,omitempty"`
	Description   *string       `json:"description,omitempty"`
}

// Validate checks the shape of the change:
// official_title is required, and end_date may not be before start_date
// when both are given.
func (c Change) Validate() error {
	if c.OfficialTitle == "" {
		return fmt.Errorf(`%w: required field missing: "official_title"`, ErrInvalidChange)
	}
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return fmt.Errorf(
			"%w: end_date (%s) is before start_date (%s)",
			ErrInvalidChange, c.EndDate, c.StartDate,
		)
	}
	return nil
}

// Spec converts the change into the storage-layer creation subset.
func (c Change) Spec() tdb.TrialSpec {
	return tdb.TrialSpec{
		OfficialTitle: c.OfficialTitle,
		Acronym:       c.Acronym,
		DiseaseArea:   c.DiseaseArea,
		TrialPhase:    c.TrialPhase,
		Status:        c.Status,
		StartDate:     dateToTime(c.StartDate),
		EndDate:       dateToTime(c.EndDate),
		Country:       c.Country,
		Sponsor:       c.Sponsor,
		Description:   c.Description,
	}
}

// Detail is a stored trial record as returned by the API.
//
// Optional fields are rendered as null rather than omitted, so that a
// record read back always has the full column set.
type Detail struct {
	Id            int           `json:"id"`
	OfficialTitle string        `json:"official_title"`
	Acronym       *string       `json:"acronym"`
	DiseaseArea   *string       `json:"disease_area"`
	TrialPhase    *string       `json:"trial_phase"`
	Status        *string       `json:"status"`
	StartDate     *rfcdate.Date `json:"start_date"`
	EndDate       *rfcdate.Date `json:"end_date"`
	Country       *string       `json:"country"`
	Sponsor       *string       `json:"sponsor"`
	Description   *string       `json:"description"`
}

func (d Detail) Equal(o Detail) bool {
	return d.Id == o.Id &&
		d.OfficialTitle == o.OfficialTitle &&
		ptrEq(d.Acronym, o.Acronym) &&
		ptrEq(d.DiseaseArea, o.DiseaseArea) &&
		ptrEq(d.TrialPhase, o.TrialPhase) &&
		ptrEq(d.Status, o.Status) &&
		dateEq(d.StartDate, o.StartDate) &&
		dateEq(d.EndDate, o.EndDate) &&
		ptrEq(d.Country, o.Country) &&
		ptrEq(d.Sponsor, o.Sponsor) &&
		ptrEq(d.Description, o.Description)
}

// ComposeDetail projects a stored trial into its API representation.
func ComposeDetail(t tdb.Trial) Detail {
	return Detail{
		Id:            t.Id,
		OfficialTitle: t.OfficialTitle,
		Acronym:       t.Acronym,
		DiseaseArea:   t.DiseaseArea,
		TrialPhase:    t.TrialPhase,
		Status:        t.Status,
		StartDate:     timeToDate(t.StartDate),
		EndDate:       timeToDate(t.EndDate),
		Country:       t.Country,
		Sponsor:       t.Sponsor,
		Description:   t.Description,
	}
}

// TrialList is the envelope of the list operation.
//
// Total counts all records matching the filters, ignoring pagination;
// Limit and Offset echo the effective values used to select Data.
type TrialList struct {
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
	Data   []Detail `json:"data"`
}

func (l TrialList) Equal(o TrialList) bool {
	if l.Total != o.Total || l.Limit != o.Limit || l.Offset != o.Offset {
		return false
	}
	if len(l.Data) != len(o.Data) {
		return false
	}
	for nth := range l.Data {
		if !l.Data[nth].Equal(o.Data[nth]) {
			return false
		}
	}
	return true
}

// DeleteResult acknowledges a delete operation.
type DeleteResult struct {
	Message string `json:"message"`
}

func dateToTime(d *rfcdate.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time()
	return &t
}

func timeToDate(t *time.Time) *rfcdate.Date {
	if t == nil {
		return nil
	}
	d := rfcdate.Date(*t)
	return &d
}

func ptrEq[T comparable](a *T, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func dateEq(a *rfcdate.Date, b *rfcdate.Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
