package mocks

import (
	"context"
	"errors"

	tdb "github.com/eutrials/triald/pkg/db"
)

type CallLog[T any] []T

func (c CallLog[T]) Times() int {
	return len(c)
}

type TrialInterface struct {
	Impl struct {
		Find    func(context.Context, tdb.ListQuery) (tdb.TrialPage, error)
		Get     func(context.Context, int) (tdb.Trial, error)
		Create  func(context.Context, tdb.TrialSpec) (tdb.Trial, error)
		Replace func(context.Context, int, tdb.TrialSpec) (tdb.Trial, error)
		Delete  func(context.Context, int) error
	}
	Calls struct {
		Find    CallLog[tdb.ListQuery]
		Get     CallLog[struct{ Id int }]
		Create  CallLog[tdb.TrialSpec]
		Replace CallLog[struct {
			Id   int
			Spec tdb.TrialSpec
		}]
		Delete CallLog[struct{ Id int }]
	}
}

func NewTrialInterface() *TrialInterface {
	return &TrialInterface{}
}

var _ tdb.TrialInterface = &TrialInterface{}

func (ti *TrialInterface) Find(ctx context.Context, q tdb.ListQuery) (tdb.TrialPage, error) {
	ti.Calls.Find = append(ti.Calls.Find, q)
	if ti.Impl.Find != nil {
		return ti.Impl.Find(ctx, q)
	}
	panic(errors.New("it should not be called"))
}

func (ti *TrialInterface) Get(ctx context.Context, id int) (tdb.Trial, error) {
	ti.Calls.Get = append(ti.Calls.Get, struct{ Id int }{Id: id})
	if ti.Impl.Get != nil {
		return ti.Impl.Get(ctx, id)
	}
	panic(errors.New("it should not be called"))
}

func (ti *TrialInterface) Create(ctx context.Context, spec tdb.TrialSpec) (tdb.Trial, error) {
	ti.Calls.Create = append(ti.Calls.Create, spec)
	if ti.Impl.Create != nil {
		return ti.Impl.Create(ctx, spec)
	}
	panic(errors.New("it should not be called"))
}

func (ti *TrialInterface) Replace(ctx context.Context, id int, spec tdb.TrialSpec) (tdb.Trial, error) {
	ti.Calls.Replace = append(ti.Calls.Replace, struct {
		Id   int
		Spec tdb.TrialSpec
	}{
		Id: id, Spec: spec,
	})
	if ti.Impl.Replace != nil {
		return ti.Impl.Replace(ctx, id, spec)
	}
	panic(errors.New("it should not be called"))
}

func (ti *TrialInterface) Delete(ctx context.Context, id int) error {
	ti.Calls.Delete = append(ti.Calls.Delete, struct{ Id int }{Id: id})
	if ti.Impl.Delete != nil {
		return ti.Impl.Delete(ctx, id)
	}
	panic(errors.New("it should not be called"))
}
