// Package sqlite is a pure-go fallback store for trial records, used for
// local development and as the real-SQL test bed of the storage contract.
//
// It keeps the same observable behavior as the postgres store:
// ordering by id ascending, AND-combined exact-match filters, and ids
// that are assigned once and never reused after deletion.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	tdb "github.com/eutrials/triald/pkg/db"
	xe "github.com/eutrials/triald/pkg/errors"
)

const schema = `create table if not exists "clinical_trials" (
	"id" integer primary key autoincrement,
	"official_title" text not null,
	"acronym" text,
	"disease_area" text,
	"trial_phase" text,
	"status" text,
	"start_date" text,
	"end_date" text,
	"country" text,
	"sponsor" text,
	"description" text
)`

const dateFormat = "2006-01-02"

type trialDBSqlite struct {
	db     *sql.DB
	trials tdb.TrialInterface
}

// New opens (or creates) the sqlite database at path and ensures the
// trial table exists.
func New(ctx context.Context, path string) (tdb.TrialDatabase, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, xe.Wrap(err)
	}

	return &trialDBSqlite{db: db, trials: &trialSqlite{db: db}}, nil
}

func (t *trialDBSqlite) Trials() tdb.TrialInterface {
	return t.trials
}

func (t *trialDBSqlite) Close() error {
	return t.db.Close()
}

type trialSqlite struct { // implements tdb.TrialInterface
	db *sql.DB
}

var _ tdb.TrialInterface = &trialSqlite{}

func (t *trialSqlite) Find(ctx context.Context, q tdb.ListQuery) (tdb.TrialPage, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return tdb.TrialPage{}, xe.Wrap(err)
	}
	defer tx.Rollback()

	where, args := buildFilter(q)

	var total int
	if err := tx.QueryRowContext(
		ctx, `select count(*) from "clinical_trials"`+where, args...,
	).Scan(&total); err != nil {
		return tdb.TrialPage{}, xe.Wrap(err)
	}

	rows, err := tx.QueryContext(
		ctx,
		`select `+trialColumns+` from "clinical_trials"`+where+
			` order by "id" limit ? offset ?`,
		append(args, q.Limit, q.Offset)...,
	)
	if err != nil {
		return tdb.TrialPage{}, xe.Wrap(err)
	}
	defer rows.Close()

	found := []tdb.Trial{}
	for rows.Next() {
		tr, err := scanTrial(rows)
		if err != nil {
			return tdb.TrialPage{}, err
		}
		found = append(found, tr)
	}
	if err := rows.Err(); err != nil {
		return tdb.TrialPage{}, xe.Wrap(err)
	}

	return tdb.TrialPage{Total: total, Trials: found}, nil
}

func (t *trialSqlite) Get(ctx context.Context, id int) (tdb.Trial, error) {
	tr, err := scanTrial(t.db.QueryRowContext(
		ctx,
		`select `+trialColumns+` from "clinical_trials" where "id" = ?`,
		id,
	))
	if err == sql.ErrNoRows {
		return tdb.Trial{}, missing(id)
	} else if err != nil {
		return tdb.Trial{}, err
	}
	return tr, nil
}

func (t *trialSqlite) Create(ctx context.Context, spec tdb.TrialSpec) (tdb.Trial, error) {
	result, err := t.db.ExecContext(
		ctx,
		`insert into "clinical_trials"
			("official_title", "acronym", "disease_area", "trial_phase",
			"status", "start_date", "end_date", "country", "sponsor", "description")
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		specArgs(spec)...,
	)
	if err != nil {
		return tdb.Trial{}, xe.Wrap(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return tdb.Trial{}, xe.Wrap(err)
	}

	return tdb.Trial{Id: int(id), TrialSpec: spec}, nil
}

func (t *trialSqlite) Replace(ctx context.Context, id int, spec tdb.TrialSpec) (tdb.Trial, error) {
	result, err := t.db.ExecContext(
		ctx,
		`update "clinical_trials" set
			"official_title" = ?, "acronym" = ?, "disease_area" = ?,
			"trial_phase" = ?, "status" = ?, "start_date" = ?,
			"end_date" = ?, "country" = ?, "sponsor" = ?, "description" = ?
		where "id" = ?`,
		append(specArgs(spec), id)...,
	)
	if err != nil {
		return tdb.Trial{}, xe.Wrap(err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return tdb.Trial{}, xe.Wrap(err)
	} else if n == 0 {
		return tdb.Trial{}, missing(id)
	}

	return tdb.Trial{Id: id, TrialSpec: spec}, nil
}

func (t *trialSqlite) Delete(ctx context.Context, id int) error {
	result, err := t.db.ExecContext(
		ctx, `delete from "clinical_trials" where "id" = ?`, id,
	)
	if err != nil {
		return xe.Wrap(err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return xe.Wrap(err)
	} else if n == 0 {
		return missing(id)
	}
	return nil
}

const trialColumns = `"id", "official_title", "acronym", "disease_area", "trial_phase", "status", "start_date", "end_date", "country", "sponsor", "description"`

func buildFilter(q tdb.ListQuery) (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}

	for _, f := range []struct {
		column string
		value  *string
	}{
		{column: "disease_area", value: q.DiseaseArea},
		{column: "status", value: q.Status},
		{column: "country", value: q.Country},
	} {
		if f.value == nil {
			continue
		}
		args = append(args, *f.value)
		conds = append(conds, fmt.Sprintf(`"%s" = ?`, f.column))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " where " + strings.Join(conds, " and "), args
}

// dates are stored as "yyyy-mm-dd" text columns.
func specArgs(spec tdb.TrialSpec) []interface{} {
	return []interface{}{
		spec.OfficialTitle, spec.Acronym, spec.DiseaseArea,
		spec.TrialPhase, spec.Status,
		formatDate(spec.StartDate), formatDate(spec.EndDate),
		spec.Country, spec.Sponsor, spec.Description,
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrial(row scanner) (tdb.Trial, error) {
	var tr tdb.Trial
	var start, end *string
	if err := row.Scan(
		&tr.Id, &tr.OfficialTitle, &tr.Acronym, &tr.DiseaseArea,
		&tr.TrialPhase, &tr.Status, &start, &end,
		&tr.Country, &tr.Sponsor, &tr.Description,
	); err != nil {
		if err == sql.ErrNoRows {
			return tdb.Trial{}, err
		}
		return tdb.Trial{}, xe.Wrap(err)
	}

	var err error
	if tr.StartDate, err = parseDate(start); err != nil {
		return tdb.Trial{}, xe.Wrap(err)
	}
	if tr.EndDate, err = parseDate(end); err != nil {
		return tdb.Trial{}, xe.Wrap(err)
	}
	return tr, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateFormat)
	return &s
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(dateFormat, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type missingErr struct {
	id int
}

func missing(id int) error {
	return missingErr{id: id}
}

func (m missingErr) Error() string {
	return fmt.Sprintf("id=%d is not found in clinical_trials ", m.id)
}

func (m missingErr) Unwrap() error {
	return tdb.ErrMissing
}
