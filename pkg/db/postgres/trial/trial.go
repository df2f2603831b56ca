package trial

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"

	tdb "github.com/eutrials/triald/pkg/db"
	kpgerr "github.com/eutrials/triald/pkg/db/postgres/errors"
	kpool "github.com/eutrials/triald/pkg/db/postgres/pool"
)

const tableTrials = "clinical_trials"

// columns of the creation subset, in insert/select order after "id".
const specColumns = `"official_title", "acronym", "disease_area", "trial_phase", "status", "start_date", "end_date", "country", "sponsor", "description"`

type trialPG struct { // implements tdb.TrialInterface
	pool kpool.Pool
}

// args:
//   - pool: connection pool used to query/exec SQL
func New(pool kpool.Pool) *trialPG {
	return &trialPG{pool: pool}
}

var _ tdb.TrialInterface = &trialPG{}

func (t *trialPG) Find(ctx context.Context, q tdb.ListQuery) (tdb.TrialPage, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return tdb.TrialPage{}, kpgerr.Unreachable{Cause: err}
	}
	defer conn.Release()

	// count and page in one transaction, so that total and data agree
	// with each other even when records churn concurrently.
	tx, err := conn.Begin(ctx)
	if err != nil {
		return tdb.TrialPage{}, kpgerr.Classify(err)
	}
	defer tx.Rollback(ctx)

	where, args := buildFilter(q)

	var total int
	if err := tx.QueryRow(
		ctx, `select count(*) from "`+tableTrials+`"`+where, args...,
	).Scan(&total); err != nil {
		return tdb.TrialPage{}, kpgerr.Classify(err)
	}

	pageArgs := append(args, q.Limit, q.Offset)
	rows, err := tx.Query(
		ctx,
		`select "id", `+specColumns+` from "`+tableTrials+`"`+where+
			fmt.Sprintf(` order by "id" limit $%d offset $%d`, len(args)+1, len(args)+2),
		pageArgs...,
	)
	if err != nil {
		return tdb.TrialPage{}, kpgerr.Classify(err)
	}
	defer rows.Close()

	found := []tdb.Trial{}
	for rows.Next() {
		var tr tdb.Trial
		if err := scanTrial(rows, &tr); err != nil {
			return tdb.TrialPage{}, err
		}
		found = append(found, tr)
	}
	if err := rows.Err(); err != nil {
		return tdb.TrialPage{}, kpgerr.Classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return tdb.TrialPage{}, kpgerr.Classify(err)
	}

	return tdb.TrialPage{Total: total, Trials: found}, nil
}

func (t *trialPG) Get(ctx context.Context, id int) (tdb.Trial, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return tdb.Trial{}, kpgerr.Unreachable{Cause: err}
	}
	defer conn.Release()

	var tr tdb.Trial
	err = scanTrial(
		conn.QueryRow(
			ctx,
			`select "id", `+specColumns+` from "`+tableTrials+`" where "id" = $1`,
			id,
		),
		&tr,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return tdb.Trial{}, missing(id)
	} else if err != nil {
		return tdb.Trial{}, err
	}

	return tr, nil
}

func (t *trialPG) Create(ctx context.Context, spec tdb.TrialSpec) (tdb.Trial, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return tdb.Trial{}, kpgerr.Unreachable{Cause: err}
	}
	defer conn.Release()

	var id int
	if err := conn.QueryRow(
		ctx,
		`insert into "`+tableTrials+`" (`+specColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		returning "id"`,
		specArgs(spec)...,
	).Scan(&id); err != nil {
		return tdb.Trial{}, kpgerr.Classify(err)
	}

	return tdb.Trial{Id: id, TrialSpec: spec}, nil
}

func (t *trialPG) Replace(ctx context.Context, id int, spec tdb.TrialSpec) (tdb.Trial, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return tdb.Trial{}, kpgerr.Unreachable{Cause: err}
	}
	defer conn.Release()

	tag, err := conn.Exec(
		ctx,
		`update "`+tableTrials+`" set
			"official_title" = $2, "acronym" = $3, "disease_area" = $4,
			"trial_phase" = $5, "status" = $6, "start_date" = $7,
			"end_date" = $8, "country" = $9, "sponsor" = $10, "description" = $11
		where "id" = $1`,
		append([]interface{}{id}, specArgs(spec)...)...,
	)
	if err != nil {
		return tdb.Trial{}, kpgerr.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return tdb.Trial{}, missing(id)
	}

	return tdb.Trial{Id: id, TrialSpec: spec}, nil
}

func (t *trialPG) Delete(ctx context.Context, id int) error {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return kpgerr.Unreachable{Cause: err}
	}
	defer conn.Release()

	tag, err := conn.Exec(
		ctx, `delete from "`+tableTrials+`" where "id" = $1`, id,
	)
	if err != nil {
		return kpgerr.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return missing(id)
	}

	return nil
}

// build " where ..." clause and its arguments from non-nil filters.
//
// Filters are exact match, combined with AND.
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
		conds = append(conds, fmt.Sprintf(`"%s" = $%d`, f.column, len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " where " + strings.Join(conds, " and "), args
}

func specArgs(spec tdb.TrialSpec) []interface{} {
	return []interface{}{
		spec.OfficialTitle, spec.Acronym, spec.DiseaseArea,
		spec.TrialPhase, spec.Status, spec.StartDate,
		spec.EndDate, spec.Country, spec.Sponsor, spec.Description,
	}
}

func scanTrial(row pgx.Row, tr *tdb.Trial) error {
	if err := row.Scan(
		&tr.Id, &tr.OfficialTitle, &tr.Acronym, &tr.DiseaseArea,
		&tr.TrialPhase, &tr.Status, &tr.StartDate, &tr.EndDate,
		&tr.Country, &tr.Sponsor, &tr.Description,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return kpgerr.Classify(err)
	}
	return nil
}

func missing(id int) error {
	return kpgerr.Missing{
		Table:    tableTrials,
		Identity: fmt.Sprintf("id=%d", id),
	}
}
