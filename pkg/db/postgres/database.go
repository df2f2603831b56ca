package postgres

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v4/pgxpool"

	tdb "github.com/eutrials/triald/pkg/db"
	kpgerr "github.com/eutrials/triald/pkg/db/postgres/errors"
	kpool "github.com/eutrials/triald/pkg/db/postgres/pool"
	kpgtrial "github.com/eutrials/triald/pkg/db/postgres/trial"
	xe "github.com/eutrials/triald/pkg/errors"
)

//go:embed schema.sql
var schema string

type trialDBPostgres struct {
	pool   kpool.Pool
	trials tdb.TrialInterface
}

// New connects to PostgreSQL with url and ensures the trial table exists.
//
// url is the externally injected connection string; it is never
// defaulted here.
func New(ctx context.Context, url string) (tdb.TrialDatabase, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, xe.Wrap(kpgerr.Unreachable{Cause: err})
	}

	p := kpool.Wrap(pool)
	if err := ensureSchema(ctx, p); err != nil {
		p.Close()
		return nil, xe.Wrap(err)
	}

	return &trialDBPostgres{
		pool:   p,
		trials: kpgtrial.New(p),
	}, nil
}

func ensureSchema(ctx context.Context, pool kpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return kpgerr.Unreachable{Cause: err}
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, schema); err != nil {
		return kpgerr.Classify(err)
	}
	return nil
}

func (t *trialDBPostgres) Trials() tdb.TrialInterface {
	return t.trials
}

func (t *trialDBPostgres) Close() error {
	t.pool.Close()
	return nil
}
