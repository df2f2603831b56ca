package errors

import (
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgconn"
	pgerrcode "github.com/jackc/pgerrcode"
	tdb "github.com/eutrials/triald/pkg/db"
)

// requested record is missing.
type Missing struct {
	Table    string
	Identity string
}

var _ error = Missing{}

func (m Missing) Error() string {
	return fmt.Sprintf("%s is not found in %s ", m.Identity, m.Table)
}
func (m Missing) Unwrap() error {
	return tdb.ErrMissing
}

// the backing store can not be reached.
type Unreachable struct {
	Cause error
}

var _ error = Unreachable{}

func (u Unreachable) Error() string {
	return fmt.Sprintf("store is unreachable: %s", u.Cause)
}

func (u Unreachable) Unwrap() []error {
	return []error{tdb.ErrUnavailable, u.Cause}
}

// Classify wraps connectivity failures into Unreachable, so that the
// request boundary can tell "system broken" apart from "record missing".
//
// Other errors pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgerrcode.IsConnectionException(pgErr.Code) ||
			pgerrcode.IsOperatorIntervention(pgErr.Code) {
			return Unreachable{Cause: err}
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Unreachable{Cause: err}
	}

	return err
}
