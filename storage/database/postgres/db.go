// Package pgrepos implements the repositories on top of PostgreSQL.
package pgrepos

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/maoni/core"
)

const uniqueViolation = "23505"

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// trapUniqueViolation maps the violation of a unique index to the matching error of byIndex.
func trapUniqueViolation(err error, byIndex map[string]error, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
		if e, ok := byIndex[pqErr.Constraint]; ok {
			return e
		}
	}
	return errors.Wrap(err, msg)
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// where accumulates the conditions of a WHERE clause, using "?" bind vars.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// textColumns are sorted case-insensitively, in byte order, like the in-memory storage does.
var textColumns = map[string]bool{
	"name": true, "username": true, "email": true, "department": true, "code": true, "term": true,
}

// orderBy builds an ORDER BY clause. Fields are expected to be validated column names.
func orderBy(ordering []core.DBOrdering, dflt string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + dflt
	}
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if textColumns[ord.Field] {
			ord.Field = `LOWER(` + ord.Field + `) COLLATE "C"`
		}
		list = append(list, ord.String())
	}
	return " ORDER BY " + strings.Join(list, ", ")
}
