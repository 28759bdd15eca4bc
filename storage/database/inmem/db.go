package inmemdb

import (
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/trezcool/maoni/core"
)

const (
	usersTable    = "user"
	subjectsTable = "subject"
	feedbackTable = "feedback"

	idIndex                 = "id"
	usernameIndex           = "username"
	emailIndex              = "email"
	codeIndex               = "code"
	facultyIndex            = "faculty"
	studentIndex            = "student"
	subjectIndex            = "subject"
	studentSubjectTermIndex = "student_subject_term"
)

// DB is an in-memory database with the same tables, uniqueness rules & cascades as the postgres one.
type DB struct {
	mem *memdb.MemDB
}

// schema indexes are case-insensitive, so upper-case UUIDs are found like in postgres.
func schema() *memdb.DBSchema {
	idx := func(name, field string, unique, allowMissing bool) *memdb.IndexSchema {
		return &memdb.IndexSchema{
			Name:         name,
			Unique:       unique,
			AllowMissing: allowMissing,
			Indexer:      &memdb.StringFieldIndex{Field: field, Lowercase: true},
		}
	}

	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			usersTable: {
				Name: usersTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex: idx(idIndex, "ID", true, false),
					usernameIndex: {
						Name:         usernameIndex,
						Unique:       true,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Username", Lowercase: true},
					},
					emailIndex: {
						Name:         emailIndex,
						Unique:       true,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Email", Lowercase: true},
					},
				},
			},
			subjectsTable: {
				Name: subjectsTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex:      idx(idIndex, "ID", true, false),
					codeIndex:    idx(codeIndex, "Code", true, false),
					facultyIndex: idx(facultyIndex, "FacultyID", false, true),
				},
			},
			feedbackTable: {
				Name: feedbackTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex:      idx(idIndex, "ID", true, false),
					studentIndex: idx(studentIndex, "StudentID", false, false),
					subjectIndex: idx(subjectIndex, "SubjectID", false, false),
					facultyIndex: idx(facultyIndex, "FacultyID", false, true),
					studentSubjectTermIndex: {
						Name:   studentSubjectTermIndex,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "StudentID"},
								&memdb.StringFieldIndex{Field: "SubjectID"},
								&memdb.StringFieldIndex{Field: "Term"},
							},
						},
					},
				},
			},
		},
	}
}

func Open() (*DB, error) {
	mem, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, err
	}
	return &DB{mem: mem}, nil
}

// Reset drops all the data.
func (db *DB) Reset() error {
	mem, err := memdb.NewMemDB(schema())
	if err != nil {
		return err
	}
	db.mem = mem
	return nil
}

// all returns every object of table.
func all(txn *memdb.Txn, table string) ([]interface{}, error) {
	return getAll(txn, table, idIndex)
}

func getAll(txn *memdb.Txn, table, index string, args ...interface{}) ([]interface{}, error) {
	it, err := txn.Get(table, index, args...)
	if err != nil {
		return nil, err
	}
	var objs []interface{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		objs = append(objs, obj)
	}
	return objs, nil
}

// orderBy sorts slice using ords. compare returns <0, 0 or >0 when the field of slice[i] is before, equal or after the one of slice[j].
func orderBy(slice interface{}, ords []core.DBOrdering, compare func(i, j int, field string) int) {
	if len(ords) == 0 {
		return
	}
	sort.SliceStable(slice, func(i, j int) bool {
		for _, ord := range ords {
			c := compare(i, j, ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func cmpString(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case b:
		return -1
	}
	return 1
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func isExcluded(id string, excludedIDs []string) bool {
	for _, excl := range excludedIDs {
		if excl == id {
			return true
		}
	}
	return false
}
