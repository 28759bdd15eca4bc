package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/subject"
)

type subjectRepository struct {
	db *DB
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *DB) subject.Repository {
	return &subjectRepository{db: db}
}

func checkCodeUniqueness(txn *memdb.Txn, code string, excludedIDs ...string) error {
	raw, err := txn.First(subjectsTable, codeIndex, strings.ToUpper(code))
	if err != nil {
		return err
	}
	if raw != nil && !isExcluded(raw.(*subject.Subject).ID, excludedIDs) {
		return subject.ErrCodeExists
	}
	return nil
}

func (repo *subjectRepository) CheckUniqueness(_ context.Context, code string, excludedIDs ...string) error {
	txn := repo.db.mem.Txn(false)
	defer txn.Abort()
	return checkCodeUniqueness(txn, code, excludedIDs...)
}

func (repo *subjectRepository) CreateSubject(_ context.Context, subj subject.Subject) (subject.Subject, error) {
	txn := repo.db.mem.Txn(true)
	defer txn.Abort()

	if err := checkCodeUniqueness(txn, subj.Code); err != nil {
		return subject.Subject{}, err
	}
	subj.ID = uuid.New().String()
	obj := subj
	if err := txn.Insert(subjectsTable, &obj); err != nil {
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	txn.Commit()
	return subj, nil
}

func (repo *subjectRepository) QuerySubjects(_ context.Context, filter *subject.QueryFilter, ordering []core.DBOrdering) ([]subject.Subject, error) {
	txn := repo.db.mem.Txn(false)
	defer txn.Abort()

	objs, err := all(txn, subjectsTable)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]subject.Subject, 0, len(objs))
	for _, obj := range objs {
		if subj := *obj.(*subject.Subject); filter.Match(subj) {
			subjects = append(subjects, subj)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "code", Ascending: true}}
	}
	orderBy(subjects, ordering, func(i, j int, field string) int {
		a, b := subjects[i], subjects[j]
		switch field {
		case "code":
			return cmpString(a.Code, b.Code)
		case "name":
			return cmpString(a.Name, b.Name)
		case "department":
			return cmpString(a.Department, b.Department)
		case "semester":
			return cmpInt(a.Semester, b.Semester)
		case "credits":
			return cmpInt(a.Credits, b.Credits)
		case "is_active":
			return cmpBool(a.IsActive, b.IsActive)
		case "created_at":
			return cmpTime(a.CreatedAt, b.CreatedAt)
		case "updated_at":
			return cmpTime(a.UpdatedAt, b.UpdatedAt)
		}
		return 0
	})
	return subjects, nil
}

func (repo *subjectRepository) GetSubject(_ context.Context, id string) (subject.Subject, error) {
	txn := repo.db.mem.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(subjectsTable, idIndex, id)
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "finding subject")
	}
	if raw == nil {
		return subject.Subject{}, subject.ErrNotFound
	}
	return *raw.(*subject.Subject), nil
}

func (repo *subjectRepository) UpdateSubject(_ context.Context, subj subject.Subject) (subject.Subject, error) {
	txn := repo.db.mem.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(subjectsTable, idIndex, subj.ID)
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "finding subject")
	}
	if raw == nil {
		return subject.Subject{}, subject.ErrNotFound
	}
	if err = checkCodeUniqueness(txn, subj.Code, subj.ID); err != nil {
		return subject.Subject{}, err
	}
	obj := subj
	if err = txn.Insert(subjectsTable, &obj); err != nil {
		return subject.Subject{}, errors.Wrap(err, "updating subject")
	}
	txn.Commit()
	return subj, nil
}

// DeleteSubject deletes the subject with its feedback.
func (repo *subjectRepository) DeleteSubject(_ context.Context, id string) error {
	txn := repo.db.mem.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(subjectsTable, idIndex, id)
	if err != nil {
		return errors.Wrap(err, "finding subject")
	}
	if raw == nil {
		return subject.ErrNotFound
	}
	if err = txn.Delete(subjectsTable, raw); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	if _, err = txn.DeleteAll(feedbackTable, subjectIndex, id); err != nil {
		return errors.Wrap(err, "deleting subject feedback")
	}
	txn.Commit()
	return nil
}
