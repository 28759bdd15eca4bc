package inmemdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/feedback"
)

type feedbackRepository struct {
	db *DB
}

var _ feedback.Repository = (*feedbackRepository)(nil)

func NewFeedbackRepository(db *DB) feedback.Repository {
	return &feedbackRepository{db: db}
}

func (repo *feedbackRepository) CreateFeedback(_ context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	txn := repo.db.mem.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(feedbackTable, studentSubjectTermIndex, fb.StudentID, fb.SubjectID, fb.Term)
	if err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "checking feedback uniqueness")
	}
	if raw != nil {
		return feedback.Feedback{}, feedback.ErrAlreadySubmitted
	}

	fb.ID = uuid.New().String()
	obj := fb
	if err = txn.Insert(feedbackTable, &obj); err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "inserting feedback")
	}
	txn.Commit()
	return fb, nil
}

func (repo *feedbackRepository) QueryFeedback(_ context.Context, filter *feedback.QueryFilter, ordering []core.DBOrdering) ([]feedback.Feedback, error) {
	txn := repo.db.mem.Txn(false)
	defer txn.Abort()

	var objs []interface{}
	var err error
	switch {
	case filter != nil && filter.SubjectID != "":
		objs, err = getAll(txn, feedbackTable, subjectIndex, filter.SubjectID)
	case filter != nil && filter.StudentID != "":
		objs, err = getAll(txn, feedbackTable, studentIndex, filter.StudentID)
	default:
		objs, err = all(txn, feedbackTable)
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}

	fbs := make([]feedback.Feedback, 0, len(objs))
	for _, obj := range objs {
		if fb := *obj.(*feedback.Feedback); filter.Match(fb) {
			fbs = append(fbs, fb)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	orderBy(fbs, ordering, func(i, j int, field string) int {
		a, b := fbs[i], fbs[j]
		switch field {
		case "term":
			return cmpString(a.Term, b.Term)
		case "department":
			return cmpString(a.Department, b.Department)
		case "created_at":
			return cmpTime(a.CreatedAt, b.CreatedAt)
		}
		return 0
	})
	return fbs, nil
}

func (repo *feedbackRepository) GetFeedback(_ context.Context, id string) (feedback.Feedback, error) {
	txn := repo.db.mem.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(feedbackTable, idIndex, id)
	if err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "finding feedback")
	}
	if raw == nil {
		return feedback.Feedback{}, feedback.ErrNotFound
	}
	return *raw.(*feedback.Feedback), nil
}

func (repo *feedbackRepository) DeleteFeedback(_ context.Context, id string) error {
	txn := repo.db.mem.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(feedbackTable, idIndex, id)
	if err != nil {
		return errors.Wrap(err, "finding feedback")
	}
	if raw == nil {
		return feedback.ErrNotFound
	}
	if err = txn.Delete(feedbackTable, raw); err != nil {
		return errors.Wrap(err, "deleting feedback")
	}
	txn.Commit()
	return nil
}
