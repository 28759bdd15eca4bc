package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/maoni/core/feedback"
	"github.com/trezcool/maoni/core/report"
	"github.com/trezcool/maoni/core/subject"
	"github.com/trezcool/maoni/core/user"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil)

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) feedback(filter report.Filter) ([]feedback.Feedback, error) {
	txn := repo.db.mem.Txn(false)
	defer txn.Abort()

	objs, err := all(txn, feedbackTable)
	if err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	var fbs []feedback.Feedback
	for _, obj := range objs {
		if fb := *obj.(*feedback.Feedback); filter.Match(report.EntryOf(fb)) {
			fbs = append(fbs, fb)
		}
	}
	return fbs, nil
}

func (repo *reportRepository) entries(filter report.Filter) ([]report.Entry, error) {
	fbs, err := repo.feedback(filter)
	if err != nil {
		return nil, err
	}
	entries := make([]report.Entry, 0, len(fbs))
	for _, fb := range fbs {
		entries = append(entries, report.EntryOf(fb))
	}
	return entries, nil
}

func (repo *reportRepository) Summaries(_ context.Context, groupBy report.GroupBy, filter report.Filter) ([]report.Summary, error) {
	entries, err := repo.entries(filter)
	if err != nil {
		return nil, err
	}
	return report.Aggregate(entries, groupBy, nil), nil
}

func (repo *reportRepository) Distribution(_ context.Context, filter report.Filter) (report.Distribution, error) {
	entries, err := repo.entries(filter)
	if err != nil {
		return report.Distribution{}, err
	}
	return report.Distribute(entries), nil
}

func (repo *reportRepository) Comments(_ context.Context, filter report.Filter, limit int) ([]report.Comment, error) {
	fbs, err := repo.feedback(filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(fbs, func(i, j int) bool { return fbs[i].CreatedAt.After(fbs[j].CreatedAt) })

	comments := make([]report.Comment, 0)
	for _, fb := range fbs {
		if limit > 0 && len(comments) >= limit {
			break
		}
		if strings.TrimSpace(fb.Comment) == "" {
			continue
		}
		comments = append(comments, report.Comment{
			Comment:   fb.Comment,
			Overall:   fb.Ratings.Overall(),
			CreatedAt: fb.CreatedAt,
		})
	}
	return comments, nil
}

func (repo *reportRepository) CountUsers(_ context.Context, department string) (map[string]int, error) {
	txn := repo.db.mem.Txn(false)
	defer txn.Abort()

	objs, err := all(txn, usersTable)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	counts := make(map[string]int)
	for _, obj := range objs {
		usr := obj.(*user.User)
		if !usr.IsActive || (department != "" && usr.Department != department) {
			continue
		}
		for _, role := range usr.Roles {
			counts[role]++
		}
	}
	return counts, nil
}

func (repo *reportRepository) CountSubjects(_ context.Context, department, facultyID string) (int, error) {
	txn := repo.db.mem.Txn(false)
	defer txn.Abort()

	objs, err := all(txn, subjectsTable)
	if err != nil {
		return 0, errors.Wrap(err, "querying subjects")
	}
	var cnt int
	for _, obj := range objs {
		subj := obj.(*subject.Subject)
		if subj.IsActive &&
			(department == "" || subj.Department == department) &&
			(facultyID == "" || subj.FacultyID == facultyID) {
			cnt++
		}
	}
	return cnt, nil
}
