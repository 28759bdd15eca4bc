package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/maoni/core/report"
)

const (
	overallExpr = `(clarity + knowledge + engagement + punctuality + assessment)::numeric / 5`

	summarySelect = `COUNT(*) AS responses,
		ROUND(AVG(clarity)::numeric, 2) AS clarity,
		ROUND(AVG(knowledge)::numeric, 2) AS knowledge,
		ROUND(AVG(engagement)::numeric, 2) AS engagement,
		ROUND(AVG(punctuality)::numeric, 2) AS punctuality,
		ROUND(AVG(assessment)::numeric, 2) AS assessment,
		ROUND(AVG(` + overallExpr + `), 2) AS overall`
)

var groupByKeys = map[report.GroupBy]string{
	report.ByDepartment: "department",
	report.ByFaculty:    "COALESCE(faculty_id::text, '')",
	report.BySubject:    "subject_id::text",
	report.ByTerm:       "term",
}

type summaryRow struct {
	Key         string  `boil:"key"`
	Responses   int     `boil:"responses"`
	Clarity     float64 `boil:"clarity"`
	Knowledge   float64 `boil:"knowledge"`
	Engagement  float64 `boil:"engagement"`
	Punctuality float64 `boil:"punctuality"`
	Assessment  float64 `boil:"assessment"`
	Overall     float64 `boil:"overall"`
}

func (r summaryRow) summary() report.Summary {
	return report.Summary{
		Key:       r.Key,
		Responses: r.Responses,
		Averages: report.Averages{
			Clarity:     r.Clarity,
			Knowledge:   r.Knowledge,
			Engagement:  r.Engagement,
			Punctuality: r.Punctuality,
			Assessment:  r.Assessment,
			Overall:     r.Overall,
		},
	}
}

type scoreRow struct {
	Score int `boil:"score"`
	Count int `boil:"count"`
}

type commentRow struct {
	Comment   string    `db:"comment"`
	Overall   float64   `db:"overall"`
	CreatedAt time.Time `db:"created_at"`
}

type roleCountRow struct {
	Role  string `db:"role"`
	Count int    `db:"count"`
}

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil)

func NewReportRepository(db *sqlx.DB) report.Repository {
	return &reportRepository{db: db}
}

func feedbackWhere(filter report.Filter) *where {
	w := new(where)
	if filter.Department != "" {
		w.add("department = ?", filter.Department)
	}
	if filter.FacultyID != "" {
		w.add("faculty_id::text = ?", filter.FacultyID)
	}
	if filter.SubjectID != "" {
		w.add("subject_id::text = ?", filter.SubjectID)
	}
	if filter.Term != "" {
		w.add("term = ?", filter.Term)
	}
	return w
}

func (repo *reportRepository) Summaries(ctx context.Context, groupBy report.GroupBy, filter report.Filter) ([]report.Summary, error) {
	key, ok := groupByKeys[groupBy]
	if !ok {
		return nil, errors.Errorf("invalid group by: %q", groupBy)
	}
	w := feedbackWhere(filter)
	q := repo.db.Rebind(`SELECT ` + key + ` AS key, ` + summarySelect + ` FROM feedback` + w.String() + ` GROUP BY 1 ORDER BY ` + key + ` COLLATE "C"`)

	var rows []summaryRow
	if err := queries.Raw(q, w.args...).Bind(ctx, repo.db, &rows); err != nil {
		return nil, errors.Wrap(err, "aggregating feedback")
	}

	summaries := make([]report.Summary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, r.summary())
	}
	return summaries, nil
}

// Distribution counts the feedback per overall score rounded half away from zero.
func (repo *reportRepository) Distribution(ctx context.Context, filter report.Filter) (report.Distribution, error) {
	w := feedbackWhere(filter)
	q := repo.db.Rebind(`SELECT ROUND(` + overallExpr + `)::int AS score, COUNT(*) AS count FROM feedback` + w.String() + ` GROUP BY 1`)

	var rows []scoreRow
	if err := queries.Raw(q, w.args...).Bind(ctx, repo.db, &rows); err != nil {
		return report.Distribution{}, errors.Wrap(err, "computing distribution")
	}

	var dist report.Distribution
	for _, r := range rows {
		if r.Score >= 1 && r.Score <= 5 {
			dist[r.Score-1] += r.Count
		}
	}
	return dist, nil
}

func (repo *reportRepository) Comments(ctx context.Context, filter report.Filter, limit int) ([]report.Comment, error) {
	w := feedbackWhere(filter)
	w.add("comment <> ''")
	q := `SELECT comment, ` + overallExpr + ` AS overall, created_at FROM feedback` + w.String() + ` ORDER BY created_at DESC`
	args := w.args
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []commentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}

	comments := make([]report.Comment, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, report.Comment{Comment: r.Comment, Overall: r.Overall, CreatedAt: r.CreatedAt.UTC()})
	}
	return comments, nil
}

func (repo *reportRepository) CountUsers(ctx context.Context, department string) (map[string]int, error) {
	w := where{conds: []string{"is_active"}}
	if department != "" {
		w.add("department = ?", department)
	}
	q := repo.db.Rebind(`SELECT user_role AS role, COUNT(*) AS count FROM "user", UNNEST(roles) user_role` + w.String() + ` GROUP BY 1`)

	var rows []roleCountRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "counting users")
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Role] = r.Count
	}
	return counts, nil
}

func (repo *reportRepository) CountSubjects(ctx context.Context, department, facultyID string) (int, error) {
	w := where{conds: []string{"is_active"}}
	if department != "" {
		w.add("department = ?", department)
	}
	if facultyID != "" {
		w.add("faculty_id::text = ?", facultyID)
	}

	var cnt int
	if err := repo.db.GetContext(ctx, &cnt, repo.db.Rebind(`SELECT COUNT(*) FROM subject`+w.String()), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting subjects")
	}
	return cnt, nil
}
