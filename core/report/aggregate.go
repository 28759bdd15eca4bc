package report

import (
	"sort"

	"github.com/trezcool/maoni/core/feedback"
)

// Entry is a feedback reduced to what reports need.
type Entry struct {
	Department string
	FacultyID  string
	SubjectID  string
	Term       string
	Ratings    feedback.Ratings
}

func EntryOf(fb feedback.Feedback) Entry {
	return Entry{
		Department: fb.Department,
		FacultyID:  fb.FacultyID,
		SubjectID:  fb.SubjectID,
		Term:       fb.Term,
		Ratings:    fb.Ratings,
	}
}

func (e Entry) key(groupBy GroupBy) string {
	switch groupBy {
	case ByDepartment:
		return e.Department
	case ByFaculty:
		return e.FacultyID
	case BySubject:
		return e.SubjectID
	case ByTerm:
		return e.Term
	}
	return ""
}

// Match reports whether e satisfies filter.
func (f Filter) Match(e Entry) bool {
	return (f.Department == "" || e.Department == f.Department) &&
		(f.FacultyID == "" || e.FacultyID == f.FacultyID) &&
		(f.SubjectID == "" || e.SubjectID == f.SubjectID) &&
		(f.Term == "" || e.Term == f.Term)
}

// Labeler returns the display label of a Summary key.
type Labeler func(groupBy GroupBy, key string) string

type totals struct {
	n           int
	clarity     int
	knowledge   int
	engagement  int
	punctuality int
	assessment  int
}

func (t *totals) add(r feedback.Ratings) {
	t.n++
	t.clarity += r.Clarity
	t.knowledge += r.Knowledge
	t.engagement += r.Engagement
	t.punctuality += r.Punctuality
	t.assessment += r.Assessment
}

func (t totals) averages() Averages {
	all := t.clarity + t.knowledge + t.engagement + t.punctuality + t.assessment
	return Averages{
		Clarity:     RoundRatio(t.clarity, t.n),
		Knowledge:   RoundRatio(t.knowledge, t.n),
		Engagement:  RoundRatio(t.engagement, t.n),
		Punctuality: RoundRatio(t.punctuality, t.n),
		Assessment:  RoundRatio(t.assessment, t.n),
		Overall:     RoundRatio(all, 5*t.n),
	}
}

// Aggregate groups entries by groupBy and averages their ratings.
// Summaries are ordered by key. A nil labeler leaves labels empty.
func Aggregate(entries []Entry, groupBy GroupBy, labeler Labeler) []Summary {
	groups := make(map[string]*totals)
	for _, e := range entries {
		k := e.key(groupBy)
		t, ok := groups[k]
		if !ok {
			t = new(totals)
			groups[k] = t
		}
		t.add(e.Ratings)
	}

	summaries := make([]Summary, 0, len(groups))
	for k, t := range groups {
		s := Summary{Key: k, Responses: t.n, Averages: t.averages()}
		if labeler != nil {
			s.Label = labeler(groupBy, k)
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Key < summaries[j].Key })
	return summaries
}

// Distribute counts entries per rounded overall score.
func Distribute(entries []Entry) Distribution {
	var dist Distribution
	for _, e := range entries {
		if score := RoundScore(e.Ratings); score >= 1 && score <= 5 {
			dist[score-1]++
		}
	}
	return dist
}

// RoundScore rounds the overall score of r half away from zero.
func RoundScore(r feedback.Ratings) int {
	sum := r.Clarity + r.Knowledge + r.Engagement + r.Punctuality + r.Assessment
	return (2*sum + 5) / 10
}

// RoundRatio returns sum/n rounded half away from zero to 2 decimals, computed on integers.
// sum and n are expected to be >= 0.
func RoundRatio(sum, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64((200*sum+n)/(2*n)) / 100
}
