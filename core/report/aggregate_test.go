package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/feedback"
	"github.com/trezcool/maoni/core/user"
)

func ratings(c, k, e, p, a int) feedback.Ratings {
	return feedback.Ratings{Clarity: c, Knowledge: k, Engagement: e, Punctuality: p, Assessment: a}
}

var testEntries = []Entry{
	{Department: "CSE", FacultyID: "f1", SubjectID: "s1", Term: "2025-fall", Ratings: ratings(5, 4, 3, 4, 5)},
	{Department: "CSE", FacultyID: "f1", SubjectID: "s1", Term: "2025-fall", Ratings: ratings(3, 3, 3, 3, 3)},
	{Department: "EEE", FacultyID: "f2", SubjectID: "s2", Term: "2025-fall", Ratings: ratings(1, 2, 1, 2, 1)},
	{Department: "CSE", FacultyID: "f2", SubjectID: "s3", Term: "2025-spring", Ratings: ratings(5, 5, 5, 5, 5)},
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		groupBy GroupBy
		labeler Labeler
		want    []Summary
	}{
		{name: "no entries", groupBy: ByDepartment, want: []Summary{}},
		{
			name: "by department", entries: testEntries, groupBy: ByDepartment,
			want: []Summary{
				{Key: "CSE", Responses: 3, Averages: Averages{Clarity: 4.33, Knowledge: 4, Engagement: 3.67, Punctuality: 4, Assessment: 4.33, Overall: 4.07}},
				{Key: "EEE", Responses: 1, Averages: Averages{Clarity: 1, Knowledge: 2, Engagement: 1, Punctuality: 2, Assessment: 1, Overall: 1.4}},
			},
		},
		{
			name: "by term", entries: testEntries, groupBy: ByTerm,
			want: []Summary{
				{Key: "2025-fall", Responses: 3, Averages: Averages{Clarity: 3, Knowledge: 3, Engagement: 2.33, Punctuality: 3, Assessment: 3, Overall: 2.87}},
				{Key: "2025-spring", Responses: 1, Averages: Averages{Clarity: 5, Knowledge: 5, Engagement: 5, Punctuality: 5, Assessment: 5, Overall: 5}},
			},
		},
		{
			name: "by faculty", entries: testEntries, groupBy: ByFaculty,
			labeler: func(_ GroupBy, key string) string { return strings.ToUpper(key) },
			want: []Summary{
				{Key: "f1", Label: "F1", Responses: 2, Averages: Averages{Clarity: 4, Knowledge: 3.5, Engagement: 3, Punctuality: 3.5, Assessment: 4, Overall: 3.6}},
				{Key: "f2", Label: "F2", Responses: 2, Averages: Averages{Clarity: 3, Knowledge: 3.5, Engagement: 3, Punctuality: 3.5, Assessment: 3, Overall: 3.2}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.entries, tt.groupBy, tt.labeler))
		})
	}
}

func TestDistribute(t *testing.T) {
	assert.Equal(t, Distribution{1, 0, 1, 1, 1}, Distribute(testEntries))
	assert.Equal(t, Distribution{}, Distribute(nil))
}

func TestRoundRatio(t *testing.T) {
	tests := []struct {
		sum, n int
		want   float64
	}{
		{sum: 0, n: 0, want: 0},
		{sum: 13, n: 3, want: 4.33},
		{sum: 11, n: 3, want: 3.67},
		{sum: 107, n: 40, want: 2.68}, // 2.675
		{sum: 5, n: 1, want: 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundRatio(tt.sum, tt.n), "RoundRatio(%d, %d)", tt.sum, tt.n)
	}
}

func TestFilter_Match(t *testing.T) {
	var got []Entry
	for _, e := range testEntries {
		if (Filter{Department: "CSE", Term: "2025-fall"}).Match(e) {
			got = append(got, e)
		}
	}
	assert.Equal(t, testEntries[:2], got)
}

func TestAuthorize(t *testing.T) {
	admin := user.User{ID: "a", Roles: []string{user.RoleAdmin}}
	dean := user.User{ID: "d", Roles: []string{user.RoleDean}}
	hod := user.User{ID: "h", Department: "CSE", Roles: []string{user.RoleFacultyHOD}}
	orphanHOD := user.User{ID: "oh", Roles: []string{user.RoleFacultyHOD}}
	faculty := user.User{ID: "f", Department: "CSE", Roles: []string{user.RoleFaculty}}
	student := user.User{ID: "s", Department: "CSE", Roles: []string{user.RoleStudent}}

	tests := []struct {
		name       string
		viewer     user.User
		groupBy    GroupBy
		wantFilter Filter
		wantErr    error
	}{
		{name: "admin", viewer: admin, groupBy: ByDepartment, wantFilter: Filter{Department: "EEE"}},
		{name: "dean", viewer: dean, groupBy: ByTerm, wantFilter: Filter{Department: "EEE"}},
		{name: "hod forced to department", viewer: hod, groupBy: ByDepartment, wantFilter: Filter{Department: "CSE"}},
		{name: "hod without department", viewer: orphanHOD, groupBy: ByFaculty, wantFilter: Filter{Department: "EEE"}, wantErr: core.ErrPermissionDenied},
		{name: "faculty forced to self", viewer: faculty, groupBy: BySubject, wantFilter: Filter{Department: "EEE", FacultyID: "f"}},
		{name: "faculty: no department report", viewer: faculty, groupBy: ByDepartment, wantFilter: Filter{Department: "EEE"}, wantErr: core.ErrPermissionDenied},
		{name: "faculty: no term report", viewer: faculty, groupBy: ByTerm, wantFilter: Filter{Department: "EEE"}, wantErr: core.ErrPermissionDenied},
		{name: "student", viewer: student, groupBy: BySubject, wantFilter: Filter{Department: "EEE"}, wantErr: core.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := Filter{Department: "EEE"}
			err := Authorize(tt.viewer, tt.groupBy, &filter)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantFilter, filter)
		})
	}
}
