package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/maoni/core/report"
	"github.com/trezcool/maoni/core/user"
)

func Test_reportApi_summaries(t *testing.T) {
	resetDB(t)
	f := createFeedbackFixtures(t)
	deanToken := getToken(t, f.dean)
	facultyToken := getToken(t, f.faculty)
	permissionDenied := marchallObj(t, httpErr{Error: "permission denied"})

	cseAll := report.Summary{
		Key: "CSE", Label: "CSE", Responses: 3,
		Averages: report.Averages{Clarity: 3.33, Knowledge: 3.67, Engagement: 3, Punctuality: 3.33, Assessment: 3.33, Overall: 3.33},
	}
	eeeAll := report.Summary{
		Key: "EEE", Label: "EEE", Responses: 1,
		Averages: report.Averages{Clarity: 4, Knowledge: 4, Engagement: 4, Punctuality: 4, Assessment: 4, Overall: 4},
	}
	cseFall := report.Averages{Clarity: 3.5, Knowledge: 4, Engagement: 3, Punctuality: 3.5, Assessment: 3.5, Overall: 3.5}

	tests := []httpTest{
		{name: "Auth required", path: "/v1/reports/departments", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "staff only", path: "/v1/reports/departments", token: getToken(t, f.student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "dean: departments", path: "/v1/reports/departments", token: deanToken, wantData: marchallList(t, cseAll, eeeAll)},
		{
			name: "dean: departments of a term", path: "/v1/reports/departments?term=2025-fall", token: deanToken,
			wantData: marchallList(t,
				report.Summary{Key: "CSE", Label: "CSE", Responses: 2, Averages: cseFall},
				report.Summary{Key: "EEE", Label: "EEE", Responses: 1, Averages: eeeAll.Averages},
			),
		},
		{
			name: "dean: terms", path: "/v1/reports/terms", token: deanToken,
			wantData: marchallList(t,
				report.Summary{
					Key: "2025-fall", Label: "2025-fall", Responses: 3,
					Averages: report.Averages{Clarity: 3.67, Knowledge: 4, Engagement: 3.33, Punctuality: 3.67, Assessment: 3.67, Overall: 3.67},
				},
				report.Summary{
					Key: "2025-spring", Label: "2025-spring", Responses: 1,
					Averages: report.Averages{Clarity: 3, Knowledge: 3, Engagement: 3, Punctuality: 3, Assessment: 3, Overall: 3},
				},
			),
		},
		{
			name: "dean: subjects of a department", path: "/v1/reports/subjects?department=eee", token: deanToken,
			wantData: marchallList(t, report.Summary{Key: f.ee101.ID, Label: "EE101 - Circuits", Responses: 1, Averages: eeeAll.Averages}),
		},
		{name: "HOD: forced to department", path: "/v1/reports/departments?department=EEE", token: getToken(t, f.hod), wantData: marchallList(t, cseAll)},
		{name: "faculty: no department report", path: "/v1/reports/departments", token: facultyToken, wantCode: http.StatusForbidden, wantData: permissionDenied},
		{name: "faculty: no term report", path: "/v1/reports/terms", token: facultyToken, wantCode: http.StatusForbidden, wantData: permissionDenied},
		{
			name: "faculty: forced to self", path: "/v1/reports/faculty?faculty_id=" + f.eeeFaculty.ID, token: facultyToken,
			wantData: marchallList(t, report.Summary{Key: f.faculty.ID, Label: "Teacher", Responses: 3, Averages: cseAll.Averages}),
		},
		{name: "no feedback", path: "/v1/reports/terms?term=1999-fall", token: deanToken, wantData: marchallList(t)},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
	}
	runTests(t, tests)
}

func Test_reportApi_subject(t *testing.T) {
	resetDB(t)
	f := createFeedbackFixtures(t)
	path := "/v1/reports/subjects/" + f.cs101.ID

	errTests := []httpTest{
		{name: "staff only", path: path, token: getToken(t, f.student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "faculty of other subject", path: path, token: getToken(t, f.eeeFaculty), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "unknown", path: "/v1/reports/subjects/lol", token: getToken(t, f.dean), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "subject not found"})},
	}
	for i := range errTests {
		errTests[i].method = http.MethodGet
	}
	runTests(t, errTests)

	tests := []struct {
		name  string
		query string
		token string
		want  report.SubjectReport
	}{
		{
			name:  "current term",
			token: getToken(t, f.faculty),
			want: report.SubjectReport{
				Subject: f.cs101,
				Term:    "2025-fall",
				Summary: report.Summary{
					Key: f.cs101.ID, Label: "CS101 - Programming", Responses: 2,
					Averages: report.Averages{Clarity: 3.5, Knowledge: 4, Engagement: 3, Punctuality: 3.5, Assessment: 3.5, Overall: 3.5},
				},
				Distribution: report.Distribution{0, 1, 0, 0, 1},
				Comments:     []report.Comment{{Comment: "Great", Overall: 4.6, CreatedAt: f.fb1.CreatedAt}},
			},
		},
		{
			name:  "other term",
			query: "?term=2025-Spring",
			token: getToken(t, f.hod),
			want: report.SubjectReport{
				Subject: f.cs101,
				Term:    "2025-spring",
				Summary: report.Summary{
					Key: f.cs101.ID, Label: "CS101 - Programming", Responses: 1,
					Averages: report.Averages{Clarity: 3, Knowledge: 3, Engagement: 3, Punctuality: 3, Assessment: 3, Overall: 3},
				},
				Distribution: report.Distribution{0, 0, 1, 0, 0},
				Comments:     []report.Comment{{Comment: "Meh", Overall: 3, CreatedAt: f.fb4.CreatedAt}},
			},
		},
		{
			name:  "no feedback",
			query: "?term=2024-fall",
			token: getToken(t, f.admin),
			want: report.SubjectReport{
				Subject:  f.cs101,
				Term:     "2024-fall",
				Summary:  report.Summary{Key: f.cs101.ID, Label: "CS101 - Programming"},
				Comments: []report.Comment{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, path+tt.query, tt.token, nil)
			app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var got report.SubjectReport
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			for i := range got.Comments {
				assert.WithinDuration(t, tt.want.Comments[i].CreatedAt, got.Comments[i].CreatedAt, time.Microsecond)
				got.Comments[i].CreatedAt = tt.want.Comments[i].CreatedAt
			}
			assert.Equal(t, tt.want.Subject.ID, got.Subject.ID)
			got.Subject = tt.want.Subject
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_reportApi_dashboard(t *testing.T) {
	resetDB(t)
	f := createFeedbackFixtures(t)
	term := conf.CurrentTerm()

	tests := []struct {
		name string
		usr  user.User
		want report.Dashboard
	}{
		{
			name: "admin",
			usr:  f.admin,
			want: report.Dashboard{
				Role: user.RoleAdmin, Term: term,
				Users: map[string]int{
					user.RoleAdmin: 1, user.RoleDean: 1, user.RoleFaculty: 3, user.RoleFacultyHOD: 1, user.RoleStudent: 3,
				},
				Subjects: 4, Responses: 3, Overall: 3.67,
			},
		},
		{
			name: "HOD",
			usr:  f.hod,
			want: report.Dashboard{
				Role: user.RoleFacultyHOD, Term: term, Department: "CSE",
				Users:    map[string]int{user.RoleFaculty: 2, user.RoleFacultyHOD: 1, user.RoleStudent: 2},
				Subjects: 3, Responses: 2, Overall: 3.5,
			},
		},
		{
			name: "faculty",
			usr:  f.faculty,
			want: report.Dashboard{Role: user.RoleFaculty, Term: term, Department: "CSE", Subjects: 1, Responses: 2, Overall: 3.5},
		},
		{
			name: "student",
			usr:  f.student,
			want: report.Dashboard{Role: user.RoleStudent, Term: term, Department: "CSE", Submitted: 1, Pending: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/reports/dashboard", getToken(t, tt.usr), nil)
			app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var got report.Dashboard
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}
