package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/maoni/core/feedback"
	"github.com/trezcool/maoni/core/subject"
	"github.com/trezcool/maoni/core/user"
	"github.com/trezcool/maoni/tests"
)

type subjectFixtures struct {
	admin, dean, hod, faculty, eeeFaculty, student user.User
	cs101, cs201, ee101                            subject.Subject
}

func createSubjectFixtures(t *testing.T) subjectFixtures {
	var f subjectFixtures
	f.admin = testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.ac", "", []string{user.RoleAdmin}, true)
	f.dean = testutil.CreateUser(t, usrRepo, "Dean", "dean", "dean@test.ac", "", []string{user.RoleDean}, true)
	f.hod = testutil.CreateMember(t, usrRepo, "Head", "head", "CSE", 0, user.RoleFaculty, user.RoleFacultyHOD)
	f.faculty = testutil.CreateMember(t, usrRepo, "Teacher", "teacher", "CSE", 0, user.RoleFaculty)
	f.eeeFaculty = testutil.CreateMember(t, usrRepo, "Sparky", "sparky", "EEE", 0, user.RoleFaculty)
	f.student = testutil.CreateMember(t, usrRepo, "Hero", "hero", "CSE", 3, user.RoleStudent)

	f.cs101 = testutil.CreateSubject(t, subjRepo, "CS101", "Programming", "CSE", 3, f.faculty.ID)
	f.cs201 = testutil.CreateSubject(t, subjRepo, "CS201", "Data Structures", "CSE", 5, "")
	f.ee101 = testutil.CreateSubject(t, subjRepo, "EE101", "Circuits", "EEE", 3, f.eeeFaculty.ID)
	return f
}

func Test_subjectApi_query(t *testing.T) {
	resetDB(t)
	f := createSubjectFixtures(t)
	studentToken := getToken(t, f.student)
	deanToken := getToken(t, f.dean)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/subjects", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "staff: all", path: "/v1/subjects", token: deanToken, wantData: marchallList(t, f.cs101, f.cs201, f.ee101)},
		{name: "staff: department", path: "/v1/subjects?department=eee", token: deanToken, wantData: marchallList(t, f.ee101)},
		{name: "staff: search", path: "/v1/subjects?search=STRUCT", token: deanToken, wantData: marchallList(t, f.cs201)},
		{name: "staff: semester", path: "/v1/subjects?semester=3&ordering=-code", token: deanToken, wantData: marchallList(t, f.ee101, f.cs101)},
		{name: "staff: faculty", path: "/v1/subjects?faculty_id=" + f.faculty.ID, token: deanToken, wantData: marchallList(t, f.cs101)},
		{
			name: "invalid semester", path: "/v1/subjects?semester=lol", token: deanToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"semester": "invalid value"}),
		},
		{name: "student: own department only", path: "/v1/subjects", token: studentToken, wantData: marchallList(t, f.cs101, f.cs201)},
		{name: "student: department is forced", path: "/v1/subjects?department=EEE", token: studentToken, wantData: marchallList(t, f.cs101, f.cs201)},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
	}
	runTests(t, tests)
}

func Test_subjectApi_retrieve(t *testing.T) {
	resetDB(t)
	f := createSubjectFixtures(t)
	studentToken := getToken(t, f.student)
	notFound := marchallObj(t, httpErr{Error: "subject not found"})

	tests := []httpTest{
		{name: "student: own department", path: "/v1/subjects/" + f.cs101.ID, token: studentToken, wantData: marchallObj(t, f.cs101)},
		{name: "student: other department", path: "/v1/subjects/" + f.ee101.ID, token: studentToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "upper-case ID", path: "/v1/subjects/" + strings.ToUpper(f.cs101.ID), token: studentToken, wantData: marchallObj(t, f.cs101)},
		{name: "staff: any department", path: "/v1/subjects/" + f.ee101.ID, token: getToken(t, f.faculty), wantData: marchallObj(t, f.ee101)},
		{name: "unknown", path: "/v1/subjects/lol", token: studentToken, wantCode: http.StatusNotFound, wantData: notFound},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
	}
	runTests(t, tests)
}

func Test_subjectApi_create(t *testing.T) {
	resetDB(t)
	f := createSubjectFixtures(t)
	hodToken := getToken(t, f.hod)

	newSubject := func(code, dept, facultyID string) []byte {
		return marchallObj(t, map[string]interface{}{
			"code": code, "name": "Algorithms", "department": dept, "semester": 5, "credits": 4, "faculty_id": facultyID,
		})
	}
	reqMsg := "this field is required"

	tests := []httpTest{
		{name: "student not allowed", token: getToken(t, f.student), body: newSubject("CS301", "CSE", ""), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "faculty not allowed", token: getToken(t, f.faculty), body: newSubject("CS301", "CSE", ""), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "required fields", token: hodToken, body: marchallObj(t, map[string]interface{}{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": reqMsg, "name": reqMsg, "department": reqMsg, "semester": reqMsg}),
		},
		{
			name: "invalid code", token: hodToken, body: newSubject("101", "CSE", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": "code must look like CS101 (2 to 6 letters followed by 2 to 4 digits)"}),
		},
		{
			name: "code taken", token: hodToken, body: newSubject("cs101", "CSE", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": "a subject with this code already exists"}),
		},
		{
			name: "faculty must be faculty", token: hodToken, body: newSubject("CS301", "CSE", f.student.ID), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"faculty_id": "must reference an active faculty member"}),
		},
		{name: "HOD: other department", token: hodToken, body: newSubject("EE301", "EEE", ""), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "HOD: own department", token: hodToken, body: newSubject("cs301", "cse", f.faculty.ID), wantCode: http.StatusCreated},
		{name: "admin: any department", token: getToken(t, f.admin), body: newSubject("EE301", "EEE", f.eeeFaculty.ID), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/subjects"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusCreated {
				checkCodeAndData(t, tt, rec)
				return
			}
			checkCode(t, tt, rec)

			var subj subject.Subject
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subj))
			saved, err := subjRepo.GetSubject(context.Background(), subj.ID)
			require.NoError(t, err)
			assert.Equal(t, saved.Code, subj.Code)
			assert.Regexp(t, "^(CS|EE)301$", subj.Code)
			assert.Equal(t, 5, subj.Semester)
			assert.True(t, subj.IsActive)
		})
	}
}

func Test_subjectApi_update(t *testing.T) {
	resetDB(t)
	f := createSubjectFixtures(t)
	hodToken := getToken(t, f.hod)
	adminToken := getToken(t, f.admin)

	runTests(t, []httpTest{
		{
			name: "faculty not allowed", method: http.MethodPut, path: "/v1/subjects/" + f.cs101.ID, token: getToken(t, f.faculty),
			body: marchallObj(t, map[string]interface{}{"name": "lol"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "HOD: other department", method: http.MethodPut, path: "/v1/subjects/" + f.ee101.ID, token: hodToken,
			body: marchallObj(t, map[string]interface{}{"name": "lol"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "HOD: cannot move subject out of department", method: http.MethodPut, path: "/v1/subjects/" + f.cs101.ID, token: hodToken,
			body: marchallObj(t, map[string]interface{}{"department": "EEE"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "code taken", method: http.MethodPut, path: "/v1/subjects/" + f.cs101.ID, token: hodToken,
			body:     marchallObj(t, map[string]interface{}{"code": "cs201"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"code": "a subject with this code already exists"}),
		},
		{
			name: "unknown", method: http.MethodPut, path: "/v1/subjects/lol", token: adminToken,
			body: marchallObj(t, map[string]interface{}{"name": "lol"}), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "subject not found"}),
		},
	})

	update := func(t *testing.T, token string, subj subject.Subject, body map[string]interface{}) subject.Subject {
		req, rec := newAuthRequest(http.MethodPut, "/v1/subjects/"+subj.ID, token, marchallObj(t, body))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got subject.Subject
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		return got
	}

	t.Run("HOD: assign faculty & deactivate", func(t *testing.T) {
		got := update(t, hodToken, f.cs201, map[string]interface{}{"faculty_id": f.hod.ID, "is_active": false})
		assert.Equal(t, f.hod.ID, got.FacultyID)
		assert.False(t, got.IsActive)
		assert.Equal(t, f.cs201.Code, got.Code)
		assert.Equal(t, f.cs201.Name, got.Name)
	})
	t.Run("admin: unassign faculty & move subject", func(t *testing.T) {
		got := update(t, adminToken, f.cs101, map[string]interface{}{"faculty_id": "", "department": "eee", "credits": 0})
		assert.False(t, got.HasFaculty())
		assert.Equal(t, "EEE", got.Department)
		assert.Equal(t, 0, got.Credits)
	})
}

func Test_subjectApi_destroy(t *testing.T) {
	resetDB(t)
	f := createSubjectFixtures(t)
	testutil.CreateFeedback(t, fbRepo, f.student, f.cs101, conf.CurrentTerm(), testutil.Ratings(5, 5, 5, 5, 5), "")

	tests := []httpTest{
		{name: "HOD not allowed", path: "/v1/subjects/" + f.cs101.ID, token: getToken(t, f.hod), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "unknown", path: "/v1/subjects/lol", token: getToken(t, f.admin), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "subject not found"})},
		{name: "deleted", path: "/v1/subjects/" + f.cs101.ID, token: getToken(t, f.admin), wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			if tt.wantCode == http.StatusNoContent {
				checkCode(t, tt, rec)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	_, err := subjRepo.GetSubject(context.Background(), f.cs101.ID)
	assert.Equal(t, subject.ErrNotFound, err)
	fbs, err := fbRepo.QueryFeedback(context.Background(), &feedback.QueryFilter{SubjectID: f.cs101.ID}, nil)
	require.NoError(t, err)
	assert.Empty(t, fbs, "feedback must be deleted with their subject")
}
