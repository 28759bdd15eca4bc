package report

import (
	"time"

	"github.com/trezcool/maoni/core/subject"
)

// GroupBy is the dimension feedback is aggregated on.
type GroupBy string

const (
	ByDepartment GroupBy = "department"
	ByFaculty    GroupBy = "faculty"
	BySubject    GroupBy = "subject"
	ByTerm       GroupBy = "term"
)

func (g GroupBy) IsValid() bool {
	switch g {
	case ByDepartment, ByFaculty, BySubject, ByTerm:
		return true
	}
	return false
}

// Filter selects the feedback a report is computed on. Empty fields match everything.
type Filter struct {
	Department string
	FacultyID  string
	SubjectID  string
	Term       string
}

// Averages are rounded to 2 decimals.
type Averages struct {
	Clarity     float64 `json:"clarity"`
	Knowledge   float64 `json:"knowledge"`
	Engagement  float64 `json:"engagement"`
	Punctuality float64 `json:"punctuality"`
	Assessment  float64 `json:"assessment"`
	Overall     float64 `json:"overall"`
}

// Summary is the aggregate of the feedback sharing the same Key (a department, faculty ID, subject ID or term).
type Summary struct {
	Key       string   `json:"key"`
	Label     string   `json:"label"`
	Responses int      `json:"responses"`
	Averages  Averages `json:"averages"`
}

// Distribution counts responses per rounded overall score: Distribution[0] holds the 1s, Distribution[4] the 5s.
type Distribution [5]int

type Comment struct {
	Comment   string    `json:"comment"`
	Overall   float64   `json:"overall"`
	CreatedAt time.Time `json:"created_at"`
}

type SubjectReport struct {
	Subject      subject.Subject `json:"subject"`
	Term         string          `json:"term"`
	Summary      Summary         `json:"summary"`
	Distribution Distribution    `json:"distribution"`
	Comments     []Comment       `json:"comments"`
}

// Dashboard holds the figures shown on a user's home page. Which ones are set depends on the user's role.
type Dashboard struct {
	Role       string         `json:"role"`
	Term       string         `json:"term"`
	Department string         `json:"department,omitempty"`
	Users      map[string]int `json:"users,omitempty"` // per role
	Subjects   int            `json:"subjects"`
	Responses  int            `json:"responses"`
	Overall    float64        `json:"overall"`
	Submitted  int            `json:"submitted"`
	Pending    int            `json:"pending"`
}
