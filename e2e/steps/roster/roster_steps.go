package roster

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	AdminRequest(method, path string, body any) error
	GetResponseField(field string) (any, error)
	GetStudentID() string
	SetStudentID(id string)
}

// RegisterSteps registers admin status board step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &rosterSteps{tc: tc}

	ctx.Step(`^I list students as admin$`, steps.listStudents)
	ctx.Step(`^I list students without a token$`, steps.listWithoutToken)
	ctx.Step(`^I remember the first student$`, steps.rememberFirst)
	ctx.Step(`^I set the remembered student to "([^"]*)"$`, steps.setStatus)
	ctx.Step(`^I submit the student statuses$`, steps.submit)
	ctx.Step(`^I read the audit trail of the remembered student$`, steps.auditTrail)
}

type rosterSteps struct {
	tc TestContext
}

func (s *rosterSteps) listStudents(ctx context.Context) error {
	return s.tc.AdminRequest(http.MethodGet, "/admin/students", nil)
}

func (s *rosterSteps) listWithoutToken(ctx context.Context) error {
	return s.tc.GET("/admin/students", nil)
}

func (s *rosterSteps) rememberFirst(ctx context.Context) error {
	v, err := s.tc.GetResponseField("students.0.id")
	if err != nil {
		return err
	}
	id, ok := v.(string)
	if !ok {
		return fmt.Errorf("student id is not a string: %v", v)
	}
	s.tc.SetStudentID(id)
	return nil
}

func (s *rosterSteps) setStatus(ctx context.Context, status string) error {
	return s.tc.AdminRequest(http.MethodPut, "/admin/students/"+s.tc.GetStudentID()+"/status",
		map[string]string{"status": status})
}

func (s *rosterSteps) submit(ctx context.Context) error {
	return s.tc.AdminRequest(http.MethodPost, "/admin/students/submit", nil)
}

func (s *rosterSteps) auditTrail(ctx context.Context) error {
	return s.tc.AdminRequest(http.MethodGet, "/admin/audit?subject="+s.tc.GetStudentID(), nil)
}
