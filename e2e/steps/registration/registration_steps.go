package registration

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PUT(path string, body any) error
	GET(path string, headers map[string]string) error
	DELETE(path string) error
	GetResponseField(field string) (any, error)
	GetFormID() string
	SetFormID(id string)
}

// RegisterSteps registers registration form step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &registrationSteps{tc: tc}

	ctx.Step(`^I start a registration$`, steps.startRegistration)
	ctx.Step(`^I set "([^"]*)" to "([^"]*)"$`, steps.setField)
	ctx.Step(`^I leave "([^"]*)"$`, steps.blurField)
	ctx.Step(`^I fill a valid registration with email "([^"]*)"$`, steps.fillValid)
	ctx.Step(`^I submit the registration$`, steps.submit)
	ctx.Step(`^I reload the registration$`, steps.reload)
	ctx.Step(`^I discard the registration$`, steps.discard)
}

type registrationSteps struct {
	tc TestContext
}

func (s *registrationSteps) path(suffix string) string {
	return "/registrations/" + s.tc.GetFormID() + suffix
}

func (s *registrationSteps) startRegistration(ctx context.Context) error {
	if err := s.tc.POST("/registrations", nil); err != nil {
		return err
	}
	formID, err := s.tc.GetResponseField("form_id")
	if err != nil {
		return err
	}
	id, ok := formID.(string)
	if !ok || id == "" {
		return fmt.Errorf("form_id missing from response")
	}
	s.tc.SetFormID(id)
	return nil
}

func (s *registrationSteps) setField(ctx context.Context, field, value string) error {
	return s.tc.PUT(s.path("/fields/"+field), map[string]string{"value": value})
}

func (s *registrationSteps) blurField(ctx context.Context, field string) error {
	return s.tc.POST(s.path("/fields/"+field+"/blur"), nil)
}

func (s *registrationSteps) fillValid(ctx context.Context, email string) error {
	values := [][2]string{
		{"fullName", "Asha Rao"},
		{"email", email},
		{"phone", "9876543210"},
		{"collegeName", "City College"},
		{"degree", "BSc"},
		{"stream", "Physics"},
		{"yearOfStudy", "Second Year"},
		{"birthDate", "2003-07-21"},
		{"password", "secret123"},
	}
	for _, v := range values {
		if err := s.setField(ctx, v[0], v[1]); err != nil {
			return err
		}
	}
	return nil
}

func (s *registrationSteps) submit(ctx context.Context) error {
	return s.tc.POST(s.path("/submit"), nil)
}

func (s *registrationSteps) reload(ctx context.Context) error {
	return s.tc.GET(s.path(""), nil)
}

func (s *registrationSteps) discard(ctx context.Context) error {
	return s.tc.DELETE(s.path(""))
}
