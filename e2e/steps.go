package e2e

import (
	"github.com/cucumber/godog"

	"studentreg/e2e/steps/common"
	"studentreg/e2e/steps/registration"
	"studentreg/e2e/steps/roster"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	registration.RegisterSteps(ctx, tc)
	roster.RegisterSteps(ctx, tc)
}
