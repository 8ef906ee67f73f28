package config

import (
	"os"
	"strings"
)

// Environment is the runtime mode the service was started in
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	CI          Environment = "ci"
	Production  Environment = "production"
)

// GetEnvironment reads ENV; CI=true always wins so pipelines never pick up local secrets
func GetEnvironment() Environment {
	if os.Getenv("CI") == "true" {
		return CI
	}

	switch Environment(strings.ToLower(os.Getenv("ENV"))) {
	case Production:
		return Production
	case Test:
		return Test
	default:
		return Development
	}
}

func (e Environment) String() string { return string(e) }

// IsProduction returns true if the current environment is production
func IsProduction() bool {
	return GetEnvironment() == Production
}

// IsTest returns true for both local test runs and CI
func IsTest() bool {
	env := GetEnvironment()
	return env == Test || env == CI
}
