// Package testsupport holds suites shared by tests that call live services.
package testsupport

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/suite"
)

const (
	EnvSettingsFile = "PDREPORT_SETTINGS_FILE"
	// EnvIntegration must be set for live-service suites to run.
	EnvIntegration = "PDREPORT_INTEGRATION"
	RequestTimeout = 120 * time.Second
)

// ExternalDependenciesSuite loads credentials from a dotenv settings file
// ($PDREPORT_SETTINGS_FILE, else ~/.env) and skips unless integration runs
// are enabled.
type ExternalDependenciesSuite struct {
	suite.Suite
	settingsFile string
}

func (s *ExternalDependenciesSuite) SetupSuite() {
	if strings.TrimSpace(os.Getenv(EnvIntegration)) == "" {
		s.T().Skip(EnvIntegration + " is not set; skipping external dependency integration test")
	}

	settingsFromEnv := strings.TrimSpace(os.Getenv(EnvSettingsFile))
	settingsFile := settingsFromEnv
	if settingsFile == "" {
		homeDir, err := os.UserHomeDir()
		s.Require().NoError(err)
		settingsFile = filepath.Join(homeDir, ".env")
	}
	s.settingsFile = settingsFile

	if _, err := os.Stat(settingsFile); err != nil {
		if errors.Is(err, os.ErrNotExist) && settingsFromEnv == "" {
			return
		}
		s.Require().NoError(err)
		return
	}

	s.Require().NoError(godotenv.Overload(settingsFile))
}

func (s *ExternalDependenciesSuite) SettingsFile() string {
	return s.settingsFile
}

// RequireEnv returns the first non-blank variable among keys, skipping the
// suite when none is set.
func (s *ExternalDependenciesSuite) RequireEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	s.T().Skip(strings.Join(keys, "/") + " is not set; skipping external dependency integration test")
	return ""
}

// SampleRequest is a short dictation every live generator should turn into a
// report.
func SampleRequest(reportType string) model.GenerateRequest {
	return model.GenerateRequest{
		OccurrenceType: "Property Crime",
		ReportType:     reportType,
		Transcription: "Officer Singh badge 4471. Occurrence 24-1188. At 09:10 on March 3rd I attended 12 King Street " +
			"for a stolen bicycle reported by the owner, Dana Reyes. The lock was cut. No suspects.",
	}
}
