package backend

import (
	"testing"

	"github.com/Nephrolytics-ai/pd-report/pkg/config"
	"github.com/Nephrolytics-ai/pd-report/pkg/llms/bedrock"
	"github.com/Nephrolytics-ai/pd-report/pkg/llms/gemini"
	"github.com/Nephrolytics-ai/pd-report/pkg/llms/openai"
	"github.com/Nephrolytics-ai/pd-report/pkg/llms/service"
	"github.com/stretchr/testify/suite"
)

type BackendSuite struct {
	suite.Suite
}

func TestBackendSuite(t *testing.T) {
	suite.Run(t, new(BackendSuite))
}

func (s *BackendSuite) TestDefaultsUseReportService() {
	cfg := config.Default()
	cfg.Service.URL = "http://reports.internal:8000"

	b, err := New(cfg)
	s.Require().NoError(err)

	client, ok := b.Transcriber.(*service.Client)
	s.Require().True(ok)
	s.Equal("http://reports.internal:8000", client.BaseURL())
	s.Same(client, b.Generator)
	s.Same(client, b.Downloader)
	s.Nil(b.Archiver)
}

func (s *BackendSuite) TestProvidersAreSelectedIndependently() {
	cfg := config.Default()
	cfg.Transcriber = config.ProviderOpenAI
	cfg.Generator = config.ProviderBedrock
	cfg.OpenAI.APIKey = "sk-test"

	b, err := New(cfg)
	s.Require().NoError(err)
	s.IsType(&openai.Transcriber{}, b.Transcriber)
	s.IsType(&bedrock.ReportGenerator{}, b.Generator)
	s.IsType(&service.Client{}, b.Downloader)
}

func (s *BackendSuite) TestGeminiProviders() {
	cfg := config.Default()
	cfg.Transcriber = config.ProviderGemini
	cfg.Generator = config.ProviderGemini

	b, err := New(cfg)
	s.Require().NoError(err)
	s.IsType(&gemini.Transcriber{}, b.Transcriber)
	s.IsType(&gemini.ReportGenerator{}, b.Generator)
}

func (s *BackendSuite) TestOpenAIGenerator() {
	cfg := config.Default()
	cfg.Generator = config.ProviderOpenAI
	cfg.OpenAI.APIKey = "sk-test"

	b, err := New(cfg)
	s.Require().NoError(err)
	s.IsType(&openai.ReportGenerator{}, b.Generator)
}

func (s *BackendSuite) TestArchiverIsBuiltWhenConfigured() {
	cfg := config.Default()
	cfg.Archive = config.ArchiveConfig{Endpoint: "minio.local:9000", Bucket: "reports", Prefix: "reports/"}

	b, err := New(cfg)
	s.Require().NoError(err)
	s.NotNil(b.Archiver)
}

func (s *BackendSuite) TestInvalidConfigIsRejected() {
	cfg := config.Default()
	cfg.Transcriber = config.ProviderBedrock

	_, err := New(cfg)
	s.Error(err)
}

func (s *BackendSuite) TestInvalidServiceURLIsRejected() {
	cfg := config.Default()
	cfg.Service.URL = "ftp://reports"

	_, err := New(cfg)
	s.Error(err)
}
