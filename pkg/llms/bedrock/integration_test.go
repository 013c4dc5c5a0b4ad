package bedrock

import (
	"context"
	"testing"

	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/testsupport"
	"github.com/stretchr/testify/suite"
)

type BedrockIntegrationSuite struct {
	testsupport.ExternalDependenciesSuite
}

func TestBedrockIntegrationSuite(t *testing.T) {
	suite.Run(t, new(BedrockIntegrationSuite))
}

func (s *BedrockIntegrationSuite) SetupSuite() {
	s.ExternalDependenciesSuite.SetupSuite()
	s.RequireEnv("AWS_ACCESS_KEY_ID", "AWS_PROFILE")
}

func (s *BedrockIntegrationSuite) TestGenerateCrownBrief() {
	ctx, cancel := context.WithTimeout(context.Background(), testsupport.RequestTimeout)
	defer cancel()

	generator, err := NewReportGenerator(model.WithMaxTokens(4096))
	s.Require().NoError(err)

	report, meta, err := generator.GenerateReport(ctx, testsupport.SampleRequest(model.ReportTypeCrownBrief))
	s.Require().NoError(err)
	s.True(report.Has("narrative"))
	s.Equal(providerName, meta[model.MetadataKeyProvider])
}
