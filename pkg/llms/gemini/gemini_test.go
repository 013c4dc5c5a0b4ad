package gemini

import (
	"testing"

	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/stretchr/testify/suite"
	"google.golang.org/genai"
)

type GeminiSuite struct {
	suite.Suite
}

func TestGeminiSuite(t *testing.T) {
	suite.Run(t, new(GeminiSuite))
}

func (s *GeminiSuite) TestModelNameDefaults() {
	cfg := model.ResolveGeneratorOpts()
	s.Equal(defaultGenerationModelName, resolveGenerationModelName(cfg))
	s.Equal(defaultGenerationModelName, resolveEditModelName(cfg))

	cfg = model.ResolveGeneratorOpts(model.WithModel("gemini-2.5-pro"), model.WithEditModel("gemini-2.5-flash-lite"))
	s.Equal("gemini-2.5-pro", resolveGenerationModelName(cfg))
	s.Equal("gemini-2.5-flash-lite", resolveEditModelName(cfg))
}

func (s *GeminiSuite) TestResolveFileMIMETypePrefersDeclaredAudioType() {
	mimeType, err := resolveFileMIMEType(model.AudioFile{Name: "clip.bin", MIMEType: "audio/webm"})
	s.Require().NoError(err)
	s.Equal("audio/webm", mimeType)
}

func (s *GeminiSuite) TestResolveFileMIMETypeFallsBackToExtension() {
	mimeType, err := resolveFileMIMEType(model.AudioFile{Name: "example.m4a", MIMEType: "application/octet-stream"})
	s.Require().NoError(err)
	s.Equal("audio/mp4", mimeType)
}

func (s *GeminiSuite) TestResolveFileMIMETypeRejectsNonAudio() {
	_, err := resolveFileMIMEType(model.AudioFile{Name: "example.txt"})
	s.Require().Error(err)
	s.Contains(err.Error(), "unsupported audio")
}

func (s *GeminiSuite) TestTranscriptionPromptListsKeywordsSorted() {
	prompt := buildAudioTranscriptionPrompt(model.AudioOptions{
		Keywords: []model.AudioKeyword{
			{Word: " Yonge Street "},
			{Word: "CPIC"},
			{Definition: "no word"},
		},
	})
	s.Equal(baseTranscriptionPrompt+" Prioritize these terms if present: CPIC, Yonge Street.", prompt)
}

func (s *GeminiSuite) TestTranscriptionPromptWithoutKeywords() {
	s.Equal(baseTranscriptionPrompt, buildAudioTranscriptionPrompt(model.AudioOptions{}))
	s.Equal("custom", buildAudioTranscriptionPrompt(model.AudioOptions{Prompt: " custom "}))
}

func (s *GeminiSuite) TestBuildGenerateContentConfigUsesReportSchema() {
	cfg := model.ResolveGeneratorOpts(
		model.WithTemperature(0.1),
		model.WithMaxTokens(2048),
		model.WithReasoningLevel(model.ReasoningLevelLow),
	)

	config, err := buildGenerateContentConfig(cfg, model.ReportTypeCrownBrief, "system text")
	s.Require().NoError(err)

	s.Equal("application/json", config.ResponseMIMEType)
	schema, ok := config.ResponseJsonSchema.(map[string]any)
	s.Require().True(ok)
	properties := schema["properties"].(map[string]any)
	narrative := properties["narrative"].(map[string]any)
	s.Equal(model.CrownBriefGuideline, narrative["description"])

	s.Require().NotNil(config.SystemInstruction)
	s.Equal("system text", config.SystemInstruction.Parts[0].Text)
	s.InDelta(0.1, float64(*config.Temperature), 0.0001)
	s.Equal(int32(2048), config.MaxOutputTokens)
	s.Equal(genai.ThinkingLevelLow, config.ThinkingConfig.ThinkingLevel)
}

func (s *GeminiSuite) TestApplyUsageMetadata() {
	meta := initMetadata("")
	response := &genai.GenerateContentResponse{
		ResponseID: "r-1",
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     7,
			CandidatesTokenCount: 3,
			TotalTokenCount:      10,
		},
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}},
	}

	applyUsageMetadata(meta, response)

	s.Equal("unknown", meta[model.MetadataKeyModel])
	s.Equal("10", meta[model.MetadataKeyTotalTokens])
	s.Equal("r-1", meta[model.MetadataKeyResponseID])
	s.Equal("STOP", meta[model.MetadataKeyResponseStatus])
}
