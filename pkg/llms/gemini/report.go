package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
	"google.golang.org/genai"
)

// ReportGenerator drafts and edits reports with JSON-schema constrained
// output.
type ReportGenerator struct {
	cfg model.GeneratorConfig
}

func NewReportGenerator(opts ...model.GeneratorOption) (*ReportGenerator, error) {
	return &ReportGenerator{cfg: model.ResolveGeneratorOpts(opts...)}, nil
}

func (g *ReportGenerator) GenerateReport(ctx context.Context, request model.GenerateRequest) (model.Report, model.GenerationMetadata, error) {
	return g.run(
		ctx,
		resolveGenerationModelName(g.cfg),
		request.ReportType,
		model.GenerationSystemPrompt(request.OccurrenceType, request.ReportType),
		request.Transcription,
	)
}

func (g *ReportGenerator) EditReport(ctx context.Context, request model.EditRequest) (model.Report, model.GenerationMetadata, error) {
	return g.run(
		ctx,
		resolveEditModelName(g.cfg),
		request.ReportType,
		model.EditSystemPrompt,
		model.EditUserPrompt(request.Report, request.Instructions),
	)
}

func (g *ReportGenerator) run(
	ctx context.Context,
	modelName string,
	reportType string,
	systemPrompt string,
	userPrompt string,
) (model.Report, model.GenerationMetadata, error) {
	start := time.Now()
	meta := initMetadata(modelName)
	defer setLatencyMetadata(meta, start)

	log := logging.NewLogger(ctx)
	if strings.TrimSpace(userPrompt) == "" {
		err := errors.New("prompt is required")
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}

	config, err := buildGenerateContentConfig(g.cfg, reportType, systemPrompt)
	if err != nil {
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}

	client, err := newAPIClient(ctx, g.cfg)
	if err != nil {
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}

	log.Infof(
		"report_request model=%s report_type=%q temperature=%v max_tokens=%v reasoning=%v",
		modelName,
		reportType,
		g.cfg.Temperature,
		g.cfg.MaxTokens,
		g.cfg.ReasoningLevel,
	)
	contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}
	response, err := generateWithThinkingFallback(ctx, client, modelName, contents, config)
	if err != nil {
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}
	applyUsageMetadata(meta, response)

	output := strings.TrimSpace(response.Text())
	if output == "" {
		err = errors.New("response output is empty")
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}

	report, err := model.DecodeReportRecord(reportType, []byte(output))
	if err != nil {
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}
	return report, meta, nil
}

func buildGenerateContentConfig(cfg model.GeneratorConfig, reportType string, systemPrompt string) (*genai.GenerateContentConfig, error) {
	schema, err := model.ReportSchema(reportType)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: schema,
	}
	if strings.TrimSpace(systemPrompt) != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if cfg.Temperature != nil {
		temp := float32(*cfg.Temperature)
		config.Temperature = &temp
	}
	if cfg.MaxTokens != nil {
		config.MaxOutputTokens = int32(*cfg.MaxTokens)
	}
	if cfg.ReasoningLevel != nil {
		config.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingLevel: mapReasoningLevel(*cfg.ReasoningLevel),
		}
	}
	return config, nil
}
