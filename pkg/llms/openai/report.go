package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

// ReportGenerator drafts and edits reports with strict structured output.
type ReportGenerator struct {
	client *client
	cfg    model.GeneratorConfig
}

func NewReportGenerator(opts ...model.GeneratorOption) (*ReportGenerator, error) {
	cfg := model.ResolveGeneratorOpts(opts...)
	c, err := newClient(cfg)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return &ReportGenerator{client: c, cfg: cfg}, nil
}

func (g *ReportGenerator) GenerateReport(ctx context.Context, request model.GenerateRequest) (model.Report, model.GenerationMetadata, error) {
	contexts := []model.PromptContext{
		{
			MessageType: model.ContextMessageTypeSystem,
			Content:     model.GenerationSystemPrompt(request.OccurrenceType, request.ReportType),
		},
		{MessageType: model.ContextMessageTypeHuman, Content: request.Transcription},
	}
	return g.run(ctx, resolveModelName(g.cfg), request.ReportType, contexts)
}

func (g *ReportGenerator) EditReport(ctx context.Context, request model.EditRequest) (model.Report, model.GenerationMetadata, error) {
	contexts := []model.PromptContext{
		{MessageType: model.ContextMessageTypeSystem, Content: model.EditSystemPrompt},
		{
			MessageType: model.ContextMessageTypeHuman,
			Content:     model.EditUserPrompt(request.Report, request.Instructions),
		},
	}
	return g.run(ctx, resolveEditModelName(g.cfg), request.ReportType, contexts)
}

func (g *ReportGenerator) run(
	ctx context.Context,
	modelName string,
	reportType string,
	contexts []model.PromptContext,
) (model.Report, model.GenerationMetadata, error) {
	start := time.Now()
	meta := initMetadata(modelName)
	defer setLatencyMetadata(meta, start)

	log := logging.NewLogger(ctx)
	log.Infof(
		"report_request model=%s report_type=%q context_count=%d temperature=%v max_tokens=%v reasoning=%v",
		modelName,
		reportType,
		len(contexts),
		g.cfg.Temperature,
		g.cfg.MaxTokens,
		g.cfg.ReasoningLevel,
	)

	params, err := buildReportParams(modelName, reportType, contexts, g.cfg, log)
	if err != nil {
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}

	response, err := g.client.apiClient.Responses.New(ctx, params)
	if err != nil {
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}
	if response == nil {
		err = errors.New("responses API returned nil response")
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}
	applyResponseMetadata(meta, response)

	output := strings.TrimSpace(response.OutputText())
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

func buildReportParams(
	modelName string,
	reportType string,
	contexts []model.PromptContext,
	cfg model.GeneratorConfig,
	log logging.Logger,
) (responses.ResponseNewParams, error) {
	cfg, err := normalizeGeneratorOptionsForModel(modelName, cfg, log)
	if err != nil {
		return responses.ResponseNewParams{}, utils.WrapIfNotNil(err)
	}

	schema, err := model.ReportSchema(reportType)
	if err != nil {
		return responses.ResponseNewParams{}, utils.WrapIfNotNil(err)
	}

	params := responses.ResponseNewParams{
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: buildInputItems(contexts),
		},
		Model: shared.ResponsesModel(modelName),
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   schemaName(reportType),
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}
	if cfg.Temperature != nil {
		params.Temperature = openai.Float(*cfg.Temperature)
	}
	if cfg.MaxTokens != nil {
		params.MaxOutputTokens = openai.Int(int64(*cfg.MaxTokens))
	}
	if cfg.ReasoningLevel != nil {
		params.Reasoning = shared.ReasoningParam{
			Effort: mapReasoningLevel(*cfg.ReasoningLevel),
		}
	}
	return params, nil
}

func buildInputItems(contexts []model.PromptContext) responses.ResponseInputParam {
	items := make(responses.ResponseInputParam, 0, len(contexts))
	for _, contextItem := range contexts {
		content := strings.TrimSpace(contextItem.Content)
		if content == "" {
			continue
		}
		items = append(
			items,
			responses.ResponseInputItemParamOfMessage(content, mapContextMessageRole(contextItem.MessageType)),
		)
	}
	return items
}

func schemaName(reportType string) string {
	if model.IsCrownBrief(reportType) {
		return "crown_brief"
	}
	return "general_occurrence"
}
