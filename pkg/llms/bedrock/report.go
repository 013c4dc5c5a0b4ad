package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const schemaInstruction = "\n\nReturn ONLY valid JSON that matches this schema:\n"

// ReportGenerator drafts and edits reports through the Converse API. Converse
// has no schema-constrained output, so the schema travels in the prompt.
type ReportGenerator struct {
	cfg model.GeneratorConfig
}

func NewReportGenerator(opts ...model.GeneratorOption) (*ReportGenerator, error) {
	return &ReportGenerator{cfg: model.ResolveGeneratorOpts(opts...)}, nil
}

func (g *ReportGenerator) GenerateReport(ctx context.Context, request model.GenerateRequest) (model.Report, model.GenerationMetadata, error) {
	return g.run(
		ctx,
		resolveModelName(g.cfg),
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
	input, err := buildConverseInput(g.cfg, modelName, reportType, systemPrompt, userPrompt)
	if err != nil {
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}

	client, err := newClient(ctx, g.cfg)
	if err != nil {
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}

	log.Infof(
		"report_request model=%q report_type=%q temperature=%v max_tokens=%v",
		modelName,
		reportType,
		g.cfg.Temperature,
		g.cfg.MaxTokens,
	)
	output, err := client.Converse(ctx, input)
	if err != nil {
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}
	applyConverseMetadata(meta, output)

	message, err := extractOutputMessage(output.Output)
	if err != nil {
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}

	text := strings.TrimSpace(extractTextFromMessage(message))
	if text == "" {
		err = errors.New("response output is empty")
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}

	report, err := model.DecodeReportRecord(reportType, []byte(extractJSONPayload(text)))
	if err != nil {
		log.Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}
	return report, meta, nil
}

func buildConverseInput(
	cfg model.GeneratorConfig,
	modelName string,
	reportType string,
	systemPrompt string,
	userPrompt string,
) (*bedrockruntime.ConverseInput, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return nil, utils.WrapIfNotNil(errors.New("prompt is required"))
	}

	schema, err := model.ReportSchema(reportType)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(modelName),
		Messages: []bedrocktypes.Message{
			{
				Role: bedrocktypes.ConversationRoleUser,
				Content: []bedrocktypes.ContentBlock{
					&bedrocktypes.ContentBlockMemberText{Value: userPrompt + schemaInstruction + string(schemaJSON)},
				},
			},
		},
		InferenceConfig: buildInferenceConfig(cfg),
	}
	if strings.TrimSpace(systemPrompt) != "" {
		input.System = []bedrocktypes.SystemContentBlock{
			&bedrocktypes.SystemContentBlockMemberText{Value: systemPrompt},
		}
	}
	return input, nil
}

func buildInferenceConfig(cfg model.GeneratorConfig) *bedrocktypes.InferenceConfiguration {
	if cfg.MaxTokens == nil && cfg.Temperature == nil {
		return nil
	}

	inference := &bedrocktypes.InferenceConfiguration{}
	if cfg.MaxTokens != nil {
		inference.MaxTokens = aws.Int32(int32(*cfg.MaxTokens))
	}
	if cfg.Temperature != nil {
		inference.Temperature = aws.Float32(float32(*cfg.Temperature))
	}
	return inference
}

func extractOutputMessage(output bedrocktypes.ConverseOutput) (bedrocktypes.Message, error) {
	if output == nil {
		return bedrocktypes.Message{}, utils.WrapIfNotNil(errors.New("converse output is nil"))
	}

	messageOutput, ok := output.(*bedrocktypes.ConverseOutputMemberMessage)
	if !ok || messageOutput == nil {
		return bedrocktypes.Message{}, utils.WrapIfNotNil(errors.New("converse output is not a message"))
	}
	return messageOutput.Value, nil
}

func extractTextFromMessage(message bedrocktypes.Message) string {
	parts := make([]string, 0)
	for _, block := range message.Content {
		textBlock, ok := block.(*bedrocktypes.ContentBlockMemberText)
		if !ok || textBlock == nil {
			continue
		}
		value := strings.TrimSpace(textBlock.Value)
		if value == "" {
			continue
		}
		parts = append(parts, value)
	}
	return strings.Join(parts, "\n")
}

// extractJSONPayload strips code fences and any prose around the outermost
// JSON object.
func extractJSONPayload(text string) string {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		return strings.TrimSpace(trimmed[start : end+1])
	}
	return trimmed
}
