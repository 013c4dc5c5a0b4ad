// Package backend builds the transcription, generation, download and archive
// collaborators selected by configuration.
package backend

import (
	"fmt"

	"github.com/Nephrolytics-ai/pd-report/pkg/archive"
	"github.com/Nephrolytics-ai/pd-report/pkg/config"
	"github.com/Nephrolytics-ai/pd-report/pkg/llms/bedrock"
	"github.com/Nephrolytics-ai/pd-report/pkg/llms/gemini"
	"github.com/Nephrolytics-ai/pd-report/pkg/llms/openai"
	"github.com/Nephrolytics-ai/pd-report/pkg/llms/service"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
)

type Backend struct {
	Transcriber model.Transcriber
	Generator   model.ReportGenerator
	// Downloader is always the report service: only it renders documents.
	Downloader model.ReportDownloader
	// Archiver is nil when archiving is not configured.
	Archiver *archive.Archiver
}

func New(cfg config.Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	serviceClient, err := service.NewClient(cfg.ServiceOptions()...)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	b := &Backend{Downloader: serviceClient}

	b.Transcriber, err = newTranscriber(cfg, serviceClient)
	if err != nil {
		return nil, utils.WrapIfNotNil(err, "transcriber")
	}

	b.Generator, err = newGenerator(cfg, serviceClient)
	if err != nil {
		return nil, utils.WrapIfNotNil(err, "generator")
	}

	if cfg.Archive.Enabled() {
		b.Archiver, err = archive.NewArchiver(cfg.Archive)
		if err != nil {
			return nil, utils.WrapIfNotNil(err, "archive")
		}
	}
	return b, nil
}

func newTranscriber(cfg config.Config, serviceClient *service.Client) (model.Transcriber, error) {
	switch cfg.Transcriber {
	case config.ProviderService:
		return serviceClient, nil
	case config.ProviderOpenAI:
		return openai.NewTranscriber(cfg.AudioOptions(cfg.OpenAI))
	case config.ProviderGemini:
		return gemini.NewTranscriber(cfg.AudioOptions(cfg.Gemini))
	default:
		return nil, fmt.Errorf("unsupported transcriber %q", cfg.Transcriber)
	}
}

func newGenerator(cfg config.Config, serviceClient *service.Client) (model.ReportGenerator, error) {
	switch cfg.Generator {
	case config.ProviderService:
		return serviceClient, nil
	case config.ProviderOpenAI:
		return openai.NewReportGenerator(cfg.OpenAI.GeneratorOptions()...)
	case config.ProviderGemini:
		return gemini.NewReportGenerator(cfg.Gemini.GeneratorOptions()...)
	case config.ProviderBedrock:
		return bedrock.NewReportGenerator(cfg.Bedrock.GeneratorOptions()...)
	default:
		return nil, fmt.Errorf("unsupported generator %q", cfg.Generator)
	}
}
