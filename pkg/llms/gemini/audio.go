package gemini

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/pd-report/pkg/audio"
	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
	"google.golang.org/genai"
)

const baseTranscriptionPrompt = "Transcribe this audio accurately. Return only the transcript text."

// Transcriber sends recordings inline to a Gemini model with a transcription
// instruction.
type Transcriber struct {
	opts model.AudioOptions
	cfg  model.GeneratorConfig
}

func NewTranscriber(opts model.AudioOptions) (*Transcriber, error) {
	return &Transcriber{
		opts: opts.Clone(),
		cfg:  opts.GeneratorConfig(),
	}, nil
}

func (t *Transcriber) Transcribe(ctx context.Context, file model.AudioFile) (string, model.GenerationMetadata, error) {
	start := time.Now()
	modelName := resolveGenerationModelName(t.cfg)
	meta := initMetadata(modelName)
	defer setLatencyMetadata(meta, start)

	log := logging.NewLogger(ctx)
	if len(file.Data) == 0 {
		err := errors.New("audio file is empty")
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	mimeType, err := resolveFileMIMEType(file)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	client, err := newAPIClient(ctx, t.cfg)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	log.Infof("audio_transcription_request model=%q file=%q mime=%s bytes=%d", modelName, file.Name, mimeType, file.Size())
	contents := []*genai.Content{
		genai.NewContentFromParts(
			[]*genai.Part{
				genai.NewPartFromText(buildAudioTranscriptionPrompt(t.opts)),
				genai.NewPartFromBytes(file.Data, mimeType),
			},
			genai.RoleUser,
		),
	}

	response, err := client.Models.GenerateContent(ctx, modelName, contents, &genai.GenerateContentConfig{})
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	transcript := strings.TrimSpace(response.Text())
	if transcript == "" {
		err = errors.New("transcription response is empty")
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	applyUsageMetadata(meta, response)
	return transcript, meta, nil
}

// resolveFileMIMEType trusts an audio/* type already on the file and
// otherwise derives one from the name.
func resolveFileMIMEType(file model.AudioFile) (string, error) {
	if mimeType := strings.TrimSpace(file.MIMEType); strings.HasPrefix(mimeType, "audio/") {
		return mimeType, nil
	}

	mimeType, err := audio.ResolveMIMEType(file.Name)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(mimeType, "audio/") {
		return "", errors.New("unsupported audio mime type: " + mimeType)
	}
	return mimeType, nil
}

func buildAudioTranscriptionPrompt(opts model.AudioOptions) string {
	if custom := strings.TrimSpace(opts.Prompt); custom != "" {
		return custom
	}

	words := buildWordsToWatchPrompt(opts.NormalizedKeywords())
	if words == "" {
		return baseTranscriptionPrompt
	}
	return baseTranscriptionPrompt + " Prioritize these terms if present: " + words + "."
}

func buildWordsToWatchPrompt(keywords []model.AudioKeyword) string {
	words := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if keyword.Word == "" {
			continue
		}
		words = append(words, keyword.Word)
	}
	if len(words) == 0 {
		return ""
	}

	sort.Strings(words)
	return strings.Join(words, ", ")
}
