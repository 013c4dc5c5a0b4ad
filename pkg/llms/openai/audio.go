package openai

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
)

const defaultAudioTranscriptionModelName = "whisper-1"

// Transcriber sends recordings to the OpenAI audio transcription API.
type Transcriber struct {
	client *client
	opts   model.AudioOptions
}

func NewTranscriber(opts model.AudioOptions) (*Transcriber, error) {
	c, err := newClient(opts.GeneratorConfig())
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	return &Transcriber{
		client: c,
		opts:   opts.Clone(),
	}, nil
}

func (t *Transcriber) Transcribe(ctx context.Context, file model.AudioFile) (string, model.GenerationMetadata, error) {
	start := time.Now()
	modelName := resolveAudioTranscriptionModelName(t.opts)
	meta := initMetadata(modelName)
	defer setLatencyMetadata(meta, start)

	log := logging.NewLogger(ctx)
	log.Infof("audio_transcription_request model=%q file=%q bytes=%d", modelName, file.Name, file.Size())

	path, cleanup, err := writeAudioTempFile(file)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}
	defer cleanup()

	transcript, response, err := t.client.runAudioTranscription(ctx, path, t.opts)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	applyOpenAIAudioTranscriptionMetadata(meta, response)
	return transcript, meta, nil
}

// writeAudioTempFile spools the upload to disk under its own extension so the
// API can infer the container format from the file name.
func writeAudioTempFile(file model.AudioFile) (string, func(), error) {
	if len(file.Data) == 0 {
		return "", nil, utils.WrapIfNotNil(errors.New("audio file is empty"))
	}

	ext := strings.ToLower(filepath.Ext(file.Name))
	if ext == "" {
		ext = ".wav"
	}

	f, err := os.CreateTemp("", "pdreport-upload-*"+ext)
	if err != nil {
		return "", nil, utils.WrapIfNotNil(err)
	}
	cleanup := func() {
		_ = os.Remove(f.Name())
	}

	if _, err := f.Write(file.Data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, utils.WrapIfNotNil(err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, utils.WrapIfNotNil(err)
	}
	return f.Name(), cleanup, nil
}

func (c *client) runAudioTranscription(
	ctx context.Context,
	filePath string,
	opts model.AudioOptions,
) (string, *openai.AudioTranscriptionNewResponseUnion, error) {
	if strings.TrimSpace(filePath) == "" {
		return "", nil, utils.WrapIfNotNil(errors.New("file path is required"))
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", nil, utils.WrapIfNotNil(err)
	}
	defer func() {
		_ = file.Close()
	}()

	params := openai.AudioTranscriptionNewParams{
		File:           file,
		Model:          openai.AudioModel(resolveAudioTranscriptionModelName(opts)),
		ResponseFormat: openai.AudioResponseFormatJSON,
	}
	prompt, err := buildAudioTranscriptionPrompt(opts)
	if err != nil {
		return "", nil, utils.WrapIfNotNil(err)
	}
	if prompt != "" {
		params.Prompt = param.NewOpt(prompt)
	}

	response, err := c.apiClient.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", nil, utils.WrapIfNotNil(err)
	}
	if response == nil {
		return "", nil, utils.WrapIfNotNil(errors.New("audio transcriptions API returned nil response"))
	}

	transcript := strings.TrimSpace(response.Text)
	if transcript == "" {
		return "", response, utils.WrapIfNotNil(errors.New("transcription response is empty"))
	}

	return transcript, response, nil
}

func buildAudioTranscriptionPrompt(opts model.AudioOptions) (string, error) {
	customPrompt := strings.TrimSpace(opts.Prompt)
	if customPrompt != "" {
		return customPrompt, nil
	}

	return buildCommonMissedWordsPrompt(opts)
}

func buildCommonMissedWordsPrompt(opts model.AudioOptions) (string, error) {
	keywords := opts.NormalizedKeywords()
	if len(keywords) == 0 {
		return "", nil
	}

	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return "", err
	}

	return "Common missed words: " + string(keywordsJSON), nil
}

func resolveAudioTranscriptionModelName(opts model.AudioOptions) string {
	modelName := strings.TrimSpace(opts.Model)
	if modelName != "" {
		return modelName
	}

	return defaultAudioTranscriptionModelName
}

func applyOpenAIAudioTranscriptionMetadata(
	meta model.GenerationMetadata,
	response *openai.AudioTranscriptionNewResponseUnion,
) {
	if meta == nil || response == nil {
		return
	}

	meta[model.MetadataKeyInputTokens] = strconv.FormatInt(response.Usage.InputTokens, 10)
	meta[model.MetadataKeyOutputTokens] = strconv.FormatInt(response.Usage.OutputTokens, 10)
	meta[model.MetadataKeyTotalTokens] = strconv.FormatInt(response.Usage.TotalTokens, 10)
}
