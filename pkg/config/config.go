// Package config resolves pdreport settings from defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/pd-report/pkg/audio"
	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderService = "service"
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
	ProviderBedrock = "bedrock"

	DefaultConfigFile = "pdreport.yaml"
	DefaultEnvFile    = ".env"
)

type Config struct {
	// Transcriber is service, openai or gemini.
	Transcriber string `yaml:"transcriber"`
	// Generator is service, openai, gemini or bedrock.
	Generator string         `yaml:"generator"`
	Service   ServiceConfig  `yaml:"service"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Gemini    ProviderConfig `yaml:"gemini"`
	Bedrock   ProviderConfig `yaml:"bedrock"`
	Audio     AudioConfig    `yaml:"audio"`
	Archive   ArchiveConfig  `yaml:"archive"`
	Log       LogConfig      `yaml:"log"`
	// OutputDir is where downloaded documents and report JSON are written.
	OutputDir string `yaml:"output_dir"`
	// SaveReportJSON writes every generated report as indented JSON.
	SaveReportJSON bool `yaml:"save_report_json"`
}

type ServiceConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
	// Timeout of zero leaves requests unbounded.
	Timeout time.Duration `yaml:"timeout"`
}

type ProviderConfig struct {
	APIKey             string   `yaml:"api_key"`
	BaseURL            string   `yaml:"base_url"`
	Model              string   `yaml:"model"`
	EditModel          string   `yaml:"edit_model"`
	TranscriptionModel string   `yaml:"transcription_model"`
	Temperature        *float64 `yaml:"temperature"`
	MaxTokens          *int     `yaml:"max_tokens"`
}

type AudioConfig struct {
	SampleRate      int                  `yaml:"sample_rate"`
	Channels        int                  `yaml:"channels"`
	FramesPerBuffer int                  `yaml:"frames_per_buffer"`
	MaxUploadBytes  int64                `yaml:"max_upload_bytes"`
	Keywords        []model.AudioKeyword `yaml:"keywords"`
}

// ArchiveConfig points at S3-compatible storage. Archiving is off when
// Endpoint is empty.
type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func (a ArchiveConfig) Enabled() bool {
	return strings.TrimSpace(a.Endpoint) != ""
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Transcriber: ProviderService,
		Generator:   ProviderService,
		Audio: AudioConfig{
			SampleRate:      audio.DefaultSampleRate,
			Channels:        audio.DefaultChannels,
			FramesPerBuffer: 1024,
			MaxUploadBytes:  audio.DefaultMaxUploadBytes,
		},
		Archive:   ArchiveConfig{Prefix: "reports/"},
		Log:       LogConfig{Level: "info", Format: logging.FormatText},
		OutputDir: ".",
	}
}

// Load layers path (when non-empty; a missing default file is fine) and
// envFile over the defaults, then applies environment variables. Values in
// envFile never replace variables already set in the environment.
func Load(path string, envFile string) (Config, error) {
	cfg := Default()

	if err := loadFile(path, &cfg); err != nil {
		return Config{}, utils.WrapIfNotNil(err)
	}

	if strings.TrimSpace(envFile) != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, utils.WrapIfNotNil(fmt.Errorf("load env file %s: %w", envFile, err))
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, utils.WrapIfNotNil(err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultConfigFile {
			return nil
		}
		return err
	}
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Transcriber, "PDREPORT_TRANSCRIBER")
	setString(&cfg.Generator, "PDREPORT_GENERATOR")
	setString(&cfg.OutputDir, "PDREPORT_OUTPUT_DIR")
	setString(&cfg.Log.Level, "PDREPORT_LOG_LEVEL")
	setString(&cfg.Log.Format, "PDREPORT_LOG_FORMAT")

	setString(&cfg.Service.URL, "PDREPORT_SERVICE_URL")
	setString(&cfg.Service.Token, "PDREPORT_SERVICE_TOKEN")

	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.OpenAI.Model, "PDREPORT_OPENAI_MODEL")
	setString(&cfg.OpenAI.EditModel, "PDREPORT_OPENAI_EDIT_MODEL")
	setString(&cfg.OpenAI.TranscriptionModel, "PDREPORT_OPENAI_TRANSCRIPTION_MODEL")

	setString(&cfg.Gemini.APIKey, "GEMINI_KEY")
	setString(&cfg.Gemini.Model, "PDREPORT_GEMINI_MODEL")
	setString(&cfg.Gemini.EditModel, "PDREPORT_GEMINI_EDIT_MODEL")

	setString(&cfg.Bedrock.BaseURL, "PDREPORT_BEDROCK_URL")
	setString(&cfg.Bedrock.Model, "PDREPORT_BEDROCK_MODEL")
	setString(&cfg.Bedrock.EditModel, "PDREPORT_BEDROCK_EDIT_MODEL")

	setString(&cfg.Archive.Endpoint, "PDREPORT_ARCHIVE_ENDPOINT")
	setString(&cfg.Archive.AccessKey, "PDREPORT_ARCHIVE_ACCESS_KEY")
	setString(&cfg.Archive.SecretKey, "PDREPORT_ARCHIVE_SECRET_KEY")
	setString(&cfg.Archive.Bucket, "PDREPORT_ARCHIVE_BUCKET")
	setString(&cfg.Archive.Prefix, "PDREPORT_ARCHIVE_PREFIX")

	if value, ok := lookup("PDREPORT_SERVICE_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("PDREPORT_SERVICE_TIMEOUT: %w", err)
		}
		cfg.Service.Timeout = timeout
	}
	if value, ok := lookup("PDREPORT_MAX_UPLOAD_BYTES"); ok {
		maxBytes, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("PDREPORT_MAX_UPLOAD_BYTES: %w", err)
		}
		cfg.Audio.MaxUploadBytes = maxBytes
	}
	if value, ok := lookup("PDREPORT_SAMPLE_RATE"); ok {
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("PDREPORT_SAMPLE_RATE: %w", err)
		}
		cfg.Audio.SampleRate = rate
	}
	if value, ok := lookup("PDREPORT_ARCHIVE_USE_SSL"); ok {
		useSSL, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("PDREPORT_ARCHIVE_USE_SSL: %w", err)
		}
		cfg.Archive.UseSSL = useSSL
	}
	if value, ok := lookup("PDREPORT_SAVE_REPORT_JSON"); ok {
		save, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("PDREPORT_SAVE_REPORT_JSON: %w", err)
		}
		cfg.SaveReportJSON = save
	}
	return nil
}

// lookup treats set-but-blank variables as unset.
func lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func setString(target *string, key string) {
	if value, ok := lookup(key); ok {
		*target = value
	}
}

func (c Config) Validate() error {
	var errs []error

	switch c.Transcriber {
	case ProviderService, ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("transcriber must be service, openai or gemini (got %q)", c.Transcriber))
	}
	switch c.Generator {
	case ProviderService, ProviderOpenAI, ProviderGemini, ProviderBedrock:
	default:
		errs = append(errs, fmt.Errorf("generator must be service, openai, gemini or bedrock (got %q)", c.Generator))
	}

	if c.Service.Timeout < 0 {
		errs = append(errs, errors.New("service timeout must not be negative"))
	}
	if c.Audio.SampleRate <= 0 || c.Audio.Channels <= 0 || c.Audio.FramesPerBuffer <= 0 {
		errs = append(errs, errors.New("audio sample_rate, channels and frames_per_buffer must be > 0"))
	}
	if c.Audio.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("audio max_upload_bytes must be > 0"))
	}
	if c.Archive.Enabled() && strings.TrimSpace(c.Archive.Bucket) == "" {
		errs = append(errs, errors.New("archive bucket is required when an archive endpoint is set"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json (got %q)", c.Log.Format))
	}

	return utils.WrapIfNotNil(errors.Join(errs...))
}

// ServiceOptions are the report service client options.
func (c Config) ServiceOptions() []model.GeneratorOption {
	opts := []model.GeneratorOption{model.WithTimeout(c.Service.Timeout)}
	if c.Service.URL != "" {
		opts = append(opts, model.WithURL(c.Service.URL))
	}
	if c.Service.Token != "" {
		opts = append(opts, model.WithAuthToken(c.Service.Token))
	}
	return opts
}

// GeneratorOptions maps a provider section onto generator options.
func (p ProviderConfig) GeneratorOptions() []model.GeneratorOption {
	opts := make([]model.GeneratorOption, 0, 6)
	if p.BaseURL != "" {
		opts = append(opts, model.WithURL(p.BaseURL))
	}
	if p.APIKey != "" {
		opts = append(opts, model.WithAuthToken(p.APIKey))
	}
	if p.Model != "" {
		opts = append(opts, model.WithModel(p.Model))
	}
	if p.EditModel != "" {
		opts = append(opts, model.WithEditModel(p.EditModel))
	}
	if p.Temperature != nil {
		opts = append(opts, model.WithTemperature(*p.Temperature))
	}
	if p.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*p.MaxTokens))
	}
	return append(opts, model.WithIgnoreInvalidGeneratorOptions(true))
}

// AudioOptions maps a provider section and the shared keyword list onto
// transcription options.
func (c Config) AudioOptions(p ProviderConfig) model.AudioOptions {
	modelName := p.TranscriptionModel
	if modelName == "" && p.Model != "" && c.Transcriber == ProviderGemini {
		modelName = p.Model
	}
	return model.AudioOptions{
		IgnoreInvalidGeneratorOptions: true,
		URL:                           p.BaseURL,
		AuthToken:                     p.APIKey,
		Model:                         modelName,
		Keywords:                      c.Audio.Keywords,
	}
}

func (c Config) AudioFormat() audio.Format {
	return audio.Format{SampleRate: c.Audio.SampleRate, Channels: c.Audio.Channels}
}
