// Package cli implements the pdreport command line.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Nephrolytics-ai/pd-report/pkg/backend"
	"github.com/Nephrolytics-ai/pd-report/pkg/config"
	"github.com/Nephrolytics-ai/pd-report/pkg/formatter"
	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/recorder"
	"github.com/Nephrolytics-ai/pd-report/pkg/session"
	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
)

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	newBackend  func(cfg config.Config) (*backend.Backend, error)
	newRecorder func(cfg config.Config) session.Recorder
}

func newApp() *app {
	return &app{
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		newBackend: backend.New,
		newRecorder: func(cfg config.Config) session.Recorder {
			return recorder.NewMicrophone(cfg.AudioFormat(), cfg.Audio.FramesPerBuffer)
		},
	}
}

func Execute(ctx context.Context, args []string) error {
	return newApp().execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = utils.RecoveredError(r, "pdreport", logging.NewLogger(ctx))
		}
	}()

	if len(args) == 0 {
		return a.usageError("missing command")
	}

	switch args[0] {
	case "shell":
		return a.runShell(ctx, args[1:])
	case "transcribe":
		return a.runTranscribe(ctx, args[1:])
	case "generate":
		return a.runGenerate(ctx, args[1:])
	case "edit":
		return a.runEdit(ctx, args[1:])
	case "download":
		return a.runDownload(ctx, args[1:])
	case "format":
		return a.runFormat(args[1:])
	case "types":
		a.printTypes()
		return nil
	case "help", "--help", "-h":
		a.printUsage()
		return nil
	default:
		return a.usageError(fmt.Sprintf("unknown command %q", args[0]))
	}
}

// commonFlags are accepted by every command that talks to a backend.
type commonFlags struct {
	configPath *string
	envFile    *string
}

func (a *app) newFlagSet(name string) (*flag.FlagSet, commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs, commonFlags{
		configPath: fs.String("config", config.DefaultConfigFile, "YAML config file"),
		envFile:    fs.String("env-file", config.DefaultEnvFile, "dotenv file loaded before the environment is read"),
	}
}

func (a *app) loadConfig(flags commonFlags) (config.Config, error) {
	cfg, err := config.Load(*flags.configPath, *flags.envFile)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if err := logging.Configure(cfg.Log.Level, cfg.Log.Format, a.stderr); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newController builds a session controller over the configured backend.
// withMicrophone attaches the default input device.
func (a *app) newController(cfg config.Config, withMicrophone bool) (*session.Controller, error) {
	b, err := a.newBackend(cfg)
	if err != nil {
		return nil, err
	}

	opts := session.Options{
		Transcriber:    b.Transcriber,
		Generator:      b.Generator,
		Downloader:     b.Downloader,
		Notifier:       newTerminalNotifier(a.stderr),
		MaxUploadBytes: cfg.Audio.MaxUploadBytes,
	}
	if b.Archiver != nil {
		opts.Archiver = b.Archiver
	}
	if withMicrophone && a.newRecorder != nil {
		opts.Recorder = a.newRecorder(cfg)
	}
	return session.NewController(opts), nil
}

func (a *app) runTranscribe(ctx context.Context, args []string) error {
	fs, common := a.newFlagSet("transcribe")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return a.usageError("usage: pdreport transcribe <audio-file>... [flags]")
	}

	cfg, err := a.loadConfig(common)
	if err != nil {
		return err
	}
	controller, err := a.newController(cfg, false)
	if err != nil {
		return err
	}

	for _, path := range fs.Args() {
		if _, err := controller.UploadAudio(ctx, path); err != nil {
			return err
		}
	}
	fmt.Fprintln(a.stdout, controller.Transcription())
	return nil
}

func (a *app) runGenerate(ctx context.Context, args []string) error {
	fs, common := a.newFlagSet("generate")
	occurrenceType := fs.String("occurrence-type", "", "Occurrence type (see pdreport types)")
	reportType := fs.String("report-type", "", "Report type (see pdreport types)")
	transcription := fs.String("transcription", "", "Transcription text")
	transcriptionFile := fs.String("transcription-file", "", "File holding the transcription, - for stdin")
	saveJSON := fs.String("save-json", "", "Write the structured report as JSON to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := validateTypes(*occurrenceType, *reportType); err != nil {
		return err
	}
	text, err := a.readText(*transcription, *transcriptionFile)
	if err != nil {
		return err
	}

	cfg, err := a.loadConfig(common)
	if err != nil {
		return err
	}
	controller, err := a.newController(cfg, false)
	if err != nil {
		return err
	}

	controller.SetOccurrenceType(*occurrenceType)
	controller.SetReportType(*reportType)
	controller.SetTranscription(text)
	for _, path := range fs.Args() {
		if _, err := controller.UploadAudio(ctx, path); err != nil {
			return err
		}
	}

	report, err := controller.GenerateReport(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, report)

	if *saveJSON != "" || cfg.SaveReportJSON {
		path, err := controller.SaveReportJSON(ctx, *saveJSON)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stderr, "report json:", path)
	}
	return nil
}

func (a *app) runEdit(ctx context.Context, args []string) error {
	fs, common := a.newFlagSet("edit")
	reportType := fs.String("report-type", "", "Report type (see pdreport types)")
	reportFile := fs.String("report-file", "", "File holding the current report text, - for stdin")
	instructions := fs.String("instructions", "", "Edit instructions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *reportFile == "" {
		return a.usageError("usage: pdreport edit --report-file <file> --instructions <text> [flags]")
	}
	if err := validateTypes("", *reportType); err != nil {
		return err
	}

	text, err := a.readText("", *reportFile)
	if err != nil {
		return err
	}

	cfg, err := a.loadConfig(common)
	if err != nil {
		return err
	}
	controller, err := a.newController(cfg, false)
	if err != nil {
		return err
	}

	controller.SetReportType(*reportType)
	controller.SetReportText(text)
	edited, err := controller.EditReport(ctx, *instructions)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, edited)
	return nil
}

func (a *app) runDownload(ctx context.Context, args []string) error {
	fs, common := a.newFlagSet("download")
	reportType := fs.String("report-type", "", "Report type (see pdreport types)")
	reportFile := fs.String("report-file", "", "File holding the report text, - for stdin")
	format := fs.String("format", string(model.DocumentFormatPDF), "Document format: pdf|docx")
	out := fs.String("out", "", "Output directory (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *reportFile == "" {
		return a.usageError("usage: pdreport download --report-file <file> [--format pdf|docx] [flags]")
	}
	if err := validateTypes("", *reportType); err != nil {
		return err
	}
	docFormat, err := model.ParseDocumentFormat(*format)
	if err != nil {
		return err
	}

	text, err := a.readText("", *reportFile)
	if err != nil {
		return err
	}

	cfg, err := a.loadConfig(common)
	if err != nil {
		return err
	}
	controller, err := a.newController(cfg, false)
	if err != nil {
		return err
	}

	dir := *out
	if dir == "" {
		dir = cfg.OutputDir
	}
	controller.SetReportType(*reportType)
	controller.SetReportText(text)
	path, err := controller.DownloadReport(ctx, docFormat, dir)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, path)
	return nil
}

func (a *app) runFormat(args []string) error {
	fs := flag.NewFlagSet("format", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	source := "-"
	switch fs.NArg() {
	case 0:
	case 1:
		source = fs.Arg(0)
	default:
		return a.usageError("usage: pdreport format [report.json]")
	}

	data, err := a.readInput(source)
	if err != nil {
		return err
	}
	report, err := model.ParseReport(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, formatter.Format(report))
	return nil
}

func (a *app) printTypes() {
	fmt.Fprintln(a.stdout, "Report types:")
	for _, name := range model.ReportTypes {
		fmt.Fprintln(a.stdout, "  "+name)
	}
	fmt.Fprintln(a.stdout, "")
	fmt.Fprintln(a.stdout, "Occurrence types:")
	for _, name := range model.OccurrenceTypes {
		fmt.Fprintln(a.stdout, "  "+name)
	}
}

// validateTypes checks the non-empty values against the known lists. Missing
// values are left to the controller, which alerts about them.
func validateTypes(occurrenceType string, reportType string) error {
	if occurrenceType != "" && !model.IsOccurrenceType(occurrenceType) {
		return fmt.Errorf("unknown occurrence type %q (see pdreport types)", occurrenceType)
	}
	if reportType != "" && !model.IsReportType(reportType) {
		return fmt.Errorf("unknown report type %q (see pdreport types)", reportType)
	}
	return nil
}

// readText returns inline when set, otherwise the contents of path.
func (a *app) readText(inline string, path string) (string, error) {
	if inline != "" && path != "" {
		return "", errors.New("set either the text or the file, not both")
	}
	if path == "" {
		return inline, nil
	}
	data, err := a.readInput(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(bufio.NewReader(a.stdin))
	}
	return os.ReadFile(path)
}

func (a *app) usageError(msg string) error {
	a.printUsage()
	return errors.New(msg)
}

func (a *app) printUsage() {
	w := a.stderr
	fmt.Fprintln(w, "pdreport: draft police reports from recorded or uploaded audio")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  pdreport shell [flags]")
	fmt.Fprintln(w, "  pdreport transcribe <audio-file>... [flags]")
	fmt.Fprintln(w, "  pdreport generate --occurrence-type <type> --report-type <type> [--transcription <text> | --transcription-file <file>] [audio-file...]")
	fmt.Fprintln(w, "  pdreport edit --report-type <type> --report-file <file> --instructions <text>")
	fmt.Fprintln(w, "  pdreport download --report-type <type> --report-file <file> [--format pdf|docx] [--out <dir>]")
	fmt.Fprintln(w, "  pdreport format [report.json]")
	fmt.Fprintln(w, "  pdreport types")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Common flags:")
	fmt.Fprintln(w, "  --config <file>     YAML config (default pdreport.yaml)")
	fmt.Fprintln(w, "  --env-file <file>   dotenv file (default .env)")
}
