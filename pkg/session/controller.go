// Package session holds the state of one report-drafting session and runs
// each user action against the configured backend.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/Nephrolytics-ai/pd-report/pkg/audio"
	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/google/uuid"
)

// Alert messages shown to the officer.
const (
	MsgMicrophone        = "Error accessing microphone. Please check your permissions."
	MsgTranscribe        = "Error transcribing audio. Please try again."
	MsgGenerateInput     = "Please select occurrence type, report type, and provide transcription."
	MsgGenerate          = "Error generating report. Please try again."
	MsgEditInstructions  = "Please enter edit instructions."
	MsgEdit              = "Error editing report. Please try again."
	MsgDownload          = "Error downloading report. Please try again."
	MsgFileTooLarge      = "File size exceeds 25MB limit. Please choose a smaller file."
	MsgInvalidAudioFile  = "Please select a valid audio file."
	MsgSaveReportJSON    = "Error saving report. Please try again."
	recordingName        = "recording.wav"
	recordingContentType = "audio/wav"
)

var (
	// ErrBusy is returned when a request is issued while the same busy
	// indicator is already held.
	ErrBusy         = errors.New("a request is already in progress")
	ErrMissingInput = errors.New("required input is missing")
	ErrNoReport     = errors.New("no report has been generated")
)

// Notifier shows a blocking message to the user.
type Notifier interface {
	Alert(message string)
}

// Recorder captures audio. The sink may be called from any goroutine,
// including from within Start.
type Recorder interface {
	Start(sink func(audio.Fragment)) error
	Stop() error
	Format() audio.Format
}

type Archiver interface {
	Archive(ctx context.Context, doc model.Document, reportType string) (string, error)
}

type Options struct {
	Transcriber model.Transcriber
	Generator   model.ReportGenerator
	Downloader  model.ReportDownloader
	// Recorder and Archiver are optional.
	Recorder       Recorder
	Archiver       Archiver
	Notifier       Notifier
	MaxUploadBytes int64
}

// Controller is safe for concurrent use. Transcription and generation share
// one busy indicator, editing has its own, and downloads have none. The
// shared indicator refuses a generation while anything holds it, but a
// transcription is refused only by another transcription.
type Controller struct {
	id             string
	transcriber    model.Transcriber
	generator      model.ReportGenerator
	downloader     model.ReportDownloader
	recorder       Recorder
	archiver       Archiver
	notifier       Notifier
	maxUploadBytes int64

	mu             sync.Mutex
	recording      bool
	fragments      []audio.Fragment
	transcription  string
	occurrenceType string
	reportType     string
	report         model.Report
	reportText     string
	loading        int
	transcribing   bool
	generating     bool
	editing        bool
}

func NewController(opts Options) *Controller {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = logNotifier{}
	}
	maxUploadBytes := opts.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = audio.DefaultMaxUploadBytes
	}

	return &Controller{
		id:             uuid.NewString(),
		transcriber:    opts.Transcriber,
		generator:      opts.Generator,
		downloader:     opts.Downloader,
		recorder:       opts.Recorder,
		archiver:       opts.Archiver,
		notifier:       notifier,
		maxUploadBytes: maxUploadBytes,
	}
}

// ID identifies the session in log lines.
func (c *Controller) ID() string {
	return c.id
}

// scope tags loggers built from ctx with the session id and operation.
func (c *Controller) scope(ctx context.Context, op string) context.Context {
	return logging.WithFields(ctx, logging.Fields{"session": c.id, "op": op})
}

func (c *Controller) SetOccurrenceType(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.occurrenceType = value
}

func (c *Controller) SetReportType(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reportType = value
}

func (c *Controller) SetTranscription(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcription = value
}

// SetReportText replaces the report text sent by the next edit or download,
// as when the officer corrects the text by hand.
func (c *Controller) SetReportText(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reportText = value
}

func (c *Controller) OccurrenceType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.occurrenceType
}

func (c *Controller) ReportType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reportType
}

func (c *Controller) Transcription() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcription
}

func (c *Controller) ReportText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reportText
}

// Report returns the last generated or edited report.
func (c *Controller) Report() (model.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report, !c.report.IsEmpty()
}

func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Busy reports whether a transcription or generation is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading > 0
}

// Editing reports whether an edit is in flight.
func (c *Controller) Editing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editing
}

// acquireLoading takes flag and a hold on the shared indicator, or fails with
// ErrBusy when flag is held. exclusive also fails while the shared indicator
// is held by anything else.
func (c *Controller) acquireLoading(flag *bool, exclusive bool) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if *flag || (exclusive && c.loading > 0) {
		return nil, ErrBusy
	}
	*flag = true
	c.loading++
	return func() {
		c.mu.Lock()
		*flag = false
		c.loading--
		c.mu.Unlock()
	}, nil
}

// acquire takes the indicator flag or fails with ErrBusy. The returned func
// releases it.
func (c *Controller) acquire(flag *bool) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if *flag {
		return nil, ErrBusy
	}
	*flag = true
	return func() {
		c.mu.Lock()
		*flag = false
		c.mu.Unlock()
	}, nil
}

// fail logs err, alerts message and returns err.
func (c *Controller) fail(ctx context.Context, message string, err error) error {
	logging.NewLogger(ctx).Errorf("error: %v", err)
	c.notifier.Alert(message)
	return err
}

type logNotifier struct{}

func (logNotifier) Alert(message string) {
	logging.NewLogger(context.Background()).Warnf("alert: %s", message)
}
