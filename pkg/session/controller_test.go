package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Nephrolytics-ai/pd-report/pkg/audio"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/stretchr/testify/suite"
)

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Alert(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type fakeTranscriber struct {
	text  string
	err   error
	block chan struct{}
	files []model.AudioFile
}

func (t *fakeTranscriber) Transcribe(_ context.Context, file model.AudioFile) (string, model.GenerationMetadata, error) {
	if t.block != nil {
		<-t.block
	}
	t.files = append(t.files, file)
	return t.text, model.GenerationMetadata{model.MetadataKeyProvider: "fake"}, t.err
}

type fakeGenerator struct {
	report   model.Report
	edited   model.Report
	err      error
	block    chan struct{}
	generate []model.GenerateRequest
	edits    []model.EditRequest
}

func (g *fakeGenerator) GenerateReport(_ context.Context, request model.GenerateRequest) (model.Report, model.GenerationMetadata, error) {
	if g.block != nil {
		<-g.block
	}
	g.generate = append(g.generate, request)
	return g.report, nil, g.err
}

func (g *fakeGenerator) EditReport(_ context.Context, request model.EditRequest) (model.Report, model.GenerationMetadata, error) {
	g.edits = append(g.edits, request)
	return g.edited, nil, g.err
}

type fakeDownloader struct {
	requests []model.DownloadRequest
	err      error
}

func (d *fakeDownloader) DownloadReport(_ context.Context, request model.DownloadRequest) (model.Document, error) {
	d.requests = append(d.requests, request)
	if d.err != nil {
		return model.Document{}, d.err
	}
	return model.Document{Format: request.Format, ContentType: request.Format.ContentType(), Body: []byte("document")}, nil
}

type fakeArchiver struct {
	docs []model.Document
	err  error
}

func (a *fakeArchiver) Archive(_ context.Context, doc model.Document, _ string) (string, error) {
	a.docs = append(a.docs, doc)
	return "reports/id/" + doc.Format.Filename(), a.err
}

type fakeRecorder struct {
	sink     func(audio.Fragment)
	startErr error
	stopErr  error
	pending  []audio.Fragment
}

func (r *fakeRecorder) Start(sink func(audio.Fragment)) error {
	if r.startErr != nil {
		return r.startErr
	}
	r.sink = sink
	return nil
}

func (r *fakeRecorder) Stop() error {
	for _, fragment := range r.pending {
		r.sink(fragment)
	}
	return r.stopErr
}

func (r *fakeRecorder) Format() audio.Format {
	return audio.Format{SampleRate: 16000, Channels: 1}
}

// eagerRecorder delivers a fragment before Start returns.
type eagerRecorder struct{}

func (eagerRecorder) Start(sink func(audio.Fragment)) error {
	sink(audio.Fragment{9, 9})
	return nil
}

func (eagerRecorder) Stop() error {
	return nil
}

func (eagerRecorder) Format() audio.Format {
	return audio.Format{SampleRate: 16000, Channels: 1}
}

type ControllerSuite struct {
	suite.Suite
	notifier    *fakeNotifier
	transcriber *fakeTranscriber
	generator   *fakeGenerator
	downloader  *fakeDownloader
	archiver    *fakeArchiver
	recorder    *fakeRecorder
	controller  *Controller
	ctx         context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.ctx = context.Background()
	s.notifier = &fakeNotifier{}
	s.transcriber = &fakeTranscriber{text: "suspect fled north on Yonge"}
	s.generator = &fakeGenerator{
		report: model.NewReport(
			model.F("narrative", model.Text("Officer attended.")),
			model.F("occurrence_type", model.Text("Theft")),
		),
		edited: model.NewReport(model.F("narrative", model.Text("Officer attended at 09:00."))),
	}
	s.downloader = &fakeDownloader{}
	s.archiver = &fakeArchiver{}
	s.recorder = &fakeRecorder{}
	s.controller = NewController(Options{
		Transcriber: s.transcriber,
		Generator:   s.generator,
		Downloader:  s.downloader,
		Recorder:    s.recorder,
		Archiver:    s.archiver,
		Notifier:    s.notifier,
	})
}

func (s *ControllerSuite) readyToGenerate() {
	s.controller.SetOccurrenceType("Theft")
	s.controller.SetReportType("General Occurrence")
	s.controller.SetTranscription("suspect fled")
}

func (s *ControllerSuite) writeFile(name string, size int) string {
	path := filepath.Join(s.T().TempDir(), name)
	s.Require().NoError(os.WriteFile(path, make([]byte, size), 0o600))
	return path
}

func (s *ControllerSuite) TestRecordingRoundTrip() {
	s.recorder.pending = []audio.Fragment{{1, 2}, {3, 4}}

	text, err := s.controller.ToggleRecording(s.ctx)
	s.Require().NoError(err)
	s.Empty(text)
	s.True(s.controller.Recording())

	s.recorder.sink(audio.Fragment{0, 0})

	text, err = s.controller.ToggleRecording(s.ctx)
	s.Require().NoError(err)
	s.Equal("suspect fled north on Yonge", text)
	s.False(s.controller.Recording())

	s.Require().Len(s.transcriber.files, 1)
	file := s.transcriber.files[0]
	s.Equal("recording.wav", file.Name)
	s.Equal("audio/wav", file.MIMEType)
	s.Equal("RIFF", string(file.Data[:4]))
	s.Empty(s.controller.fragments)
	s.Equal("suspect fled north on Yonge", s.controller.Transcription())
}

func (s *ControllerSuite) TestMicrophoneFailureAlerts() {
	s.recorder.startErr = errors.New("permission denied")

	err := s.controller.StartRecording(s.ctx)
	s.Require().Error(err)
	s.False(s.controller.Recording())
	s.Equal([]string{MsgMicrophone}, s.notifier.all())
}

func (s *ControllerSuite) TestStopWithoutRecordingIsNoop() {
	text, err := s.controller.StopRecording(s.ctx)
	s.NoError(err)
	s.Empty(text)
	s.Empty(s.transcriber.files)
}

func (s *ControllerSuite) TestTranscriptionAppendsWithNewline() {
	s.controller.SetTranscription("first line")

	_, err := s.controller.SubmitAudio(s.ctx, model.AudioFile{Name: "a.wav", Data: []byte("x")})
	s.Require().NoError(err)
	s.Equal("first line\nsuspect fled north on Yonge", s.controller.Transcription())
}

func (s *ControllerSuite) TestTranscriptionFailureAlertsAndReleases() {
	s.transcriber.err = errors.New("503")

	_, err := s.controller.SubmitAudio(s.ctx, model.AudioFile{Name: "a.wav", Data: []byte("x")})
	s.Require().Error(err)
	s.Equal([]string{MsgTranscribe}, s.notifier.all())
	s.False(s.controller.Busy())
	s.Empty(s.controller.Transcription())
}

func (s *ControllerSuite) TestUploadValidatesBeforeRequest() {
	_, err := s.controller.UploadAudio(s.ctx, s.writeFile("notes.txt", 10))
	s.Require().ErrorIs(err, audio.ErrInvalidType)

	controller := NewController(Options{Transcriber: s.transcriber, Notifier: s.notifier, MaxUploadBytes: 4})
	_, err = controller.UploadAudio(s.ctx, s.writeFile("call.mp3", 10))
	s.Require().ErrorIs(err, audio.ErrTooLarge)

	s.Equal([]string{MsgInvalidAudioFile, MsgFileTooLarge}, s.notifier.all())
	s.Empty(s.transcriber.files)
}

func (s *ControllerSuite) TestUploadSubmitsValidFile() {
	_, err := s.controller.UploadAudio(s.ctx, s.writeFile("call.mp3", 10))
	s.Require().NoError(err)

	s.Require().Len(s.transcriber.files, 1)
	s.Equal("call.mp3", s.transcriber.files[0].Name)
	s.Equal("audio/mpeg", s.transcriber.files[0].MIMEType)
	s.Len(s.transcriber.files[0].Data, 10)
}

func (s *ControllerSuite) TestGenerateRequiresInputs() {
	s.controller.SetOccurrenceType("Theft")
	s.controller.SetTranscription("   ")

	_, err := s.controller.GenerateReport(s.ctx)
	s.Require().ErrorIs(err, ErrMissingInput)
	s.Equal([]string{MsgGenerateInput}, s.notifier.all())
	s.Empty(s.generator.generate)
}

func (s *ControllerSuite) TestGenerateStoresFormattedReport() {
	s.readyToGenerate()

	text, err := s.controller.GenerateReport(s.ctx)
	s.Require().NoError(err)
	s.Equal("occurrence type: Theft\n\nnarrative: Officer attended.", text)
	s.Equal(text, s.controller.ReportText())

	report, ok := s.controller.Report()
	s.True(ok)
	s.Equal(2, report.Len())
	s.Equal(model.GenerateRequest{OccurrenceType: "Theft", ReportType: "General Occurrence", Transcription: "suspect fled"}, s.generator.generate[0])
}

func (s *ControllerSuite) TestGenerateFailureKeepsPreviousReport() {
	s.readyToGenerate()
	s.controller.SetReportText("previous")
	s.generator.err = errors.New("500")

	_, err := s.controller.GenerateReport(s.ctx)
	s.Require().Error(err)
	s.Equal("previous", s.controller.ReportText())
	s.Equal([]string{MsgGenerate}, s.notifier.all())
	s.False(s.controller.Busy())
}

func (s *ControllerSuite) TestGenerationRunsAlongsideTranscriptionAndEdit() {
	s.readyToGenerate()
	s.generator.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := s.controller.GenerateReport(s.ctx)
		done <- err
	}()
	s.Eventually(s.controller.Busy, time.Second, time.Millisecond)

	_, err := s.controller.GenerateReport(s.ctx)
	s.ErrorIs(err, ErrBusy)

	_, err = s.controller.SubmitAudio(s.ctx, model.AudioFile{Name: "a.wav", Data: []byte("x")})
	s.NoError(err)
	s.True(s.controller.Busy())

	s.controller.SetReportText("current")
	_, err = s.controller.EditReport(s.ctx, "add time")
	s.NoError(err)

	close(s.generator.block)
	s.Require().NoError(<-done)
	s.False(s.controller.Busy())
	s.Empty(s.notifier.all())
}

func (s *ControllerSuite) TestStopRecordingDuringGenerationTranscribes() {
	s.readyToGenerate()
	s.generator.block = make(chan struct{})
	s.recorder.pending = []audio.Fragment{{5, 6}}

	done := make(chan error, 1)
	go func() {
		_, err := s.controller.GenerateReport(s.ctx)
		done <- err
	}()
	s.Eventually(s.controller.Busy, time.Second, time.Millisecond)

	s.Require().NoError(s.controller.StartRecording(s.ctx))
	text, err := s.controller.StopRecording(s.ctx)
	s.Require().NoError(err)
	s.Equal("suspect fled north on Yonge", text)
	s.Len(s.transcriber.files, 1)
	s.Empty(s.notifier.all())

	close(s.generator.block)
	s.Require().NoError(<-done)
}

func (s *ControllerSuite) TestGenerationWaitsForTranscription() {
	s.readyToGenerate()
	s.transcriber.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := s.controller.SubmitAudio(s.ctx, model.AudioFile{Name: "a.wav", Data: []byte("x")})
		done <- err
	}()
	s.Eventually(s.controller.Busy, time.Second, time.Millisecond)

	_, err := s.controller.GenerateReport(s.ctx)
	s.ErrorIs(err, ErrBusy)
	s.Empty(s.generator.generate)

	close(s.transcriber.block)
	s.Require().NoError(<-done)
	s.False(s.controller.Busy())
}

func (s *ControllerSuite) TestRecordingKeptWhenTranscriptionInFlight() {
	s.transcriber.block = make(chan struct{})
	s.recorder.pending = []audio.Fragment{{7, 8}}

	done := make(chan error, 1)
	go func() {
		_, err := s.controller.SubmitAudio(s.ctx, model.AudioFile{Name: "a.wav", Data: []byte("x")})
		done <- err
	}()
	s.Eventually(s.controller.Busy, time.Second, time.Millisecond)

	s.Require().NoError(s.controller.StartRecording(s.ctx))
	_, err := s.controller.StopRecording(s.ctx)
	s.Require().ErrorIs(err, ErrBusy)
	s.Equal([]string{MsgTranscribe}, s.notifier.all())

	s.controller.mu.Lock()
	kept := append([]audio.Fragment(nil), s.controller.fragments...)
	s.controller.mu.Unlock()
	s.Equal([]audio.Fragment{{7, 8}}, kept)

	close(s.transcriber.block)
	s.Require().NoError(<-done)
}

func (s *ControllerSuite) TestRecorderMayDeliverDuringStart() {
	recorder := &eagerRecorder{}
	controller := NewController(Options{Transcriber: s.transcriber, Recorder: recorder, Notifier: s.notifier})

	started := make(chan error, 1)
	go func() { started <- controller.StartRecording(s.ctx) }()

	select {
	case err := <-started:
		s.Require().NoError(err)
	case <-time.After(2 * time.Second):
		s.FailNow("StartRecording did not return")
	}
	s.True(controller.Recording())
	s.Len(controller.fragments, 1)
}

func (s *ControllerSuite) TestEditRequiresInstructions() {
	_, err := s.controller.EditReport(s.ctx, "  ")
	s.Require().ErrorIs(err, ErrMissingInput)
	s.Equal([]string{MsgEditInstructions}, s.notifier.all())
	s.Empty(s.generator.edits)
}

func (s *ControllerSuite) TestEditSendsCurrentText() {
	s.readyToGenerate()
	_, err := s.controller.GenerateReport(s.ctx)
	s.Require().NoError(err)
	s.controller.SetReportText("hand corrected")

	text, err := s.controller.EditReport(s.ctx, " add the time ")
	s.Require().NoError(err)
	s.Equal("narrative: Officer attended at 09:00.", text)
	s.Equal(model.EditRequest{Report: "hand corrected", Instructions: "add the time", ReportType: "General Occurrence"}, s.generator.edits[0])
	s.False(s.controller.Editing())
}

func (s *ControllerSuite) TestEditFailureAlerts() {
	s.generator.err = errors.New("500")

	_, err := s.controller.EditReport(s.ctx, "shorter")
	s.Require().Error(err)
	s.Equal([]string{MsgEdit}, s.notifier.all())
	s.False(s.controller.Editing())
}

func (s *ControllerSuite) TestDownloadWritesAndArchives() {
	dir := s.T().TempDir()
	s.controller.SetReportType("Crown Brief")
	s.controller.SetReportText("narrative: x")

	path, err := s.controller.DownloadReport(s.ctx, model.DocumentFormatDOCX, dir)
	s.Require().NoError(err)
	s.Equal(filepath.Join(dir, "report.docx"), path)

	body, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.Equal("document", string(body))
	s.Equal(model.DownloadRequest{ReportContent: "narrative: x", ReportType: "Crown Brief", Format: model.DocumentFormatDOCX}, s.downloader.requests[0])
	s.Len(s.archiver.docs, 1)
}

func (s *ControllerSuite) TestArchiveFailureDoesNotFailDownload() {
	s.archiver.err = errors.New("bucket missing")

	_, err := s.controller.DownloadReport(s.ctx, model.DocumentFormatPDF, s.T().TempDir())
	s.NoError(err)
	s.Empty(s.notifier.all())
}

func (s *ControllerSuite) TestDownloadFailureAlerts() {
	s.downloader.err = errors.New("500")

	_, err := s.controller.DownloadReport(s.ctx, model.DocumentFormatPDF, s.T().TempDir())
	s.Require().Error(err)
	s.Equal([]string{MsgDownload}, s.notifier.all())
}

func (s *ControllerSuite) TestSaveReportJSON() {
	_, err := s.controller.SaveReportJSON(s.ctx, filepath.Join(s.T().TempDir(), "r.json"))
	s.Require().ErrorIs(err, ErrNoReport)

	s.readyToGenerate()
	_, err = s.controller.GenerateReport(s.ctx)
	s.Require().NoError(err)

	path := filepath.Join(s.T().TempDir(), "r.json")
	_, err = s.controller.SaveReportJSON(s.ctx, path)
	s.Require().NoError(err)

	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.Equal("{\n  \"narrative\": \"Officer attended.\",\n  \"occurrence_type\": \"Theft\"\n}\n", string(data))
}

func (s *ControllerSuite) TestReportJSONFilename() {
	s.Equal("report_break_and_enter.json", ReportJSONFilename("Break and Enter"))
	s.Equal("report_theft.json", ReportJSONFilename(" Theft "))
}

func (s *ControllerSuite) TestSessionsHaveDistinctIDs() {
	other := NewController(Options{})
	s.NotEmpty(s.controller.ID())
	s.NotEqual(s.controller.ID(), other.ID())
}
