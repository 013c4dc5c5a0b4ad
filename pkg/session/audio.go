package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/Nephrolytics-ai/pd-report/pkg/audio"
	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
)

var ErrNoRecorder = errors.New("no microphone is configured")

// ToggleRecording starts a recording, or stops the current one and submits
// it. It returns the transcribed text when a recording was submitted.
func (c *Controller) ToggleRecording(ctx context.Context) (string, error) {
	if c.Recording() {
		return c.StopRecording(ctx)
	}
	return "", c.StartRecording(ctx)
}

// StartRecording is a no-op while a recording is running.
func (c *Controller) StartRecording(ctx context.Context) error {
	ctx = c.scope(ctx, "record")
	c.mu.Lock()
	if c.recording {
		c.mu.Unlock()
		return nil
	}
	if c.recorder == nil {
		c.mu.Unlock()
		return c.fail(ctx, MsgMicrophone, utils.WrapIfNotNil(ErrNoRecorder))
	}
	c.recording = true
	c.mu.Unlock()

	// The sink takes the lock, so it must not be held while starting.
	if err := c.recorder.Start(c.appendFragment); err != nil {
		c.mu.Lock()
		c.recording = false
		c.mu.Unlock()
		return c.fail(ctx, MsgMicrophone, utils.WrapIfNotNil(err))
	}
	logging.NewLogger(ctx).Infof("recording_started")
	return nil
}

// StopRecording stops capture, encodes the captured fragments as WAV, clears
// the buffer and submits the recording for transcription. When another
// transcription is in flight the fragments are kept and go out with the next
// recording.
func (c *Controller) StopRecording(ctx context.Context) (string, error) {
	ctx = c.scope(ctx, "record")
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return "", nil
	}
	c.mu.Unlock()

	// The recorder delivers its last fragments before Stop returns, so the
	// lock must not be held here.
	stopErr := c.recorder.Stop()

	c.mu.Lock()
	c.recording = false
	fragments := c.fragments
	c.fragments = nil
	c.mu.Unlock()

	if stopErr != nil {
		return "", c.fail(ctx, MsgMicrophone, utils.WrapIfNotNil(stopErr))
	}

	data, err := audio.EncodeWAV(fragments, c.recorder.Format())
	if err != nil {
		return "", c.fail(ctx, MsgTranscribe, utils.WrapIfNotNil(err))
	}

	text, err := c.SubmitAudio(ctx, model.AudioFile{
		Name:     recordingName,
		MIMEType: recordingContentType,
		Data:     data,
	})
	if errors.Is(err, ErrBusy) {
		c.mu.Lock()
		c.fragments = append(fragments, c.fragments...)
		c.mu.Unlock()
	}
	return text, err
}

func (c *Controller) appendFragment(fragment audio.Fragment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fragments = append(c.fragments, fragment)
}

// UploadAudio validates the file at path before reading and submitting it.
func (c *Controller) UploadAudio(ctx context.Context, path string) (string, error) {
	ctx = c.scope(ctx, "upload")
	info, err := os.Stat(path)
	if err != nil {
		return "", c.fail(ctx, MsgInvalidAudioFile, utils.WrapIfNotNil(err))
	}
	if info.IsDir() {
		return "", c.fail(ctx, MsgInvalidAudioFile, utils.WrapIfNotNil(audio.ErrInvalidType, path))
	}

	name := filepath.Base(path)
	mimeType, err := audio.ValidateUpload(name, info.Size(), c.maxUploadBytes)
	if err != nil {
		message := MsgInvalidAudioFile
		if errors.Is(err, audio.ErrTooLarge) {
			message = MsgFileTooLarge
		}
		return "", c.fail(ctx, message, utils.WrapIfNotNil(err))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", c.fail(ctx, MsgTranscribe, utils.WrapIfNotNil(err))
	}

	return c.SubmitAudio(ctx, model.AudioFile{Name: name, MIMEType: mimeType, Data: data})
}

// SubmitAudio transcribes file and appends the text to the transcription,
// separated from existing text by a newline. It runs alongside a generation
// but not alongside another transcription.
func (c *Controller) SubmitAudio(ctx context.Context, file model.AudioFile) (string, error) {
	ctx = c.scope(ctx, "transcribe")
	log := logging.NewLogger(ctx)

	release, err := c.acquireLoading(&c.transcribing, false)
	if err != nil {
		return "", c.fail(ctx, MsgTranscribe, utils.WrapIfNotNil(err))
	}
	defer release()

	text, meta, err := c.transcriber.Transcribe(ctx, file)
	if err != nil {
		return "", c.fail(ctx, MsgTranscribe, utils.WrapIfNotNil(err))
	}

	c.mu.Lock()
	if c.transcription != "" {
		c.transcription += "\n"
	}
	c.transcription += text
	c.mu.Unlock()

	log.Infof("audio_transcribed file=%s bytes=%d provider=%s latency_ms=%s", file.Name, file.Size(), meta[model.MetadataKeyProvider], meta[model.MetadataKeyLatencyMs])
	return text, nil
}
