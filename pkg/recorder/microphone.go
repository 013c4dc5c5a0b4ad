// Package recorder captures PCM audio from the default input device.
package recorder

import (
	"context"
	"errors"
	"sync"

	"github.com/Nephrolytics-ai/pd-report/pkg/audio"
	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
	"github.com/gordonklaus/portaudio"
)

const DefaultFramesPerBuffer = 1024

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

// stream is the subset of *portaudio.Stream the capture loop uses.
type stream interface {
	Start() error
	Read() error
	Stop() error
	Close() error
}

type streamOpener func(format audio.Format, buf []int16) (stream, func(), error)

// Microphone delivers fragments to a sink until Stop is called. Fragments are
// delivered in capture order from a single goroutine.
type Microphone struct {
	format          audio.Format
	framesPerBuffer int
	open            streamOpener

	mu      sync.Mutex
	running bool
	done    chan struct{}
	stopped chan error
}

func NewMicrophone(format audio.Format, framesPerBuffer int) *Microphone {
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}
	return &Microphone{
		format:          format,
		framesPerBuffer: framesPerBuffer,
		open:            openPortAudio,
	}
}

func (m *Microphone) Format() audio.Format {
	return m.format
}

// Start opens the input device and begins capture. It fails if a capture is
// already running or the device cannot be opened.
func (m *Microphone) Start(sink func(audio.Fragment)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return utils.WrapIfNotNil(ErrAlreadyRecording)
	}

	buf := make([]int16, m.framesPerBuffer*channelsOf(m.format))
	s, release, err := m.open(m.format, buf)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	if err := s.Start(); err != nil {
		_ = s.Close()
		release()
		return utils.WrapIfNotNil(err)
	}

	m.running = true
	m.done = make(chan struct{})
	m.stopped = make(chan error, 1)
	go m.capture(s, release, buf, sink, m.done, m.stopped)
	return nil
}

// Stop ends the capture and waits for the last fragment to be delivered.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return utils.WrapIfNotNil(ErrNotRecording)
	}
	m.running = false
	close(m.done)
	stopped := m.stopped
	m.mu.Unlock()

	return utils.WrapIfNotNil(<-stopped)
}

func (m *Microphone) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Microphone) capture(s stream, release func(), buf []int16, sink func(audio.Fragment), done <-chan struct{}, stopped chan<- error) {
	finish := func(readErr error) {
		err := errors.Join(readErr, s.Stop(), s.Close())
		release()
		stopped <- err
	}

	for {
		select {
		case <-done:
			finish(nil)
			return
		default:
		}

		if err := s.Read(); err != nil {
			// The device is gone; hold the error until Stop collects it.
			logging.NewLogger(context.Background()).Errorf("error: %v", err)
			<-done
			finish(err)
			return
		}

		fragment := make(audio.Fragment, len(buf))
		copy(fragment, buf)
		sink(fragment)
	}
}

func channelsOf(format audio.Format) int {
	if format.Channels <= 0 {
		return audio.DefaultChannels
	}
	return format.Channels
}

func openPortAudio(format audio.Format, buf []int16) (stream, func(), error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, nil, err
	}

	sampleRate := format.SampleRate
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	channels := channelsOf(format)

	s, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), len(buf)/channels, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, nil, err
	}
	return s, func() { _ = portaudio.Terminate() }, nil
}
