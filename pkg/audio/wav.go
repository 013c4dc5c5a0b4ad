// Package audio holds captured PCM fragments and turns them into uploadable
// files.
package audio

import (
	"errors"
	"os"

	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
	bitDepth          = 16
	wavPCMFormat      = 1
)

// Fragment is one buffer of interleaved 16-bit PCM samples as delivered by
// the microphone.
type Fragment []int16

type Format struct {
	SampleRate int
	Channels   int
}

func (f Format) withDefaults() Format {
	if f.SampleRate <= 0 {
		f.SampleRate = DefaultSampleRate
	}
	if f.Channels <= 0 {
		f.Channels = DefaultChannels
	}
	return f
}

// EncodeWAV joins fragments in order and encodes them as 16-bit PCM WAV.
func EncodeWAV(fragments []Fragment, format Format) ([]byte, error) {
	format = format.withDefaults()

	total := 0
	for _, fragment := range fragments {
		total += len(fragment)
	}
	if total == 0 {
		return nil, utils.WrapIfNotNil(errors.New("no audio captured"))
	}

	// The wav encoder seeks back to patch chunk sizes, so it needs a file.
	f, err := os.CreateTemp("", "pdreport-*.wav")
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: format.Channels,
			SampleRate:  format.SampleRate,
		},
		Data:           make([]int, 0, total),
		SourceBitDepth: bitDepth,
	}
	for _, fragment := range fragments {
		for _, sample := range fragment {
			buf.Data = append(buf.Data, int(sample))
		}
	}

	enc := wav.NewEncoder(f, format.SampleRate, bitDepth, format.Channels, wavPCMFormat)
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return nil, utils.WrapIfNotNil(err)
	}
	if err := enc.Close(); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	data, err := os.ReadFile(f.Name())
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return data, nil
}
