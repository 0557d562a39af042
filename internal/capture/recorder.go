// Package capture records microphone audio at the engine sample rate.
package capture

import (
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	audiocodec "github.com/voxbridge/whisper-bridge/internal/audio"
)

const (
	channels        = 1
	framesPerBuffer = 1024
	// minSamples pads very short recordings with silence; whisper needs
	// at least 100 ms of audio, 200 ms leaves headroom.
	minSamples = audiocodec.EngineSampleRate / 5
)

// Recorder captures 16 kHz mono float32 audio from the default input device.
type Recorder struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	buffer  []float32
	samples []float32
	running bool
	done    chan struct{}
}

// NewRecorder initialises the audio host. Callers must Close the recorder to
// release it.
func NewRecorder() (*Recorder, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	return &Recorder{
		buffer: make([]float32, framesPerBuffer),
	}, nil
}

// Start begins recording. It is a no-op when already running.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	r.samples = make([]float32, 0, audiocodec.EngineSampleRate*30)
	r.done = make(chan struct{})

	stream, err := portaudio.OpenDefaultStream(
		channels,
		0,
		audiocodec.EngineSampleRate,
		framesPerBuffer,
		r.buffer,
	)
	if err != nil {
		return err
	}

	r.stream = stream
	r.running = true

	if err := stream.Start(); err != nil {
		r.stream.Close()
		r.stream = nil
		r.running = false
		return err
	}

	go r.recordLoop()
	return nil
}

func (r *Recorder) recordLoop() {
	defer close(r.done)

	for {
		r.mu.Lock()
		running := r.running
		stream := r.stream
		r.mu.Unlock()

		if !running || stream == nil {
			return
		}

		available, err := stream.AvailableToRead()
		if err != nil || available == 0 {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if err := stream.Read(); err != nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		r.mu.Lock()
		if r.running {
			chunk := make([]float32, len(r.buffer))
			copy(chunk, r.buffer)
			r.samples = append(r.samples, chunk...)
		}
		r.mu.Unlock()
	}
}

// Drain returns the samples accumulated since the last call and clears the
// buffer, without stopping the recording. Used by streaming callers.
func (r *Recorder) Drain() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running || len(r.samples) == 0 {
		return nil
	}
	samples := r.samples
	r.samples = make([]float32, 0, audiocodec.EngineSampleRate*30)
	return samples
}

// Stop ends the recording and returns everything captured since Start,
// padded with silence when the clip is too short for the engine.
func (r *Recorder) Stop() []float32 {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}

	r.running = false
	stream := r.stream
	r.stream = nil
	samples := r.samples
	r.samples = nil
	done := r.done
	r.mu.Unlock()

	// The record loop checks the running flag every 10 ms.
	if done != nil {
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	if stream != nil {
		stream.Stop()
		stream.Close()
	}

	return padSilence(samples, minSamples)
}

// Close stops any recording and releases the audio host.
func (r *Recorder) Close() {
	r.Stop()
	portaudio.Terminate()
}

// IsRecording reports whether a capture is in progress.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// padSilence extends samples with zeros up to min entries.
func padSilence(samples []float32, min int) []float32 {
	if len(samples) >= min {
		return samples
	}
	padded := make([]float32, min)
	copy(padded, samples)
	return padded
}
