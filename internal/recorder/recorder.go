// Package recorder buffers a voice clip and cuts it off at a hard maximum
// duration.
package recorder

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

const (
	DefaultMaxDuration = 30 * time.Second
	DefaultMimeType    = "audio/webm"
)

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("not recording")
)

type State int

const (
	Idle State = iota
	Recording
	Stopped
)

type Clip struct {
	Data        []byte
	MimeType    string
	Duration    time.Duration
	AutoStopped bool
}

// Recorder is safe for concurrent use. When the maximum duration passes,
// the recording is stopped and the clip is handed to onAutoStop from the
// timer's goroutine.
type Recorder struct {
	max        time.Duration
	mimeType   string
	onAutoStop func(Clip)

	mu      sync.Mutex
	state   State
	buf     bytes.Buffer
	started time.Time
	timer   *time.Timer
	gen     uint64
}

func New(max time.Duration, mimeType string, onAutoStop func(Clip)) *Recorder {
	if max <= 0 {
		max = DefaultMaxDuration
	}
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	return &Recorder{max: max, mimeType: mimeType, onAutoStop: onAutoStop}
}

func (r *Recorder) MaxDuration() time.Duration { return r.max }

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Recording {
		return ErrAlreadyRecording
	}

	r.buf.Reset()
	r.state = Recording
	r.started = time.Now()
	r.gen++
	gen := r.gen
	r.timer = time.AfterFunc(r.max, func() { r.autoStop(gen) })
	return nil
}

// Write appends audio data to the clip in progress.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Recording {
		return 0, ErrNotRecording
	}
	return r.buf.Write(p)
}

func (r *Recorder) Stop() (Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Recording {
		return Clip{}, ErrNotRecording
	}
	return r.finish(false), nil
}

func (r *Recorder) autoStop(gen uint64) {
	r.mu.Lock()
	if r.state != Recording || r.gen != gen {
		r.mu.Unlock()
		return
	}
	clip := r.finish(true)
	r.mu.Unlock()

	if r.onAutoStop != nil {
		r.onAutoStop(clip)
	}
}

// finish must be called with mu held.
func (r *Recorder) finish(auto bool) Clip {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.state = Stopped

	d := min(time.Since(r.started), r.max)
	data := bytes.Clone(r.buf.Bytes())
	r.buf.Reset()

	return Clip{Data: data, MimeType: r.mimeType, Duration: d, AutoStopped: auto}
}

// Discard abandons a recording without producing a clip.
func (r *Recorder) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.buf.Reset()
	r.state = Idle
}
