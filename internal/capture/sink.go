// Package capture accumulates decoded voice audio during a recording session
// and packages the result for transcription.
package capture

import "sync"

// Sink buffers PCM chunks per speaker while a recording is in progress.
// Appends are cheap and safe from concurrent decoder goroutines; Drain
// produces the merged recording once capture has finished.
type Sink struct {
	mu      sync.Mutex
	order   []string
	chunks  map[string][][]byte
	drained bool
}

// NewSink returns an empty Sink ready to receive audio.
func NewSink() *Sink {
	return &Sink{chunks: make(map[string][][]byte)}
}

// Append stores a copy of chunk under the given speaker. Appends after Drain
// are discarded. Empty chunks are ignored.
func (s *Sink) Append(speakerID string, chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drained {
		return
	}
	if _, exists := s.chunks[speakerID]; !exists {
		s.order = append(s.order, speakerID)
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)
	s.chunks[speakerID] = append(s.chunks[speakerID], c)
}

// Speakers returns the speaker IDs that contributed audio, in first-heard
// order.
func (s *Sink) Speakers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the total number of buffered PCM bytes.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, cs := range s.chunks {
		for _, c := range cs {
			n += len(c)
		}
	}
	return n
}

// Drain concatenates all buffered audio, speaker by speaker in first-heard
// order, releases the buffers and marks the sink closed. Returns nil when no
// audio was captured.
func (s *Sink) Drain() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drained {
		return nil
	}
	s.drained = true

	var total int
	for _, cs := range s.chunks {
		for _, c := range cs {
			total += len(c)
		}
	}
	if total == 0 {
		s.chunks = nil
		return nil
	}

	out := make([]byte, 0, total)
	for _, speaker := range s.order {
		for _, c := range s.chunks[speaker] {
			out = append(out, c...)
		}
	}
	s.chunks = nil
	return out
}
