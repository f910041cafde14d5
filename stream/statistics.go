package stream

import (
	"sync"
	"time"
)

// Statistics tracks the processing time of streamed frames. It is safe for concurrent use.
type Statistics struct {
	mu    sync.Mutex
	count int64
	avg   float64 // Milliseconds.
}

// Add records the processing time of a frame.
func (s *Statistics) Add(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	s.mu.Lock()
	s.avg = (s.avg*float64(s.count) + ms) / float64(s.count+1)
	s.count++
	s.mu.Unlock()
}

// Frames is the number of recorded frames.
func (s *Statistics) Frames() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// AvgProcessing is the average processing time of a frame in milliseconds.
func (s *Statistics) AvgProcessing() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avg
}
