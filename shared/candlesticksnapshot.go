package shared

import (
	"errors"
	"sync"
	"sync/atomic"
)

const (
	// SnapshotSize is the maximum number of entries for a candlestick snapshot.
	SnapshotSize = 120
)

// CandlestickSnapshot represents a snapshot of candlestick data.
type CandlestickSnapshot struct {
	data  []Candlestick
	start atomic.Int32
	count atomic.Int32
	size  atomic.Int32

	mtx sync.RWMutex
}

// NewCandlestickSnapshot initializes a new candlestick snapshot.
func NewCandlestickSnapshot(size int32) (*CandlestickSnapshot, error) {
	if size <= 0 {
		return nil, errors.New("snapshot size cannot be negative or zero")
	}

	snapshot := &CandlestickSnapshot{
		data: make([]Candlestick, size),
	}
	snapshot.size.Store(size)

	return snapshot, nil
}

// Update adds the provided candlestick to the snapshot.
func (s *CandlestickSnapshot) Update(candle *Candlestick) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	size := s.size.Load()
	count := s.count.Load()
	start := s.start.Load()

	if count < size {
		s.data[(start+count)%size] = *candle
		s.count.Add(1)
		return
	}

	// Overwrite the oldest entry once the snapshot is at capacity.
	s.data[start] = *candle
	s.start.Store((start + 1) % size)
}

// Last returns the last added candlestick of the snapshot.
func (s *CandlestickSnapshot) Last() *Candlestick {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	count := s.count.Load()
	if count == 0 {
		return nil
	}

	last := s.data[(s.start.Load()+count-1)%s.size.Load()]

	return &last
}

// LastN returns the last n candlesticks of the snapshot in chronological order.
func (s *CandlestickSnapshot) LastN(n int32) []Candlestick {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	count := s.count.Load()
	if n <= 0 || count == 0 {
		return nil
	}

	if n > count {
		n = count
	}

	size := s.size.Load()
	set := make([]Candlestick, n)
	for i := range n {
		idx := (s.start.Load() + count - n + i) % size
		set[i] = s.data[idx]
	}

	return set
}
