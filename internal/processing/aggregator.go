package processing

import (
	"sync"

	"videotouch-go/internal/types"
)

// Aggregator mirrors the frames the ingest loop forwards so HTTP and
// websocket readers never touch the session log itself.
type Aggregator struct {
	mu       sync.RWMutex
	records  []types.FrameRecord
	gestures map[string]int
	rectMin  float64
	rectMax  float64
	rectSum  float64
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		gestures: make(map[string]int),
	}
}

// AddRecord stores record and returns its index.
func (a *Aggregator) AddRecord(record types.FrameRecord) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.records) == 0 || record.Rect < a.rectMin {
		a.rectMin = record.Rect
	}
	if len(a.records) == 0 || record.Rect > a.rectMax {
		a.rectMax = record.Rect
	}
	a.rectSum += record.Rect
	a.gestures[record.Gesture]++
	a.records = append(a.records, record)
	return len(a.records) - 1
}

func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records)
}

func (a *Aggregator) Record(index int) (types.FrameRecord, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if index < 0 || index >= len(a.records) {
		return types.FrameRecord{}, false
	}
	return a.records[index].Clone(), true
}

// Records returns up to limit records starting at offset. limit <= 0 means
// everything after offset.
func (a *Aggregator) Records(offset, limit int) []types.FrameRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(a.records) {
		return []types.FrameRecord{}
	}
	end := len(a.records)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]types.FrameRecord, 0, end-offset)
	for _, record := range a.records[offset:end] {
		out = append(out, record.Clone())
	}
	return out
}

func (a *Aggregator) Stats() types.SessionStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.statsLocked()
}

func (a *Aggregator) statsLocked() types.SessionStats {
	stats := types.SessionStats{
		Frames:   len(a.records),
		Gestures: make(map[string]int, len(a.gestures)),
	}
	for gesture, count := range a.gestures {
		stats.Gestures[gesture] = count
	}
	if len(a.records) > 0 {
		last := a.records[len(a.records)-1]
		stats.LastFrameNum = last.FrameNum
		stats.LastTimeMs = last.TimeMs
		stats.Rect = types.RectStats{
			Min:  a.rectMin,
			Max:  a.rectMax,
			Mean: a.rectSum / float64(len(a.records)),
		}
	}
	return stats
}

// Snapshot returns the UI message for the current state, or false when no
// frame has arrived yet.
func (a *Aggregator) Snapshot() (types.UISnapshot, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.records) == 0 {
		return types.UISnapshot{}, false
	}
	latest := a.records[len(a.records)-1].Clone()
	return types.UISnapshot{
		Type:   "snapshot",
		Stats:  a.statsLocked(),
		Latest: &latest,
	}, true
}
