package simulator

import (
	"context"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const (
	frameWidth  = 640
	frameHeight = 480
	handPoints  = 21
)

var gestures = []string{"fist", "palm", "pointer", "two", "three", "ok"}

// Sample is one producer frame before it is rendered to text. Nil landmark
// blocks are omitted from the output, which is what the producer does when no
// hand is detected.
type Sample struct {
	FrameNum int
	TimeMs   int64
	Global   [][]float64
	Local    [][]float64
	Gesture  string
	Rect     float64
}

// Format renders s in the producer's wire text: one outer bracket pair per
// landmark block, one row per line, and a trailing newline.
func Format(s Sample) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(s.FrameNum))
	b.WriteByte('\n')
	b.WriteString(strconv.FormatInt(s.TimeMs, 10))
	b.WriteByte('\n')
	writeBlock(&b, s.Global)
	writeBlock(&b, s.Local)
	if s.Gesture != "" {
		b.WriteString(s.Gesture)
		b.WriteByte('\n')
		b.WriteString("rect square: ")
		b.WriteString(strconv.FormatFloat(s.Rect, 'g', 6, 64))
		b.WriteByte('\n')
	}
	return b.String()
}

func writeBlock(b *strings.Builder, rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	b.WriteByte('[')
	for i, row := range rows {
		b.WriteByte('[')
		for j, v := range row {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.FormatFloat(v, 'g', 6, 64))
		}
		b.WriteByte(']')
		if i < len(rows)-1 {
			b.WriteByte('\n')
		}
	}
	b.WriteString("]\n")
}

// Hand builds a plausible right-hand sample around a drifting centre point.
func Hand(frameNum int, timeMs int64, rng *rand.Rand) Sample {
	phase := float64(frameNum) / 30.0
	cx := 0.5 + 0.2*math.Sin(phase)
	cy := 0.5 + 0.15*math.Cos(phase)
	spread := 0.08 + 0.02*rng.Float64()

	local := make([][]float64, handPoints)
	global := make([][]float64, handPoints)
	for i := 0; i < handPoints; i++ {
		angle := float64(i) / handPoints * 2 * math.Pi
		radius := spread * float64(i%5+1) / 5
		x := cx + radius*math.Cos(angle) + rng.NormFloat64()*0.002
		y := cy + radius*math.Sin(angle) + rng.NormFloat64()*0.002
		z := -0.05 * float64(i%5) / 4
		local[i] = []float64{x, y, z}
		global[i] = []float64{x * frameWidth, y * frameHeight, z}
	}

	return Sample{
		FrameNum: frameNum,
		TimeMs:   timeMs,
		Global:   global,
		Local:    local,
		Gesture:  gestures[(frameNum/45)%len(gestures)],
		Rect:     (2 * spread) * (2 * spread),
	}
}

const defaultRate = 30

// Interval is the tick period for rate frames per second. Non-positive rates
// fall back to 30 fps.
func Interval(rate float64) time.Duration {
	if rate <= 0 {
		rate = defaultRate
	}
	d := time.Duration(float64(time.Second) / rate)
	if d <= 0 {
		d = time.Nanosecond
	}
	return d
}

// Stream emits producer payloads at rate frames per second. A dropRate share
// of frames carry no hand, so they fail to decode downstream.
func Stream(ctx context.Context, rate float64, dropRate float64) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)

		ticker := time.NewTicker(Interval(rate))
		defer ticker.Stop()

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		frameNum := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			timeMs := time.Now().UnixMilli()
			sample := Sample{FrameNum: frameNum, TimeMs: timeMs}
			if rng.Float64() >= dropRate {
				sample = Hand(frameNum, timeMs, rng)
			}

			select {
			case <-ctx.Done():
				return
			case out <- Format(sample):
			}
			frameNum++
		}
	}()

	return out
}
