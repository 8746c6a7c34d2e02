package simulator

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestFormatMatchesProducerLayout(t *testing.T) {
	sample := Hand(4, 1700000000123, rand.New(rand.NewSource(1)))
	text := Format(sample)

	if !strings.HasSuffix(text, "\n") {
		t.Fatalf("payload must end with a newline")
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if len(lines) != 2+handPoints*2+2 {
		t.Fatalf("unexpected line count: %d", len(lines))
	}
	if lines[0] != "4" || lines[1] != "1700000000123" {
		t.Fatalf("unexpected header: %q %q", lines[0], lines[1])
	}
	if !strings.HasPrefix(lines[2], "[[") || !strings.HasSuffix(lines[22], "]]") {
		t.Fatalf("global block not wrapped: %q .. %q", lines[2], lines[22])
	}
	if !strings.HasPrefix(lines[23], "[[") || !strings.HasSuffix(lines[43], "]]") {
		t.Fatalf("local block not wrapped: %q .. %q", lines[23], lines[43])
	}
	if lines[44] != sample.Gesture {
		t.Fatalf("unexpected gesture line: %q", lines[44])
	}
	if !strings.HasPrefix(lines[45], "rect square: ") {
		t.Fatalf("unexpected rect line: %q", lines[45])
	}
}

func TestFormatWithoutHand(t *testing.T) {
	text := Format(Sample{FrameNum: 1, TimeMs: 2})
	if text != "1\n2\n" {
		t.Fatalf("unexpected payload: %q", text)
	}
}

func TestStreamEmitsAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream := Stream(ctx, 200, 0)

	for i := 0; i < 3; i++ {
		select {
		case payload := <-stream:
			if !strings.HasPrefix(payload, strconv.Itoa(i)+"\n") {
				t.Fatalf("payload %d has unexpected header: %q", i, strings.SplitN(payload, "\n", 2)[0])
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no payload %d", i)
		}
	}
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-stream:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("stream not closed after cancel")
		}
	}
}

func TestIntervalFallsBackForBadRates(t *testing.T) {
	cases := map[float64]time.Duration{
		0:    time.Second / 30,
		-5:   time.Second / 30,
		10:   100 * time.Millisecond,
		1e12: time.Nanosecond,
	}
	for rate, want := range cases {
		if got := Interval(rate); got != want {
			t.Fatalf("rate %v: got %v, want %v", rate, got, want)
		}
	}
}
