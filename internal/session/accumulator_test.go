package session

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"videotouch-go/internal/frame"
	"videotouch-go/internal/simulator"
)

func payload(frameNum int, rng *rand.Rand) string {
	return simulator.Format(simulator.Hand(frameNum, int64(1000+frameNum), rng))
}

func TestSubmitAppendsInArrivalOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	acc := New()

	inputs := []string{
		payload(5, rng),
		"garbage",
		payload(2, rng),
		strings.Replace(payload(9, rng), "]", " x]", 1),
		payload(2, rng),
		"",
	}
	wantFrames := []int{5, 2, 2}

	for _, in := range inputs {
		ack, err := acc.Submit(in)
		if err != nil {
			t.Fatalf("Submit error: %v", err)
		}
		if ack.Reply != "Got "+in {
			t.Fatalf("unexpected reply %q", ack.Reply)
		}
		if ack.Terminal {
			t.Fatalf("non-sentinel payload marked terminal")
		}
		if (ack.Record == nil) == (ack.Err == nil) {
			t.Fatalf("ack must carry exactly one of record/err: %+v", ack)
		}
	}

	records := acc.Records()
	if len(records) != len(wantFrames) || acc.Len() != len(wantFrames) {
		t.Fatalf("unexpected log length: %d", len(records))
	}
	for i, want := range wantFrames {
		if records[i].FrameNum != want {
			t.Fatalf("record %d: frame %d, want %d", i, records[i].FrameNum, want)
		}
	}
}

func TestSubmitFailureKinds(t *testing.T) {
	acc := New()

	ack, err := acc.Submit(strings.Replace(payload(1, rand.New(rand.NewSource(4))), "[[", "[[a ", 1))
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if !errors.Is(ack.Err, frame.ErrMalformedNumber) || frame.KindOf(ack.Err) != frame.KindMalformedNumber {
		t.Fatalf("unexpected ack error: %v", ack.Err)
	}

	ack, _ = acc.Submit("1\n2\n[a b c]")
	if !errors.Is(ack.Err, frame.ErrStructuralMismatch) {
		t.Fatalf("unexpected ack error: %v", ack.Err)
	}
	if acc.Len() != 0 {
		t.Fatalf("failed decode appended a record")
	}
}

func TestSentinelStopsSession(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	acc := New()

	if _, err := acc.Submit(payload(0, rng)); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if acc.IsTerminal("eoq") || acc.IsTerminal("EOQ\n") || !acc.IsTerminal("EOQ") {
		t.Fatalf("sentinel match must be exact")
	}

	ack, err := acc.Submit(Sentinel)
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if !ack.Terminal || ack.Reply != "" || ack.Record != nil {
		t.Fatalf("unexpected sentinel ack: %+v", ack)
	}
	if acc.State() != Stopped {
		t.Fatalf("unexpected state: %s", acc.State())
	}

	if _, err := acc.Submit(payload(1, rng)); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if _, err := acc.Submit(Sentinel); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if acc.Len() != 1 {
		t.Fatalf("unexpected log length: %d", acc.Len())
	}
}

func TestLowercaseSentinelIsAFrame(t *testing.T) {
	acc := New()
	ack, err := acc.Submit("eoq")
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if ack.Terminal || ack.Reply != "Got eoq" || ack.Err == nil {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if acc.State() != Running {
		t.Fatalf("unexpected state: %s", acc.State())
	}
}

func TestRecordsIsACopy(t *testing.T) {
	acc := New()
	ack, err := acc.Submit(payload(1, rand.New(rand.NewSource(6))))
	if err != nil || ack.Record == nil {
		t.Fatalf("Submit: ack=%+v err=%v", ack, err)
	}

	ack.Record.Gesture = "changed"
	ack.Record.GlobalLandmarks[0][0] = -1

	records := acc.Records()
	records[0].LocalLandmarks[0][0] = -1

	again := acc.Records()
	if again[0].Gesture == "changed" || again[0].GlobalLandmarks[0][0] == -1 || again[0].LocalLandmarks[0][0] == -1 {
		t.Fatalf("log mutated through a returned value: %+v", again[0])
	}
}

func TestDecodeFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	acc := New(WithLogger(zerolog.New(&buf)), WithID("test-session"))

	if _, err := acc.Submit("not a frame"); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"kind":"structural_mismatch"`, `"session":"test-session"`, `"payload":"not a frame"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %s: %s", want, out)
		}
	}
	if acc.ID() != "test-session" {
		t.Fatalf("unexpected id: %s", acc.ID())
	}
	if generated := New(WithID("")); generated.ID() == "" {
		t.Fatalf("empty id option dropped the generated id")
	}
}

func TestDecodedFrameIsLoggedAtDebug(t *testing.T) {
	var buf bytes.Buffer
	sample := simulator.Hand(7, 1234, rand.New(rand.NewSource(10)))
	sample.Gesture = "palm"
	sample.Rect = 0.25

	acc := New(WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))
	if _, err := acc.Submit(simulator.Format(sample)); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"frame_num":7`, `"time_ms":1234`, `"gesture":"palm"`, `"rect":0.25`, `"level":"debug"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %s: %s", want, out)
		}
	}

	buf.Reset()
	quiet := New(WithLogger(zerolog.New(&buf).Level(zerolog.InfoLevel)))
	if _, err := quiet.Submit(simulator.Format(sample)); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("decoded frame logged above debug: %s", buf.String())
	}
}

func TestWithLayout(t *testing.T) {
	layout := frame.DefaultLayout()
	layout.GlobalRows = 2
	acc := New(WithLayout(layout))

	ack, err := acc.Submit("1\n2\n[1 2 3]\n[1 2 3]\n[4 5 6]\nok\nrect square: 0.1")
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if ack.Err != nil {
		t.Fatalf("unexpected decode error: %v", ack.Err)
	}
	if len(ack.Record.GlobalLandmarks) != 2 || len(ack.Record.LocalLandmarks) != 1 {
		t.Fatalf("unexpected shape: %+v", ack.Record)
	}
}
