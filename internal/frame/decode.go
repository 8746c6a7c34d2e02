// Package frame decodes the line-oriented hand-tracking text emitted by the
// MediaPipe producer into typed frame records.
//
// A payload looks like:
//
//	<frame_num>
//	<time_ms>
//	[[x y z]        global landmarks, GlobalRows lines
//	...
//	[x y z]]
//	[[x y z]        local landmarks, every line up to the trailer
//	...
//	[x y z]]
//	<gesture>
//	rect square: <value>
package frame

import (
	"math"
	"strconv"
	"strings"

	"videotouch-go/internal/types"
)

const (
	defaultHeaderLines  = 2
	defaultGlobalRows   = 21
	defaultTrailerLines = 2

	maxBrackets = 2
)

// Layout names the fixed-size blocks of a payload. Lines between the global
// block and the trailer form the local block.
type Layout struct {
	HeaderLines  int
	GlobalRows   int
	TrailerLines int
	// Arity pins the component count of every landmark row. Zero means the
	// first global row decides.
	Arity int
}

func DefaultLayout() Layout {
	return Layout{
		HeaderLines:  defaultHeaderLines,
		GlobalRows:   defaultGlobalRows,
		TrailerLines: defaultTrailerLines,
	}
}

// MinLines is the shortest payload the layout accepts: every fixed block plus
// one local row.
func (l Layout) MinLines() int {
	return l.HeaderLines + l.GlobalRows + 1 + l.TrailerLines
}

// Decode parses raw with the default layout.
func Decode(raw string) (types.FrameRecord, error) {
	return DefaultLayout().Decode(raw)
}

// Decode parses raw into a record. It either returns a complete record or a
// *DecodeError; nothing partial escapes.
func (l Layout) Decode(raw string) (types.FrameRecord, error) {
	if l.HeaderLines < 2 || l.GlobalRows < 1 || l.TrailerLines < 2 {
		return types.FrameRecord{}, structural(-1, "layout", "invalid layout %+v", l)
	}

	lines := splitLines(raw)
	if len(lines) < l.MinLines() {
		return types.FrameRecord{}, structural(-1, "payload", "got %d lines, need at least %d", len(lines), l.MinLines())
	}

	frameNum, err := parseInt(lines[0], 0, "frame_num", strconv.IntSize)
	if err != nil {
		return types.FrameRecord{}, err
	}
	timeMs, err := parseInt(lines[1], 1, "time_ms", 64)
	if err != nil {
		return types.FrameRecord{}, err
	}

	globalStart := l.HeaderLines
	localStart := globalStart + l.GlobalRows
	trailerStart := len(lines) - l.TrailerLines

	global, err := parseBlock(lines[globalStart:localStart], globalStart, "global_landmarks", l.Arity)
	if err != nil {
		return types.FrameRecord{}, err
	}
	local, err := parseBlock(lines[localStart:trailerStart], localStart, "local_landmarks", len(global[0]))
	if err != nil {
		return types.FrameRecord{}, err
	}

	gesture := lines[len(lines)-2]
	rect, err := parseRect(lines[len(lines)-1], len(lines)-1)
	if err != nil {
		return types.FrameRecord{}, err
	}

	return types.FrameRecord{
		FrameNum:        int(frameNum),
		TimeMs:          timeMs,
		GlobalLandmarks: global,
		LocalLandmarks:  local,
		Gesture:         gesture,
		Rect:            rect,
	}, nil
}

func splitLines(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	lines := strings.Split(trimmed, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func parseInt(line string, index int, field string, bitSize int) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(line), 10, bitSize)
	if err != nil {
		return 0, malformed(index, field, err)
	}
	return v, nil
}

func parseFloat(token string, index int, field string) (float64, error) {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, malformed(index, field, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, malformed(index, field, errNonFinite)
	}
	return v, nil
}

// parseBlock decodes a run of landmark rows. arity of zero is taken from the
// first row; every other row must match it.
func parseBlock(rows []string, offset int, field string, arity int) ([]types.Landmark, error) {
	out := make([]types.Landmark, len(rows))
	for i, row := range rows {
		index := offset + i
		inner, err := unbracket(row, index, field)
		if err != nil {
			return nil, err
		}
		tokens := strings.Fields(inner)
		if len(tokens) == 0 {
			return nil, structural(index, field, "empty landmark row")
		}
		if arity == 0 {
			arity = len(tokens)
		}
		if len(tokens) != arity {
			return nil, structural(index, field, "row has %d components, block has %d", len(tokens), arity)
		}
		landmark := make(types.Landmark, arity)
		for j, token := range tokens {
			v, err := parseFloat(token, index, field)
			if err != nil {
				return nil, err
			}
			landmark[j] = v
		}
		out[i] = landmark
	}
	return out, nil
}

// unbracket strips the brackets around a landmark row. Every row carries one
// pair; the first and last row of a block carry a second for the block.
func unbracket(row string, index int, field string) (string, error) {
	row = strings.TrimSpace(row)
	leading := len(row) - len(strings.TrimLeft(row, "["))
	trailing := len(row) - len(strings.TrimRight(row, "]"))
	if leading < 1 || leading > maxBrackets || trailing < 1 || trailing > maxBrackets {
		return "", structural(index, field, "row not bracket-delimited: %q", row)
	}
	inner := row[leading : len(row)-trailing]
	if strings.ContainsAny(inner, "[]") {
		return "", structural(index, field, "stray bracket in row: %q", row)
	}
	return inner, nil
}

// parseRect reads the trailing number of a "rect square: <v>" line; the label
// text before it is ignored.
func parseRect(line string, index int) (float64, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return 0, structural(index, "rect", "empty rect line")
	}
	return parseFloat(tokens[len(tokens)-1], index, "rect")
}
