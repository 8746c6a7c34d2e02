package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"videotouch-go/internal/frame"
	"videotouch-go/internal/logging"
)

func main() {
	path := flag.String("path", "", "Path to a payload file or a directory of .txt payloads")
	limit := flag.Int("limit", 5, "Max number of decoded records to print")
	full := flag.Bool("full", false, "Print landmark matrices, not just the summary")
	flag.Parse()

	logger := logging.Init("videotouch-decode", "info", false)
	if *path == "" {
		logger.Fatal().Msg("missing -path")
	}

	files, err := listFiles(*path)
	if err != nil {
		logger.Fatal().Err(err).Msg("list files")
	}

	var decoded, malformed, structural int
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			logger.Error().Err(err).Str("file", file).Msg("read")
			continue
		}

		record, err := frame.Decode(string(data))
		if err != nil {
			switch frame.KindOf(err) {
			case frame.KindMalformedNumber:
				malformed++
			default:
				structural++
			}
			fmt.Printf("%s: %v\n", file, err)
			continue
		}

		decoded++
		if decoded > *limit {
			continue
		}
		if *full {
			pretty, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				logger.Error().Err(err).Str("file", file).Msg("encode")
				continue
			}
			fmt.Printf("%s:\n%s\n", file, pretty)
			continue
		}
		fmt.Printf("%s: frame=%d time_ms=%d gesture=%q rect=%g global=%dx%d local=%dx%d\n",
			file, record.FrameNum, record.TimeMs, record.Gesture, record.Rect,
			len(record.GlobalLandmarks), len(record.GlobalLandmarks[0]),
			len(record.LocalLandmarks), len(record.LocalLandmarks[0]))
	}

	fmt.Printf("summary: decoded=%d malformed_number=%d structural_mismatch=%d\n", decoded, malformed, structural)
}

func listFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == ".txt" {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
