package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"videotouch-go/internal/frame"
	"videotouch-go/internal/logging"
	"videotouch-go/internal/output"
	"videotouch-go/internal/types"
)

func main() {
	var (
		path   = flag.String("path", "", "Path to a raw payload capture (.bin)")
		limit  = flag.Int("limit", 1, "Number of entries to dump (0 dumps all)")
		decode = flag.Bool("decode", false, "Re-decode each payload and include the record")
	)
	flag.Parse()

	logger := logging.Init("videotouch-rawlog-dump", "info", false)
	if *path == "" {
		logger.Fatal().Msg("path is required")
	}

	f, err := os.Open(*path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open rawlog")
	}
	defer f.Close()

	count := 0
	err = output.ReadRawLog(f, func(ts time.Time, entry types.RawEntry) bool {
		if *limit > 0 && count >= *limit {
			return false
		}
		dump := map[string]any{
			"timestamp": ts.Format(time.RFC3339Nano),
			"entry":     entry,
		}
		if *decode && entry.Outcome != types.OutcomeSentinel {
			record, err := frame.Decode(entry.Payload)
			if err != nil {
				dump["decode_error"] = err.Error()
			} else {
				dump["record"] = record
			}
		}
		pretty, err := json.MarshalIndent(dump, "", "  ")
		if err != nil {
			logger.Error().Err(err).Int("entry", count).Msg("JSON encode error")
			count++
			return true
		}
		fmt.Println(string(pretty))
		count++
		return true
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("read rawlog")
	}
}
