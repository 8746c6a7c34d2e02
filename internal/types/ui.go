package types

type RectStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

type SessionStats struct {
	Frames       int            `json:"frames"`
	LastFrameNum int            `json:"last_frame_num"`
	LastTimeMs   int64          `json:"last_time_ms"`
	Gestures     map[string]int `json:"gestures"`
	Rect         RectStats      `json:"rect"`
}

type UISnapshot struct {
	Type   string       `json:"type"`
	Stats  SessionStats `json:"stats"`
	Latest *FrameRecord `json:"latest,omitempty"`
}

type UIFrame struct {
	Type   string      `json:"type"`
	Index  int         `json:"index"`
	Record FrameRecord `json:"record"`
}
