package types

// Landmark is one tracked point as emitted by the producer, usually [x y z].
type Landmark []float64

type FrameRecord struct {
	FrameNum        int        `json:"frame_num" cbor:"frame_num"`
	TimeMs          int64      `json:"time_ms" cbor:"time_ms"`
	GlobalLandmarks []Landmark `json:"global_landmarks" cbor:"global_landmarks"`
	LocalLandmarks  []Landmark `json:"local_landmarks" cbor:"local_landmarks"`
	Gesture         string     `json:"gesture" cbor:"gesture"`
	Rect            float64    `json:"rect" cbor:"rect"`
}

// Clone deep-copies the landmark matrices.
func (r FrameRecord) Clone() FrameRecord {
	out := r
	out.GlobalLandmarks = cloneLandmarks(r.GlobalLandmarks)
	out.LocalLandmarks = cloneLandmarks(r.LocalLandmarks)
	return out
}

func cloneLandmarks(in []Landmark) []Landmark {
	if in == nil {
		return nil
	}
	out := make([]Landmark, len(in))
	for i, row := range in {
		out[i] = append(Landmark(nil), row...)
	}
	return out
}
