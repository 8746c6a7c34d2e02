package types

const (
	OutcomeDecoded  = "decoded"
	OutcomeRejected = "rejected"
	OutcomeSentinel = "sentinel"
)

// RawEntry is one inbound payload as captured by the raw log.
type RawEntry struct {
	Session string `json:"session" cbor:"session"`
	Seq     uint64 `json:"seq" cbor:"seq"`
	Payload string `json:"payload" cbor:"payload"`
	Outcome string `json:"outcome" cbor:"outcome"`
	Kind    string `json:"kind,omitempty" cbor:"kind,omitempty"`
}
