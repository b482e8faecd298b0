package queue

import "encoding/json"

// Job kinds understood by the worker.
const (
	KindParseResume    = "parse_resume"
	KindRankCandidates = "rank_candidates"
)

// Message is the payload sent to downstream queue consumers. RecordID is the
// candidate ID for parse jobs and the job post ID for ranking jobs.
type Message struct {
	Kind       string `json:"kind"`
	RecordID   string `json:"recordId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
