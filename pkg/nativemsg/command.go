package nativemsg

import "encoding/json"

// commandEnvelope is the inbound frame shape: { "command": string, ... }.
// All command-specific fields are optional here and validated by the
// dispatcher, since a missing required field is a BadCommand - not a
// decode error.
type commandEnvelope struct {
	Command string `json:"command"`
	URL     string `json:"url"`
	Referer string `json:"referer"`
	ID      string `json:"id"`
}

// decodeCommand parses one frame payload. A JSON syntax error is returned
// to the caller, which drops the frame silently rather than emitting
// anything - there is no command to attach an error to.
func decodeCommand(payload []byte) (commandEnvelope, error) {
	var env commandEnvelope
	err := json.Unmarshal(payload, &env)
	return env, err
}
