package nativemsg

import (
	"encoding/json"

	"github.com/nativedl/dlaccel/pkg/dlengine"
)

// eventEnvelope is the on-wire shape of a dlengine.Event: an "event"
// discriminator plus only the fields that Kind defines, mirroring the
// inbound commandEnvelope's "command" discriminator.
type eventEnvelope struct {
	Event      string `json:"event"`
	ID         string `json:"id,omitempty"`
	Filename   string `json:"filename,omitempty"`
	Percent    *int   `json:"percent,omitempty"`
	Speed      string `json:"speed,omitempty"`
	Size       *int64 `json:"size,omitempty"`
	Downloaded *int64 `json:"downloaded,omitempty"`
	File       string `json:"file,omitempty"`
	Error      string `json:"error,omitempty"`
}

// EncodeEvent renders an Event as its wire-format JSON payload.
func EncodeEvent(e dlengine.Event) ([]byte, error) {
	env := eventEnvelope{
		Event:    e.Kind,
		ID:       e.ID,
		Filename: e.Filename,
		Speed:    e.Speed,
		File:     e.File,
		Error:    e.Error,
	}
	switch e.Kind {
	case "progress", "complete":
		percent := e.Percent
		env.Percent = &percent
	}
	switch e.Kind {
	case "progress":
		size, downloaded := e.Size, e.Downloaded
		env.Size = &size
		env.Downloaded = &downloaded
	}
	return json.Marshal(env)
}
