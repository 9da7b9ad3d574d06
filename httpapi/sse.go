package httpapi

import (
	"encoding/json"
	"io"
)

// sseEncoder writes engine.StateUpdate values as text/event-stream
// frames, one "data:" line per JSON-encoded update.
type sseEncoder struct {
	w io.Writer
}

func newSSEEncoder(w io.Writer) *sseEncoder {
	return &sseEncoder{w: w}
}

func (e *sseEncoder) Encode(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := e.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	_, err = e.w.Write([]byte("\n\n"))
	return err
}
