package models

// Tone selects how a toast is presented.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
	ToneInfo    Tone = "info"
)

// Valid reports whether t is one of the known tones.
func (t Tone) Valid() bool {
	switch t {
	case ToneSuccess, ToneError, ToneInfo:
		return true
	}
	return false
}

// Toast is a transient status message. ID tells apart toasts with the same text.
type Toast struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Tone    Tone   `json:"tone"`
}
