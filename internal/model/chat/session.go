package chat

import "time"

// Phase is the externally visible lifecycle stage of a session.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseReady         Phase = "ready"
	PhaseBusy          Phase = "busy"
	PhaseFailed        Phase = "failed"
)

// Reveal summarises how close the player is to the password.
type Reveal struct {
	Probes   int  `json:"probes"`
	HintDue  bool `json:"hintDue"`
	Unlocked bool `json:"unlocked"`
}

// Session is a read-only snapshot of a wizard conversation.
type Session struct {
	ID         string    `json:"id"`
	PersonaID  string    `json:"personaId"`
	Phase      Phase     `json:"phase"`
	Transcript []Message `json:"transcript"`
	Banner     string    `json:"banner,omitempty"`
	CanSubmit  bool      `json:"canSubmit"`
	Reveal     Reveal    `json:"reveal"`
	CreatedAt  time.Time `json:"createdAt"`
}
