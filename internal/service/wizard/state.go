package wizard

import (
	"github.com/zhouzirui/secret-keeper/backend/internal/model/chat"
	"github.com/zhouzirui/secret-keeper/backend/internal/service/ai"
)

// state is the session lifecycle. The conversation handle only exists in
// ready and busy, so a busy session without a conversation cannot be built.
type state interface {
	phase() chat.Phase
}

type uninitialized struct{}

type ready struct {
	conv ai.Conversation
}

type busy struct {
	conv ai.Conversation
	// closing is set when Close arrives mid-flight; the relay closes the
	// conversation once the reply settles.
	closing bool
}

type failed struct {
	err error
}

type closed struct{}

func (uninitialized) phase() chat.Phase { return chat.PhaseUninitialized }
func (ready) phase() chat.Phase         { return chat.PhaseReady }
func (busy) phase() chat.Phase          { return chat.PhaseBusy }
func (failed) phase() chat.Phase        { return chat.PhaseFailed }
func (closed) phase() chat.Phase        { return chat.PhaseFailed }
