package routing

import (
	"github.com/rs/zerolog"
	"os"
	"sync"
)

// A Pauser stops the polling loop of a consumer until it is resumed
type Pauser interface {
	Pause()
}

// A RecoveryGate bounds the error consumer to offsets up to a fixed recovery offset
type RecoveryGate struct {
	offset int64
	mu     sync.RWMutex
	pauser Pauser
	logger *zerolog.Logger
}

// NewRecoveryGate captures the recovery offset, a negative offset admits nothing
func NewRecoveryGate(offset int64, logger *zerolog.Logger) *RecoveryGate {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}
	return &RecoveryGate{offset: offset, logger: logger}
}

// Bind sets the consumer paused on the first offset beyond the window
func (g *RecoveryGate) Bind(p Pauser) {
	g.mu.Lock()
	g.pauser = p
	g.mu.Unlock()
}

// Offset returns the captured recovery offset
func (g *RecoveryGate) Offset() int64 {
	return g.offset
}

// Admit reports whether offset is inside the recovery window, pausing the bound consumer otherwise
func (g *RecoveryGate) Admit(offset int64) bool {
	if offset <= g.offset {
		return true
	}

	g.mu.RLock()
	p := g.pauser
	g.mu.RUnlock()

	g.logger.Warn().
		Int64("offset", offset).
		Int64("recovery_offset", g.offset).
		Msg("Offset beyond error recovery offset, pausing error consumer")

	if p != nil {
		p.Pause()
	}
	return false
}
