package system

import "time"

// Phase defines execution ordering within a single host tick.
type Phase int

const (
	PhaseInput   Phase = iota // 0: apply intents posted by listeners last tick
	PhaseTrigger              // 1: external advance triggers (turn timer)
	PhaseScript               // 2: scripted roster changes
	PhasePersist              // 3: journal flush
)

// System is the interface every host-loop system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration) error
}
