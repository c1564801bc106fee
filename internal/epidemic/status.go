package epidemic

import (
	"errors"
	"fmt"
)

// Status is the compartment a node currently belongs to.
type Status uint8

const (
	Susceptible Status = iota
	Infected
	Recovered
)

func (s Status) String() string {
	switch s {
	case Susceptible:
		return "S"
	case Infected:
		return "I"
	case Recovered:
		return "R"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

var (
	// ErrInvalidParameter reports a rejected rate, horizon or seed set.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrUnknownNode reports a node index outside the network.
	ErrUnknownNode = errors.New("unknown node")
	// ErrInvalidTransition reports an infect/recover call that does not follow S -> I -> R.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrStalled reports a zero total event rate while infected nodes remain.
	ErrStalled = errors.New("simulation stalled")
)
