// Package speech models continuous listening as a small state machine fed by
// recognizer events.
package speech

import (
	"context"
	"strings"
)

type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

type EventKind int

const (
	Start EventKind = iota
	Stop
	Interim
	Final
	Error
	End
)

type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Effect is what the owner of a Machine has to do after a transition.
type Effect struct {
	StartRecognizer bool
	StopRecognizer  bool
	// Command is a finalized transcript to run through the interpreter.
	Command string
	// Notice is a transient message for the operator.
	Notice string
}

// Recognizer turns audio into events. Start must return quickly; results
// are delivered through emit from any goroutine.
type Recognizer interface {
	Start(ctx context.Context, emit func(Event)) error
	Stop() error
}

const RecognitionNotice = "Voice recognition error. Please check your microphone permissions."

type Machine struct {
	state   State
	interim string
}

func (m *Machine) State() State {
	return m.state
}

// Interim is the transcript being heard but not yet committed.
func (m *Machine) Interim() string {
	return m.interim
}

// Handle applies ev and reports the resulting effect. Events that make no
// sense in the current state are ignored.
func (m *Machine) Handle(ev Event) Effect {
	switch m.state {
	case Idle:
		if ev.Kind == Start {
			m.state = Listening
			return Effect{StartRecognizer: true}
		}

	case Listening:
		switch ev.Kind {
		case Stop:
			m.reset()
			return Effect{StopRecognizer: true}
		case Error:
			m.reset()
			notice := RecognitionNotice
			if ev.Err != nil {
				notice = RecognitionNotice + " (" + ev.Err.Error() + ")"
			}
			return Effect{StopRecognizer: true, Notice: notice}
		case End:
			m.reset()
		case Interim:
			m.interim = ev.Text
		case Final:
			m.interim = ""
			return Effect{Command: strings.TrimSpace(ev.Text)}
		}
	}
	return Effect{}
}

func (m *Machine) reset() {
	m.state = Idle
	m.interim = ""
}
