package evaluation

import (
	"errors"
	"fmt"
	"sync"
)

// State is the lifecycle of one evaluation run
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateTrainReady State = "TRAIN_READY" // feature rows validated and split
	StatePredicting State = "PREDICTING"  // iterating test weeks
	StateEvaluated  State = "EVALUATED"   // metrics computed
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// ErrInvalidTransition is returned for transitions outside the lifecycle
var ErrInvalidTransition = errors.New("invalid state transition")

// 재시도/재개 상태 없음: 실패한 실행은 처음부터 다시 실행
var transitions = map[State][]State{
	StateNotStarted: {StateTrainReady, StateFailed},
	StateTrainReady: {StatePredicting, StateFailed},
	StatePredicting: {StateEvaluated, StateFailed},
	StateEvaluated:  {StateDone, StateFailed},
}

// Machine guards the run lifecycle
type Machine struct {
	mu    sync.RWMutex
	state State
}

// NewMachine starts in NOT_STARTED
func NewMachine() *Machine {
	return &Machine{state: StateNotStarted}
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Transition moves to next or returns ErrInvalidTransition
func (m *Machine) Transition(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, allowed := range transitions[m.state] {
		if allowed == next {
			m.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, m.state, next)
}

// Fail moves to FAILED from any non-terminal state
func (m *Machine) Fail() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateDone {
		m.state = StateFailed
	}
}
