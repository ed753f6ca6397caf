package transport

import "sync"

// State is one step of the connection lifecycle.
type State uint8

const (
    StateCreated State = iota
    StateHandshaking
    StateReady
    StateRequesting
    StateStreaming
    StateClosed
)

func (s State) String() string {
    switch s {
    case StateCreated:
        return "created"
    case StateHandshaking:
        return "handshaking"
    case StateReady:
        return "ready"
    case StateRequesting:
        return "requesting"
    case StateStreaming:
        return "streaming"
    case StateClosed:
        return "closed"
    default:
        return "unknown"
    }
}

// Machine is the single description of the connection lifecycle:
//
//	Created → Handshaking → Ready → (Requesting → Streaming → Ready)* → Closed
//
// Every scheme embeds it, and the blocking and async surfaces drive the same
// instance, so both renditions reach identical states for identical inputs.
// Closed is terminal; a failure anywhere forces Closed and marks the machine
// broken so later operations fail with ErrClosed instead of retrying.
type Machine struct {
    mu     sync.Mutex
    st     State
    broken bool
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.st
}

// Broken reports whether the machine reached Closed through a failure.
func (m *Machine) Broken() bool {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.broken
}

// BeginHandshake transitions Created → Handshaking.
func (m *Machine) BeginHandshake() error {
    m.mu.Lock()
    defer m.mu.Unlock()
    switch m.st {
    case StateCreated:
        m.st = StateHandshaking
        return nil
    case StateClosed:
        return ErrClosed
    default:
        return ErrAlreadyHandshaked
    }
}

// FinishHandshake transitions Handshaking → Ready, or forces Closed when the
// handshake failed.
func (m *Machine) FinishHandshake(err error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if err != nil {
        m.st, m.broken = StateClosed, true
        return
    }
    if m.st == StateHandshaking {
        m.st = StateReady
    }
}

// BeginRequest transitions Ready → Requesting.
func (m *Machine) BeginRequest() error {
    m.mu.Lock()
    defer m.mu.Unlock()
    switch m.st {
    case StateReady:
        m.st = StateRequesting
        return nil
    case StateCreated, StateHandshaking:
        return ErrHandshakeRequired
    case StateClosed:
        return ErrClosed
    default:
        return ErrConcurrentRequest
    }
}

// BeginStreaming transitions Requesting → Streaming once the request body is
// finished and the response is being consumed.
func (m *Machine) BeginStreaming() {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.st == StateRequesting {
        m.st = StateStreaming
    }
}

// FinishCycle returns the machine to Ready at the end of a request/response
// cycle, or forces Closed when the cycle failed.
func (m *Machine) FinishCycle(err error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if err != nil {
        m.st, m.broken = StateClosed, true
        return
    }
    if m.st == StateRequesting || m.st == StateStreaming {
        m.st = StateReady
    }
}

// Fail forces Closed after an unrecoverable error in any state.
func (m *Machine) Fail() {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.st, m.broken = StateClosed, true
}

// Close transitions to Closed, reporting whether the machine was already
// there so explicit close stays idempotent.
func (m *Machine) Close() (already bool) {
    m.mu.Lock()
    defer m.mu.Unlock()
    already = m.st == StateClosed
    m.st = StateClosed
    return already
}
