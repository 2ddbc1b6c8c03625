package service

import (
	"github.com/google/uuid"

	"meetsync/pkg/logger"
)

// SagaState tracks where a calendar mutation stands in the commit protocol.
// Holding the state as an explicit value, rather than implying it from code
// position, keeps every in-flight operation inspectable and leaves room to
// persist sagas later without restructuring the orchestrator.
type SagaState string

const (
	StateStarted            SagaState = "started"
	StateConflictChecked    SagaState = "conflict_checked"
	StateReserved           SagaState = "reserved"
	StateSynced             SagaState = "synced"
	StateRolledBack         SagaState = "rolled_back"
	StateCompensationFailed SagaState = "compensation_failed"
)

type saga struct {
	id    string
	op    string
	state SagaState
	log   *logger.Logger
}

func newSaga(op string, log *logger.Logger) *saga {
	id := uuid.New().String()
	s := &saga{
		id:    id,
		op:    op,
		state: StateStarted,
		log:   log.With("saga_id", id, "saga_op", op),
	}
	s.log.Debug("Saga started")
	return s
}

func (s *saga) transition(next SagaState) {
	s.log.Info("Saga state transition", "from", string(s.state), "to", string(next))
	s.state = next
}

// fail marks the terminal state for an aborted saga and logs the cause.
func (s *saga) fail(next SagaState, err error) {
	s.log.Error("Saga failed", "from", string(s.state), "to", string(next), "error", err)
	s.state = next
}
