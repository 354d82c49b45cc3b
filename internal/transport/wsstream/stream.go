package wsstream

import (
	"errors"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mettagrid/internal/logger"
	"mettagrid/internal/simcore/simerrors"
	"mettagrid/internal/simcore/simulation"
)

// ErrBufferMismatch names a StepFrame whose Actions/VibeActions/Masks length
// disagrees with the episode's bound N. Nothing in this package returns it:
// applyFrame reports that case as a *simerrors.BufferMismatchError.
var ErrBufferMismatch = errors.New("wsstream: step frame buffer length mismatch")

// Locker lets a caller (controlapi.Episode) serialize each Step call
// against concurrent HTTP stat/object reads without holding any lock for
// the connection's entire lifetime.
type Locker interface {
	Lock()
	Unlock()
}

// Serve drives one controller connection against sim/buf until the socket
// closes or a read error occurs. Each received StepFrame is copied into buf
// (the caller-write columns of spec.md §4.14), sim.Step runs exactly once,
// and the sim-write columns are copied back out as a StepResult. This is
// the entire contract: Serve never inspects or mutates simulation state
// beyond what Buffers already exposes. locker, if non-nil, is held only
// around the apply-step-copy sequence, so a concurrent HTTP stats poll
// never sees a half-written step.
func Serve(sim *simulation.Simulation, buf *simulation.Buffers, conn *Connection, locker Locker) {
	log := logger.WithClientContext(conn.ID, "", conn.EpisodeID)
	log.Info("wsstream connection serving")
	defer log.Info("wsstream connection closed")

	done := make(chan struct{})
	go writePump(conn, done)
	defer close(done)

	for {
		frame, err := conn.ReadStepFrame()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug("wsstream read error", zap.Error(err))
			}
			return
		}

		if locker != nil {
			locker.Lock()
		}
		result, applyErr := stepOnce(sim, buf, frame)
		if locker != nil {
			locker.Unlock()
		}
		if applyErr != nil {
			if werr := conn.WriteError(applyErr.Error()); werr != nil {
				log.Debug("wsstream error-frame write failed", zap.Error(werr))
				return
			}
			continue
		}
		select {
		case conn.Send <- result:
		default:
			log.Debug("wsstream send queue full, dropping result frame")
		}
	}
}

func writePump(conn *Connection, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case result := <-conn.Send:
			if err := conn.WriteResult(result); err != nil {
				return
			}
		}
	}
}

// stepOnce applies frame, runs exactly one Step, and snapshots the
// sim-write buffer columns into a StepResult. Split out from Serve's loop
// so the caller can bracket it with a single lock/unlock pair.
func stepOnce(sim *simulation.Simulation, buf *simulation.Buffers, frame StepFrame) (StepResult, error) {
	if err := applyFrame(buf, frame); err != nil {
		return StepResult{}, err
	}
	sim.Step()
	return StepResult{
		Step:         sim.CurrentStep(),
		Observations: buf.Observations,
		Rewards:      buf.Rewards,
		Terminals:    buf.Terminals,
		Truncations:  buf.Truncations,
	}, nil
}

func applyFrame(buf *simulation.Buffers, frame StepFrame) error {
	if len(frame.Actions) != len(buf.Actions) {
		return &simerrors.BufferMismatchError{Buffer: "actions", Expected: len(buf.Actions), Got: len(frame.Actions)}
	}
	if len(frame.VibeActions) != len(buf.VibeActions) {
		return &simerrors.BufferMismatchError{Buffer: "vibe_actions", Expected: len(buf.VibeActions), Got: len(frame.VibeActions)}
	}
	copy(buf.Actions, frame.Actions)
	copy(buf.VibeActions, frame.VibeActions)
	if frame.Masks != nil {
		if len(frame.Masks) != len(buf.Masks) {
			return &simerrors.BufferMismatchError{Buffer: "masks", Expected: len(buf.Masks), Got: len(frame.Masks)}
		}
		copy(buf.Masks, frame.Masks)
	}
	return nil
}
