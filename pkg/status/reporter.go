package status

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// ProgressReporter accumulates per-step progress and forwards it on the
// status channel.
//
// Worked is cumulative: each call adds to a running counter and emits one
// Progress message. The reporter is safe for concurrent use; concurrent
// Worked calls are serialized by an internal lock.
//
// When no Sender is attached, Info and Warn are routed to logrus at the
// matching levels and Progress messages go to the debug level, so a module
// embedded as a library still produces a readable log.
type ProgressReporter struct {
	mu        sync.Mutex
	sender    Sender
	stepID    StepID
	totalWork uint64
	finished  uint64
}

// NewProgressReporter creates a reporter for one step. Pass totalWork == 0
// when the total amount of work is not known in advance.
//
// A first Progress message with zero finished work is sent immediately so any
// listener learns the total before the step starts working.
func NewProgressReporter(sender Sender, stepID StepID, totalWork uint64) *ProgressReporter {
	r := &ProgressReporter{
		sender:    sender,
		stepID:    stepID,
		totalWork: totalWork,
	}
	r.Worked(0)
	return r
}

// Info sends an informational message.
func (r *ProgressReporter) Info(msg string) {
	if r.sender != nil {
		r.sender.Send(Info{Message: msg})
	} else {
		logrus.WithField("step", r.stepID.String()).Info(msg)
	}
}

// Warn sends a warning message.
func (r *ProgressReporter) Warn(msg string) {
	if r.sender != nil {
		r.sender.Send(Warning{Message: msg})
	} else {
		logrus.WithField("step", r.stepID.String()).Warn(msg)
	}
}

// Worked adds n to the accumulated finished work and emits one Progress
// message.
func (r *ProgressReporter) Worked(n uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished += n
	if r.sender != nil {
		r.sender.Send(Progress{
			ID:           r.stepID,
			TotalWork:    r.totalWork,
			FinishedWork: r.finished,
		})
	} else {
		logrus.WithFields(logrus.Fields{
			"step":     r.stepID.String(),
			"finished": r.finished,
			"total":    r.totalWork,
		}).Debug("progress")
	}
}
