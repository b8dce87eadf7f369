package status

// Message is the sum type of everything the executor and the modules publish
// on the status channel.
//
// Ordering contract: within one step, StepsCreated precedes any other message
// mentioning that step, StepDone is the last non-error message, and after a
// Failed message no further messages for that step are sent. Cross-step
// ordering is unspecified.
type Message interface {
	isStatusMessage()
}

// Sender is the write end of the status channel. Sends block when the channel
// is full; messages are never silently dropped. A nil Sender means nobody is
// listening and reporters fall back to the process logger.
type Sender chan<- Message

// Send delivers a message if a listener is attached.
func (s Sender) Send(msg Message) {
	if s != nil {
		s <- msg
	}
}

// StepsCreated announces all steps of the workflow. It is emitted exactly
// once, before any other message.
type StepsCreated struct {
	Steps []StepID
}

// Info is an informational message for the user.
type Info struct {
	Message string
}

// Warning is a non-fatal problem the user should know about.
type Warning struct {
	Message string
}

// Progress reports the accumulated progress of one step. A TotalWork of 0
// means the total is unknown and clients should treat the step as
// indeterminate.
type Progress struct {
	ID           StepID
	TotalWork    uint64
	FinishedWork uint64
}

// StepDone signals that a step has finished successfully.
type StepDone struct {
	ID StepID
}

// Failed signals that the conversion failed with the given error.
type Failed struct {
	Err error
}

func (StepsCreated) isStatusMessage() {}
func (Info) isStatusMessage()         {}
func (Warning) isStatusMessage()      {}
func (Progress) isStatusMessage()     {}
func (StepDone) isStatusMessage()     {}
func (Failed) isStatusMessage()       {}
