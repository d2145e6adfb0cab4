package status

// Status represents transcription task lifecycle state
type Status int

const (
	// Pending - task created and queued
	Pending Status = iota + 1
	// Processing - task picked up by a worker
	Processing
	// Completed - final step
	Completed
	// Failed - final step, with error
	Failed
)

var (
	statusName = map[Status]string{Pending: "PENDING", Processing: "PROCESSING",
		Completed: "COMPLETED", Failed: "FAILED"}
	nameStatus = map[string]Status{"PENDING": Pending, "PROCESSING": Processing,
		"COMPLETED": Completed, "FAILED": Failed}
)

func (st Status) String() string {
	return statusName[st]
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}

// IsTerminal indicates a final state, one that is never overwritten
func IsTerminal(st Status) bool {
	return st == Completed || st == Failed
}
