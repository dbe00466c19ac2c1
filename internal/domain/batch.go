package domain

import "fmt"

// BatchState tracks one bulk price submission.
type BatchState string

const (
	BatchReceived BatchState = "received"
	BatchParsed   BatchState = "parsed"
	BatchMatched  BatchState = "matched"
	BatchApplied  BatchState = "applied"
	BatchReported BatchState = "reported"
	BatchFailed   BatchState = "failed"
)

var batchTransitions = map[BatchState][]BatchState{
	BatchReceived: {BatchParsed},
	BatchParsed:   {BatchMatched, BatchFailed},
	BatchMatched:  {BatchApplied},
	BatchApplied:  {BatchReported, BatchFailed},
}

func (s BatchState) CanTransition(to BatchState) bool {
	for _, next := range batchTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Batch struct {
	State BatchState
}

func NewBatch() *Batch {
	return &Batch{State: BatchReceived}
}

func (b *Batch) Transition(to BatchState) error {
	if !b.State.CanTransition(to) {
		return fmt.Errorf("batch cannot move from %s to %s", b.State, to)
	}
	b.State = to
	return nil
}

func (b *Batch) Terminal() bool {
	return b.State == BatchReported || b.State == BatchFailed
}
