package graph

import (
	"fmt"

	"github.com/haasonsaas/swarm/internal/value"
)

// InvalidGraphReason categorizes why Compile rejected a step tree.
type InvalidGraphReason int

const (
	EmptyOrchestration InvalidGraphReason = iota
	DuplicateNodeName
	UnknownDependency
	CycleDetected
)

func (r InvalidGraphReason) String() string {
	switch r {
	case EmptyOrchestration:
		return "emptyOrchestration"
	case DuplicateNodeName:
		return "duplicateNodeName"
	case UnknownDependency:
		return "unknownDependency"
	case CycleDetected:
		return "cycleDetected"
	default:
		return "unknown"
	}
}

// InvalidGraph reports a step tree that Compile refused to accept.
// NodeNames carries the offending names: the duplicate, the missing
// dependency, or the cycle's full node set.
type InvalidGraph struct {
	Reason    InvalidGraphReason
	NodeNames []string
}

func (e *InvalidGraph) Error() string {
	if len(e.NodeNames) == 0 {
		return fmt.Sprintf("invalid graph: %s", e.Reason)
	}
	return fmt.Sprintf("invalid graph: %s %v", e.Reason, e.NodeNames)
}

// NoInterruptToResume reports a resume attempt against a thread with no
// pending interrupt, including a second resume of an already-consumed
// handle.
type NoInterruptToResume struct {
	ThreadID string
}

func (e *NoInterruptToResume) Error() string {
	return fmt.Sprintf("no interrupt pending to resume for thread %q", e.ThreadID)
}

// ResumeInterruptMismatch reports a handle whose interruptId does not match
// the thread's current pending interrupt.
type ResumeInterruptMismatch struct {
	Expected, Got string
}

func (e *ResumeInterruptMismatch) Error() string {
	return fmt.Sprintf("resume interrupt mismatch: expected %q, got %q", e.Expected, e.Got)
}

// NoCheckpointToResume reports a workflow ID with nothing in the checkpoint
// store.
type NoCheckpointToResume struct {
	WorkflowID string
}

func (e *NoCheckpointToResume) Error() string {
	return fmt.Sprintf("no checkpoint to resume workflow %q", e.WorkflowID)
}

// IncompatibleSchemaVersion reports a checkpoint written by an older or
// newer engine than the one attempting to resume it.
type IncompatibleSchemaVersion struct {
	Expected, Got string
}

func (e *IncompatibleSchemaVersion) Error() string {
	return fmt.Sprintf("incompatible checkpoint schema version: expected %q, got %q", e.Expected, e.Got)
}

// CheckpointCorrupt wraps a deserialization failure reading a stored
// checkpoint.
type CheckpointCorrupt struct {
	WorkflowID string
	Cause      error
}

func (e *CheckpointCorrupt) Error() string {
	return fmt.Sprintf("checkpoint for workflow %q is corrupt: %v", e.WorkflowID, e.Cause)
}

func (e *CheckpointCorrupt) Unwrap() error { return e.Cause }

// UnknownChannelID reports an external write targeting an undeclared
// channel.
type UnknownChannelID struct {
	Channel string
}

func (e *UnknownChannelID) Error() string { return fmt.Sprintf("unknown channel %q", e.Channel) }

// TaskLocalWriteNotAllowed reports a task-local-scoped write against a
// channel declared shared.
type TaskLocalWriteNotAllowed struct {
	Channel string
}

func (e *TaskLocalWriteNotAllowed) Error() string {
	return fmt.Sprintf("task-local write not allowed on shared channel %q", e.Channel)
}

// ChannelTypeMismatch reports a write whose value Kind disagrees with the
// channel's declared Kind.
type ChannelTypeMismatch struct {
	Channel   string
	Want, Got value.Kind
}

func (e *ChannelTypeMismatch) Error() string {
	return fmt.Sprintf("channel %q expects %s, got %s", e.Channel, e.Want, e.Got)
}

// UpdatePolicyViolation reports a second write in the same turn to a
// single-update-policy channel.
type UpdatePolicyViolation struct {
	Channel string
}

func (e *UpdatePolicyViolation) Error() string {
	return fmt.Sprintf("channel %q has single update policy and was already written this turn", e.Channel)
}

// InterruptPending reports an external write attempted while the thread has
// an unresolved interrupt.
type InterruptPending struct {
	ThreadID string
}

func (e *InterruptPending) Error() string {
	return fmt.Sprintf("thread %q has a pending interrupt", e.ThreadID)
}
