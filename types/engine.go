package types

import (
	"context"
	"time"
)

type RenderEngine interface {
	/**
	 * Submit queues the dependency under jobID. The job owns its own
	 * cancellation scope, derived from ctx.
	 */
	Submit(ctx context.Context, jobID string, dep Dependency) error
	/**
	 * Wait blocks until the job finished or ctx is done. A cancelled job
	 * returns an empty table and no error.
	 */
	Wait(ctx context.Context, jobID string) (*ValueTable, error)
	// Render is Submit followed by Wait under a generated job ID.
	Render(ctx context.Context, dep Dependency) (*ValueTable, error)

	Cancel(jobID string) error

	GetJobStatus(ctx context.Context, jobID string) (*JobStatus, error)
	GetJobRecord(ctx context.Context, jobID string) (*RenderRecord, error)

	/**
	 * RenderGraph returns the DOT text of the document. If jobID is not
	 * empty the stored record of that job colors the visited nodes.
	 */
	RenderGraph(ctx context.Context, jobID string) (string, error)

	Subscribe(observer Observer)

	/**
	 * Close cancels pending jobs, waits for running ones, closes every
	 * cached decoder and the accelerator.
	 */
	Close(ctx context.Context) error
}

type JobStatus struct {
	Status     StatusType
	Dependency Dependency
	SubmitTime time.Time
	EndTime    time.Time
}

type RenderRecord struct {
	JobID      string
	Dependency Dependency
	StartTime  time.Time
	EndTime    time.Time
	Cancelled  bool
	// Visited holds the node path of every evaluated node, in order.
	Visited      []string
	VisitedNodes []NodeID
	DecoderOpens []StreamID
	OpenFailures []StreamID
	Unavailable  []FootageUnavailableEvent `json:",omitempty"`
	Accelerated  []NodeID                  `json:",omitempty"`
	OutputTypes  []DataType                `json:",omitempty"`
}
