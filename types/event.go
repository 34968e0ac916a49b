package types

// FootageUnavailableEvent is emitted when a footage input could not provide
// frame data at the requested time. It is fire-and-forget.
type FootageUnavailableEvent struct {
	JobID  string
	Stream StreamID
	State  RetrieveState
	// Range is the outer range of the job that hit the footage.
	Range TimeRange
	// Time is the inner time the decoder was asked for.
	Time Rational
}

type RenderCompletedEvent struct {
	JobID      string
	Dependency Dependency
	Table      *ValueTable
	JobTime    int64
	Cancelled  bool
}

type Observer interface {
	OnFootageUnavailable(ev FootageUnavailableEvent)
	OnRenderCompleted(ev RenderCompletedEvent)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	FootageUnavailable func(ev FootageUnavailableEvent)
	RenderCompleted    func(ev RenderCompletedEvent)
}

func (o ObserverFuncs) OnFootageUnavailable(ev FootageUnavailableEvent) {
	if o.FootageUnavailable != nil {
		o.FootageUnavailable(ev)
	}
}

func (o ObserverFuncs) OnRenderCompleted(ev RenderCompletedEvent) {
	if o.RenderCompleted != nil {
		o.RenderCompleted(ev)
	}
}
