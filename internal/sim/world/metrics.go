package world

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick    uint64 `json:"tick"`
	Bodies  int    `json:"bodies"`
	Clients int    `json:"clients"`

	QueueDepths QueueDepths `json:"queue_depths"`

	// DroppedBroadcasts counts TICK messages not delivered to slow clients.
	DroppedBroadcasts uint64 `json:"dropped_broadcasts"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	m, _ := w.metrics.Load().(WorldMetrics)
	return m
}

func (w *World) storeMetrics(nextTick uint64, stepMS float64) {
	w.metrics.Store(WorldMetrics{
		Tick:    nextTick,
		Bodies:  w.bodies.Len(),
		Clients: len(w.clients),
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
			Join:  len(w.join),
			Leave: len(w.leave),
		},
		DroppedBroadcasts: w.dropped.Load(),
		StepMS:            stepMS,
	})
}
