package world

import (
	"context"
	"errors"
)

var (
	ErrNoSnapshotSink = errors.New("world: snapshot sink not configured")
	ErrSnapshotBusy   = errors.New("world: snapshot sink full")
)

// SnapshotInfo describes a snapshot handed to the sink.
type SnapshotInfo struct {
	Tick   uint64 `json:"tick"`
	Bodies int    `json:"bodies"`
	Voxels int    `json:"voxels"`
}

type adminSnapshotReq struct {
	done chan<- snapshotResult
}

type snapshotResult struct {
	info SnapshotInfo
	err  error
}

// RequestSnapshot asks the loop goroutine to snapshot the last completed
// tick. Safe to call from HTTP handlers.
func (w *World) RequestSnapshot(ctx context.Context) (SnapshotInfo, error) {
	done := make(chan snapshotResult, 1)
	select {
	case w.admin <- adminSnapshotReq{done: done}:
	case <-ctx.Done():
		return SnapshotInfo{}, ctx.Err()
	}
	select {
	case r := <-done:
		return r.info, r.err
	case <-ctx.Done():
		return SnapshotInfo{}, ctx.Err()
	}
}

// answerSnapshotRequests runs after a step; every request collected during
// the tick shares one export.
func (w *World) answerSnapshotRequests(reqs []adminSnapshotReq) {
	if len(reqs) == 0 {
		return
	}
	last := w.tick.Load()
	if last > 0 {
		last--
	}
	info, err := w.offerSnapshot(last)
	for _, r := range reqs {
		r.done <- snapshotResult{info: info, err: err}
	}
}

// offerSnapshot exports the registry as of tick and passes it to the sink
// without blocking the loop.
func (w *World) offerSnapshot(tick uint64) (SnapshotInfo, error) {
	info := SnapshotInfo{Tick: tick}
	if w.snapshotSink == nil {
		return info, ErrNoSnapshotSink
	}
	snap := w.ExportSnapshot(tick)
	info.Bodies = len(snap.Bodies)
	for _, b := range snap.Bodies {
		info.Voxels += len(b.Strength)
	}
	select {
	case w.snapshotSink <- snap:
		return info, nil
	default:
		return info, ErrSnapshotBusy
	}
}
