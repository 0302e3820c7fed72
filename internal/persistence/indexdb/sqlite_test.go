package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"voxelfracture.ai/internal/persistence/snapshot"
	"voxelfracture.ai/internal/sim/destruction"
	"voxelfracture.ai/internal/sim/tuning"
	"voxelfracture.ai/internal/sim/voxel"
)

func TestSQLiteIndex_RecordsTicksFragmentsSnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "scene.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.UpsertTuning(tuning.Defaults()); err != nil {
		t.Fatalf("tuning: %v", err)
	}
	idx.RecordTick(destruction.TickLogEntry{
		Tick:       5,
		Collisions: make([]destruction.Collision, 2),
		Digest:     "abc",
		WorldHash:  "def",
		Bodies: []destruction.BodyOutcome{
			{Body: 1, Destroyed: 3, Snapped: 1, Separated: true, Fragments: []voxel.BodyID{4, 5}, LostEnergy: 1.5},
			{Body: 2, Destroyed: 1},
		},
	})
	idx.RecordSnapshot("/data/5.snap.zst", snapshot.SnapshotV1{
		Header: snapshot.Header{Tick: 5, SceneID: "demo"},
		Bodies: []snapshot.BodyV1{{ID: 4, Strength: []float64{1, 2}}, {ID: 5, Strength: []float64{3}}},
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var digest string
	var collisions, fragments, destroyed, snapped int
	var lost float64
	err = db.QueryRow(`SELECT digest,collisions,fragments,destroyed,snapped,lost_energy FROM ticks WHERE tick=5`).
		Scan(&digest, &collisions, &fragments, &destroyed, &snapped, &lost)
	if err != nil {
		t.Fatalf("tick row: %v", err)
	}
	if digest != "abc" || collisions != 2 || fragments != 2 || destroyed != 4 || snapped != 1 || lost != 1.5 {
		t.Fatalf("tick row: %s %d %d %d %d %v", digest, collisions, fragments, destroyed, snapped, lost)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM fragments WHERE parent_body=1`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("fragments: n=%d err=%v", n, err)
	}

	var bodies, voxels int
	var scene string
	if err := db.QueryRow(`SELECT scene,bodies,voxels FROM snapshots WHERE tick=5`).Scan(&scene, &bodies, &voxels); err != nil {
		t.Fatalf("snapshot row: %v", err)
	}
	if scene != "demo" || bodies != 2 || voxels != 3 {
		t.Fatalf("snapshot row: %s %d %d", scene, bodies, voxels)
	}

	var tuningDigest string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key='tuning_digest'`).Scan(&tuningDigest); err != nil || len(tuningDigest) != 64 {
		t.Fatalf("tuning digest: %q %v", tuningDigest, err)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: destruction.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(destruction.TickLogEntry{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropTickTotal != 1 {
		t.Fatalf("DropTickTotal=%d want=1", st.DropTickTotal)
	}
	if st.DropSnapshotTotal != 1 {
		t.Fatalf("DropSnapshotTotal=%d want=1", st.DropSnapshotTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}
