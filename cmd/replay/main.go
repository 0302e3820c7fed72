package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	persistlog "voxelfracture.ai/internal/persistence/log"
	"voxelfracture.ai/internal/persistence/snapshot"
	"voxelfracture.ai/internal/sim/bodies"
	"voxelfracture.ai/internal/sim/destruction"
	"voxelfracture.ai/internal/sim/tuning"
	"voxelfracture.ai/internal/sim/world"
)

func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to .snap.zst")
		eventsDir  = flag.String("events", "", "events dir containing events-*.jsonl.zst (optional)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "tuning.yaml the run used")
		fromTick   = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	voxels := 0
	for _, b := range snap.Bodies {
		voxels += len(b.Strength)
	}
	fmt.Printf("snapshot v%d scene=%s tick=%d bodies=%d voxels=%d next_body=%d\n",
		snap.Header.Version, snap.Header.SceneID, snap.Header.Tick, len(snap.Bodies), voxels, snap.NextBody)

	if *eventsDir == "" {
		return
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}

	w := world.New(world.WorldConfig{
		SceneID:     snap.Header.SceneID,
		TickRateHz:  tune.TickRateHz,
		Destruction: destruction.ConfigFromTuning(tune),
	}, bodies.NewRegistry(), nil)
	if err := w.ImportSnapshot(snap); err != nil {
		fmt.Fprintln(os.Stderr, "import snapshot:", err)
		os.Exit(1)
	}

	startTick := w.CurrentTick()
	verifyFrom := *fromTick
	if verifyFrom == 0 {
		verifyFrom = startTick
	}

	files, err := persistlog.TickFiles(*eventsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *eventsDir)
		os.Exit(1)
	}

	var checked uint64
	for _, path := range files {
		if err := replayFile(w, path, startTick, verifyFrom, *toTick, &checked); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
		if *toTick != 0 && w.CurrentTick() > *toTick {
			break
		}
	}
	fmt.Printf("replay ok: checked=%d ticks (from snapshot tick=%d) bodies=%d\n", checked, snap.Header.Tick, w.Bodies().Len())
}

func replayFile(w *world.World, path string, startTick, verifyFrom, toTick uint64, checked *uint64) error {
	return persistlog.ReadTicks(path, func(entry destruction.TickLogEntry) error {
		if entry.Tick < startTick {
			return nil
		}
		if toTick != 0 && entry.Tick > toTick {
			return persistlog.ErrStop
		}
		if entry.Tick != w.CurrentTick() {
			return fmt.Errorf("tick mismatch: want=%d got=%d (file=%s)", w.CurrentTick(), entry.Tick, filepath.Base(path))
		}

		tick, gotDigest, gotHash := w.StepOnce(entry.Collisions)

		// Sanity check: StepOnce should have stepped the same tick.
		if tick != entry.Tick {
			return fmt.Errorf("internal tick mismatch: stepped=%d entry=%d (file=%s)", tick, entry.Tick, filepath.Base(path))
		}

		if tick >= verifyFrom {
			*checked++
			if gotDigest != entry.Digest {
				return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, gotDigest, entry.Digest)
			}
			if entry.WorldHash != "" && gotHash != entry.WorldHash {
				return fmt.Errorf("world hash mismatch at tick %d: got=%s want=%s", tick, gotHash, entry.WorldHash)
			}
		}
		return nil
	})
}
