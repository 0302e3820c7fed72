package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	persistlog "voxelfracture.ai/internal/persistence/log"
	"voxelfracture.ai/internal/persistence/snapshot"
	"voxelfracture.ai/internal/sim/bodies"
	"voxelfracture.ai/internal/sim/destruction"
	"voxelfracture.ai/internal/sim/tuning"
	"voxelfracture.ai/internal/sim/world"
	"voxelfracture.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		scenePath  = flag.String("scene", "./configs/scene.yaml", "initial bodies (used only when starting fresh)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	reg := bodies.NewRegistry()
	sceneID := "scene"
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(*dataDir)
	}
	if snapshotToLoad == "" {
		scene, err := bodies.LoadScene(*scenePath)
		if err != nil {
			logger.Fatalf("load scene: %v", err)
		}
		ids := scene.Populate(reg, tune.VoxelSize)
		if scene.ID != "" {
			sceneID = scene.ID
		}
		logger.Printf("scene %s: %d bodies", sceneID, len(ids))
	}

	sceneDir := filepath.Join(*dataDir, "scenes", sceneID)
	w := world.New(world.WorldConfig{
		SceneID:            sceneID,
		TickRateHz:         tune.TickRateHz,
		SnapshotEveryTicks: tune.SnapshotEveryTicks,
		Destruction:        destruction.ConfigFromTuning(tune),
	}, reg, logger)

	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		sceneDir = filepath.Join(*dataDir, "scenes", w.SceneID())
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	}
	if err := os.MkdirAll(sceneDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	// Optional: read-model index backend (does not affect sim determinism).
	idx, err := openRuntimeIndex(sceneDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(sceneDir)
	defer tickLog.Close()
	if idx != nil {
		w.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
	} else {
		w.SetTickLogger(tickLog)
	}

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(sceneDir, "snapshots", snapshot.Name(snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, w.SceneID(), w.Metrics(), idx)
	})
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(struct {
			SceneID string             `json:"scene_id"`
			Tick    uint64             `json:"tick"`
			Metrics world.WorldMetrics `json:"metrics"`
		}{w.SceneID(), w.CurrentTick(), w.Metrics()})
	})
	mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel2()
		info, err := w.RequestSnapshot(ctx2)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			status := http.StatusServiceUnavailable
			if errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusGatewayTimeout
			}
			rw.WriteHeader(status)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": info.Tick, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "snapshot": info})
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func writeMetrics(rw http.ResponseWriter, sceneID string, m world.WorldMetrics, idx runtimeIndex) {
	fmt.Fprintf(rw, "# HELP voxelfracture_tick Current simulation tick.\n")
	fmt.Fprintf(rw, "# TYPE voxelfracture_tick gauge\n")
	fmt.Fprintf(rw, "voxelfracture_tick{scene=%q} %d\n", sceneID, m.Tick)

	fmt.Fprintf(rw, "# HELP voxelfracture_bodies Live bodies in the scene.\n")
	fmt.Fprintf(rw, "# TYPE voxelfracture_bodies gauge\n")
	fmt.Fprintf(rw, "voxelfracture_bodies{scene=%q} %d\n", sceneID, m.Bodies)

	fmt.Fprintf(rw, "# HELP voxelfracture_clients Connected websocket clients.\n")
	fmt.Fprintf(rw, "# TYPE voxelfracture_clients gauge\n")
	fmt.Fprintf(rw, "voxelfracture_clients{scene=%q} %d\n", sceneID, m.Clients)

	fmt.Fprintf(rw, "# HELP voxelfracture_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(rw, "# TYPE voxelfracture_queue_depth gauge\n")
	fmt.Fprintf(rw, "voxelfracture_queue_depth{scene=%q,queue=%q} %d\n", sceneID, "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(rw, "voxelfracture_queue_depth{scene=%q,queue=%q} %d\n", sceneID, "join", m.QueueDepths.Join)
	fmt.Fprintf(rw, "voxelfracture_queue_depth{scene=%q,queue=%q} %d\n", sceneID, "leave", m.QueueDepths.Leave)

	fmt.Fprintf(rw, "# HELP voxelfracture_dropped_broadcasts_total TICK messages dropped for slow clients.\n")
	fmt.Fprintf(rw, "# TYPE voxelfracture_dropped_broadcasts_total counter\n")
	fmt.Fprintf(rw, "voxelfracture_dropped_broadcasts_total{scene=%q} %d\n", sceneID, m.DroppedBroadcasts)

	fmt.Fprintf(rw, "# HELP voxelfracture_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE voxelfracture_step_ms gauge\n")
	fmt.Fprintf(rw, "voxelfracture_step_ms{scene=%q} %.3f\n", sceneID, m.StepMS)

	if idx == nil {
		return
	}
	st := idx.Stats()
	fmt.Fprintf(rw, "# HELP voxelfracture_index_dropped_total Index writes dropped under backpressure.\n")
	fmt.Fprintf(rw, "# TYPE voxelfracture_index_dropped_total counter\n")
	fmt.Fprintf(rw, "voxelfracture_index_dropped_total{scene=%q,kind=%q} %d\n", sceneID, "tick", st.DropTickTotal)
	fmt.Fprintf(rw, "voxelfracture_index_dropped_total{scene=%q,kind=%q} %d\n", sceneID, "snapshot", st.DropSnapshotTotal)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// latestSnapshot finds the highest-tick snapshot under any scene in dataDir.
func latestSnapshot(dataDir string) string {
	scenes, err := os.ReadDir(filepath.Join(dataDir, "scenes"))
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, sc := range scenes {
		if !sc.IsDir() {
			continue
		}
		dir := filepath.Join(dataDir, "scenes", sc.Name(), "snapshots")
		ents, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range ents {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if !strings.HasSuffix(name, ".snap.zst") {
				continue
			}
			tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
			if err != nil {
				continue
			}
			if best == "" || tick > bestTick {
				bestTick = tick
				best = filepath.Join(dir, name)
			}
		}
	}
	return best
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry destruction.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}
