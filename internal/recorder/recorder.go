// Package recorder persists the audit trail to rotating JSONL trace
// files. Each server run writes one file; only the newest few runs are
// kept on disk. The in-memory audit logs remain the source of truth,
// the trace files exist for post-hoc review after the server exits.
package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	DefaultMaxTraces = 3
	DefaultTraceDir  = "data/traces"
)

// Record is a single line in a trace file: one audit event tagged with
// the session it belongs to.
type Record struct {
	Timestamp time.Time   `json:"ts"`
	Type      string      `json:"type"`
	Session   string      `json:"session,omitempty"`
	Data      interface{} `json:"data"`
}

// Recorder manages rotating audit trace files.
type Recorder struct {
	mu        sync.Mutex
	file      *os.File
	encoder   *json.Encoder
	basePath  string
	maxTraces int
}

// NewRecorder creates a recorder writing under basePath.
// It ensures the directory exists.
func NewRecorder(basePath string, maxTraces int) (*Recorder, error) {
	if basePath == "" {
		basePath = DefaultTraceDir
	}
	if maxTraces <= 0 {
		maxTraces = DefaultMaxTraces
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, err
	}
	return &Recorder{
		basePath:  basePath,
		maxTraces: maxTraces,
	}, nil
}

// Start opens a fresh trace file for this server run and rotates old
// files so only the newest traces are kept.
func (r *Recorder) Start(label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
	}

	if err := r.rotate(); err != nil {
		return fmt.Errorf("rotate traces: %w", err)
	}

	filename := fmt.Sprintf("audit_%s_%d.jsonl", label, time.Now().UnixMilli())
	path := filepath.Join(r.basePath, filename)
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	r.file = f
	r.encoder = json.NewEncoder(f)
	return nil
}

// Log appends one audit event to the current trace file. A recorder that
// was never started drops events silently; tracing is best-effort.
func (r *Recorder) Log(eventType, sessionName string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return
	}

	_ = r.encoder.Encode(Record{
		Timestamp: time.Now(),
		Type:      eventType,
		Session:   sessionName,
		Data:      data,
	})
}

// rotate keeps only the newest trace files, leaving room for one more.
func (r *Recorder) rotate() error {
	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		return err
	}

	var traces []struct {
		Name string
		Time time.Time
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		traces = append(traces, struct {
			Name string
			Time time.Time
		}{e.Name(), info.ModTime()})
	}

	// Sort newest first
	sort.Slice(traces, func(i, j int) bool {
		return traces[i].Time.After(traces[j].Time)
	})

	if len(traces) >= r.maxTraces {
		keep := r.maxTraces - 1
		if keep < 0 {
			keep = 0
		}
		for i := keep; i < len(traces); i++ {
			path := filepath.Join(r.basePath, traces[i].Name)
			_ = os.Remove(path)
		}
	}
	return nil
}

// Close finishes the current trace.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		r.encoder = nil
		return err
	}
	return nil
}
