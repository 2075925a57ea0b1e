// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package recorder appends session events to a JSONL journal on disk, one
// file per session, for crash recovery and offline replay.
package recorder

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/llxcore/pkg/core"
)

// Entry is one journaled line: a sequence-numbered, timestamped Event.
type Entry struct {
	Seq       uint64                 `json:"seq"`
	Time      time.Time              `json:"time"`
	Kind      core.EventKind         `json:"kind"`
	TextDelta string                 `json:"text_delta,omitempty"`
	Fragment  *core.ToolCallFragment `json:"fragment,omitempty"`
	Usage     *core.Usage            `json:"usage,omitempty"`
	Finish    core.FinishReason      `json:"finish,omitempty"`
	Err       string                 `json:"err,omitempty"`
}

// Recorder appends Events for one session to a JSONL file. Events observed
// before the first EventContent are buffered and flushed once the file is
// named and opened; this avoids creating empty journal files for turns that
// are entirely tool calls with no assistant text, and lets the file name
// embed a start-of-content timestamp rather than a connection-open timestamp.
//
// Enqueue is O(1) and never blocks the caller on disk I/O: it appends to an
// in-memory queue and, if no drain goroutine is currently running, starts
// one. The drain goroutine re-checks the queue after each write and keeps
// draining until it observes the queue empty, so a burst of concurrent
// Enqueue calls is serviced by exactly one drain loop at a time.
type Recorder struct {
	log *zap.Logger
	dir string

	mu        sync.Mutex
	queue     []Entry
	draining  bool
	seq       uint64
	file      *os.File
	filePath  string
	buffered  []Entry // entries seen before the first content event
	active    bool    // false once a write failure (e.g. ENOSPC) makes this recorder permanently inert
	sessionID string
}

// New builds a Recorder that will write into dir once the first content
// event arrives. sessionID is attached to the recorder's log lines; the
// file name's 8-character suffix is taken from a fresh random UUID, not
// from sessionID.
func New(log *zap.Logger, dir string, sessionID string) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		log:       log,
		dir:       dir,
		active:    true,
		sessionID: sessionID,
	}
}

// InitializeForResume points the Recorder at an already-existing journal
// file, continuing sequence numbers from lastSeq and skipping pre-content
// buffering (the file is already named and open).
func (r *Recorder) InitializeForResume(filePath string, lastSeq uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		r.active = false
		return fmt.Errorf("recorder: resume open %s: %w", filePath, err)
	}
	r.file = f
	r.filePath = filePath
	r.seq = lastSeq
	r.active = true
	return nil
}

// Enqueue records one Event. It never blocks on I/O and never returns an
// error to the caller; write failures are logged and make the recorder
// silently inactive for the rest of the session.
func (r *Recorder) Enqueue(ev core.Event) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	r.seq++
	entry := toEntry(r.seq, ev)

	if r.file == nil {
		r.buffered = append(r.buffered, entry)
		if ev.Kind != core.EventContent {
			r.mu.Unlock()
			return
		}
		if err := r.openFileLocked(); err != nil {
			r.active = false
			r.log.Warn("recorder: disabling after open failure", zap.Error(&core.RecorderInactiveError{Cause: err}))
			r.mu.Unlock()
			return
		}
		r.queue = append(r.queue, r.buffered...)
		r.buffered = nil
	} else {
		r.queue = append(r.queue, entry)
	}

	startDrain := !r.draining
	r.draining = true
	r.mu.Unlock()

	if startDrain {
		go r.drain()
	}
}

// openFileLocked creates the journal file named per
// session-<UTC minute>-<prefix8>.jsonl. Caller must hold r.mu.
func (r *Recorder) openFileLocked() error {
	minute := time.Now().UTC().Format("200601021504")
	prefix := uuid.NewString()
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	name := fmt.Sprintf("session-%s-%s.jsonl", minute, prefix)
	path := filepath.Join(r.dir, name)

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	r.file = f
	r.filePath = path
	return nil
}

// drain serializes writes to disk. Only one drain goroutine runs at a time;
// it keeps looping until the queue is empty at the moment it checks, so a
// concurrent Enqueue during a write is guaranteed to be picked up without a
// second goroutine racing it.
func (r *Recorder) drain() {
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.draining = false
			r.mu.Unlock()
			return
		}
		batch := r.queue
		r.queue = nil
		f := r.file
		r.mu.Unlock()

		for _, entry := range batch {
			if err := r.writeEntry(f, entry); err != nil {
				r.mu.Lock()
				r.active = false
				r.draining = false
				r.mu.Unlock()
				r.log.Warn("recorder: write failed, journal now inactive",
					zap.String("session_id", r.sessionID), zap.Error(&core.RecorderInactiveError{Cause: err}))
				return
			}
		}
	}
}

func (r *Recorder) writeEntry(f *os.File, entry Entry) error {
	if f == nil {
		return errors.New("recorder: no open journal file")
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("recorder: marshal entry: %w", err)
	}
	b = append(b, '\n')
	if _, err := f.Write(b); err != nil {
		return err
	}
	return nil
}

// FilePath returns the journal's file path, or "" before the first content
// event has opened one.
func (r *Recorder) FilePath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filePath
}

// Active reports whether the recorder is still accepting writes.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// LastSeq returns the last sequence number assigned, for a future
// InitializeForResume call.
func (r *Recorder) LastSeq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Close flushes any pending writes and closes the underlying file, if one
// was opened.
func (r *Recorder) Close() error {
	for {
		r.mu.Lock()
		draining := r.draining
		r.mu.Unlock()
		if !draining {
			break
		}
		time.Sleep(time.Millisecond)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

func toEntry(seq uint64, ev core.Event) Entry {
	e := Entry{Seq: seq, Time: time.Now(), Kind: ev.Kind}
	switch ev.Kind {
	case core.EventContent:
		e.TextDelta = ev.TextDelta
	case core.EventToolCallFragment:
		f := ev.Fragment
		e.Fragment = &f
	case core.EventUsage:
		u := ev.Usage
		e.Usage = &u
	case core.EventFinish:
		e.Finish = ev.FinishReason
	case core.EventError:
		if ev.Err != nil {
			e.Err = ev.Err.Error()
		}
	}
	return e
}
