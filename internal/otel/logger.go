package otel

// Goroutine safety:
// The drain goroutine is the sole reader of l.ch and the sole writer to l.w.
// Logger.mu protects only the l.recent pointer (read by drain, written by Attach).
// Recent has its own mutex; drain releases Logger.mu before pushing to it.

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// writerChanSize is the capacity of the async write channel.
	// At ~200 bytes/event, 4096 events buffers ~800KB.
	writerChanSize = 4096
)

// logEntry carries the serialized line and the Event it came from, so Recent
// keeps fields that are not serialized (Dur).
type logEntry struct {
	data []byte
	ev   Event
}

// Logger serializes events as JSONL via an async background writer.
// Goroutine-safe. Emit never blocks the caller; a full channel drops.
// A nil *Logger discards everything.
type Logger struct {
	mu        sync.Mutex
	recent    *Recent       // nil until Attach
	sessionID string        // uuid, set once at creation
	ch        chan logEntry // buffered channel for async writes
	w         io.Writer     // destination (event log file)
	dropped   atomic.Uint64 // events dropped due to full channel, encode failure, or write error
	closed    atomic.Bool   // true after Close(); prevents send-on-closed-channel panic
	done      chan struct{} // closed when drain goroutine exits
	closeOnce sync.Once
}

// NewLogger creates a Logger writing JSONL to w asynchronously.
// Starts a background drain goroutine. Call Close() to flush and stop.
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		sessionID: uuid.NewString(),
		ch:        make(chan logEntry, writerChanSize),
		w:         w,
		done:      make(chan struct{}),
	}
	go l.drain()
	return l
}

// drain is the background goroutine that reads from ch and writes to w and Recent.
func (l *Logger) drain() {
	defer close(l.done)
	for entry := range l.ch {
		if _, err := l.w.Write(entry.data); err != nil {
			l.dropped.Add(1)
		}

		l.mu.Lock()
		rec := l.recent
		l.mu.Unlock()

		if rec != nil {
			rec.Push(entry.ev)
		}
	}
}

// Emit writes an event to the JSONL log (and Recent if attached).
// Sets Time (if zero) and SessionID. Goroutine-safe. Non-blocking: if the
// channel is full or the logger is closed, the event is dropped and the
// drop counter is incremented.
//
// Safe to call concurrently with Close(). If Close() races between the
// closed-flag check and the channel send, the resulting panic is recovered
// and the event is counted as dropped.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.sessionID

	data, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	data = append(data, '\n')

	select {
	case l.ch <- logEntry{data: data, ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// Error emits an error-level event. Nil err is safe (logged as empty string).
func (l *Logger) Error(kind EventKind, comp string, err error) {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	l.Emit(Event{Level: LevelError, Kind: kind, Comp: comp, Err: errStr})
}

// EntityError emits an error-level event tied to one entity and source.
func (l *Logger) EntityError(kind EventKind, comp string, entityID int64, source string, err error) {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	l.Emit(Event{Level: LevelError, Kind: kind, Comp: comp, EntityID: entityID, Source: source, Err: errStr})
}

// Attach keeps a copy of every subsequent event in r.
func (l *Logger) Attach(r *Recent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recent = r
}

// SessionID returns the id stamped on every event.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// Collect records one collector outcome. Skips are info events with a reason.
func (l *Logger) Collect(comp string, entityID int64, source string, saved, skipped int, reason string, dur time.Duration) {
	kind := KindCollectComplete
	if reason != "" {
		kind = KindCollectSkip
	}
	l.Emit(Event{
		Level:    LevelInfo,
		Kind:     kind,
		Comp:     comp,
		EntityID: entityID,
		Source:   source,
		Count:    saved,
		Skipped:  skipped,
		Reason:   reason,
		Dur:      dur,
	})
}

// Dropped returns the number of events dropped since creation.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close flushes pending events, stops the drain goroutine, and reports
// any dropped events to stderr. Safe to call from goroutines that may
// still be calling Emit(); those calls are dropped instead of panicking.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		<-l.done

		if d := l.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "pythia: %d events dropped during session %s\n", d, l.sessionID)
		}
	})
}
