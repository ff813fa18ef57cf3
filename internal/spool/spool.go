package spool

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fogfish/opts"
	json "github.com/goccy/go-json"

	"github.com/rayhaanfarooq/squire/events"
	"github.com/rayhaanfarooq/squire/pkg/slogx"
)

const (
	// DefaultPollInterval is the delay between directory scans in Watch.
	// Latency/overhead knob, not a correctness requirement.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultRetention is how long entries survive before a sweep removes
	// them. It must comfortably exceed the poll interval so every live
	// watcher observes an entry before it expires.
	DefaultRetention = 5 * time.Minute

	entrySuffix = ".json"
	tempSuffix  = ".tmp"
)

// maxScanErrors is the number of consecutive failed scans before a watcher
// escalates to error-level logging. Single failures are expected
// (transient I/O, directory not created yet); sustained failures are not.
const maxScanErrors = 5

// Spool is a per-topic file queue rooted at one directory.
type Spool struct {
	root         string
	pollInterval time.Duration
	retention    time.Duration
}

var (
	// PollInterval overrides DefaultPollInterval for watchers of this spool.
	PollInterval = opts.ForName[Spool, time.Duration]("pollInterval")
	// Retention overrides DefaultRetention for sweeps of this spool.
	Retention = opts.ForName[Spool, time.Duration]("retention")
)

// New creates a Spool rooted at dir. Directories are created lazily on
// first append.
func New(dir string, options ...opts.Option[Spool]) *Spool {
	s := &Spool{
		root:         dir,
		pollInterval: DefaultPollInterval,
		retention:    DefaultRetention,
	}
	if err := opts.Apply(s, options); err != nil {
		panic(err)
	}
	return s
}

// Entry is one spooled envelope as found on disk. When the entry could not
// be decoded, Err carries the reason and Envelope is zero; callers log and
// move on.
type Entry struct {
	Name     string
	Envelope events.Envelope
	Err      error
}

// Append persists the envelope under its topic's directory. The entry is
// written to a temporary name and renamed into place, so readers in any
// process either see the whole entry or none of it.
func (s *Spool) Append(env events.Envelope) error {
	if env.ID == "" {
		return fmt.Errorf("spool: envelope id is required")
	}
	if env.Topic == "" {
		return fmt.Errorf("spool: envelope topic is required")
	}

	dir := s.topicDir(env.Topic)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("spool: create topic directory: %w", err)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("spool: marshal envelope: %w", err)
	}

	final := filepath.Join(dir, env.ID+entrySuffix)
	tmp := final + tempSuffix
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("spool: write entry: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("spool: publish entry: %w", err)
	}
	return nil
}

// Scan returns every retained entry for the topic in name order. A missing
// topic directory is an empty queue, not an error.
func (s *Spool) Scan(topic string) ([]Entry, error) {
	names, err := s.list(topic)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		env, err := s.read(topic, name)
		entries = append(entries, Entry{Name: name, Envelope: env, Err: err})
	}
	return entries, nil
}

// Sweep removes entries for the topic older than the retention window,
// along with any abandoned temp files, and returns how many entries it
// removed. Entries another process already removed do not count as errors.
func (s *Spool) Sweep(topic string) (int, error) {
	dir := s.topicDir(topic)
	listing, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("spool: read topic directory: %w", err)
	}

	cutoff := time.Now().Add(-s.retention)
	removed := 0
	for _, de := range listing {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if !strings.HasSuffix(name, entrySuffix) && !strings.HasSuffix(name, tempSuffix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err == nil || os.IsNotExist(err) {
			if strings.HasSuffix(name, entrySuffix) {
				removed++
			}
		}
	}
	return removed, nil
}

// Watch starts the consumption loop for one topic in this process. Every
// retained entry, and every entry appended afterwards, is passed to
// deliver exactly once per watcher; deliver must not block (dispatch to
// handlers asynchronously). Malformed entries are logged, recorded as
// processed, and skipped. The loop also runs the retention sweep.
//
// The loop stops when ctx is cancelled or the returned cancel function is
// called.
func (s *Spool) Watch(ctx context.Context, topic string, deliver func(events.Envelope)) (cancel func()) {
	ctx, stop := context.WithCancel(ctx)

	w := &watcher{
		spool:     s,
		topic:     topic,
		deliver:   deliver,
		processed: make(map[string]struct{}),
	}

	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			w.scanOnce(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return stop
}

type watcher struct {
	spool     *Spool
	topic     string
	deliver   func(events.Envelope)
	processed map[string]struct{}
	scanFails int
}

func (w *watcher) scanOnce(ctx context.Context) {
	names, err := w.spool.list(w.topic)
	if err != nil {
		w.scanFails++
		if w.scanFails >= maxScanErrors {
			slog.ErrorContext(ctx, "spool scan keeps failing",
				slog.String("topic", w.topic),
				slog.Int("consecutive", w.scanFails),
				slogx.Error(err),
			)
			w.scanFails = 0
		}
		return
	}
	w.scanFails = 0

	current := make(map[string]struct{}, len(names))
	for _, name := range names {
		current[name] = struct{}{}
		if _, done := w.processed[name]; done {
			continue
		}

		env, err := w.spool.read(w.topic, name)
		if err != nil {
			slog.WarnContext(ctx, "skipping malformed spool entry",
				slog.String("topic", w.topic),
				slog.String("entry", name),
				slogx.Error(err),
			)
			w.processed[name] = struct{}{}
			continue
		}

		w.deliver(env)
		w.processed[name] = struct{}{}
	}

	// Forget names that no longer exist so the processed set does not
	// grow past the retained entries.
	for name := range w.processed {
		if _, ok := current[name]; !ok {
			delete(w.processed, name)
		}
	}

	if _, err := w.spool.Sweep(w.topic); err != nil {
		slog.WarnContext(ctx, "spool sweep failed",
			slog.String("topic", w.topic),
			slogx.Error(err),
		)
	}
}

func (s *Spool) list(topic string) ([]string, error) {
	listing, err := os.ReadDir(s.topicDir(topic))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("spool: read topic directory: %w", err)
	}

	names := make([]string, 0, len(listing))
	for _, de := range listing {
		if de.IsDir() || !strings.HasSuffix(de.Name(), entrySuffix) {
			continue
		}
		names = append(names, de.Name())
	}
	return names, nil
}

func (s *Spool) read(topic, name string) (events.Envelope, error) {
	data, err := os.ReadFile(filepath.Join(s.topicDir(topic), name))
	if err != nil {
		return events.Envelope{}, fmt.Errorf("spool: read entry: %w", err)
	}
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return events.Envelope{}, fmt.Errorf("spool: decode entry: %w", err)
	}
	return env, nil
}

// topicDir maps a topic to its directory, substituting path separators so
// hierarchical topic names stay single directory levels.
func (s *Spool) topicDir(topic string) string {
	return filepath.Join(s.root, strings.ReplaceAll(topic, "/", "_"))
}
