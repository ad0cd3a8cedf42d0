// Package keymapwatch watches a directory of legacy keymap files
// (TOML keymaps and lircd.conf remotes) and republishes freshly
// compiled protocols whenever a file is added or changed, using
// fsnotify the way the teacher's own config layer pulls it in for
// future config reload.
package keymapwatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/irrecv/irrecv/bytecode"
	"github.com/irrecv/irrecv/dfa"
	"github.com/irrecv/irrecv/irp"
	"github.com/irrecv/irrecv/legacy/keymap"
	"github.com/irrecv/irrecv/legacy/lircdconf"
	"github.com/irrecv/irrecv/nfa"
)

// Compiled is one legacy protocol lowered all the way to bytecode,
// ready for kerneldecoder.Decoder.AttachBPF or internal/cache.Put.
// SessionID is a fresh uuid minted for this compile, distinct from the
// content-addressed cache key: two compiles of byte-identical input
// still get different SessionIDs, so a telemetry subscriber can tell
// "the daemon recompiled and reattached this protocol" apart from
// "the cache served the same bytes it always does."
type Compiled struct {
	SessionID  string
	SourceFile string
	Name       string
	Protocol   *irp.Protocol
	Options    irp.Options
	DFA        *dfa.DFA
	Program    *bytecode.Program
}

// PublishFunc receives every protocol compiled from a changed file. A
// file that defines several remotes/keymaps publishes one Compiled
// per protocol.
type PublishFunc func(Compiled)

// Watcher watches a directory for legacy keymap/lircd.conf changes.
type Watcher struct {
	dir     string
	publish PublishFunc

	fw *fsnotify.Watcher

	mu   sync.Mutex
	done chan struct{}
}

// New creates a Watcher over dir. Call Start to begin watching.
func New(dir string, publish PublishFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("keymapwatch: new watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("keymapwatch: watch %s: %w", dir, err)
	}
	return &Watcher{dir: dir, publish: publish, fw: fw, done: make(chan struct{})}, nil
}

// Start scans the directory once (so files present at startup are
// picked up immediately) and then runs the fsnotify event loop until
// Close is called. It blocks; call it from a goroutine.
func (w *Watcher) Start() error {
	if err := w.scanExisting(); err != nil {
		return err
	}
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handleFile(event.Name)
		case <-w.fw.Errors:
			// keep watching; a single ioctl hiccup shouldn't kill the loop
		case <-w.done:
			return nil
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}

func (w *Watcher) scanExisting() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("keymapwatch: read %s: %w", w.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		w.handleFile(filepath.Join(w.dir, e.Name()))
	}
	return nil
}

func (w *Watcher) handleFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var protos []protoAndOpts
	switch {
	case strings.HasSuffix(path, ".toml"):
		protos = fromKeymap(data)
	case strings.HasSuffix(path, ".lircd.conf") || strings.HasSuffix(path, ".conf"):
		protos = fromLircdconf(data)
	default:
		return
	}

	for _, po := range protos {
		n, err := nfa.Build(po.proto, po.opts)
		if err != nil {
			continue
		}
		d, err := dfa.Compile(n, po.opts)
		if err != nil {
			continue
		}
		prog, err := bytecode.Emit(d)
		if err != nil {
			continue
		}
		w.publish(Compiled{
			SessionID:  uuid.NewString(),
			SourceFile: path,
			Name:       po.opts.Name,
			Protocol:   po.proto,
			Options:    po.opts,
			DFA:        d,
			Program:    prog,
		})
	}
}

type protoAndOpts struct {
	proto *irp.Protocol
	opts  irp.Options
}

func fromKeymap(data []byte) []protoAndOpts {
	kms, err := keymap.Parse(data)
	if err != nil {
		return nil
	}
	var out []protoAndOpts
	for _, km := range kms {
		proto, opts, err := keymap.Compile(km)
		if err != nil {
			continue
		}
		out = append(out, protoAndOpts{proto, opts})
	}
	return out
}

func fromLircdconf(data []byte) []protoAndOpts {
	remotes, err := lircdconf.Parse(data)
	if err != nil {
		return nil
	}
	var out []protoAndOpts
	for _, r := range remotes {
		proto, opts, err := lircdconf.Compile(r)
		if err != nil {
			continue
		}
		out = append(out, protoAndOpts{proto, opts})
	}
	return out
}
