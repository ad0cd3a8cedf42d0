// Package maintenance periodically checks one kernel decoder's attached
// program against the name recorded with SetExpected, re-attaching the
// expected decoder's bytecode from internal/cache and reporting the
// drift to a DriftHandler — the daemon-level
// analogue of the teacher's own background resource/GPIO monitors,
// generalized from polling memory/disk stats to polling a kernel
// decoder's QueryBPF.
package maintenance

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/irrecv/irrecv/internal/cache"
	"github.com/irrecv/irrecv/kerneldecoder"
)

// DriftHandler is called whenever the decoder's reported state
// disagrees with the expected name, with the state found before any
// re-attach as actual.
type DriftHandler func(expected, actual *kerneldecoder.Info)

// Monitor schedules periodic drift checks for one kernel decoder.
type Monitor struct {
	decoder kerneldecoder.Decoder
	cache   *cache.Cache
	onDrift DriftHandler

	cron    *cron.Cron
	entryID cron.EntryID

	mu       sync.RWMutex
	expected string // the decoder name SetExpected last recorded
}

// New creates a Monitor. SetExpected records which cached decoder
// should currently be attached; the monitor polls QueryBPF against
// that expectation.
func New(decoder kerneldecoder.Decoder, c *cache.Cache, onDrift DriftHandler) *Monitor {
	return &Monitor{
		decoder: decoder,
		cache:   c,
		onDrift: onDrift,
		cron:    cron.New(),
	}
}

// SetExpected records the name of the decoder that should be
// attached. No package in this module calls it outside the tests; while
// no name is recorded, any attached decoder is reported to the
// DriftHandler with a nil expected.
func (m *Monitor) SetExpected(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expected = name
}

// Start schedules the drift check on the given cron spec (standard
// five-field crontab syntax, e.g. "*/5 * * * *" for every five
// minutes) and begins running it.
func (m *Monitor) Start(spec string) error {
	id, err := m.cron.AddFunc(spec, m.checkDrift)
	if err != nil {
		return fmt.Errorf("maintenance: schedule drift check: %w", err)
	}
	m.entryID = id
	m.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight check to finish.
func (m *Monitor) Stop() {
	m.cron.Stop()
}

// CheckNow runs one drift check immediately, outside the schedule —
// useful for tests and for an operator-triggered manual check.
func (m *Monitor) CheckNow() {
	m.checkDrift()
}

func (m *Monitor) checkDrift() {
	m.mu.RLock()
	expectedName := m.expected
	m.mu.RUnlock()

	actual, err := m.decoder.QueryBPF()
	if err != nil {
		return
	}

	if expectedName == "" {
		if actual != nil && m.onDrift != nil {
			m.onDrift(nil, actual)
		}
		return
	}

	if actual == nil || actual.Name != expectedName {
		var expected *kerneldecoder.Info
		if entries, err := m.cache.List(); err == nil {
			for _, e := range entries {
				if e.Name == expectedName {
					expected = &kerneldecoder.Info{Name: e.Name}
					_ = m.decoder.AttachBPF(e.Bytecode)
					break
				}
			}
		}
		if m.onDrift != nil {
			m.onDrift(expected, actual)
		}
	}
}
