// Command irrecvd is the infrared receiver daemon: it owns one
// hardware receiver backend, watches a directory of legacy keymap/
// lircd.conf files, compiles each into bytecode, attaches the result
// to a kernel decoder (or matches it in software when none is
// attached), and exposes an introspection surface over the result.
// Wiring every package together here is the one place in this module
// allowed to know about all of them at once; the core packages
// (irp/nfa/dfa/match/bytecode) never import this one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/irrecv/irrecv/internal/archive"
	"github.com/irrecv/irrecv/internal/cache"
	"github.com/irrecv/irrecv/internal/config"
	"github.com/irrecv/irrecv/internal/introspect"
	"github.com/irrecv/irrecv/internal/irdbsync"
	"github.com/irrecv/irrecv/internal/keymapwatch"
	"github.com/irrecv/irrecv/internal/logger"
	"github.com/irrecv/irrecv/internal/maintenance"
	"github.com/irrecv/irrecv/internal/telemetry"
	"github.com/irrecv/irrecv/kerneldecoder"
	"github.com/irrecv/irrecv/match"
	"github.com/irrecv/irrecv/rawir"
	"github.com/irrecv/irrecv/receiver"
	"github.com/irrecv/irrecv/receiver/gpio"
	"github.com/irrecv/irrecv/receiver/lirc"
	"github.com/irrecv/irrecv/receiver/mock"
	"github.com/irrecv/irrecv/receiver/serial"
	scmock "github.com/irrecv/irrecv/scancode/mock"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file (searches ./configs, ., ~/.irrecvd if empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("irrecvd: load config: %v", err)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		LogDir:     cfg.Logger.LogDir,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
		Compress:   cfg.Logger.Compress,
	}); err != nil {
		log.Fatalf("irrecvd: init logger: %v", err)
	}
	defer logger.Sync()

	switch flag.Arg(0) {
	case "decode":
		if len(flag.Args()) < 2 {
			log.Fatal("usage: irrecvd decode <rawir-file>")
		}
		if err := runDecode(flag.Arg(1), cfg); err != nil {
			log.Fatalf("irrecvd: decode: %v", err)
		}
	case "mirror-sync":
		n, err := irdbsync.Sync(irdbsync.Config{
			Host:       cfg.Mirror.Host,
			Port:       cfg.Mirror.Port,
			Username:   cfg.Mirror.Username,
			Password:   cfg.Mirror.Password,
			RemoteRoot: cfg.Mirror.RemoteRoot,
		}, cfg.Keymap.Dir)
		if err != nil {
			log.Fatalf("irrecvd: mirror sync: %v", err)
		}
		logger.Info("mirror sync complete", zap.Int("downloaded", n))
	default:
		if err := runServe(cfg); err != nil {
			log.Fatalf("irrecvd: %v", err)
		}
	}
}

// runDecode is the offline CLI path: it feeds a recorded rawir capture
// through a Matcher built from whatever protocol the keymap directory
// currently compiles to, printing every Done event, with no kernel
// decoder, receiver backend, or introspection surface involved.
func runDecode(path string, cfg *config.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	tokens, err := rawir.Parse(string(data))
	if err != nil {
		return fmt.Errorf("parse rawir: %w", err)
	}

	var compiled []keymapwatch.Compiled
	var mu sync.Mutex
	w, err := keymapwatch.New(cfg.Keymap.Dir, func(c keymapwatch.Compiled) {
		mu.Lock()
		defer mu.Unlock()
		compiled = append(compiled, c)
	})
	if err != nil {
		return fmt.Errorf("keymapwatch: %w", err)
	}
	defer w.Close()

	// One synchronous pass is all an offline decode needs; Start's
	// fsnotify loop is for the long-running daemon.
	if err := scanOnce(w); err != nil {
		return err
	}

	if len(compiled) == 0 {
		return fmt.Errorf("no compiled protocols found under %s", cfg.Keymap.Dir)
	}

	for _, c := range compiled {
		m := match.New(c.DFA, 0)
		for _, tok := range tokens {
			for _, r := range m.Input(tok) {
				fmt.Printf("%s: %s %v\n", c.Name, r.Event, r.Bindings)
			}
		}
	}
	return nil
}

func scanOnce(w *keymapwatch.Watcher) error {
	done := make(chan error, 1)
	go func() { done <- w.Start() }()
	w.Close()
	return <-done
}

// runServe wires every long-running daemon component together and
// blocks until SIGINT/SIGTERM.
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer c.Close()

	reporter, err := telemetry.New(telemetry.Config{
		InfluxURL:    cfg.Telemetry.InfluxURL,
		InfluxToken:  cfg.Telemetry.InfluxToken,
		InfluxOrg:    cfg.Telemetry.InfluxOrg,
		InfluxBucket: cfg.Telemetry.InfluxBucket,
		RedisAddr:    cfg.Telemetry.RedisAddr,
		RedisChannel: cfg.Telemetry.RedisChannel,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer reporter.Close()

	var archiver *archive.Archive
	if cfg.Archive.Bucket != "" {
		archiver, err = archive.New(archive.Config{
			Region:    cfg.Archive.Region,
			Bucket:    cfg.Archive.Bucket,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Prefix:    cfg.Archive.Prefix,
		})
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}

	decoder := newDecoder(cfg.Receiver.Device)

	recv, err := newReceiverBackend(cfg.Receiver)
	if err != nil {
		return fmt.Errorf("receiver: %w", err)
	}
	defer recv.Close()

	scancodes := scmock.New()

	deviceName := cfg.Receiver.Device
	if deviceName == "" {
		deviceName = cfg.Receiver.Backend
	}

	server := introspect.New(introspect.Config{
		JWT: introspect.JWTConfig{Passphrase: cfg.Server.AuthKey},
	}, map[string]receiver.Receiver{deviceName: recv}, scancodes, decoder, c)

	logger.SetBroadcaster(server.Hub().BroadcastLog)

	mon := maintenance.New(decoder, c, func(expected, actual *kerneldecoder.Info) {
		logger.Warn("kernel decoder drift detected", zap.Any("expected", expected), zap.Any("actual", actual))
	})
	if err := mon.Start("*/5 * * * *"); err != nil {
		return fmt.Errorf("maintenance: %w", err)
	}
	defer mon.Stop()

	d := &daemon{
		cfg:       cfg,
		cache:     c,
		reporter:  reporter,
		decoder:   decoder,
		scancodes: scancodes,
		server:    server,
		receiver:  recv,
		device:    deviceName,
		archiver:  archiver,
		matchers:  map[string]*liveMatcher{},
	}

	watcher, err := keymapwatch.New(cfg.Keymap.Dir, d.onCompiled)
	if err != nil {
		return fmt.Errorf("keymapwatch: %w", err)
	}
	defer watcher.Close()

	go func() {
		if err := watcher.Start(); err != nil {
			logger.Error("keymap watcher stopped", zap.Error(err))
		}
	}()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info("introspection surface listening", zap.String("addr", addr))
		if err := server.Listen(addr); err != nil {
			logger.Error("introspection server stopped", zap.Error(err))
		}
	}()
	defer server.Shutdown()

	logger.Info("irrecvd started", zap.String("receiver", deviceName), zap.String("backend", cfg.Receiver.Backend))
	return d.readLoop(ctx)
}

// liveMatcher pairs a compiled protocol's streaming Matcher with the
// session identity minted for its most recent compile, so every
// decode event it produces can be correlated back to that compile.
type liveMatcher struct {
	sessionID string
	name      string
	matcher   *match.Matcher
}

type daemon struct {
	cfg       *config.Config
	cache     *cache.Cache
	reporter  *telemetry.Reporter
	decoder   kerneldecoder.Decoder
	scancodes interface {
		UpdateScancode(int, uint64) error
	}
	server   *introspect.Server
	receiver receiver.Receiver
	device   string
	archiver *archive.Archive

	mu       sync.RWMutex
	matchers map[string]*liveMatcher
}

// onCompiled is keymapwatch's PublishFunc: it caches the compiled
// bytecode, attaches it to the kernel decoder, and keeps a software
// Matcher around so decode events still flow over the introspection
// hub and telemetry even when the kernel side is a record-and-replay
// mock rather than real hardware.
func (d *daemon) onCompiled(c keymapwatch.Compiled) {
	key := cache.Key(c.SourceFile+"#"+c.Name, c.Options)
	encoded := c.Program.Encode()
	if err := d.cache.Put(key, c.Name, encoded); err != nil {
		logger.Error("cache put failed", zap.String("name", c.Name), zap.Error(err))
		return
	}
	if err := d.decoder.AttachBPF(encoded); err != nil {
		logger.Error("attach bpf failed", zap.String("name", c.Name), zap.Error(err))
	}

	d.mu.Lock()
	d.matchers[c.Name] = &liveMatcher{
		sessionID: c.SessionID,
		name:      c.Name,
		matcher:   match.New(c.DFA, d.receiver.Capabilities().ResolutionUs),
	}
	d.mu.Unlock()

	d.server.SetCurrentDFA(c.DFA, c.Name)
	logger.WithReceiverProtocol(d.device, c.Name).Info("protocol compiled and attached", zap.String("session", c.SessionID))

	archiveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	archiveIfConfigured(archiveCtx, d.archiver, d.device, c.Name, encoded)
}

// readLoop blocks reading batches of tokens from the receiver and
// feeds each one to every currently compiled protocol's Matcher,
// since more than one legacy keymap file can be watched at once and
// the daemon doesn't assume only one is ever relevant to this
// receiver's traffic.
func (d *daemon) readLoop(ctx context.Context) error {
	for {
		tokens, err := d.receiver.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("receiver read failed", zap.Error(err))
			continue
		}

		d.mu.RLock()
		matchers := make([]*liveMatcher, 0, len(d.matchers))
		for _, lm := range d.matchers {
			matchers = append(matchers, lm)
		}
		d.mu.RUnlock()

		for _, tok := range tokens {
			for _, lm := range matchers {
				for _, r := range lm.matcher.Input(tok) {
					d.handleResult(ctx, lm, r)
				}
			}
		}
	}
}

func (d *daemon) handleResult(ctx context.Context, lm *liveMatcher, r match.Result) {
	logger.WithReceiverProtocol(d.device, lm.name).Info("decode event", zap.String("event", r.Event))

	reportCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := d.reporter.RecordDecode(reportCtx, telemetry.DecodeEvent{
		SessionID: lm.sessionID,
		Receiver:  d.device,
		Protocol:  lm.name,
		EventName: r.Event,
		Bindings:  r.Bindings,
		Timestamp: time.Now(),
	}); err != nil {
		logger.Warn("telemetry record failed", zap.Error(err))
	}

	if sc, ok := r.Bindings["scancode"]; ok {
		if err := d.scancodes.UpdateScancode(int(sc), uint64(sc)); err != nil {
			logger.Warn("scancode update failed", zap.Error(err))
		}
	}
}

func newReceiverBackend(cfg config.ReceiverConfig) (receiver.Receiver, error) {
	switch cfg.Backend {
	case "lirc":
		return lirc.Open(lirc.Config{Device: cfg.Device, TimeoutUs: uint32(cfg.TimeoutUs)})
	case "gpio-periph":
		return gpio.NewPeriph(gpio.Config{PinName: cfg.PinName})
	case "gpio-rpio":
		return gpio.NewRPIPoll(gpio.Config{Pin: cfg.Pin})
	case "serial":
		return serial.Open(serial.Config{Port: cfg.Device, BaudRate: cfg.BaudRate})
	case "mock", "":
		return mock.New(receiver.Capabilities{CanReceiveRaw: true}), nil
	default:
		return nil, fmt.Errorf("unknown receiver backend %q", cfg.Backend)
	}
}

// archiveIfConfigured uploads a just-compiled decoder to fleet
// archival storage when internal/archive has a bucket to talk to;
// called from onCompiled in a deployment that sets the Archive bucket,
// left unexercised (and harmless) otherwise.
func archiveIfConfigured(ctx context.Context, a *archive.Archive, device, name string, bytecode []byte) {
	if a == nil {
		return
	}
	if err := a.UploadDecoder(ctx, device, name, bytecode, "", ""); err != nil {
		logger.Warn("archive upload failed", zap.String("name", name), zap.Error(err))
	}
}
