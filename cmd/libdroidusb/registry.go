//go:build !windows && (amd64 || arm64)

package main

import (
	"errors"
	"os"
	"strconv"
	"sync"

	"github.com/obinnaokechukwu/droidusb"
	"github.com/obinnaokechukwu/droidusb/internal/handles"
	"github.com/obinnaokechukwu/droidusb/jni"
)

// Environment variables read at load time.
const (
	envConfig   = "DROIDUSB_CONFIG" // path of a YAML bridge configuration
	envLogLevel = "LIBUSB_DEBUG"    // numeric log level, as in libusb
)

// conns maps the handles given to C callers to open connections, so C
// never holds a Go pointer.
var conns handles.Table

// maxPendingLogs bounds the messages kept until a log sink is installed.
const maxPendingLogs = 64

type logRecord struct {
	level    droidusb.LogLevel
	function string
	message  string
}

// logRelay forwards bridge diagnostics to a sink installed by C code. The
// library is loaded, and JNI_OnLoad runs, before C code can install one, so
// messages logged until then are kept and replayed to the first sink.
type logRelay struct {
	mu        sync.Mutex
	sink      droidusb.LogCallback
	installed bool
	pending   []logRecord
	dropped   int
}

var relay logRelay

func (r *logRelay) log(level droidusb.LogLevel, function, message string) {
	r.mu.Lock()
	if !r.installed {
		if len(r.pending) < maxPendingLogs {
			r.pending = append(r.pending, logRecord{level, function, message})
		} else {
			r.dropped++
		}
		r.mu.Unlock()
		return
	}
	sink := r.sink
	r.mu.Unlock()
	if sink != nil {
		sink(level, function, message)
	}
}

// setSink installs sink, replaying held messages to it. A nil sink
// discards everything from then on.
func (r *logRelay) setSink(sink droidusb.LogCallback) {
	r.mu.Lock()
	pending, dropped := r.pending, r.dropped
	r.pending, r.dropped = nil, 0
	r.sink, r.installed = sink, true
	r.mu.Unlock()

	if sink == nil {
		return
	}
	for _, rec := range pending {
		sink(rec.level, rec.function, rec.message)
	}
	if dropped > 0 {
		sink(droidusb.LogWarning, "droidusb_set_log_callback",
			strconv.Itoa(dropped)+" earlier log messages were dropped")
	}
}

func load(vm jni.VM, log droidusb.LogCallback) error {
	cfg, err := configFromEnv()
	if err != nil {
		log(droidusb.LogWarning, "JNI_OnLoad", err.Error())
	}
	return droidusb.OnLoad(vm, droidusb.WithConfig(cfg), droidusb.WithLogger(log))
}

func configFromEnv() (droidusb.Config, error) {
	cfg := droidusb.DefaultConfig()
	if path := os.Getenv(envConfig); path != "" {
		var err error
		if cfg, err = droidusb.LoadConfig(path); err != nil {
			return droidusb.DefaultConfig(), err
		}
	}
	if s := os.Getenv(envLogLevel); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < int(droidusb.LogNone) || n > int(droidusb.LogDebug) {
			return cfg, errors.New(envLogLevel + ": want a level from 0 to 4, got " + strconv.Quote(s))
		}
		cfg.LogLevel = droidusb.LogLevel(n)
	}
	return cfg, nil
}

func unload() {
	droidusb.OnUnload()
}

// openDevice opens path through the default bridge. It returns
// (InvalidFD, 0) on failure.
func openDevice(path string) (fd int, id uintptr) {
	fd, conn, err := droidusb.Open(path)
	if err != nil {
		return droidusb.InvalidFD, 0
	}
	return fd, conns.Register(conn)
}

// closeDevice closes the connection behind id. A connection whose close
// could not reach the VM stays registered so it can be closed again.
func closeDevice(id uintptr) {
	v, ok := conns.Lookup(id)
	if !ok {
		return
	}
	err := v.(*droidusb.Connection).Close()
	if err == nil || errors.Is(err, droidusb.ErrClosed) {
		conns.Unregister(id)
	}
}
