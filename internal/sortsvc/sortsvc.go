// Package sortsvc implements a Unix-socket sort daemon: an accept loop with
// a periodic deadline so it can notice shutdown, a worker-count semaphore,
// newline-delimited JSON requests/responses, and signal-driven graceful
// shutdown. Requests are serialized per target file path (two sorts of the
// same file must not run at once); distinct paths sort concurrently.
package sortsvc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mmsort/mmsort/internal/sortcore"
)

// Config holds daemon configuration.
type Config struct {
	// SocketPath is the Unix domain socket to listen on.
	SocketPath string

	// MaxConcurrency bounds the number of sort requests served at once.
	// Defaults to 8.
	MaxConcurrency int

	// IdleTimeout closes a connection that sends nothing for this long.
	// Defaults to 30s.
	IdleTimeout time.Duration
}

// Daemon serves sort requests over a Unix domain socket.
type Daemon struct {
	cfg      Config
	listener net.Listener
	sem      chan struct{}
	shutdown chan struct{}
	wg       sync.WaitGroup

	mu        sync.Mutex
	pathLocks map[string]*sync.Mutex
}

// New creates a Daemon with defaults applied.
func New(cfg Config) *Daemon {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Second
	}
	return &Daemon{
		cfg:       cfg,
		sem:       make(chan struct{}, cfg.MaxConcurrency),
		shutdown:  make(chan struct{}),
		pathLocks: make(map[string]*sync.Mutex),
	}
}

// Request is a single newline-delimited JSON sort request.
type Request struct {
	File    string `json:"file"`
	LimitMB int    `json:"limitMB,omitempty"`
}

// Response is the JSON reply to a Request.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Start removes any stale socket file, binds the listener, installs a
// SIGTERM/SIGINT handler, and serves until Shutdown is called.
func (d *Daemon) Start() error {
	if _, err := os.Stat(d.cfg.SocketPath); err == nil {
		if err := os.Remove(d.cfg.SocketPath); err != nil {
			return fmt.Errorf("sortsvc: remove stale socket: %w", err)
		}
	}

	listener, err := net.Listen("unix", d.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("sortsvc: listen on %s: %w", d.cfg.SocketPath, err)
	}
	d.listener = listener

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		d.Shutdown()
	}()

	fmt.Printf("sortsvc: listening on %s\n", d.cfg.SocketPath)

	for {
		select {
		case <-d.shutdown:
			return nil
		default:
		}

		if ul, ok := listener.(*net.UnixListener); ok {
			_ = ul.SetDeadline(time.Now().Add(1 * time.Second))
		}

		conn, err := listener.Accept()
		if err != nil {
			if opErr, ok := err.(*net.OpError); ok && opErr.Timeout() {
				continue
			}
			select {
			case <-d.shutdown:
				return nil
			default:
				fmt.Fprintf(os.Stderr, "sortsvc: accept error: %v\n", err)
				continue
			}
		}

		d.wg.Add(1)
		go d.handleConnection(conn)
	}
}

// Shutdown stops accepting connections, waits for in-flight requests to
// finish, and removes the socket file.
func (d *Daemon) Shutdown() {
	select {
	case <-d.shutdown:
		return // already shutting down
	default:
		close(d.shutdown)
	}
	if d.listener != nil {
		_ = d.listener.Close()
	}
	d.wg.Wait()
	_ = os.Remove(d.cfg.SocketPath)
}

func (d *Daemon) handleConnection(conn net.Conn) {
	defer d.wg.Done()
	defer conn.Close()

	select {
	case d.sem <- struct{}{}:
		defer func() { <-d.sem }()
	case <-d.shutdown:
		return
	}

	reader := bufio.NewReader(conn)
	for {
		select {
		case <-d.shutdown:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(d.cfg.IdleTimeout))

		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		resp := d.process(line)
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		_, _ = conn.Write(resp)
		_, _ = conn.Write([]byte("\n"))
	}
}

func (d *Daemon) process(line []byte) []byte {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return encode(Response{Error: "invalid JSON: " + err.Error()})
	}
	if req.File == "" {
		return encode(Response{Error: "missing \"file\""})
	}

	lock := d.lockFor(req.File)
	lock.Lock()
	defer lock.Unlock()

	if err := sortcore.Sort(req.File, sortcore.Options{LimitMB: req.LimitMB}); err != nil {
		return encode(Response{Error: err.Error()})
	}
	return encode(Response{OK: true})
}

// lockFor returns the per-path mutex serializing sorts of the same file,
// creating it on first use.
func (d *Daemon) lockFor(path string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.pathLocks[path]
	if !ok {
		l = &sync.Mutex{}
		d.pathLocks[path] = l
	}
	return l
}

func encode(r Response) []byte {
	b, _ := json.Marshal(r)
	return b
}
