// Package rpcserver implements the control-plane server: a JSON-over-TCP
// (optionally TLS) listener serving the operator RPCs. Each connection is
// a decode/dispatch/encode loop, so chronosctl can reuse one connection or
// open a fresh one per call.
package rpcserver

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"path/filepath"
	"time"

	"github.com/onlyati/chronos/internal/dispatch"
	"github.com/onlyati/chronos/internal/fileloader"
	"github.com/onlyati/chronos/internal/history"
	"github.com/onlyati/chronos/internal/protocol"
	"github.com/onlyati/chronos/internal/registry"
	"github.com/onlyati/chronos/internal/timer"
)

// Server serves the control-plane RPC surface over a single long-lived
// listener, bound once for the lifetime of the process.
type Server struct {
	reg     *registry.Registry
	verbose *dispatch.Verbose
	allDir  string
	history *history.Store // may be nil when the history feature is disabled

	address string
	tlsPem  string
	tlsKey  string
	useTLS  bool
}

// New constructs a Server. hist may be nil.
func New(reg *registry.Registry, verbose *dispatch.Verbose, allDir string, hist *history.Store, address string, useTLS bool, tlsPem, tlsKey string) *Server {
	return &Server{
		reg:     reg,
		verbose: verbose,
		allDir:  allDir,
		history: hist,
		address: address,
		tlsPem:  tlsPem,
		tlsKey:  tlsKey,
		useTLS:  useTLS,
	}
}

// Run binds the listener and serves connections until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := s.listen()
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.address, err)
	}
	defer listener.Close()

	log.Printf("rpcserver: listening on %s", s.address)

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Server) listen() (net.Listener, error) {
	if !s.useTLS {
		return net.Listen("tcp", s.address)
	}

	cert, err := tls.LoadX509KeyPair(s.tlsPem, s.tlsKey)
	if err != nil {
		return nil, fmt.Errorf("load tls keypair: %w", err)
	}
	return tls.Listen("tcp", s.address, &tls.Config{Certificates: []tls.Certificate{cert}})
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	for {
		var req protocol.Request
		if err := decoder.Decode(&req); err != nil {
			return
		}

		resp := s.handle(req)
		if err := encoder.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) handle(req protocol.Request) protocol.Response {
	switch req.Action {
	case protocol.ActionVerboseOn:
		s.verbose.Set(true)
		return protocol.Response{OK: true}

	case protocol.ActionVerboseOff:
		s.verbose.Set(false)
		return protocol.Response{OK: true}

	case protocol.ActionListActive:
		return protocol.Response{OK: true, Timers: renderActive(s.reg.ListActive())}

	case protocol.ActionListStatic:
		configs, err := fileloader.ReadConfFiles(s.allDir)
		if err != nil {
			return protocol.Response{OK: false, Error: err.Error()}
		}
		return protocol.Response{OK: true, Timers: renderStatic(configs)}

	case protocol.ActionPurge:
		if err := s.reg.Remove(req.ID); err != nil {
			return errResponse(protocol.ErrKindNotFound, err)
		}
		return protocol.Response{OK: true}

	case protocol.ActionRefresh:
		return s.refresh(req.ID)

	case protocol.ActionCreate:
		return s.create(req)

	case protocol.ActionHistory:
		if s.history == nil {
			return protocol.Response{OK: true}
		}
		rows, err := s.history.Recent(req.ID, req.Limit)
		if err != nil {
			return protocol.Response{OK: false, Error: err.Error()}
		}
		return protocol.Response{OK: true, History: renderHistory(rows)}

	default:
		return protocol.Response{OK: false, Error: fmt.Sprintf("unknown action %q", req.Action)}
	}
}

// refresh re-parses <all_dir>/<id>.conf and upserts it into the registry.
// The replacement is scheduled from scratch, exactly like a freshly loaded
// timer.
func (s *Server) refresh(id string) protocol.Response {
	path := filepath.Join(s.allDir, id+".conf")
	cfg, err := fileloader.ReadConfFile(path)
	if err != nil {
		return errResponse(protocol.ErrKindParseError, err)
	}
	s.reg.Put(cfg.ToTimer(false))
	return protocol.Response{OK: true}
}

func (s *Server) create(req protocol.Request) protocol.Response {
	values := map[string]string{
		"type":     req.Kind,
		"interval": req.Interval,
		"command":  req.Command,
	}
	if req.Days != "" {
		values["days"] = req.Days
	}

	cfg, err := timer.ParseConfig(req.ID, values)
	if err != nil {
		return errResponse(protocol.ErrKindParseError, err)
	}

	if err := s.reg.Add(cfg.ToTimer(true)); err != nil {
		return errResponse(protocol.ErrKindAlreadyExist, err)
	}
	return protocol.Response{OK: true}
}

func errResponse(kind string, err error) protocol.Response {
	return protocol.Response{OK: false, Error: fmt.Sprintf("%s: %v", kind, err)}
}

func renderActive(timers []timer.Timer) []protocol.TimerInfo {
	out := make([]protocol.TimerInfo, 0, len(timers))
	for _, t := range timers {
		out = append(out, protocol.TimerInfo{
			ID:       t.ID,
			Kind:     t.Kind.String(),
			Command:  t.CommandLine(),
			Days:     t.Days.String(),
			NextHit:  time.Unix(int64(t.NextHit), 0).Local().Format("2006-01-02 15:04:05"),
			Dynamic:  t.Dynamic,
			Interval: t.Interval.String(),
		})
	}
	return out
}

func renderStatic(configs []timer.Config) []protocol.TimerInfo {
	out := make([]protocol.TimerInfo, 0, len(configs))
	for _, c := range configs {
		out = append(out, protocol.TimerInfo{
			ID:       c.ID,
			Kind:     c.Kind.String(),
			Command:  joinCommand(c.Command),
			Days:     c.Days.String(),
			NextHit:  "None",
			Dynamic:  false,
			Interval: c.Interval.String(),
		})
	}
	return out
}

func renderHistory(rows []history.Execution) []protocol.Execution {
	out := make([]protocol.Execution, 0, len(rows))
	for _, r := range rows {
		out = append(out, protocol.Execution{
			Timestamp: r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			Success:   r.Success,
			ExitCode:  r.ExitCode,
			FirstLine: r.FirstLine,
		})
	}
	return out
}

func joinCommand(command []string) string {
	joined := ""
	for i, part := range command {
		if i > 0 {
			joined += " "
		}
		joined += part
	}
	return joined
}
