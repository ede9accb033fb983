package client

import (
	"bufio"
	"encoding/json"
	"net"
	"strings"
	"testing"

	"github.com/onlyati/chronos/internal/protocol"
)

// startFakeServer runs a single-shot RPC server that decodes one request,
// hands it to respond, and encodes whatever respond returns.
func startFakeServer(t *testing.T, respond func(protocol.Request) protocol.Response) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var req protocol.Request
		if err := json.NewDecoder(conn).Decode(&req); err != nil {
			return
		}
		_ = json.NewEncoder(conn).Encode(respond(req))
	}()

	return ln.Addr().String()
}

func TestCall_RoundTrip(t *testing.T) {
	addr := startFakeServer(t, func(req protocol.Request) protocol.Response {
		if req.Action != protocol.ActionListActive {
			t.Errorf("unexpected action %q", req.Action)
		}
		return protocol.Response{OK: true, Timers: []protocol.TimerInfo{{ID: "job1"}}}
	})

	resp, err := call(connOptions{address: addr}, protocol.Request{Action: protocol.ActionListActive})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !resp.OK || len(resp.Timers) != 1 || resp.Timers[0].ID != "job1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCall_ConnectFailure(t *testing.T) {
	_, err := call(connOptions{address: "127.0.0.1:1"}, protocol.Request{Action: protocol.ActionListActive})
	if err == nil {
		t.Error("expected an error connecting to a closed port")
	}
}

func TestDial_PlainTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	conn, err := dial(connOptions{address: ln.Addr().String()})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()
}

func TestDial_MissingTLSCAFile(t *testing.T) {
	_, err := dial(connOptions{address: "127.0.0.1:0", tls: true, tlsCA: "/nonexistent/ca.pem"})
	if err == nil {
		t.Error("expected error for missing tls-ca file")
	}
}

func TestPromptText_DefaultsOnEmptyInput(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("\n"))
	got, err := promptText(reader, "label", "fallback", true)
	if err != nil {
		t.Fatalf("promptText: %v", err)
	}
	if got != "fallback" {
		t.Errorf("promptText = %q, want fallback", got)
	}
}

func TestPromptYesNo_ParsesResponses(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"no\n", false},
		{"\n", false},
	}
	for _, c := range cases {
		got, err := promptYesNo(bufio.NewReader(strings.NewReader(c.input)), "ok?", false)
		if err != nil {
			t.Fatalf("promptYesNo(%q): %v", c.input, err)
		}
		if got != c.want {
			t.Errorf("promptYesNo(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	if got := Run([]string{"bogus"}); got != ExitConfigIO {
		t.Errorf("Run([bogus]) = %d, want %d", got, ExitConfigIO)
	}
}

func TestRun_NoArgs(t *testing.T) {
	if got := Run(nil); got != ExitConfigIO {
		t.Errorf("Run(nil) = %d, want %d", got, ExitConfigIO)
	}
}
