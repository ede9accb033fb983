// Package client implements chronosctl: the CLI front-end to the chronosd
// control-plane RPCs, plus the `configure` preferences wizard.
package client

import (
	"bufio"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/onlyati/chronos/internal/cliprefs"
	"github.com/onlyati/chronos/internal/protocol"
)

const dialTimeout = 10 * time.Second

// exit codes.
const (
	ExitOK         = 0
	ExitConfigIO   = 2
	ExitRPCFailure = 4
)

// Run is chronosctl's entry point: parse the verb, dispatch, return the
// process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitConfigIO
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "list-active":
		return runList(commandArgs, protocol.ActionListActive)
	case "list-static":
		return runList(commandArgs, protocol.ActionListStatic)
	case "purge":
		return runPurge(commandArgs)
	case "refresh":
		return runRefresh(commandArgs)
	case "create":
		return runCreate(commandArgs)
	case "verbose-on":
		return runToggle(commandArgs, protocol.ActionVerboseOn)
	case "verbose-off":
		return runToggle(commandArgs, protocol.ActionVerboseOff)
	case "history":
		return runHistory(commandArgs)
	case "configure":
		return runConfigure(commandArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		printUsage()
		return ExitConfigIO
	}
}

// connOptions are the resolved transport settings for a single invocation:
// defaults from the prefs file, overridden per-flag.
type connOptions struct {
	address string
	tls     bool
	tlsCA   string
}

func resolveOptions(flags *flag.FlagSet) (addr *string, useTLS *bool, tlsCA *string, jsonOut *bool) {
	prefs, err := cliprefs.Load(cliprefs.DefaultPath())
	if err != nil {
		prefs = cliprefs.Prefs{Address: cliprefs.DefaultAddress, Format: cliprefs.DefaultFormat}
	}

	addr = flags.String("addr", prefs.Address, "control-plane address (host:port)")
	useTLS = flags.Bool("tls", prefs.TLS, "use TLS for the control-plane connection")
	tlsCA = flags.String("tls-ca", prefs.TLSCA, "CA certificate path for TLS verification")
	jsonOut = flags.Bool("json", prefs.Format == "json", "output as JSON instead of a table")
	return
}

func dial(opts connOptions) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}

	if !opts.tls {
		return dialer.Dial("tcp", opts.address)
	}

	tlsConfig := &tls.Config{}
	if opts.tlsCA != "" {
		pem, err := os.ReadFile(opts.tlsCA)
		if err != nil {
			return nil, fmt.Errorf("read tls-ca %s: %w", opts.tlsCA, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("tls-ca %s: no certificates found", opts.tlsCA)
		}
		tlsConfig.RootCAs = pool
	}

	return tls.DialWithDialer(dialer, "tcp", opts.address, tlsConfig)
}

// call opens a fresh connection, sends one request, reads one response,
// and closes. chronosctl is a one-shot CLI; it never keeps a connection
// open across invocations.
func call(opts connOptions, req protocol.Request) (protocol.Response, error) {
	conn, err := dial(opts)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("connect to %s: %w", opts.address, err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return protocol.Response{}, fmt.Errorf("send request: %w", err)
	}

	var resp protocol.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return protocol.Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

func runList(args []string, action string) int {
	flags := flag.NewFlagSet(action, flag.ContinueOnError)
	addr, useTLS, tlsCA, jsonOut := resolveOptions(flags)
	if err := flags.Parse(args); err != nil {
		return ExitConfigIO
	}

	opts := connOptions{address: *addr, tls: *useTLS, tlsCA: *tlsCA}
	resp, err := call(opts, protocol.Request{Action: action})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitRPCFailure
	}
	if !resp.OK {
		fmt.Fprintln(os.Stderr, resp.Error)
		return ExitRPCFailure
	}

	if *jsonOut {
		_ = json.NewEncoder(os.Stdout).Encode(resp.Timers)
		return ExitOK
	}

	printTimerTable(resp.Timers)
	return ExitOK
}

func runPurge(args []string) int {
	flags := flag.NewFlagSet("purge", flag.ContinueOnError)
	addr, useTLS, tlsCA, _ := resolveOptions(flags)
	if err := flags.Parse(args); err != nil {
		return ExitConfigIO
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: chronosctl purge <id>")
		return ExitConfigIO
	}

	opts := connOptions{address: *addr, tls: *useTLS, tlsCA: *tlsCA}
	resp, err := call(opts, protocol.Request{Action: protocol.ActionPurge, ID: flags.Arg(0)})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitRPCFailure
	}
	if !resp.OK {
		fmt.Fprintln(os.Stderr, resp.Error)
		return ExitRPCFailure
	}

	fmt.Printf("purged %s\n", flags.Arg(0))
	return ExitOK
}

func runRefresh(args []string) int {
	flags := flag.NewFlagSet("refresh", flag.ContinueOnError)
	addr, useTLS, tlsCA, _ := resolveOptions(flags)
	if err := flags.Parse(args); err != nil {
		return ExitConfigIO
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: chronosctl refresh <id>")
		return ExitConfigIO
	}

	opts := connOptions{address: *addr, tls: *useTLS, tlsCA: *tlsCA}
	resp, err := call(opts, protocol.Request{Action: protocol.ActionRefresh, ID: flags.Arg(0)})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitRPCFailure
	}
	if !resp.OK {
		fmt.Fprintln(os.Stderr, resp.Error)
		return ExitRPCFailure
	}

	fmt.Printf("refreshed %s\n", flags.Arg(0))
	return ExitOK
}

func runCreate(args []string) int {
	flags := flag.NewFlagSet("create", flag.ContinueOnError)
	addr, useTLS, tlsCA, _ := resolveOptions(flags)
	id := flags.String("id", "", "timer id (required)")
	kind := flags.String("type", "", "every | oneshot | at (required)")
	interval := flags.String("interval", "", "HH:MM:SS (required)")
	command := flags.String("command", "", "shell command (required)")
	days := flags.String("days", "", "7-char X/_ mask, Monday first (default all enabled)")
	if err := flags.Parse(args); err != nil {
		return ExitConfigIO
	}

	if strings.TrimSpace(*id) == "" || strings.TrimSpace(*kind) == "" || strings.TrimSpace(*interval) == "" || strings.TrimSpace(*command) == "" {
		fmt.Fprintln(os.Stderr, "usage: chronosctl create --id ID --type TYPE --interval HH:MM:SS --command CMD [--days XXXXXXX]")
		return ExitConfigIO
	}

	opts := connOptions{address: *addr, tls: *useTLS, tlsCA: *tlsCA}
	resp, err := call(opts, protocol.Request{
		Action:   protocol.ActionCreate,
		ID:       *id,
		Kind:     *kind,
		Interval: *interval,
		Command:  *command,
		Days:     *days,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitRPCFailure
	}
	if !resp.OK {
		fmt.Fprintln(os.Stderr, resp.Error)
		return ExitRPCFailure
	}

	fmt.Printf("created %s\n", *id)
	return ExitOK
}

func runToggle(args []string, action string) int {
	flags := flag.NewFlagSet(action, flag.ContinueOnError)
	addr, useTLS, tlsCA, _ := resolveOptions(flags)
	if err := flags.Parse(args); err != nil {
		return ExitConfigIO
	}

	opts := connOptions{address: *addr, tls: *useTLS, tlsCA: *tlsCA}
	resp, err := call(opts, protocol.Request{Action: action})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitRPCFailure
	}
	if !resp.OK {
		fmt.Fprintln(os.Stderr, resp.Error)
		return ExitRPCFailure
	}

	fmt.Println("ok")
	return ExitOK
}

func runHistory(args []string) int {
	flags := flag.NewFlagSet("history", flag.ContinueOnError)
	addr, useTLS, tlsCA, jsonOut := resolveOptions(flags)
	limit := flags.Int("limit", 20, "number of rows")
	if err := flags.Parse(args); err != nil {
		return ExitConfigIO
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: chronosctl history <id> [--limit N]")
		return ExitConfigIO
	}

	opts := connOptions{address: *addr, tls: *useTLS, tlsCA: *tlsCA}
	resp, err := call(opts, protocol.Request{Action: protocol.ActionHistory, ID: flags.Arg(0), Limit: *limit})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitRPCFailure
	}
	if !resp.OK {
		fmt.Fprintln(os.Stderr, resp.Error)
		return ExitRPCFailure
	}

	if *jsonOut {
		_ = json.NewEncoder(os.Stdout).Encode(resp.History)
		return ExitOK
	}

	for _, row := range resp.History {
		status := "OK"
		if !row.Success {
			status = "NOK"
		}
		fmt.Printf("%s\t%s\texit=%d\t%s\n", row.Timestamp, status, row.ExitCode, row.FirstLine)
	}
	return ExitOK
}

// runConfigure is the interactive wizard that writes
// ~/.config/chronosctl/prefs.yaml.
func runConfigure(args []string) int {
	flags := flag.NewFlagSet("configure", flag.ContinueOnError)
	output := flags.String("output", cliprefs.DefaultPath(), "output preferences path")
	if err := flags.Parse(args); err != nil {
		return ExitConfigIO
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("chronosctl configure — default control-plane connection settings")

	addr, err := promptText(reader, "control-plane address", cliprefs.DefaultAddress, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitConfigIO
	}

	useTLS, err := promptYesNo(reader, "use TLS", false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitConfigIO
	}

	var tlsCA string
	if useTLS {
		tlsCA, err = promptText(reader, "CA certificate path (blank to use system trust store)", "", false)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return ExitConfigIO
		}
	}

	jsonDefault, err := promptYesNo(reader, "default to JSON output", false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitConfigIO
	}
	format := "table"
	if jsonDefault {
		format = "json"
	}

	prefs := cliprefs.Prefs{Address: addr, TLS: useTLS, TLSCA: tlsCA, Format: format}
	if err := cliprefs.Save(*output, prefs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitConfigIO
	}

	fmt.Printf("wrote preferences to %s\n", *output)
	return ExitOK
}

func promptText(reader *bufio.Reader, label, defaultValue string, required bool) (string, error) {
	for {
		if defaultValue != "" {
			fmt.Printf("%s [%s]: ", label, defaultValue)
		} else {
			fmt.Printf("%s: ", label)
		}

		input, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}

		value := strings.TrimSpace(input)
		if value == "" {
			value = defaultValue
		}

		if required && strings.TrimSpace(value) == "" {
			fmt.Println("value is required")
			continue
		}
		return value, nil
	}
}

func promptYesNo(reader *bufio.Reader, label string, defaultYes bool) (bool, error) {
	defaultLabel := "y/N"
	if defaultYes {
		defaultLabel = "Y/n"
	}

	for {
		fmt.Printf("%s [%s]: ", label, defaultLabel)
		input, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}

		value := strings.ToLower(strings.TrimSpace(input))
		if value == "" {
			return defaultYes, nil
		}
		if value == "y" || value == "yes" {
			return true, nil
		}
		if value == "n" || value == "no" {
			return false, nil
		}
		fmt.Println("please answer yes or no")
	}
}

func printTimerTable(timers []protocol.TimerInfo) {
	if len(timers) == 0 {
		fmt.Println("no timers")
		return
	}
	for _, t := range timers {
		dyn := "static"
		if t.Dynamic {
			dyn = "dynamic"
		}
		fmt.Printf("%s\t%s\t%s\t%s\tnext=%s\t%s\t%s\n", t.ID, t.Kind, t.Interval, t.Days, t.NextHit, dyn, t.Command)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `chronosctl - control-plane CLI for chronosd

  chronosctl list-active [--addr host:port] [--tls] [--json]
  chronosctl list-static [--addr host:port] [--tls] [--json]
  chronosctl purge <id> [--addr host:port] [--tls]
  chronosctl refresh <id> [--addr host:port] [--tls]
  chronosctl create --id ID --type TYPE --interval HH:MM:SS --command CMD [--days XXXXXXX] [--addr host:port] [--tls]
  chronosctl verbose-on [--addr host:port] [--tls]
  chronosctl verbose-off [--addr host:port] [--tls]
  chronosctl history <id> [--limit N] [--addr host:port] [--tls] [--json]
  chronosctl configure [--output PATH]

Exit codes: 0 success, 2 configuration/I-O error, 4 RPC error.
`)
}
