// Package runner executes a timer's command through a POSIX shell, drains
// its stdout and stderr concurrently while preserving chronological order,
// and appends the result to the timer's per-id log file.
package runner

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// StreamKind tags which pipe a CommandOutputLine was read from.
type StreamKind byte

const (
	Info  StreamKind = 'I'
	Error StreamKind = 'E'
)

// CommandOutputLine is one line of captured output, timestamped at read
// time so stdout/stderr can be merged back into chronological order.
type CommandOutputLine struct {
	Time time.Time
	Kind StreamKind
	Text string
}

// Outcome is the result of one firing, returned to the caller (the
// dispatch engine, which publishes it to the status client).
type Outcome struct {
	ID       string
	Success  bool
	ExitCode int
	Lines    []CommandOutputLine
}

// Run executes command through /bin/sh -c, capturing output and appending
// it to <logDir>/<id>.log. It never returns an error: spawn and wait
// failures are folded into the returned Outcome and logged, so a broken
// command cannot take down the dispatch engine.
func Run(id string, command []string, logDir string) Outcome {
	if len(command) == 0 {
		log.Printf("runner: %s: command is empty, skipping", id)
		return Outcome{ID: id, Success: false, ExitCode: -999}
	}

	joined := joinCommand(command)
	cmd := exec.Command("/bin/sh", "-c", joined)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		log.Printf("runner: %s: stdout pipe: %v", id, err)
		return Outcome{ID: id, Success: false, ExitCode: -999}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		log.Printf("runner: %s: stderr pipe: %v", id, err)
		return Outcome{ID: id, Success: false, ExitCode: -999}
	}

	if err := cmd.Start(); err != nil {
		log.Printf("runner: %s: spawn failed: %v", id, err)
		return Outcome{ID: id, Success: false, ExitCode: -999}
	}

	var stdout, stderr []CommandOutputLine
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		stdout = drain(stdoutPipe, Info)
	}()
	go func() {
		defer wg.Done()
		stderr = drain(stderrPipe, Error)
	}()
	wg.Wait()

	lines := append(stdout, stderr...)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Time.Before(lines[j].Time) })

	exitCode := -999
	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			log.Printf("runner: %s: failed to wait for child: %v", id, err)
		}
	} else {
		exitCode = 0
	}

	if err := appendLog(logDir, id, lines); err != nil {
		log.Printf("runner: %s: failed to append log: %v", id, err)
	}

	return Outcome{
		ID:       id,
		Success:  exitCode == 0,
		ExitCode: exitCode,
		Lines:    lines,
	}
}

func joinCommand(command []string) string {
	joined := command[0]
	for _, part := range command[1:] {
		joined += " " + part
	}
	return joined
}

func drain(r io.Reader, kind StreamKind) []CommandOutputLine {
	var lines []CommandOutputLine
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, CommandOutputLine{
			Time: time.Now(),
			Kind: kind,
			Text: scanner.Text(),
		})
	}
	return lines
}

// appendLog appends lines to <logDir>/<id>.log as
// "YYYY-MM-DD HH:MM:SS <I|E> <text>\n", creating the file if it does not
// exist and never truncating it.
func appendLog(logDir, id string, lines []CommandOutputLine) error {
	if len(lines) == 0 {
		return nil
	}

	path := filepath.Join(logDir, id+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		fmt.Fprintf(w, "%s %c %s\n", line.Time.Format("2006-01-02 15:04:05"), line.Kind, line.Text)
	}
	return w.Flush()
}
