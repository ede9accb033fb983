// Package fileloader reads the flat key=value *.conf files that describe
// statically configured timers out of a directory.
package fileloader

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/onlyati/chronos/internal/timer"
)

// ReadConfFiles enumerates *.conf files directly inside dir (non-recursive),
// parses each into a timer.Config, and returns the set that parsed
// successfully. Per-file errors are logged and the offending file is
// skipped rather than aborting the whole scan.
func ReadConfFiles(dir string) ([]timer.Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var configs []timer.Config
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".conf") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		cfg, err := ReadConfFile(path)
		if err != nil {
			log.Printf("fileloader: skipping %s: %v", path, err)
			continue
		}
		configs = append(configs, cfg)
	}

	return configs, nil
}

// ReadConfFile parses a single *.conf file into a timer.Config. The file's
// basename, minus the .conf suffix, becomes the timer id.
func ReadConfFile(path string) (timer.Config, error) {
	values, err := readKeyValues(path)
	if err != nil {
		return timer.Config{}, err
	}

	id := strings.TrimSuffix(filepath.Base(path), ".conf")
	return timer.ParseConfig(id, values)
}

// readKeyValues reads a flat key=value file, one assignment per line.
// Blank lines and lines beginning with '#' are ignored. Keys match
// [a-z_.]+; values are taken verbatim beyond surrounding whitespace.
func readKeyValues(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.Index(line, "=")
		if idx < 0 {
			return nil, fmt.Errorf("%s:%d: missing '=' in %q", path, lineNo, line)
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			return nil, fmt.Errorf("%s:%d: empty key", path, lineNo)
		}
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}

	return values, nil
}
