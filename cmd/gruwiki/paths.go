package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/samcharles93/gruwiki/internal/embeddings"
)

const (
	envRunsDir = "GRUWIKI_RUNS_DIR"

	modelFile = "model.safetensors"
)

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

// newRunDir creates the output directory for a training run. An explicit
// --run path wins; otherwise a fresh "run-<uuid>" directory is made under
// the runs path (or ./runs).
func newRunDir(runFlag, runsDir string) (string, error) {
	if dir := strings.TrimSpace(runFlag); dir != "" {
		dir = filepath.Clean(dir)
		return dir, os.MkdirAll(dir, 0o755)
	}
	base := strings.TrimSpace(runsDir)
	if base == "" {
		base = strings.TrimSpace(os.Getenv(envRunsDir))
	}
	if base == "" {
		base = filepath.Join(".", "runs")
	}
	dir := filepath.Join(base, "run-"+uuid.NewString()[:8])
	return dir, os.MkdirAll(dir, 0o755)
}

// runConfigured reports whether a run can be resolved from the flag, the
// runs path (flag or config file) or the environment.
func runConfigured(runFlag, runsDir string) bool {
	return strings.TrimSpace(runFlag) != "" ||
		strings.TrimSpace(runsDir) != "" ||
		strings.TrimSpace(os.Getenv(envRunsDir)) != ""
}

// resolveRunPath picks an existing run for the query commands.
func resolveRunPath(runFlag, runsDir string, stdin io.Reader, stderr io.Writer) (string, error) {
	runFlag = strings.TrimSpace(runFlag)
	if runFlag != "" {
		return filepath.Clean(runFlag), nil
	}

	dir := strings.TrimSpace(runsDir)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(envRunsDir))
	}
	if dir == "" {
		return "", fmt.Errorf("--run or --runs-path is required unless %s is set", envRunsDir)
	}

	runs, err := discoverRuns(dir)
	if err != nil {
		return "", err
	}
	switch len(runs) {
	case 0:
		return "", fmt.Errorf("no training runs found in %s", dir)
	case 1:
		_, _ = fmt.Fprintf(stderr, "using run %s\n", runs[0])
		return runs[0], nil
	default:
		if !stdinIsTTY() {
			return "", fmt.Errorf("multiple runs found in %s but stdin is not interactive; set --run", dir)
		}
		return selectRunInteractively(dir, runs, stdin, stderr)
	}
}

// discoverRuns lists subdirectories of dir that contain saved embeddings,
// sorted by name.
func discoverRuns(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("runs directory is empty")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("runs path is not a directory: %s", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	runs := make([]string, 0, len(ents))
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		cand := filepath.Join(dir, e.Name())
		if _, err := os.Stat(filepath.Join(cand, embeddings.WeightsFile)); err == nil {
			runs = append(runs, cand)
		}
	}
	sort.Strings(runs)
	return runs, nil
}

func selectRunInteractively(dir string, runs []string, stdin io.Reader, stderr io.Writer) (string, error) {
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs available in %s", dir)
	}

	_, _ = fmt.Fprintf(stderr, "select a run from %s\n", dir)
	for i, r := range runs {
		_, _ = fmt.Fprintf(stderr, "%d. %s\n", i+1, filepath.Base(r))
	}

	reader := bufio.NewReader(stdin)
	for {
		_, _ = fmt.Fprintf(stderr, "enter selection [1-%d]: ", len(runs))
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no selection provided on stdin; set --run")
			}
			continue
		}
		idx, convErr := strconv.Atoi(line)
		if convErr != nil || idx < 1 || idx > len(runs) {
			_, _ = fmt.Fprintf(stderr, "invalid selection %q\n", line)
			if errors.Is(err, io.EOF) {
				return "", errors.New("invalid selection provided on stdin; set --run")
			}
			continue
		}
		return runs[idx-1], nil
	}
}

func isTTY() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}

// parseSizes turns "30" or "30,20" into layer widths.
func parseSizes(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid hidden size %q", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one hidden size is required")
	}
	return out, nil
}
