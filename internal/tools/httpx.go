package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
)

// HttpxResult represents the probed HTTP endpoint data returned by httpx
type HttpxResult struct {
	URL           string   `json:"url"`
	StatusCode    int      `json:"status_code"`
	Title         string   `json:"title"`
	ContentLength int64    `json:"content_length"`
	Technologies  []string `json:"tech"`
	Host          string   `json:"host"`
}

// RunHttpx executes httpx against the given hostnames and returns one result
// per responsive host. The hostnames are handed over in a temporary list file
// that is removed on every return path. Unparseable output lines are skipped.
func RunHttpx(ctx context.Context, hosts []string, threads int, binaryPath string) ([]HttpxResult, error) {
	if len(hosts) == 0 {
		return []HttpxResult{}, nil
	}

	binary := "httpx"
	if binaryPath != "" {
		binary = binaryPath
	}

	if threads <= 0 {
		threads = 50
	}

	listFile, err := writeListFile(hosts)
	if err != nil {
		return nil, err
	}
	defer os.Remove(listFile)

	args := []string{
		"-l", listFile,
		"-silent",
		"-json",
		"-status-code",
		"-title",
		"-tech-detect",
		"-threads", strconv.Itoa(threads),
		"-timeout", "10",
		"-retries", "2",
	}

	result, err := RunTool(ctx, binary, args...)
	if err != nil {
		return nil, fmt.Errorf("httpx execution failed: %w", err)
	}

	results, _, err := ParseJSONLines[HttpxResult](result.Stdout)
	if err != nil {
		return nil, fmt.Errorf("parsing httpx output: %w", err)
	}

	return results, nil
}

// writeListFile writes one entry per line to a fresh temp file and returns
// its path. The caller owns removal.
func writeListFile(entries []string) (string, error) {
	f, err := os.CreateTemp("", "reconx-hosts-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create input temp file: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, e := range entries {
		fmt.Fprintln(w, e)
	}

	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write input temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close input temp file: %w", err)
	}

	return f.Name(), nil
}
