package tools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// maxLineSize bounds a single line of tool output
const maxLineSize = 4 * 1024 * 1024

// ErrMalformedOutput is returned when a tool produced output but none of it
// could be parsed.
var ErrMalformedOutput = errors.New("malformed tool output")

// ToolResult contains the result of a tool execution
type ToolResult struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
}

// RunTool executes a tool binary with the given arguments and returns the result.
// It handles concurrent pipe reading to prevent buffer deadlocks and enforces
// context timeout with proper subprocess cleanup.
func RunTool(ctx context.Context, binary string, args ...string) (*ToolResult, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	// Set WaitDelay for subprocess cleanup after context cancellation
	cmd.WaitDelay = 5 * time.Second

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	// Read stdout and stderr concurrently to prevent deadlocks
	var stdoutBuf bytes.Buffer
	var stderrBuf bytes.Buffer

	stdoutDone := make(chan error, 1)
	stderrDone := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(stdoutPipe)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			stdoutBuf.Write(scanner.Bytes())
			stdoutBuf.WriteByte('\n')
		}
		stdoutDone <- scanner.Err()
	}()

	go func() {
		_, err := io.Copy(&stderrBuf, stderrPipe)
		stderrDone <- err
	}()

	<-stdoutDone
	<-stderrDone

	err = cmd.Wait()

	result := &ToolResult{
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	if err != nil {
		// Context cancellation is expected, return result with error
		if ctx.Err() != nil {
			return result, fmt.Errorf("command cancelled: %w", ctx.Err())
		}
		return result, fmt.Errorf("command failed with exit code %d: %w", result.ExitCode, err)
	}

	return result, nil
}

// Lines splits tool output into trimmed, non-empty lines
func Lines(out []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, string(line))
	}
	return lines
}

// ParseJSONLines decodes one JSON object per line. Lines that fail to decode
// are skipped and counted; ErrMalformedOutput is returned only when there was
// at least one line and every line failed.
func ParseJSONLines[T any](out []byte) ([]T, int, error) {
	var (
		results []T
		skipped int
	)

	lines := Lines(out)
	for _, line := range lines {
		var v T
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			skipped++
			continue
		}
		results = append(results, v)
	}

	if len(lines) > 0 && skipped == len(lines) {
		return nil, skipped, fmt.Errorf("%w: all %d lines failed to parse", ErrMalformedOutput, skipped)
	}

	return results, skipped, nil
}
