package storage

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// runFunc 执行一次 redis-cli 调用并返回 stdout
type runFunc func(ctx context.Context, bin string, args ...string) (string, error)

// CLITransport 降级通道：每个操作都通过 redis-cli --raw 执行
type CLITransport struct {
	URL string
	Bin string

	run   runFunc
	mu    sync.Mutex
	state ConnState
}

func NewCLITransport(url, bin string) *CLITransport {
	return &CLITransport{URL: url, Bin: bin, run: execRedisCLI}
}

func execRedisCLI(ctx context.Context, bin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%s: %s", bin, msg)
	}
	return stdout.String(), nil
}

func (t *CLITransport) exec(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"--raw", "-u", t.URL}, args...)
	out, err := t.run(ctx, t.Bin, full...)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.state = StateFailed
		return "", fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, args[0], err)
	}
	t.state = StateConnected
	return strings.TrimSpace(out), nil
}

func (t *CLITransport) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := t.exec(ctx, "GET", key)
	if err != nil {
		return "", false, err
	}
	if out == "" || out == "(nil)" {
		return "", false, nil
	}
	return out, true, nil
}

func (t *CLITransport) SetEX(ctx context.Context, key string, ttl time.Duration, value string) error {
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	_, err := t.exec(ctx, "SETEX", key, strconv.FormatInt(seconds, 10), value)
	return err
}

func (t *CLITransport) Keys(ctx context.Context, pattern string) ([]string, error) {
	out, err := t.exec(ctx, "KEYS", pattern)
	if err != nil {
		return nil, err
	}
	if out == "" || out == "(empty list or set)" || out == "(empty array)" {
		return []string{}, nil
	}
	keys := make([]string, 0)
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			keys = append(keys, line)
		}
	}
	return keys, nil
}

func (t *CLITransport) State() ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *CLITransport) Close() error {
	return nil
}
