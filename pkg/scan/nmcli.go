package scan

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itohio/micscan/internal/log"
)

// runFunc executes a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Nmcli scans and joins Wi-Fi networks through NetworkManager's nmcli.
type Nmcli struct {
	timeout time.Duration
	run     runFunc

	active atomic.Bool
	mu     sync.Mutex
	closed bool
}

// NewNmcli creates an nmcli backed radio. timeout bounds a single scan.
func NewNmcli(timeout time.Duration) *Nmcli {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Nmcli{
		timeout: timeout,
		run:     execRun,
	}
}

// Available reports whether the nmcli binary can be found.
func Available() bool {
	_, err := exec.LookPath("nmcli")
	return err == nil
}

// Join connects to the given network, bounded by timeout.
func (n *Nmcli) Join(ctx context.Context, ssid, password string, timeout time.Duration) error {
	if n.isClosed() {
		return ErrRadioDown
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"dev", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	if _, err := n.run(ctx, "nmcli", args...); err != nil {
		return fmt.Errorf("failed to join %q: %w", ssid, err)
	}
	return nil
}

// Close tears the radio down. Later scans fail with ErrRadioDown.
func (n *Nmcli) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

func (n *Nmcli) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

// Active reports whether a scan is in flight.
func (n *Nmcli) Active() bool {
	return n.active.Load()
}

// Start requests a rescan in a goroutine and reports every SSID it lists.
func (n *Nmcli) Start(onResult func(ssid string)) error {
	if n.isClosed() {
		return ErrRadioDown
	}
	if !n.active.CompareAndSwap(false, true) {
		return ErrScanInFlight
	}

	go func() {
		defer n.active.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		out, err := n.run(ctx, "nmcli", "-t", "-f", "SSID", "dev", "wifi", "list", "--rescan", "yes")
		if err != nil {
			log.Warn("nmcli scan failed", "err", err)
			return
		}

		for _, ssid := range parseSSIDs(string(out)) {
			onResult(ssid)
		}
	}()

	return nil
}

// parseSSIDs parses nmcli terse output with a single SSID field per line.
// In terse mode, literal colons in values are escaped as \: and backslashes as \\.
// Hidden networks (empty SSID) are skipped.
func parseSSIDs(output string) []string {
	var result []string

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		result = append(result, unescapeTerse(line))
	}
	return result
}

func unescapeTerse(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
