// Package log implements the audit log sink the firewall engine writes one
// line to on every state-changing transition (spec §6). Adapted from the
// severity/formatting conventions of safing/portmaster's base/log package,
// but simplified to write synchronously: spec §5 requires that audit log
// lines are emitted synchronously before ReceivePacket returns, which rules
// out the teacher's buffered-channel/background-writer design.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/safing/peerguard/internal/netutils"
)

// AuditLog writes one formatted line per call to both stdout and a log
// file, matching the firewall.AuditLogger interface.
type AuditLog struct {
	mu     sync.Mutex
	stdout io.Writer
	file   *os.File
	color  bool
}

const timeFormat = "2006-01-02 15:04:05"

// New opens (truncating) logPath and returns an AuditLog that writes to
// both it and stdout, per spec §6 ("written to both stdout and a file
// named firewall.log ... opened truncating at startup").
func New(logPath string) (*AuditLog, error) {
	f, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("log: failed to create %s: %w", logPath, err)
	}
	stdout := os.Stdout
	return &AuditLog{
		stdout: colorable.NewColorable(stdout),
		file:   f,
		color:  isatty.IsTerminal(stdout.Fd()),
	}, nil
}

// Log writes one audit line: "[YYYY-MM-DD HH:MM:SS] <tag> A.B.C.D".
// A failure to write to the file degrades to stdout-only without
// aborting (spec §7, "Log write failure").
func (l *AuditLog) Log(tag string, addr netutils.Address) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("[%s] %s %s", time.Now().Format(timeFormat), tag, addr)

	if l.color {
		fmt.Fprintln(l.stdout, colorize(tag)+line+colorEnd)
	} else {
		fmt.Fprintln(l.stdout, line)
	}

	if l.file != nil {
		if _, err := fmt.Fprintln(l.file, line); err != nil {
			// Degrade to stdout-only; do not abort (spec §7).
			l.file = nil
		}
	}
}

// Close closes the underlying log file.
func (l *AuditLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
