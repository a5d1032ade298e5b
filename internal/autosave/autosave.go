// Package autosave implements periodic backup-before-input behaviour: every
// interval, just before the VM would block on terminal input, the state is
// snapshotted; every timestampEach, an additional timestamped copy is kept
// alongside the rolling one. This wraps the on-disk snapshot format with
// that cadence; it has no original-source analogue, which has no autosave
// concept of any kind.
package autosave

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/boundvariable/um/snapshot"
	"github.com/boundvariable/um/vm"
)

// Policy drives periodic backups. It is consulted by console.Channel right
// before the channel would block reading a new terminal line.
type Policy struct {
	dir           string
	interval      time.Duration
	timestampEach time.Duration
	last          time.Time
	lastTimestamp time.Time
	log           *slog.Logger
	now           func() time.Time
}

// New builds a Policy writing rolling backups to dir/backup.ums, with an
// additional dir/backup.<timestamp>.ums every timestampEach.
func New(dir string, interval, timestampEach time.Duration, log *slog.Logger) *Policy {
	if log == nil {
		log = slog.Default()
	}
	return &Policy{
		dir:           dir,
		interval:      interval,
		timestampEach: timestampEach,
		log:           log,
		now:           time.Now,
	}
}

// MaybeSave writes a backup if interval has elapsed since the last one.
// Errors are logged, not returned — a failed backup must never interrupt
// the interactive session.
func (p *Policy) MaybeSave(state vm.State) {
	if p.dir == "" {
		return
	}
	now := p.now()
	if !p.last.IsZero() && now.Sub(p.last) < p.interval {
		return
	}
	p.last = now

	path := filepath.Join(p.dir, "backup.ums")
	if err := p.writeSnapshot(path, state); err != nil {
		p.log.Warn("autosave failed", "path", path, "error", err)
		return
	}

	if p.timestampEach > 0 && (p.lastTimestamp.IsZero() || now.Sub(p.lastTimestamp) >= p.timestampEach) {
		p.lastTimestamp = now
		tsPath := filepath.Join(p.dir, fmt.Sprintf("backup.%s.ums", now.Format("2006-01-02T15:04:05")))
		if err := p.writeSnapshot(tsPath, state); err != nil {
			p.log.Warn("timestamped autosave failed", "path", tsPath, "error", err)
		}
	}
}

func (p *Policy) writeSnapshot(path string, state vm.State) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return snapshot.Save(f, state)
}
