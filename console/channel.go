// Package console implements the I/O channel and the dot-command
// interpreter: the byte-oriented output sink, the multiplexed input source
// (queue / driver / terminal), and the meta-commands a terminal line can
// trigger instead of being forwarded to the guest.
//
// The dot-command dispatch is built in the shape of a table of named
// commands dispatched from a tokenized line; the input queue/driver/
// terminal multiplexing follows the reference console loop this was
// ported from. The periodic pre-`in` autosave has no reference-console
// analogue — see internal/autosave.
package console

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/boundvariable/um/driver"
	"github.com/boundvariable/um/internal/autosave"
	"github.com/boundvariable/um/snapshot"
	"github.com/boundvariable/um/vm"
)

// DefaultSnapshotFile is the file `.save`/`.load` use with no argument.
const DefaultSnapshotFile = "state.ums"

// DefaultBinFile is the file `.bin` opens when called with no argument,
// matching the original reference's `cmd_bin(self, file="dump.um")`.
const DefaultBinFile = "dump.um"

// Channel wires a VM's `in`/`out` opcodes to the terminal, an input queue,
// an optional binary output redirect, and an optional driver. It also owns
// the dot-command interpreter, since commands act on exactly this state
// (the VM, the queue, the output redirect, the driver).
type Channel struct {
	v *vm.VM

	termIn  *bufio.Reader
	termOut io.Writer

	outFile *os.File // non-nil while `.bin` redirect is active

	queue []byte

	lastLine       []byte
	sinceLastInput bytes.Buffer

	registry *driver.Registry
	drv      driver.Driver

	autosave *autosave.Policy

	log *slog.Logger
}

// New builds a Channel. registry may be nil (no drivers available, `.slv`
// always reports an empty list).
func New(termIn io.Reader, termOut io.Writer, registry *driver.Registry, log *slog.Logger) *Channel {
	if registry == nil {
		registry = driver.NewRegistry()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Channel{
		termIn:   bufio.NewReader(termIn),
		termOut:  termOut,
		registry: registry,
		log:      log,
	}
}

// Bind attaches the VM this channel serves `in`/`out` for. Commands like
// `.reg`/`.save` need the VM; the VM needs the channel for `in`/`out` — the
// two are constructed separately and wired together once, avoiding an
// import cycle between vm and console.
func (c *Channel) Bind(v *vm.VM) {
	c.v = v
}

// Attach builds and installs the named driver from registry, delivering
// bootstrap as its first output-since-last-input chunk. Any output the
// channel has accumulated since the previous input request is discarded:
// the original reference's `cmd_slv` overwrites its solver_output buffer
// with the bootstrap args at attach time rather than appending to it
// (`self.solver_output = " ".join(rest) if rest else ""`), so a driver
// attached mid-session never sees output that predates it. Used both by
// `.slv` and by the CLI's `-driver` startup flag.
func (c *Channel) Attach(registry *driver.Registry, name, bootstrap string) error {
	d, err, ok := registry.Build(name, bootstrap)
	if !ok {
		return fmt.Errorf("no such driver %q", name)
	}
	if err != nil {
		return err
	}
	c.drv = d
	c.sinceLastInput.Reset()
	c.sinceLastInput.WriteString(bootstrap)
	return nil
}

// SetAutosave installs a periodic backup policy, consulted from ReadByte
// right before blocking on terminal input. This is new behaviour with no
// original-source analogue.
func (c *Channel) SetAutosave(p *autosave.Policy) {
	c.autosave = p
}

// WriteByte implements vm.Channel.
func (c *Channel) WriteByte(b byte) error {
	if c.outFile != nil {
		_, err := c.outFile.Write([]byte{b})
		return err
	}
	if _, err := c.termOut.Write([]byte{b}); err != nil {
		return err
	}
	if b == '\n' {
		c.lastLine = c.lastLine[:0]
	} else {
		c.lastLine = append(c.lastLine, b)
	}
	if c.drv != nil {
		c.sinceLastInput.WriteByte(b)
	}
	return nil
}

// ReadByte implements vm.Channel. It multiplexes the input queue, an
// attached driver, and the terminal (with its dot-command interpreter) in
// that priority order.
func (c *Channel) ReadByte() (b byte, eof bool, skip bool, err error) {
	for {
		if len(c.queue) > 0 {
			b := c.queue[0]
			c.queue = c.queue[1:]
			return b, false, false, nil
		}

		if c.drv != nil {
			chunk := c.sinceLastInput.String()
			c.sinceLastInput.Reset()
			line, ok := c.drv.Drive(chunk)
			if !ok {
				c.drv = nil
				continue
			}
			c.enqueueLine(line)
			continue
		}

		if c.autosave != nil {
			c.autosave.MaybeSave(c.snapshotState())
		}

		line, rerr := c.termIn.ReadString('\n')
		if rerr != nil {
			if errors.Is(rerr, io.EOF) && line == "" {
				return 0, true, false, nil
			}
			if !errors.Is(rerr, io.EOF) {
				return 0, false, false, fmt.Errorf("console: reading terminal: %w", rerr)
			}
			// Final unterminated line before EOF: treat it like any
			// other line, then report EOF on the next read.
		}
		line = trimNewline(line)

		if len(line) > 0 && line[0] == '.' {
			c.handleCommand(line)
			return 0, false, true, nil
		}

		c.enqueueLine(line)
	}
}

func (c *Channel) enqueueLine(line string) {
	c.queue = append(c.queue, []byte(line)...)
	c.queue = append(c.queue, 0x0A)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// snapshotState captures the bound VM's state together with the last
// output line, for `.save` and the autosave policy.
func (c *Channel) snapshotState() vm.State {
	return c.v.Export(append([]byte(nil), c.lastLine...))
}

func (c *Channel) saveSnapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return snapshot.Save(f, c.snapshotState())
}

func (c *Channel) loadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	s, err := snapshot.Load(f)
	if err != nil {
		return err
	}
	if err := c.v.Import(s); err != nil {
		return err
	}
	c.lastLine = append([]byte(nil), s.LastOutputLine...)
	return nil
}
