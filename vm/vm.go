// Package vm implements the Universal Machine execution core: the
// word/array store, the decoder, the pre-decoded instruction cache and the
// fetch-decode-execute loop, structured as a register file plus memory plus
// a Decode/Execute split, generalized from a flat byte-addressed memory to
// an array-of-arrays model.
package vm

import "log/slog"

// Channel is the narrow contract the execute loop needs from the I/O
// subsystem. The console package implements it; vm never imports console
// (console imports vm instead), keeping the dependency one-directional.
type Channel interface {
	// WriteByte emits one output byte.
	WriteByte(b byte) error
	// ReadByte blocks until one input byte is available and returns it,
	// returns eof=true at end of input, or returns skip=true when a
	// dot-command consumed the input line instead of producing a byte —
	// the destination register must be left unchanged in that case.
	// The queue/driver/terminal multiplexing happens entirely on the
	// implementation's side; the VM only sees the result.
	ReadByte() (b byte, eof bool, skip bool, err error)
}

// Driver is consulted by a Channel, not by the VM directly (see
// driver.Driver) — this VM stays agnostic of solvers entirely.

// VM is a single Universal Machine instance. All of its state (arrays,
// registers, finger, decode cache) is owned exclusively by the instance;
// nothing here is safe to share across goroutines.
type VM struct {
	regs    [8]Word
	finger  Word
	st      *store
	dc      cache
	running bool
	io      Channel
	log     *slog.Logger
}

// New creates an empty, halted VM. Call LoadProgram before Run.
func New(ch Channel, log *slog.Logger) *VM {
	if log == nil {
		log = slog.Default()
	}
	return &VM{
		st:  newStore(),
		io:  ch,
		log: log,
	}
}

// LoadProgram installs prog as array 0, resets registers/finger/next-id,
// rebuilds the decode cache, and marks the machine running.
func (v *VM) LoadProgram(prog Array) {
	v.st.reset(prog)
	v.regs = [8]Word{}
	v.finger = 0
	v.running = true
	v.dc.rebuild(v.st.zero())
}

// Running reports whether the run loop would continue.
func (v *VM) Running() bool {
	return v.running
}

// RequestHalt marks the VM halted without running another instruction; this
// is what the `.halt` console command does, distinct from opcode 7 which
// also sets it from inside the run loop.
func (v *VM) RequestHalt() {
	v.running = false
}

// Finger returns the current program counter into array 0.
func (v *VM) Finger() Word {
	return v.finger
}

// Registers returns a copy of the 8-word register file, for `.reg` and
// snapshotting.
func (v *VM) Registers() [8]Word {
	return v.regs
}

// SetRegister sets register i (0..7). Used by the CLI front end to seed
// initial register values before Run.
func (v *VM) SetRegister(i int, val Word) {
	v.regs[i] = val
}

// ArrayCount returns the number of live arrays, for `.arr`.
func (v *VM) ArrayCount() int {
	return v.st.count()
}

// ArrayLengths returns the length of every live array keyed by ID, for
// `.arr`.
func (v *VM) ArrayLengths() map[Word]int {
	out := make(map[Word]int, v.st.count())
	v.st.forEach(func(id Word, a Array) {
		out[id] = len(a)
	})
	return out
}

// DecodeCacheLen exposes the decode cache's length so callers (tests,
// invariant checks) can assert it tracks array 0 without reaching into the
// package.
func (v *VM) DecodeCacheLen() int {
	return v.dc.len()
}
