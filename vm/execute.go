package vm

// Step executes exactly one instruction: capture finger, fetch the decoded
// entry, advance finger, then dispatch. Advancing finger before the handler
// runs is required so that opcode 12's jump can overwrite it.
func (v *VM) Step() error {
	if !v.running {
		return nil
	}
	instrFinger := v.finger

	entry, ok := v.dc.at(instrFinger)
	if !ok {
		v.running = false
		return &InvalidFingerError{Finger: instrFinger}
	}

	v.finger++

	if entry.Err != nil {
		v.running = false
		return &DecodeOpError{Finger: instrFinger, Cause: entry.Err}
	}

	if err := entry.Handler(v, entry); err != nil {
		v.running = false
		return v.attachFault(entry, instrFinger, err)
	}
	return nil
}

// Run steps the VM until it halts or a step fails. maxCycles <= 0 means no
// limit. It returns the number of instructions executed.
func (v *VM) Run(maxCycles int) (int, error) {
	executed := 0
	for v.running {
		if maxCycles > 0 && executed >= maxCycles {
			break
		}
		if err := v.Step(); err != nil {
			return executed, err
		}
		executed++
	}
	return executed, nil
}

// attachFault wraps a handler's plain error into a RuntimeError carrying
// the opcode name, its operand register indices, and the finger at
// failure. Handlers that already return a *RuntimeError (none currently do)
// pass through unchanged.
func (v *VM) attachFault(d DecodedInstruction, finger Word, err error) error {
	if re, ok := err.(*RuntimeError); ok {
		return re
	}
	op0, op1, op2 := Word(d.A), Word(d.B), Word(d.C)
	if d.Op == OpOrth {
		op0, op1, op2 = Word(d.S), Word(d.Imm), 0
	}
	return &RuntimeError{
		Op:      d.Op,
		Operand: [3]Word{op0, op1, op2},
		Finger:  finger,
		Reason:  err.Error(),
	}
}

func (v *VM) execCMov(d DecodedInstruction) error {
	if v.regs[d.C] != 0 {
		v.regs[d.A] = v.regs[d.B]
	}
	return nil
}

func (v *VM) execIndex(d DecodedInstruction) error {
	val, err := v.st.index(v.regs[d.B], v.regs[d.C])
	if err != nil {
		return err
	}
	v.regs[d.A] = val
	return nil
}

func (v *VM) execAmend(d DecodedInstruction) error {
	target := v.regs[d.A]
	offset := v.regs[d.B]
	val := v.regs[d.C]
	if err := v.st.amend(target, offset, val); err != nil {
		return err
	}
	if target == 0 {
		v.dc.invalidate(offset, val)
	}
	return nil
}

func (v *VM) execAdd(d DecodedInstruction) error {
	v.regs[d.A] = v.regs[d.B] + v.regs[d.C]
	return nil
}

func (v *VM) execMul(d DecodedInstruction) error {
	v.regs[d.A] = v.regs[d.B] * v.regs[d.C]
	return nil
}

func (v *VM) execDiv(d DecodedInstruction) error {
	if v.regs[d.C] == 0 {
		return errDivByZero
	}
	v.regs[d.A] = v.regs[d.B] / v.regs[d.C]
	return nil
}

func (v *VM) execNand(d DecodedInstruction) error {
	v.regs[d.A] = ^(v.regs[d.B] & v.regs[d.C])
	return nil
}

func (v *VM) execHalt(d DecodedInstruction) error {
	v.running = false
	return nil
}

func (v *VM) execAlloc(d DecodedInstruction) error {
	id := v.st.alloc(v.regs[d.C])
	v.regs[d.B] = id
	return nil
}

func (v *VM) execAbandon(d DecodedInstruction) error {
	return v.st.free(v.regs[d.C])
}

func (v *VM) execOut(d DecodedInstruction) error {
	val := v.regs[d.C]
	if val > 255 {
		return errByteRange
	}
	return v.io.WriteByte(byte(val))
}

func (v *VM) execIn(d DecodedInstruction) error {
	b, eof, skip, err := v.io.ReadByte()
	if err != nil {
		return err
	}
	if skip {
		return nil
	}
	if eof {
		v.regs[d.C] = 0xFFFFFFFF
		return nil
	}
	v.regs[d.C] = Word(b)
	return nil
}

func (v *VM) execLoad(d DecodedInstruction) error {
	src := v.regs[d.B]
	if src != 0 {
		// Non-zero source: duplicate the array and install it as array 0,
		// then fully rebuild the decode cache.
		if err := v.st.loadZero(src); err != nil {
			return err
		}
		v.dc.rebuild(v.st.zero())
	}
	// src == 0 is a pure jump: no copy, no cache rebuild. Treating it as a
	// no-op self-copy would be quadratically slow on a large array 0, since
	// a guest's own dispatch loop commonly uses exactly this form.
	v.finger = v.regs[d.C]
	return nil
}

func (v *VM) execOrth(d DecodedInstruction) error {
	v.regs[d.S] = d.Imm
	return nil
}

var (
	errDivByZero = fmtError("division by zero")
	errByteRange = fmtError("output value exceeds a single byte (0..255)")
)

type fmtError string

func (e fmtError) Error() string { return string(e) }
