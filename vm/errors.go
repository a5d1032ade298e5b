package vm

import "fmt"

// RuntimeError is a fatal error raised by an opcode handler. It names the
// opcode, its operands, and the finger at failure, and is a typed error
// callers can errors.As instead of matching strings. Failures of fetch itself
// are reported as InvalidFingerError or DecodeOpError instead.
type RuntimeError struct {
	Op      Op
	Operand [3]Word
	Finger  Word
	Reason  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("executing %s %d %d %d at %s: %s",
		e.Op, e.Operand[0], e.Operand[1], e.Operand[2], hex32(uint32(e.Finger)), e.Reason)
}

// InvalidFingerError is raised when the finger points outside array 0.
type InvalidFingerError struct {
	Finger Word
}

func (e *InvalidFingerError) Error() string {
	return fmt.Sprintf("invalid finger at %s", hex32(uint32(e.Finger)))
}

// DecodeOpError is raised when the finger reaches a word whose opcode is
// unrecognised. Such a word may sit in the decode cache harmlessly for as
// long as the finger never lands on it.
type DecodeOpError struct {
	Finger Word
	Cause  error
}

func (e *DecodeOpError) Error() string {
	return fmt.Sprintf("%s at %s", e.Cause, hex32(uint32(e.Finger)))
}

func (e *DecodeOpError) Unwrap() error {
	return e.Cause
}

// LoaderError covers program-file and snapshot-file loader failures: bad
// file size, bad magic, unsupported snapshot version.
type LoaderError struct {
	Reason string
}

func (e *LoaderError) Error() string {
	return e.Reason
}
