package asm

import "fmt"

// opSpec describes one mnemonic's operand shape: which positions are
// registers (in A,B,C order) and whether the mnemonic takes an immediate
// instead (orth only).
type opSpec struct {
	op       uint32
	regCount int // number of register operands; operandSlots maps them onto A,B,C
	hasImm   bool
}

var opSpecs = map[string]opSpec{
	"cmov":    {op: 0, regCount: 3},
	"index":   {op: 1, regCount: 3},
	"amend":   {op: 2, regCount: 3},
	"add":     {op: 3, regCount: 3},
	"mul":     {op: 4, regCount: 3},
	"div":     {op: 5, regCount: 3},
	"nand":    {op: 6, regCount: 3},
	"halt":    {op: 7, regCount: 0},
	"alloc":   {op: 8, regCount: 2}, // fills B, C
	"abandon": {op: 9, regCount: 1}, // fills C
	"out":     {op: 10, regCount: 1},
	"in":      {op: 11, regCount: 1},
	"load":    {op: 12, regCount: 2}, // fills B, C
	"orth":    {op: 13, regCount: 1, hasImm: true},
}

func encodeInstruction(n node, labels map[string]uint32) (uint32, error) {
	spec, ok := opSpecs[n.mnemnic]
	if !ok {
		return 0, fmt.Errorf("unknown mnemonic %q", n.mnemnic)
	}

	if spec.hasImm {
		return encodeOrth(n, labels)
	}

	wantOperands := spec.regCount
	if len(n.operand) != wantOperands {
		return 0, fmt.Errorf("%s: expected %d operand(s), got %d", n.mnemnic, wantOperands, len(n.operand))
	}

	regs := make([]uint8, 3)
	// Register-count-to-slot mapping: alloc/load only name B and C (no
	// A), abandon/out/in only name C.
	slots := operandSlots(n.mnemnic, spec.regCount)
	for i, operand := range n.operand {
		r, err := parseRegister(operand)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", n.mnemnic, err)
		}
		regs[slots[i]] = r
	}

	word := spec.op<<28 | uint32(regs[0])<<6 | uint32(regs[1])<<3 | uint32(regs[2])
	return word, nil
}

// operandSlots maps the i-th written operand to its register slot
// (0=A,1=B,2=C) for mnemonics whose opcode doesn't use all three.
func operandSlots(mnemonic string, count int) []int {
	switch mnemonic {
	case "alloc", "load":
		return []int{1, 2} // B, C
	case "abandon", "out", "in":
		return []int{2} // C
	default:
		return []int{0, 1, 2}[:count]
	}
}

func encodeOrth(n node, labels map[string]uint32) (uint32, error) {
	if len(n.operand) != 2 {
		return 0, fmt.Errorf("orth: expected register, value")
	}
	s, err := parseRegister(n.operand[0])
	if err != nil {
		return 0, fmt.Errorf("orth: %w", err)
	}
	v, err := parseValue(n.operand[1], labels)
	if err != nil {
		return 0, fmt.Errorf("orth: %w", err)
	}
	if v > 0x01FFFFFF {
		return 0, fmt.Errorf("orth: immediate %d exceeds 25 bits", v)
	}
	return 13<<28 | uint32(s)<<25 | v&0x01FFFFFF, nil
}
