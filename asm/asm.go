// Package asm implements a minimal assembler for UM programs: one
// mnemonic per opcode, register operands written r0..r7, a 25-bit
// immediate for orth, labels, and a .word directive for embedding raw data.
// The shape follows a familiar assembler structure — regexp-driven operand
// parsing, a node/kind split between instructions, labels and data
// directives, a label-resolution pass before encoding — simplified for
// UM's fixed 3-register-operand / 1-immediate instruction set: there are no
// addressing modes to resolve, so label resolution only has to fix up the
// one thing UM assembly can reference positionally, `.word label` and orth
// immediates, in a single linear pass.
package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var reRegister = regexp.MustCompile(`(?i)^r([0-7])$`)
var reLabelDef = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*):$`)

type nodeKind int

const (
	nodeInstruction nodeKind = iota
	nodeLabel
	nodeWords
)

// node is one parsed line: a kind tag plus whichever of label, mnemonic,
// operands or word-list fields that kind uses.
type node struct {
	kind    nodeKind
	label   string
	mnemnic string
	operand []string
	words   []string // operands to a .word directive, resolved in pass 2
	lineNo  int
}

// Assemble turns UM assembly source into a raw big-endian program image
// suitable for Run / LoadProgram.
func Assemble(src string) ([]byte, error) {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")

	nodes, err := parseLines(lines)
	if err != nil {
		return nil, err
	}

	labels := resolveLabels(nodes)

	out := make([]uint32, 0, len(nodes))
	for _, n := range nodes {
		switch n.kind {
		case nodeLabel:
			continue
		case nodeWords:
			for _, w := range n.words {
				val, err := parseValue(w, labels)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", n.lineNo, err)
				}
				out = append(out, val)
			}
		case nodeInstruction:
			word, err := encodeInstruction(n, labels)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n.lineNo, err)
			}
			out = append(out, word)
		}
	}

	raw := make([]byte, len(out)*4)
	for i, w := range out {
		raw[i*4] = byte(w >> 24)
		raw[i*4+1] = byte(w >> 16)
		raw[i*4+2] = byte(w >> 8)
		raw[i*4+3] = byte(w)
	}
	return raw, nil
}

// resolveLabels assigns each label the word-offset of the instruction or
// .word directive that follows it. A fixed-point pass that iterates until
// offsets stop moving would be needed for variable-length encodings, but
// every node here has a constant size (one word per instruction, len(words)
// per directive), so a single linear pass is enough.
func resolveLabels(nodes []node) map[string]uint32 {
	labels := make(map[string]uint32)
	var pc uint32
	for _, n := range nodes {
		switch n.kind {
		case nodeLabel:
			labels[n.label] = pc
		case nodeWords:
			pc += uint32(len(n.words))
		case nodeInstruction:
			pc++
		}
	}
	return labels
}

func parseLines(lines []string) ([]node, error) {
	var nodes []node
	for i, raw := range lines {
		lineNo := i + 1
		line := stripComment(raw)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := reLabelDef.FindStringSubmatch(line); m != nil {
			nodes = append(nodes, node{kind: nodeLabel, label: m[1], lineNo: lineNo})
			continue
		}

		fields := strings.Fields(line)
		mnemonic := strings.ToLower(fields[0])
		if mnemonic == ".word" {
			nodes = append(nodes, node{kind: nodeWords, words: splitOperands(strings.Join(fields[1:], " ")), lineNo: lineNo})
			continue
		}

		var operandStr string
		if len(fields) > 1 {
			operandStr = strings.Join(fields[1:], " ")
		}
		nodes = append(nodes, node{
			kind:    nodeInstruction,
			mnemnic: mnemonic,
			operand: splitOperands(operandStr),
			lineNo:  lineNo,
		})
	}
	return nodes, nil
}

func stripComment(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		return s[:i]
	}
	return s
}

func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseValue parses a numeric literal ($hex, 0x-hex, %binary, decimal) or a
// label reference.
func parseValue(s string, labels map[string]uint32) (uint32, error) {
	if v, ok := labels[s]; ok {
		return v, nil
	}
	s = strings.TrimPrefix(s, "#")
	base := 10
	switch {
	case strings.HasPrefix(s, "$"):
		s, base = s[1:], 16
	case strings.HasPrefix(strings.ToLower(s), "0x"):
		s, base = s[2:], 16
	case strings.HasPrefix(s, "%"):
		s, base = s[1:], 2
	}
	val, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	return uint32(val), nil
}

func parseRegister(s string) (uint8, error) {
	m := reRegister.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("expected register r0..r7, got %q", s)
	}
	n, _ := strconv.Atoi(m[1])
	return uint8(n), nil
}
