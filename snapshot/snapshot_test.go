package snapshot_test

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/boundvariable/um/snapshot"
	"github.com/boundvariable/um/vm"
)

func sampleState() vm.State {
	return vm.State{
		Finger: 42,
		NextID: 7,
		Regs:   [8]vm.Word{1, 2, 3, 4, 5, 6, 7, 8},
		Arrays: map[vm.Word]vm.Array{
			0: {10, 20, 30},
			1: {},
			3: {0xFFFFFFFF},
		},
		LastOutputLine: []byte("hello"),
	}
}

func statesEqual(a, b vm.State) bool {
	if a.Finger != b.Finger || a.NextID != b.NextID || a.Regs != b.Regs {
		return false
	}
	if !bytes.Equal(a.LastOutputLine, b.LastOutputLine) {
		return false
	}
	if len(a.Arrays) != len(b.Arrays) {
		return false
	}
	for id, arr := range a.Arrays {
		other, ok := b.Arrays[id]
		if !ok || len(arr) != len(other) {
			return false
		}
		for i := range arr {
			if arr[i] != other[i] {
				return false
			}
		}
	}
	return true
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := sampleState()
	var buf bytes.Buffer
	if err := snapshot.Save(&buf, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := snapshot.Load(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !statesEqual(s, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", s, got)
	}
}

func TestSaveAlwaysEmitsVersion3(t *testing.T) {
	var buf bytes.Buffer
	if err := snapshot.Save(&buf, sampleState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw := buf.Bytes()
	if len(raw) < 4 {
		t.Fatalf("snapshot too short")
	}
	if string(raw[:3]) != "umS" {
		t.Fatalf("bad magic: % X", raw[:3])
	}
	if raw[3] != 3 {
		t.Fatalf("version = %d, want 3", raw[3])
	}
	gz, err := gzip.NewReader(bytes.NewReader(raw[4:]))
	if err != nil {
		t.Fatalf("payload after the header is not gzip: %v", err)
	}
	if _, err := io.ReadAll(gz); err != nil {
		t.Fatalf("reading gzip stream: %v", err)
	}
}

func TestFingerBiasConvention(t *testing.T) {
	s := sampleState()
	s.Finger = 100
	var buf bytes.Buffer
	if err := snapshot.Save(&buf, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(buf.Bytes()[4:]))
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	var fingerBias [4]byte
	if _, err := io.ReadFull(gz, fingerBias[:]); err != nil {
		t.Fatalf("reading finger bias: %v", err)
	}
	got := uint32(fingerBias[0])<<24 | uint32(fingerBias[1])<<16 | uint32(fingerBias[2])<<8 | uint32(fingerBias[3])
	if got != 99 {
		t.Fatalf("stored finger bias = %d, want finger-1 = 99", got)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	_, err := snapshot.Load(bytes.NewReader([]byte{'x', 'y', 'z', 3}))
	if err == nil {
		t.Fatalf("expected bad-magic error")
	}
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	_, err := snapshot.Load(bytes.NewReader([]byte{'u', 'm', 'S', 9}))
	if err == nil {
		t.Fatalf("expected unsupported-version error")
	}
}

// TestLoadVersion1HasNoLastOutputLine checks that v1 payloads (no
// last-output-line section) decode cleanly with an empty line.
func TestLoadVersion1HasNoLastOutputLine(t *testing.T) {
	s := sampleState()
	s.LastOutputLine = nil

	// Hand-encode a v1 payload: no gzip wrapper, no last-output-line.
	var payload bytes.Buffer
	writeU32Test(&payload, uint32(s.Finger-1))
	writeU32Test(&payload, uint32(s.NextID))
	for _, r := range s.Regs {
		writeU32Test(&payload, uint32(r))
	}
	writeU32Test(&payload, uint32(len(s.Arrays)))
	for id := vm.Word(0); id < 4; id++ {
		arr, ok := s.Arrays[id]
		if !ok {
			continue
		}
		writeU32Test(&payload, uint32(id))
		writeU32Test(&payload, uint32(len(arr)))
		for _, w := range arr {
			writeU32Test(&payload, uint32(w))
		}
	}

	var full bytes.Buffer
	full.WriteString("umS")
	full.WriteByte(1)
	full.Write(payload.Bytes())

	got, err := snapshot.Load(&full)
	if err != nil {
		t.Fatalf("load v1: %v", err)
	}
	if len(got.LastOutputLine) != 0 {
		t.Fatalf("v1 snapshot should decode with no last-output-line, got %q", got.LastOutputLine)
	}
}

func writeU32Test(w io.Writer, v uint32) {
	b := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	w.Write(b[:])
}
