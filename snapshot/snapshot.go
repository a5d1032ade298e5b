// Package snapshot implements the versioned, optionally gzip-wrapped VM
// state file. It operates purely on vm.State and knows nothing about decode
// caches, channels, or drivers, the same way a big-endian wire-format
// encoder stays independent of the decoder that consumes its output.
package snapshot

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/boundvariable/um/vm"
)

var magic = [3]byte{0x75, 0x6D, 0x53} // "umS"

// CurrentVersion is always emitted by Save.
const CurrentVersion = 3

// Save writes s to w as a version-3 snapshot: magic, version byte, then a
// gzip stream wrapping exactly the bytes a version-2 save would have
// produced for the same state. The last output line is carried as raw
// bytes since the last newline, preserved byte-for-byte rather than
// re-encoded as text.
func Save(w io.Writer, s vm.State) error {
	var payload bytes.Buffer
	if err := encodePayload(&payload, s, true); err != nil {
		return err
	}

	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{CurrentVersion}); err != nil {
		return err
	}
	gz := gzip.NewWriter(w)
	if _, err := gz.Write(payload.Bytes()); err != nil {
		return err
	}
	return gz.Close()
}

// Load reads a snapshot of any supported version (1, 2, or 3) and returns
// the reconstructed state.
func Load(r io.Reader) (vm.State, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return vm.State{}, &vm.LoaderError{Reason: fmt.Sprintf("snapshot: short header: %s", err)}
	}
	if hdr[0] != magic[0] || hdr[1] != magic[1] || hdr[2] != magic[2] {
		return vm.State{}, &vm.LoaderError{Reason: "snapshot: bad magic"}
	}
	version := hdr[3]
	if version < 1 || version > 3 {
		return vm.State{}, &vm.LoaderError{Reason: fmt.Sprintf("snapshot: unsupported version %d", version)}
	}

	body := r
	if version >= 3 {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return vm.State{}, &vm.LoaderError{Reason: fmt.Sprintf("snapshot: gzip: %s", err)}
		}
		defer gz.Close()
		body = gz
	}

	return decodePayload(body, version)
}

func encodePayload(w io.Writer, s vm.State, withLastLine bool) error {
	fingerBias := uint32(s.Finger - 1)
	if err := writeU32(w, fingerBias); err != nil {
		return err
	}
	if err := writeU32(w, uint32(s.NextID)); err != nil {
		return err
	}
	for _, r := range s.Regs {
		if err := writeU32(w, uint32(r)); err != nil {
			return err
		}
	}

	ids := make([]vm.Word, 0, len(s.Arrays))
	for id := range s.Arrays {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if err := writeU32(w, uint32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		arr := s.Arrays[id]
		if err := writeU32(w, uint32(id)); err != nil {
			return err
		}
		if err := writeU32(w, uint32(len(arr))); err != nil {
			return err
		}
		for _, word := range arr {
			if err := writeU32(w, uint32(word)); err != nil {
				return err
			}
		}
	}

	if withLastLine {
		if err := writeU32(w, uint32(len(s.LastOutputLine))); err != nil {
			return err
		}
		if _, err := w.Write(s.LastOutputLine); err != nil {
			return err
		}
	}
	return nil
}

func decodePayload(r io.Reader, version byte) (vm.State, error) {
	fingerBias, err := readU32(r)
	if err != nil {
		return vm.State{}, err
	}
	nextID, err := readU32(r)
	if err != nil {
		return vm.State{}, err
	}

	var regs [8]vm.Word
	for i := range regs {
		v, err := readU32(r)
		if err != nil {
			return vm.State{}, err
		}
		regs[i] = vm.Word(v)
	}

	count, err := readU32(r)
	if err != nil {
		return vm.State{}, err
	}

	arrays := make(map[vm.Word]vm.Array, count)
	for i := uint32(0); i < count; i++ {
		id, err := readU32(r)
		if err != nil {
			return vm.State{}, err
		}
		length, err := readU32(r)
		if err != nil {
			return vm.State{}, err
		}
		arr := make(vm.Array, length)
		for j := range arr {
			w, err := readU32(r)
			if err != nil {
				return vm.State{}, err
			}
			arr[j] = vm.Word(w)
		}
		arrays[vm.Word(id)] = arr
	}

	var lastLine []byte
	if version >= 2 {
		n, err := readU32(r)
		if err != nil {
			return vm.State{}, err
		}
		lastLine = make([]byte, n)
		if _, err := io.ReadFull(r, lastLine); err != nil {
			return vm.State{}, &vm.LoaderError{Reason: fmt.Sprintf("snapshot: short last-output-line: %s", err)}
		}
	}

	return vm.State{
		Finger:         vm.Word(fingerBias) + 1,
		NextID:         vm.Word(nextID),
		Regs:           regs,
		Arrays:         arrays,
		LastOutputLine: lastLine,
	}, nil
}

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, &vm.LoaderError{Reason: fmt.Sprintf("snapshot: short read: %s", err)}
	}
	return binary.BigEndian.Uint32(b[:]), nil
}
