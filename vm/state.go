package vm

// State is the full serialisable content of a VM instance: everything the
// snapshot codec needs and nothing it doesn't. Finger is stored here
// un-biased; the snapshot package applies its own finger-1 wire convention
// at encode/decode time so that the bias stays a wire-format concern, not a
// VM-state concern.
type State struct {
	Finger         Word
	NextID         Word
	Regs           [8]Word
	Arrays         map[Word]Array
	LastOutputLine []byte
}

// Export captures the current VM state for snapshotting.
func (v *VM) Export(lastOutputLine []byte) State {
	arrays := make(map[Word]Array, v.st.count())
	v.st.forEach(func(id Word, a Array) {
		cp := make(Array, len(a))
		copy(cp, a)
		arrays[id] = cp
	})
	return State{
		Finger:         v.finger,
		NextID:         v.st.nextID,
		Regs:           v.regs,
		Arrays:         arrays,
		LastOutputLine: lastOutputLine,
	}
}

// Import replaces the VM's entire state with s and rebuilds the decode
// cache from the restored array 0.
func (v *VM) Import(s State) error {
	if _, ok := s.Arrays[0]; !ok {
		return &LoaderError{Reason: "snapshot has no array 0"}
	}
	arrays := make(map[Word]Array, len(s.Arrays))
	for id, a := range s.Arrays {
		cp := make(Array, len(a))
		copy(cp, a)
		arrays[id] = cp
	}
	v.st.arrays = arrays
	v.st.nextID = s.NextID
	v.regs = s.Regs
	v.finger = s.Finger
	v.running = true
	v.dc.rebuild(v.st.zero())
	return nil
}
