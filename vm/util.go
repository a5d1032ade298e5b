package vm

import "fmt"

// hex32 formats a value the way RuntimeError messages render the finger:
// upper-case, no leading zeros trimmed away.
func hex32(v uint32) string {
	return fmt.Sprintf("%08X", v)
}
