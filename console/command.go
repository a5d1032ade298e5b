package console

import (
	"fmt"
	"os"
	"strings"
)

// dotCommand is one entry in the meta-command table, built on the
// {name, process} table shape of rcornwell/S370's command/parser
// package — simplified here since line completion and abbreviation
// matching are front-end concerns this repo doesn't own.
type dotCommand struct {
	name    string
	help    string
	process func(c *Channel, args []string)
}

// dotCommands is filled in by init rather than by a package-level
// initializer, because cmdHelp lists dotCommands and a static initializer
// would make that an initialization cycle.
var dotCommands []dotCommand

func init() {
	dotCommands = []dotCommand{
		{"help", "list commands", (*Channel).cmdHelp},
		{"halt", "mark VM halted; returns to main", (*Channel).cmdHalt},
		{"reg", "print finger and 8 registers", (*Channel).cmdReg},
		{"arr", "print number and sizes of allocated arrays", (*Channel).cmdArr},
		{"save", "write snapshot (default state.ums)", (*Channel).cmdSave},
		{"load", "read snapshot, replace VM state, resume", (*Channel).cmdLoad},
		{"bin", "redirect subsequent out bytes to file (default dump.um); cannot be stopped", (*Channel).cmdBin},
		{"slv", "attach the named driver; no args lists them", (*Channel).cmdSlv},
	}
}

// handleCommand dispatches a line already known to start with '.'. Unknown
// command names fall through to `.help`: unreadable input is always
// reported and help is shown, never treated as fatal.
func (c *Channel) handleCommand(line string) {
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		c.cmdHelp(nil)
		return
	}
	name, args := fields[0], fields[1:]

	for _, dc := range dotCommands {
		if dc.name == name {
			dc.process(c, args)
			return
		}
	}
	fmt.Fprintf(c.termOut, "unknown command %q\n", name)
	c.cmdHelp(nil)
}

func (c *Channel) cmdHelp(_ []string) {
	fmt.Fprintln(c.termOut, "commands:")
	for _, dc := range dotCommands {
		fmt.Fprintf(c.termOut, "  .%-5s %s\n", dc.name, dc.help)
	}
}

func (c *Channel) cmdHalt(_ []string) {
	c.v.RequestHalt()
}

func (c *Channel) cmdReg(_ []string) {
	regs := c.v.Registers()
	fmt.Fprintf(c.termOut, "finger=%08X", uint32(c.v.Finger()))
	for i, r := range regs {
		fmt.Fprintf(c.termOut, " r%d=%08X", i, uint32(r))
	}
	fmt.Fprintln(c.termOut)
}

func (c *Channel) cmdArr(_ []string) {
	lengths := c.v.ArrayLengths()
	fmt.Fprintf(c.termOut, "%d arrays\n", c.v.ArrayCount())
	for id, length := range lengths {
		fmt.Fprintf(c.termOut, "  #%d: %d words\n", id, length)
	}
}

func (c *Channel) cmdSave(args []string) {
	path := DefaultSnapshotFile
	if len(args) > 0 {
		path = args[0]
	}
	if err := c.saveSnapshot(path); err != nil {
		fmt.Fprintf(c.termOut, "save failed: %s\n", err)
		return
	}
	fmt.Fprintf(c.termOut, "saved to %s\n", path)
}

func (c *Channel) cmdLoad(args []string) {
	path := DefaultSnapshotFile
	if len(args) > 0 {
		path = args[0]
	}
	if err := c.loadSnapshot(path); err != nil {
		fmt.Fprintf(c.termOut, "load failed: %s\n", err)
		return
	}
	fmt.Fprintf(c.termOut, "loaded %s\n", path)
}

// cmdBin starts (or restarts) a binary output redirect; the original
// reference's docstring for this command is explicit that it "cannot be
// stopped," so there is no argument or form of this command that clears an
// active redirect. With no filename it falls back to DefaultBinFile.
func (c *Channel) cmdBin(args []string) {
	path := DefaultBinFile
	if len(args) > 0 {
		path = args[0]
	}
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(c.termOut, "bin failed: %s\n", err)
		return
	}
	if c.outFile != nil {
		c.outFile.Close()
	}
	c.outFile = f
	fmt.Fprintf(c.termOut, "out now redirected to %s\n", path)
}

func (c *Channel) cmdSlv(args []string) {
	if len(args) == 0 {
		names := c.registry.Names()
		if len(names) == 0 {
			fmt.Fprintln(c.termOut, "no drivers registered")
			return
		}
		fmt.Fprintln(c.termOut, "drivers:")
		for _, n := range names {
			fmt.Fprintf(c.termOut, "  %s\n", n)
		}
		return
	}

	name := args[0]
	bootstrap := strings.Join(args[1:], " ")
	if err := c.Attach(c.registry, name, bootstrap); err != nil {
		fmt.Fprintf(c.termOut, "attach failed: %s\n", err)
		return
	}
	fmt.Fprintf(c.termOut, "attached driver %s\n", name)
}
