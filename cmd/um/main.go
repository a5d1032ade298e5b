// Command um is the front end for the Universal Machine: `run <file>`,
// `asm <file>`, `load <file>`. It follows a familiar CLI shape — package
// flag, per-register override flags built in init(), a log.SetFlags(0)-style
// plain progress log — fitted to UM's three subcommands and its 8-register,
// array-of-arrays model.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/boundvariable/um/asm"
	"github.com/boundvariable/um/console"
	"github.com/boundvariable/um/driver"
	"github.com/boundvariable/um/internal/autosave"
	"github.com/boundvariable/um/internal/logging"
	"github.com/boundvariable/um/snapshot"
	"github.com/boundvariable/um/vm"
)

var (
	maxCycles   = flag.Int("cycles", 0, "Maximum number of instructions to execute (0 = unlimited).")
	backupDir   = flag.String("backup", "", "Directory for periodic autosave snapshots (empty disables autosave).")
	driverName  = flag.String("driver", "", "Name of a driver to attach at startup.")
	driverArgs  = flag.String("driver-args", "", "Bootstrap argument string passed to -driver.")
	verboseLogs = flag.Bool("v", false, "Enable debug-level logging.")

	regs [8]string
)

func init() {
	for i := 0; i < 8; i++ {
		flag.StringVar(&regs[i], fmt.Sprintf("r%d", i), "", fmt.Sprintf("Initial value for register %d (hex).", i))
	}
}

func main() {
	log.SetFlags(0)
	flag.Parse()

	if flag.NArg() < 2 {
		log.Println("Usage: um [options] <run|asm|load> <file>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cmd, filename := flag.Arg(0), flag.Arg(1)

	level := slog.LevelInfo
	if *verboseLogs {
		level = slog.LevelDebug
	}
	logger := logging.New(os.Stderr, level)

	var err error
	switch cmd {
	case "run":
		err = runProgram(filename, logger)
	case "asm":
		var out string
		if flag.NArg() >= 3 {
			out = flag.Arg(2)
		}
		err = assembleFile(filename, out)
	case "load":
		err = loadSnapshot(filename, logger)
	default:
		log.Fatalf("unknown command %q: expected run, asm, or load", cmd)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func runProgram(filename string, logger *slog.Logger) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}
	prog, err := bytesToProgram(data)
	if err != nil {
		return err
	}

	registry := buildRegistry()
	ch := console.New(os.Stdin, os.Stdout, registry, logger)
	v := vm.New(ch, logger)
	ch.Bind(v)

	v.LoadProgram(prog)
	if err := setInitialRegisters(v); err != nil {
		return err
	}
	if *backupDir != "" {
		ch.SetAutosave(autosave.New(*backupDir, time.Minute, 15*time.Minute, logger))
	}
	if *driverName != "" {
		if err := attachDriver(ch, registry, *driverName, *driverArgs); err != nil {
			return err
		}
	}

	return runToHalt(v, logger)
}

func loadSnapshot(filename string, logger *slog.Logger) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	state, err := snapshot.Load(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	registry := buildRegistry()
	ch := console.New(os.Stdin, os.Stdout, registry, logger)
	v := vm.New(ch, logger)
	ch.Bind(v)
	if err := v.Import(state); err != nil {
		return err
	}

	return runToHalt(v, logger)
}

func runToHalt(v *vm.VM, logger *slog.Logger) error {
	executed, err := v.Run(*maxCycles)
	if err != nil {
		return fmt.Errorf("execution failed after %d instructions: %w", executed, err)
	}
	if *maxCycles > 0 && executed >= *maxCycles && v.Running() {
		logger.Info("stopped: cycle limit reached", "cycles", executed)
		return nil
	}
	logger.Info("halted", "cycles", executed)
	return nil
}

func assembleFile(filename, outfile string) error {
	src, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	code, err := asm.Assemble(string(src))
	if err != nil {
		return fmt.Errorf("assembly failed: %w", err)
	}
	if outfile == "" {
		for i, b := range code {
			fmt.Printf("%02X ", b)
			if (i+1)%16 == 0 {
				fmt.Println()
			}
		}
		fmt.Println()
		return nil
	}
	return os.WriteFile(outfile, code, 0o644)
}

func bytesToProgram(data []byte) (vm.Array, error) {
	if len(data)%4 != 0 {
		return nil, &vm.LoaderError{Reason: fmt.Sprintf("program file size %d is not a multiple of 4", len(data))}
	}
	prog := make(vm.Array, len(data)/4)
	for i := range prog {
		w := uint32(data[i*4])<<24 | uint32(data[i*4+1])<<16 | uint32(data[i*4+2])<<8 | uint32(data[i*4+3])
		prog[i] = vm.Word(w)
	}
	return prog, nil
}

func setInitialRegisters(v *vm.VM) error {
	for i, s := range regs {
		if s == "" {
			continue
		}
		val, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 32)
		if err != nil {
			return fmt.Errorf("invalid value for r%d: %w", i, err)
		}
		v.SetRegister(i, vm.Word(val))
	}
	return nil
}

func buildRegistry() *driver.Registry {
	// No concrete solvers ship with this repo; the registry exists so
	// `-driver`/`.slv` have something to attach to once a caller
	// registers one.
	return driver.NewRegistry()
}

func attachDriver(ch *console.Channel, registry *driver.Registry, name, bootstrap string) error {
	if err := ch.Attach(registry, name, bootstrap); err != nil {
		return fmt.Errorf("attaching driver %q: %w", name, err)
	}
	return nil
}
