package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/boundvariable/um/driver"
	"github.com/boundvariable/um/vm"
)

func newTestChannel(input string) (*Channel, *bytes.Buffer) {
	var out bytes.Buffer
	c := New(strings.NewReader(input), &out, nil, nil)
	v := vm.New(c, nil)
	v.LoadProgram(vm.Array{0})
	c.Bind(v)
	return c, &out
}

func TestReadByteQueueTakesPriorityOverTerminal(t *testing.T) {
	c, _ := newTestChannel("from terminal\n")
	c.queue = []byte("Q")

	b, eof, skip, err := c.ReadByte()
	if err != nil || eof || skip {
		t.Fatalf("b=%d eof=%v skip=%v err=%v", b, eof, skip, err)
	}
	if b != 'Q' {
		t.Fatalf("got %q, want queued byte Q", b)
	}
	if len(c.queue) != 0 {
		t.Fatalf("queue should be drained by one byte, has %d left", len(c.queue))
	}
}

func TestReadByteTerminalLineIsQueuedThenDrained(t *testing.T) {
	c, _ := newTestChannel("hi\n")

	var got []byte
	for i := 0; i < 3; i++ {
		b, eof, skip, err := c.ReadByte()
		if err != nil || eof || skip {
			t.Fatalf("iteration %d: b=%d eof=%v skip=%v err=%v", i, b, eof, skip, err)
		}
		got = append(got, b)
	}
	if string(got) != "hi\n" {
		t.Fatalf("got %q, want %q", got, "hi\n")
	}
}

func TestReadByteEOFOnEmptyInput(t *testing.T) {
	c, _ := newTestChannel("")
	_, eof, skip, err := c.ReadByte()
	if err != nil || skip || !eof {
		t.Fatalf("expected clean eof, got eof=%v skip=%v err=%v", eof, skip, err)
	}
}

func TestReadByteDotCommandSkipsWithoutEnqueuing(t *testing.T) {
	c, out := newTestChannel(".reg\nhello\n")

	_, eof, skip, err := c.ReadByte()
	if err != nil || eof || !skip {
		t.Fatalf("expected skip=true for a dot-command line, got eof=%v skip=%v err=%v", eof, skip, err)
	}
	if !strings.Contains(out.String(), "finger=") {
		t.Fatalf(".reg should have printed register state, got %q", out.String())
	}
	if len(c.queue) != 0 {
		t.Fatalf("a dot-command must not enqueue any bytes, queue=%q", c.queue)
	}

	b, eof, skip, err := c.ReadByte()
	if err != nil || eof || skip {
		t.Fatalf("following line should be a normal read: b=%d eof=%v skip=%v err=%v", b, eof, skip, err)
	}
	if b != 'h' {
		t.Fatalf("got %q, want 'h' from the following hello line", b)
	}
}

func TestReadByteDriverTakesPriorityOverTerminal(t *testing.T) {
	c, _ := newTestChannel("from terminal\n")
	reg := driver.NewRegistry()
	reg.Register("scripted", func(string) (driver.Driver, error) {
		return &scriptedDriver{lines: []string{"from driver"}}, nil
	})
	if err := c.Attach(reg, "scripted", ""); err != nil {
		t.Fatalf("attach: %v", err)
	}

	b, eof, skip, err := c.ReadByte()
	if err != nil || eof || skip {
		t.Fatalf("b=%d eof=%v skip=%v err=%v", b, eof, skip, err)
	}
	if b != 'f' {
		t.Fatalf("got %q, want 'f' from 'from driver'", b)
	}
}

func TestReadByteDriverDetachFallsBackToTerminal(t *testing.T) {
	c, _ := newTestChannel("fallback\n")
	reg := driver.NewRegistry()
	reg.Register("done", func(string) (driver.Driver, error) {
		return &scriptedDriver{lines: nil}, nil
	})
	if err := c.Attach(reg, "done", ""); err != nil {
		t.Fatalf("attach: %v", err)
	}

	b, eof, skip, err := c.ReadByte()
	if err != nil || eof || skip {
		t.Fatalf("b=%d eof=%v skip=%v err=%v", b, eof, skip, err)
	}
	if b != 'f' {
		t.Fatalf("got %q, want 'f' from the terminal fallback line", b)
	}
	if c.drv != nil {
		t.Fatalf("driver should have detached once it ran out of lines")
	}
}

func TestAttachDiscardsStaleOutputAndSeedsBootstrap(t *testing.T) {
	c, _ := newTestChannel("")
	if err := c.WriteByte('x'); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := c.WriteByte('y'); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := c.sinceLastInput.String(); got != "" {
		t.Fatalf("sinceLastInput before attach = %q, want %q (nothing accumulates while no driver is attached)", got, "")
	}

	var seen string
	reg := driver.NewRegistry()
	reg.Register("recorder", func(string) (driver.Driver, error) {
		return &recordingDriver{}, nil
	})
	if err := c.Attach(reg, "recorder", "bootstrap text"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	rd := c.drv.(*recordingDriver)

	if _, _, _, err := c.ReadByte(); err != nil {
		t.Fatalf("readbyte: %v", err)
	}
	seen = rd.sawFirst
	if seen != "bootstrap text" {
		t.Fatalf("driver's first Drive() saw %q, want only the bootstrap text %q (stale pre-attach output must not leak through)", seen, "bootstrap text")
	}
}

func TestWriteByteTracksLastLineAndResetsOnNewline(t *testing.T) {
	c, out := newTestChannel("")
	for _, b := range []byte("ab") {
		if err := c.WriteByte(b); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if string(c.lastLine) != "ab" {
		t.Fatalf("lastLine = %q, want %q", c.lastLine, "ab")
	}
	if out.String() != "ab" {
		t.Fatalf("terminal output = %q, want %q", out.String(), "ab")
	}
	if err := c.WriteByte('\n'); err != nil {
		t.Fatalf("write newline: %v", err)
	}
	if len(c.lastLine) != 0 {
		t.Fatalf("lastLine should reset on newline, got %q", c.lastLine)
	}
}

func TestHandleCommandUnknownFallsBackToHelp(t *testing.T) {
	c, out := newTestChannel("")
	c.handleCommand(".bogus")
	s := out.String()
	if !strings.Contains(s, "unknown command") || !strings.Contains(s, "commands:") {
		t.Fatalf("expected an unknown-command notice followed by help, got %q", s)
	}
}

type recordingDriver struct {
	sawFirst string
	called   bool
}

func (d *recordingDriver) Drive(chunk string) (string, bool) {
	if !d.called {
		d.called = true
		d.sawFirst = chunk
	}
	return "ack", false
}

func (d *recordingDriver) Log(string) {}

type scriptedDriver struct {
	lines []string
	i     int
}

func (d *scriptedDriver) Drive(_ string) (string, bool) {
	if d.i >= len(d.lines) {
		return "", false
	}
	line := d.lines[d.i]
	d.i++
	return line, true
}

func (d *scriptedDriver) Log(string) {}
