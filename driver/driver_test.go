package driver_test

import (
	"errors"
	"testing"

	"github.com/boundvariable/um/driver"
)

type stubDriver struct {
	lines []string
	i     int
	log   []string
}

func (s *stubDriver) Drive(_ string) (string, bool) {
	if s.i >= len(s.lines) {
		return "", false
	}
	line := s.lines[s.i]
	s.i++
	return line, true
}

func (s *stubDriver) Log(message string) {
	s.log = append(s.log, message)
}

func TestRegistryNamesPreservesRegistrationOrder(t *testing.T) {
	r := driver.NewRegistry()
	r.Register("zeta", func(string) (driver.Driver, error) { return &stubDriver{}, nil })
	r.Register("alpha", func(string) (driver.Driver, error) { return &stubDriver{}, nil })
	r.Register("mid", func(string) (driver.Driver, error) { return &stubDriver{}, nil })

	got := r.Names()
	want := []string{"zeta", "alpha", "mid"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRegistryReRegisterKeepsOriginalPosition(t *testing.T) {
	r := driver.NewRegistry()
	first := &stubDriver{lines: []string{"first"}}
	second := &stubDriver{lines: []string{"second"}}
	r.Register("a", func(string) (driver.Driver, error) { return first, nil })
	r.Register("b", func(string) (driver.Driver, error) { return second, nil })
	r.Register("a", func(string) (driver.Driver, error) { return second, nil })

	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("re-registering a should keep its position, got %v", names)
	}

	d, err, ok := r.Build("a", "")
	if !ok || err != nil {
		t.Fatalf("build a: ok=%v err=%v", ok, err)
	}
	if d != second {
		t.Fatalf("re-registration should have replaced the constructor")
	}
}

func TestRegistryBuildUnknownName(t *testing.T) {
	r := driver.NewRegistry()
	_, _, ok := r.Build("nope", "")
	if ok {
		t.Fatalf("expected ok=false for an unregistered driver name")
	}
}

func TestRegistryBuildPropagatesConstructorError(t *testing.T) {
	r := driver.NewRegistry()
	wantErr := errors.New("boom")
	r.Register("broken", func(string) (driver.Driver, error) { return nil, wantErr })

	_, err, ok := r.Build("broken", "")
	if !ok {
		t.Fatalf("expected ok=true; the name is registered even though construction fails")
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("got err %v, want %v", err, wantErr)
	}
}

func TestRegistryBuildPassesBootstrapString(t *testing.T) {
	r := driver.NewRegistry()
	var gotBootstrap string
	r.Register("echo", func(bootstrap string) (driver.Driver, error) {
		gotBootstrap = bootstrap
		return &stubDriver{}, nil
	})
	if _, _, ok := r.Build("echo", "hello world"); !ok {
		t.Fatalf("build failed")
	}
	if gotBootstrap != "hello world" {
		t.Fatalf("bootstrap = %q, want %q", gotBootstrap, "hello world")
	}
}
