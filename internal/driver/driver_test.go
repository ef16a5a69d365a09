package driver

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/basjoofan-go/fan/internal/record"
)

func newTestDriver() (*Driver, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Driver{Stdout: &buf}, &buf
}

func TestEvalPrintsTerminalValue(t *testing.T) {
	d, out := newTestDriver()
	d.Eval("1 + 2")
	if out.String() != "3\n" {
		t.Fatalf("Eval output = %q, want %q", out.String(), "3\n")
	}
}

func TestEvalPrintsCompileError(t *testing.T) {
	d, out := newTestDriver()
	d.Eval("let = 1")
	if out.Len() == 0 {
		t.Fatal("expected an error message, got no output")
	}
}

func TestRunCollectsDirectorySource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.fan"), []byte("let x = 1;\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.fan"), []byte("x + 1"), 0644); err != nil {
		t.Fatal(err)
	}
	d, out := newTestDriver()
	d.Run(dir, DefaultExt)
	if out.String() != "2\n" {
		t.Fatalf("Run output = %q, want %q", out.String(), "2\n")
	}
}

func TestStatsObserveAndPrint(t *testing.T) {
	s := NewStats()
	s.Observe(record.Record{Name: "login", Time: record.Time{Total: 10_000_000}})
	s.Observe(record.Record{Name: "login", Time: record.Time{Total: 30_000_000}})
	s.Observe(record.Record{Name: "login", Time: record.Time{Total: 20_000_000}, Error: "timeout"})

	var buf bytes.Buffer
	s.Print(&buf)

	want := "login\tcount=3\tavg=20.000ms\tmax=30.000ms\tmin=10.000ms\tfailed=1\n"
	if buf.String() != want {
		t.Fatalf("Print output = %q, want %q", buf.String(), want)
	}
}

func TestStatsFailedAssertion(t *testing.T) {
	s := NewStats()
	s.Observe(record.Record{
		Name: "check",
		Time: record.Time{Total: 5_000_000},
		Asserts: []record.Assert{
			{Expr: "status == 200", Result: false},
		},
	})
	var buf bytes.Buffer
	s.Print(&buf)
	if buf.String() != "check\tcount=1\tavg=5.000ms\tmax=5.000ms\tmin=5.000ms\tfailed=1\n" {
		t.Fatalf("unexpected stats output: %q", buf.String())
	}
}
