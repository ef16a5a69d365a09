// Package driver supervises compiled fan programs: it is C10 from the
// design — eval/run/test/repl entrypoints, concurrent test-iteration
// workers, cooperative cancellation, stats aggregation, and wiring the
// http() native to the HTTP engine (C8) and the record container (C9).
package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/basjoofan-go/fan/internal/fan"
	"github.com/basjoofan-go/fan/internal/httpengine"
)

// Driver holds the process-wide state shared by every entrypoint: where
// human-readable output goes and how long an HTTP send may take to
// connect before giving up.
type Driver struct {
	Stdout         io.Writer
	ConnectTimeout time.Duration
}

// New returns a Driver writing to os.Stdout with the engine's default
// connect timeout, and wires the http() native once — the native registry
// is process-wide per spec §4.7/§9, so this must happen exactly once
// regardless of how many programs this Driver goes on to run.
func New() *Driver {
	d := &Driver{Stdout: os.Stdout, ConnectTimeout: httpengine.DefaultConnectTimeout}
	fan.SetHTTPNative(d.httpNative())
	return d
}

// httpNative is the host-provided implementation of the language's one
// suspending native: it turns a raw request message into an
// httpengine.Request, performs the send, and packages the outcome back
// into the {request,response,time,error} map the language expects,
// per spec §4.7/§4.8. It never returns a Go error for an HTTP failure —
// only for a malformed call (wrong argument shape), per the engine's
// failure-isolation contract in spec §7.
func (d *Driver) httpNative() fan.NativeFunc {
	return func(vm *fan.VM, args []fan.Value) (fan.Value, error) {
		if len(args) != 1 || args[0].Type != fan.StringType {
			return fan.Null, fmt.Errorf("http: want a single string message")
		}
		req := httpengine.ParseMessage(args[0].String)
		resp, timing, errText := httpengine.Send(context.Background(), req, d.ConnectTimeout)
		return resultToValue(req, resp, timing, errText), nil
	}
}

// compile parses and compiles text into a ready instruction stream,
// keeping the Compiler around so callers can resolve test/request names to
// their global slot after the fact (e.g. to run one named test).
func (d *Driver) compile(text string) (*fan.Compiler, []fan.Opcode, []fan.Value, *fan.Source, error) {
	src, err := fan.NewParser(text).Parse()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	c := fan.NewCompiler()
	opcodes, consts, err := c.Compile(src)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return c, opcodes, consts, src, nil
}

// newVM builds a VM bound to this Driver's Stdout, with a zero globals
// vector of size globalsCount.
func (d *Driver) newVM(opcodes []fan.Opcode, consts []fan.Value, globalsCount int) *fan.VM {
	vm := fan.NewVM(opcodes, consts, globalsCount)
	vm.Stdout = d.Stdout
	return vm
}

func (d *Driver) printError(err error) {
	fmt.Fprintln(d.Stdout, err)
}
