package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/basjoofan-go/fan/internal/fan"
	"github.com/basjoofan-go/fan/internal/record"
)

// TestOptions configures one invocation of Test. Name selects a single
// named test to run as a bounded load: repeated for Number iterations
// across Threads workers, or continuously until Duration elapses if
// Number is zero. An empty Name instead runs every declared test once
// each, concurrently, per spec §5's plain "run the suite" mode.
type TestOptions struct {
	Name           string
	Threads        int
	Duration       time.Duration
	Number         int
	Path           string
	Ext            string
	RecordDir      string
	Stat           bool
	ConnectTimeout time.Duration
}

// Test drives one or more compiled tests to completion, per spec §5/§7.
func (d *Driver) Test(ctx context.Context, opts TestOptions) error {
	if opts.ConnectTimeout > 0 {
		d.ConnectTimeout = opts.ConnectTimeout
	}
	text, err := CollectSource(opts.Path, opts.Ext)
	if err != nil {
		return err
	}
	c, opcodes, consts, src, err := d.compile(text)
	if err != nil {
		return err
	}

	base := d.newVM(opcodes, consts, c.GlobalsCount())
	if err := base.Run(); err != nil {
		return err
	}
	globals := base.CloneGlobals(c.GlobalsCount())

	taskID := uuid.NewString()

	var stats *Stats
	var statsCh chan record.Record
	if opts.Stat {
		stats = NewStats()
		statsCh = make(chan record.Record, 256)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for rec := range statsCh {
				stats.Observe(rec)
			}
		}()
		defer func() {
			close(statsCh)
			<-done
			stats.Print(d.Stdout)
		}()
	}

	if opts.Name != "" {
		idx, ok := c.ResolveGlobal(opts.Name)
		if !ok {
			return fmt.Errorf("undefined test: %s", opts.Name)
		}
		return d.runLoad(ctx, opts, consts, globals, idx, taskID, statsCh)
	}
	return d.runSuite(src, consts, globals, c, taskID, statsCh)
}

// runLoad repeatedly invokes the test at global slot idx across
// opts.Threads worker goroutines, bounded by opts.Number (split evenly
// across workers) or opts.Duration, whichever is given; it stops early and
// cooperatively once the context is cancelled. Every worker VM shares the
// same constants pool by reference (closures still point into it) but gets
// its own globals snapshot and its own stack, per spec §9's worker model.
func (d *Driver) runLoad(ctx context.Context, opts TestOptions, consts []fan.Value, globals []fan.Value, idx int, taskID string, statsCh chan<- record.Record) error {
	threads := opts.Threads
	if threads < 1 {
		threads = 1
	}

	var stopping atomic.Bool
	if opts.Duration > 0 {
		timer := time.AfterFunc(opts.Duration, func() { stopping.Store(true) })
		defer timer.Stop()
	}
	if opts.Number == 0 && opts.Duration == 0 {
		// Neither bound given: one pass per worker, matching "just run it".
		opts.Number = threads
	}

	perThread := 0
	if opts.Number > 0 {
		perThread = opts.Number / threads
		if perThread < 1 {
			perThread = 1
		}
	}

	group, gctx := errgroup.WithContext(ctx)
	for w := 0; w < threads; w++ {
		worker := w
		group.Go(func() error {
			vm := fan.NewVM(nil, consts, len(globals))
			vm.Stdout = d.Stdout
			vm.SeedGlobals(globals)
			fn := vm.Global(idx)

			for i := 0; perThread == 0 || i < perThread; i++ {
				select {
				case <-gctx.Done():
					return nil
				default:
				}
				if stopping.Load() {
					return nil
				}
				if err := d.runOnce(vm, fn, taskID, worker, i, opts, statsCh); err != nil {
					d.printError(err)
					return nil
				}
			}
			return nil
		})
	}
	return group.Wait()
}

// runSuite runs every declared test once each, concurrently, with no
// looping or record persistence beyond what each test's own assertions
// print — matching the plain "run the suite" entrypoint in spec §5.
func (d *Driver) runSuite(src *fan.Source, consts []fan.Value, globals []fan.Value, c *fan.Compiler, taskID string, statsCh chan<- record.Record) error {
	names := make([]string, 0, len(src.Tests))
	for name := range src.Tests {
		names = append(names, name)
	}
	sort.Strings(names)

	group := new(errgroup.Group)
	for n, name := range names {
		idx, ok := c.ResolveGlobal(name)
		if !ok {
			continue
		}
		number := n
		group.Go(func() error {
			vm := fan.NewVM(nil, consts, len(globals))
			vm.Stdout = d.Stdout
			vm.SeedGlobals(globals)
			if err := d.runOnce(vm, vm.Global(idx), taskID, 0, number, TestOptions{RecordDir: ""}, statsCh); err != nil {
				d.printError(err)
			}
			return nil
		})
	}
	return group.Wait()
}

// runOnce invokes fn once, collecting any emitted record via the VM's
// OnRecord hook, then persists it (if opts.RecordDir is set) and/or
// forwards it to the stats channel (if non-nil).
func (d *Driver) runOnce(vm *fan.VM, fn fan.Value, taskID string, worker, iteration int, opts TestOptions, statsCh chan<- record.Record) error {
	var recs []record.Record
	vm.OnRecord = func(name string, asserts []fan.Value, result fan.Value) {
		recs = append(recs, valueToRecord(name, asserts, result))
	}

	if _, err := vm.CallClosure(fn, nil); err != nil {
		return err
	}

	if len(recs) == 0 {
		return nil
	}

	if opts.RecordDir != "" {
		if err := d.persist(recs, opts.RecordDir, taskID, worker, iteration); err != nil {
			return err
		}
	}
	if statsCh != nil {
		for _, rec := range recs {
			statsCh <- rec
		}
	}
	return nil
}

// persist writes one worker iteration's records to its own file under dir,
// named per record.FileName (POD-prefixed per spec §6) and keyed by this
// run's taskID plus a worker-iteration number for uniqueness.
func (d *Driver) persist(recs []record.Record, dir, taskID string, worker, iteration int) error {
	number := fmt.Sprintf("%d-%d", worker, iteration)
	name := record.FileName(os.Getenv("POD"), taskID, number)
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := record.NewWriter(f)
	if err != nil {
		return err
	}
	return w.Write(recs, recs[0].Name, taskID, number)
}
