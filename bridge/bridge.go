// Package bridge exposes checkers, interactors and their readers through a
// flat, primitive-only API suitable for a foreign call surface.
//
// Instances are referred to by opaque handles. Owning handles come from the
// create calls and must be released exactly once; sub-handles returned by the
// accessors belong to their parent and disappear with it.
//
// Tokens and lines are delivered with a two-phase protocol: the caller passes
// a buffer, and if the value plus its NUL terminator does not fit, the
// required size is returned and the value stays pending on that handle until
// a large enough buffer is supplied. Pending values are kept per handle.
//
// Contract violations end the check the same way as in package contract: the
// verdict is raised as a panic toward the top-level handler. Handle misuse
// and read failures are raised as *errors.Error faults.
package bridge

import (
	"bufio"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wave-testlib/errors"
	"github.com/wippyai/wave-testlib/floatcmp"
	"github.com/wippyai/wave-testlib/internal/logging"
	"github.com/wippyai/wave-testlib/judge"
	"github.com/wippyai/wave-testlib/resource"
)

// Handle is an opaque instance reference. 0 is never a valid handle.
type Handle = resource.Handle

// Config supplies the owning instances. Construction from paths and
// arguments happens outside the bridge.
type Config struct {
	OpenChecker    func() (*judge.Checker, error)
	OpenInteractor func() (*judge.Interactor, error)
}

// Bridge is the registry behind the flat API.
type Bridge struct {
	cfg         Config
	table       *resource.Table
	pending     map[Handle]string
	mu          sync.Mutex
	unsubscribe func()
}

// New creates a bridge with an empty handle table.
func New(cfg Config) *Bridge {
	b := &Bridge{
		cfg:     cfg,
		table:   resource.NewTable(),
		pending: make(map[Handle]string),
	}
	b.unsubscribe = b.table.Subscribe(resource.ObserverFunc(b.onEvent))
	return b
}

func (b *Bridge) onEvent(e resource.Event) {
	if e.Type == resource.EventDropped {
		b.mu.Lock()
		delete(b.pending, e.Handle)
		b.mu.Unlock()
	}
	if ce := logging.Logger().Check(zap.DebugLevel, "handle "+e.Type.String()); ce != nil {
		ce.Write(
			zap.Uint32("handle", uint32(e.Handle)),
			zap.Uint32("parent", uint32(e.Parent)),
			zap.Stringer("type", e.TypeID),
		)
	}
}

// Live returns the number of live handles, sub-handles included.
func (b *Bridge) Live() int {
	return b.table.Len()
}

// Close releases every instance still registered.
func (b *Bridge) Close() error {
	b.table.Each(func(h Handle, typeID resource.TypeID, _ any) bool {
		if typeID == resource.TypeChecker || typeID == resource.TypeInteractor {
			logging.Logger().Debug("instance released at close",
				zap.Uint32("handle", uint32(h)),
				zap.Stringer("type", typeID))
		}
		return true
	})
	b.table.Clear()
	b.unsubscribe()
	return b.table.Close()
}

// checkerEntry is the table value behind a checker handle. Sub-handles are
// created on first access and then reused.
type checkerEntry struct {
	c    *judge.Checker
	subs [3]Handle
}

func (e *checkerEntry) Drop() { e.c.Drop() }

type interactorEntry struct {
	it   *judge.Interactor
	subs [4]Handle
}

func (e *interactorEntry) Drop() { e.it.Drop() }

// CheckerCreate opens a checker and returns its owning handle.
func (b *Bridge) CheckerCreate() Handle {
	if b.cfg.OpenChecker == nil {
		panic(errors.InvalidInput(errors.PhaseBridge, "no checker source configured"))
	}
	c, err := b.cfg.OpenChecker()
	if err != nil {
		panic(err)
	}
	return b.insert(resource.TypeChecker, &checkerEntry{c: c})
}

// CheckerRelease releases a checker and every sub-handle derived from it.
func (b *Bridge) CheckerRelease(h Handle) {
	b.release(h, resource.TypeChecker)
}

// CheckerInput returns the sub-handle of the checker's input reader.
func (b *Bridge) CheckerInput(h Handle) Handle {
	e := lookup[*checkerEntry](b, h, resource.TypeChecker)
	return b.sub(h, &e.subs[0], resource.TypeReader, e.c.Input)
}

// CheckerAnswer returns the sub-handle of the reference answer reader.
func (b *Bridge) CheckerAnswer(h Handle) Handle {
	e := lookup[*checkerEntry](b, h, resource.TypeChecker)
	return b.sub(h, &e.subs[1], resource.TypeReader, e.c.Answer)
}

// CheckerOutput returns the sub-handle of the candidate output reader.
func (b *Bridge) CheckerOutput(h Handle) Handle {
	e := lookup[*checkerEntry](b, h, resource.TypeChecker)
	return b.sub(h, &e.subs[2], resource.TypeReader, e.c.Output)
}

// InteractorCreate opens an interactor and returns its owning handle.
func (b *Bridge) InteractorCreate() Handle {
	if b.cfg.OpenInteractor == nil {
		panic(errors.InvalidInput(errors.PhaseBridge, "no interactor source configured"))
	}
	it, err := b.cfg.OpenInteractor()
	if err != nil {
		panic(err)
	}
	return b.insert(resource.TypeInteractor, &interactorEntry{it: it})
}

// InteractorRelease flushes and releases an interactor and its sub-handles.
func (b *Bridge) InteractorRelease(h Handle) {
	b.release(h, resource.TypeInteractor)
}

// InteractorInput returns the sub-handle of the interactor's input reader.
func (b *Bridge) InteractorInput(h Handle) Handle {
	e := lookup[*interactorEntry](b, h, resource.TypeInteractor)
	return b.sub(h, &e.subs[0], resource.TypeReader, e.it.Input)
}

// InteractorAnswer returns the sub-handle of the answer reader.
func (b *Bridge) InteractorAnswer(h Handle) Handle {
	e := lookup[*interactorEntry](b, h, resource.TypeInteractor)
	return b.sub(h, &e.subs[1], resource.TypeReader, e.it.Answer)
}

// InteractorReadEnd returns the sub-handle of the reader attached to the candidate's output.
func (b *Bridge) InteractorReadEnd(h Handle) Handle {
	e := lookup[*interactorEntry](b, h, resource.TypeInteractor)
	return b.sub(h, &e.subs[2], resource.TypeReader, e.it.ReadEnd)
}

// InteractorWriteEnd returns the sub-handle of the writer feeding the candidate.
func (b *Bridge) InteractorWriteEnd(h Handle) Handle {
	e := lookup[*interactorEntry](b, h, resource.TypeInteractor)
	return b.sub(h, &e.subs[3], resource.TypeWriter, e.it.WriteEnd)
}

func (b *Bridge) insert(typeID resource.TypeID, v any) Handle {
	h := b.table.Insert(typeID, v)
	if h == 0 {
		if d, ok := v.(resource.Dropper); ok {
			d.Drop()
		}
		panic(errors.InvalidInput(errors.PhaseBridge, "bridge is closed"))
	}
	return h
}

func (b *Bridge) release(h Handle, typeID resource.TypeID) {
	if _, err := b.table.Remove(h, typeID); err != nil {
		panic(err)
	}
}

func (b *Bridge) sub(parent Handle, slot *Handle, typeID resource.TypeID, v any) Handle {
	if *slot != 0 {
		return *slot
	}
	h, err := b.table.InsertChild(parent, typeID, v)
	if err != nil {
		panic(err)
	}
	*slot = h
	return h
}

// lookup resolves h to its instance or raises a fault.
func lookup[T any](b *Bridge, h Handle, typeID resource.TypeID) T {
	v, err := b.table.Lookup(h, typeID)
	if err != nil {
		panic(err)
	}
	return v.(T)
}

// CompareFloat returns the ordering code of actual against expected. The Rust
// wave_test_lib's wave_cmp_fp returns the opposite sign for the same arguments.
func (b *Bridge) CompareFloat(actual, expected, tolerance float64) int32 {
	return floatcmp.Compare(actual, expected, tolerance).Code()
}

// CompareStrings returns the byte-wise ordering code of x against y.
func (b *Bridge) CompareStrings(x, y string) int32 {
	return floatcmp.CompareStrings(x, y).Code()
}

// EqualStrings returns 1 if the strings are equal, 0 otherwise.
func (b *Bridge) EqualStrings(x, y string, ignoreCase bool) int32 {
	return boolCode(floatcmp.EqualStrings(x, y, ignoreCase))
}

func boolCode(v bool) int32 {
	if v {
		return 1
	}
	return 0
}

// Write appends data to a writer handle and returns the number of bytes written.
func (b *Bridge) Write(h Handle, data []byte) uint32 {
	w := lookup[*bufio.Writer](b, h, resource.TypeWriter)
	n, err := w.Write(data)
	if err != nil {
		panic(errors.New(errors.PhaseBridge, errors.KindIO).Handle(uint32(h)).Cause(err).Detail("write").Build())
	}
	return uint32(n)
}

// Flush sends buffered bytes of a writer handle.
func (b *Bridge) Flush(h Handle) {
	w := lookup[*bufio.Writer](b, h, resource.TypeWriter)
	if err := w.Flush(); err != nil {
		panic(errors.New(errors.PhaseBridge, errors.KindIO).Handle(uint32(h)).Cause(err).Detail("flush").Build())
	}
}
