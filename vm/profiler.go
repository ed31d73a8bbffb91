package vm

import (
	"sort"
	"sync"
	"sync/atomic"
)

// CallProfile holds the call count of one function.
type CallProfile struct {
	Name   string
	Native bool
	Calls  uint64
	IsHot  bool
}

type callCounter struct {
	native bool
	calls  atomic.Uint64
	hot    atomic.Bool
}

// Profiler counts calls per function across the runs of a VM. It is safe
// for concurrent use.
type Profiler struct {
	counters sync.Map // qualified name -> *callCounter

	// HotThreshold is the call count at which a function is reported hot.
	HotThreshold uint64

	// OnHot is called once per function when it crosses HotThreshold.
	OnHot func(fn *FunctionRef, calls uint64)

	hotCount atomic.Uint64
}

// NewProfiler creates a profiler with the default threshold.
func NewProfiler() *Profiler {
	return &Profiler{HotThreshold: 1000}
}

// RecordCall counts one call of fn. It returns true when this call made
// the function hot.
func (p *Profiler) RecordCall(fn *FunctionRef) bool {
	if fn == nil {
		return false
	}
	val, _ := p.counters.LoadOrStore(fn.QualifiedName(), &callCounter{native: fn.IsNative()})
	c := val.(*callCounter)

	n := c.calls.Add(1)
	if n >= p.HotThreshold && c.hot.CompareAndSwap(false, true) {
		p.hotCount.Add(1)
		if p.OnHot != nil {
			p.OnHot(fn, n)
		}
		return true
	}
	return false
}

// Calls returns the call count recorded for a qualified function name.
func (p *Profiler) Calls(name string) uint64 {
	if val, ok := p.counters.Load(name); ok {
		return val.(*callCounter).calls.Load()
	}
	return 0
}

// HotCount returns how many functions are hot.
func (p *Profiler) HotCount() uint64 {
	return p.hotCount.Load()
}

// Report lists every called function, most called first.
func (p *Profiler) Report() []CallProfile {
	var out []CallProfile
	p.counters.Range(func(key, val any) bool {
		c := val.(*callCounter)
		out = append(out, CallProfile{
			Name:   key.(string),
			Native: c.native,
			Calls:  c.calls.Load(),
			IsHot:  c.hot.Load(),
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Calls != out[j].Calls {
			return out[i].Calls > out[j].Calls
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Reset clears all counts.
func (p *Profiler) Reset() {
	p.counters.Range(func(key, _ any) bool {
		p.counters.Delete(key)
		return true
	})
	p.hotCount.Store(0)
}
