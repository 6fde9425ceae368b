package stream

// FuncStream adapts a plain run function into a Stream: calling Start
// runs fn exactly once in its own goroutine, passing the Core it
// should drive with Ready/Message/Complete/Error.
type FuncStream struct {
	core *Core
	run  func(*Core)
}

// NewFunc returns a Stream whose Start invokes run(core) in its own
// goroutine. run is responsible for eventually delivering exactly one
// terminal event via the Core it receives.
func NewFunc(run func(core *Core)) *FuncStream {
	return &FuncStream{core: NewCore(), run: run}
}

// Core returns the underlying Core, letting a caller register a
// cancellation hook before Start is invoked.
func (f *FuncStream) Core() *Core { return f.core }

func (f *FuncStream) Start() {
	f.core.Start(func() { f.run(f.core) })
}

func (f *FuncStream) Cancel() { f.core.Cancel() }

func (f *FuncStream) Events() <-chan Event { return f.core.Events() }
