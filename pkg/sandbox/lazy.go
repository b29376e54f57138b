package sandbox

import "context"

// Lazy defers opening a sandbox until something actually needs the engine.
// Close releases it if it was opened and is a no-op otherwise.
type Lazy struct {
	seed SampleData
	opts []Option
	sb   *Sandbox
	err  error
}

// NewLazy returns a Lazy that seeds with seed on first use
func NewLazy(seed SampleData, opts ...Option) *Lazy {
	return &Lazy{seed: seed, opts: opts}
}

// Get opens and seeds the sandbox on the first call and returns the same
// instance, or the same error, afterwards.
func (l *Lazy) Get(ctx context.Context) (*Sandbox, error) {
	if l.sb != nil || l.err != nil {
		return l.sb, l.err
	}
	sb, err := Open(ctx, l.opts...)
	if err != nil {
		l.err = err
		return nil, err
	}
	if err := sb.Seed(ctx, l.seed); err != nil {
		sb.Close()
		l.err = err
		return nil, err
	}
	l.sb = sb
	return sb, nil
}

// Opened reports whether Get has created the engine
func (l *Lazy) Opened() bool {
	return l.sb != nil
}

// Close releases the sandbox if one was opened
func (l *Lazy) Close() error {
	if l.sb == nil {
		return nil
	}
	err := l.sb.Close()
	l.sb = nil
	return err
}
