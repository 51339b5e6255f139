package nant

// refTracer tracks the chain of rule references being loaded, so circular
// file set references are reported rather than looping forever.
type refTracer struct {
	trace []string
	m     map[string]bool
}

func newRefTracer() *refTracer {
	return &refTracer{m: make(map[string]bool)}
}

// push adds a name to the chain. It returns false when the name is already
// on the chain, which means a reference cycle.
func (t *refTracer) push(name string) bool {
	if t.m[name] {
		return false
	}
	t.trace = append(t.trace, name)
	t.m[name] = true
	return true
}

func (t *refTracer) pop() {
	n := len(t.trace)
	if n == 0 {
		return
	}
	last := t.trace[n-1]
	delete(t.m, last)
	t.trace = t.trace[:n-1]
}

func (t *refTracer) stack() []string { return t.trace }
