package kernel

// critical is an interrupt-masked region. Release it with exit, usually
// deferred so every return path unmasks.
type critical struct {
	port  Port
	state uint32
}

func enterCritical(p Port) critical {
	return critical{port: p, state: p.DisableInterrupts()}
}

func (c critical) exit() {
	c.port.RestoreInterrupts(c.state)
}
