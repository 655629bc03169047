package process

// DebuggeeThread is owned exclusively by its DebuggeeProcess.
type DebuggeeThread struct {
	id     int
	halted bool
}

func (t *DebuggeeThread) ID() int { return t.id }

func (t *DebuggeeThread) IsHalted() bool { return t.halted }

// addThread registers a thread id, tolerating repeats. Caller holds the
// lock.
func (p *DebuggeeProcess) addThread(id int) *DebuggeeThread {
	if t, ok := p.threads[id]; ok {
		return t
	}
	t := &DebuggeeThread{id: id}
	p.threads[id] = t
	return t
}

// removeThread drops a thread; removing the halted thread clears the
// halted marker. Caller holds the lock.
func (p *DebuggeeProcess) removeThread(id int) {
	t, ok := p.threads[id]
	if !ok {
		return
	}
	if p.halted == t {
		p.halted = nil
	}
	delete(p.threads, id)
}

// setHalted moves the halted marker to t. Caller holds the lock.
func (p *DebuggeeProcess) setHalted(t *DebuggeeThread) {
	if p.halted != nil {
		p.halted.halted = false
	}
	p.halted = t
	if t != nil {
		t.halted = true
	}
}
