package orchestrator

// SlotCount reports how many sessions hold a send slot.
func (o *Orchestrator) SlotCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.slots)
}
