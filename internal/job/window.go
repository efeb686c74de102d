package job

// WindowSet names the schedules whose start and end were spelled out in the
// job files, keyed by job name and schedule name. Every other schedule keeps
// the window the store holds.
type WindowSet map[string]map[string]bool

// Add marks the schedule of jobName as carrying a window.
func (w WindowSet) Add(jobName, schedule string) {
	if w[jobName] == nil {
		w[jobName] = make(map[string]bool)
	}
	w[jobName][schedule] = true
}

// Has reports whether the schedule of jobName carries a window. A nil set
// has none.
func (w WindowSet) Has(jobName, schedule string) bool {
	return w[jobName][schedule]
}

// Merge adds every entry of o to w.
func (w WindowSet) Merge(o WindowSet) {
	for jobName, schedules := range o {
		for name := range schedules {
			w.Add(jobName, name)
		}
	}
}

// Any reports whether at least one schedule carries a window.
func (w WindowSet) Any() bool {
	for _, schedules := range w {
		if len(schedules) > 0 {
			return true
		}
	}
	return false
}
