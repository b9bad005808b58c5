package customs

// Window is a log of event timestamps in epoch milliseconds, oldest first.
type Window []int64

// Trim drops entries that fall outside the window ending at now. It scans from
// the newest entry backwards and stops at the first entry outside the window or
// once limit+1 entries are retained, so the cost is bounded by limit no matter how
// long the log is. Older entries past that point are left for a later call.
func (w *Window) Trim(now, windowMs int64, limit int) {
	log := *w
	if len(log) == 0 {
		return
	}

	i := len(log) - 1
	n := 0
	for i >= 0 && log[i] > now-windowMs && n <= limit {
		i--
		n++
	}
	*w = log[i+1:]
}

// Filter keeps only the entries newer than now-windowMs, scanning the whole log.
func (w *Window) Filter(now, windowMs int64) {
	cutoff := now - windowMs
	kept := make(Window, 0, len(*w))
	for _, ts := range *w {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}
	*w = kept
}

// CountSince returns how many entries are newer than now-windowMs without
// modifying the log.
func (w Window) CountSince(now, windowMs int64) int {
	cutoff := now - windowMs
	n := 0
	for _, ts := range w {
		if ts > cutoff {
			n++
		}
	}
	return n
}

// Add appends an occurrence at now. Entries are never merged or deduplicated.
func (w *Window) Add(now int64) {
	*w = append(*w, now)
}

// Over reports whether the log holds strictly more than limit entries.
func (w Window) Over(limit int) bool {
	return len(w) > limit
}

// Last returns the newest entry, or false when the log is empty.
func (w Window) Last() (int64, bool) {
	if len(w) == 0 {
		return 0, false
	}
	return w[len(w)-1], true
}

// Reset empties the log.
func (w *Window) Reset() {
	*w = Window{}
}
