package state

// Clone returns a deep copy of the run for use as an outcome snapshot, so
// callers can inspect or persist state without racing the engine's next
// mutation.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	out := *r

	out.History = make([]HistoryEntry, len(r.History))
	copy(out.History, r.History)
	for i, entry := range r.History {
		if entry.Metadata != nil {
			md := make(map[string]any, len(entry.Metadata))
			for k, v := range entry.Metadata {
				md[k] = v
			}
			out.History[i].Metadata = md
		}
	}

	if r.Metrics.Errors != nil {
		out.Metrics.Errors = append([]string(nil), r.Metrics.Errors...)
	}
	if r.Metrics.TimeToFirstPR != nil {
		v := *r.Metrics.TimeToFirstPR
		out.Metrics.TimeToFirstPR = &v
	}
	if r.Metrics.TimeToMerge != nil {
		v := *r.Metrics.TimeToMerge
		out.Metrics.TimeToMerge = &v
	}
	if r.Metrics.CleanupSuccess != nil {
		v := *r.Metrics.CleanupSuccess
		out.Metrics.CleanupSuccess = &v
	}
	if r.Metadata.CompletedAt != nil {
		v := *r.Metadata.CompletedAt
		out.Metadata.CompletedAt = &v
	}

	if r.Config != nil {
		cfg := make(map[string]any, len(r.Config))
		for k, v := range r.Config {
			cfg[k] = v
		}
		out.Config = cfg
	}

	return &out
}
