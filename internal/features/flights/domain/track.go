package domain

import "sort"

// MergeTracks combines a persisted position sequence with newly fetched
// positions into one deduplicated sequence sorted ascending by timestamp.
// The first sample seen for a given timestamp wins; the merge is
// idempotent: MergeTracks(MergeTracks(a, b), b) == MergeTracks(a, b).
func MergeTracks(existing, incoming []PositionSample) []PositionSample {
	seen := make(map[int64]struct{}, len(existing))
	merged := make([]PositionSample, 0, len(existing)+len(incoming))

	for _, s := range existing {
		if _, ok := seen[s.Timestamp.UnixNano()]; ok {
			continue
		}
		seen[s.Timestamp.UnixNano()] = struct{}{}
		merged = append(merged, s)
	}

	for _, s := range incoming {
		if _, ok := seen[s.Timestamp.UnixNano()]; ok {
			continue
		}
		seen[s.Timestamp.UnixNano()] = struct{}{}
		merged = append(merged, s)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	return merged
}
