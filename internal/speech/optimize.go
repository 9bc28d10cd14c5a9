package speech

// Optimize consolidates a unit list. Adjacent units with the same speaker
// index are merged (texts concatenated without separator, lengths summed),
// blank units that are not pause markers are dropped, the list is merged
// again so that pauses brought together by stripping collapse, and finally
// every pause is capped at maxPauseMs when maxPauseMs > 0.
//
// The input slice is not modified. Optimize is idempotent.
func Optimize(units []Unit, maxPauseMs int) []Unit {
	merged := mergeAdjacent(units)

	kept := make([]Unit, 0, len(merged))
	for _, u := range merged {
		if u.IsBlank() && !u.IsPause() {
			continue
		}
		kept = append(kept, u)
	}

	result := mergeAdjacent(kept)

	if maxPauseMs > 0 {
		for i := range result {
			if result[i].IsPause() && result[i].MinLengthMs > maxPauseMs {
				result[i].MinLengthMs = maxPauseMs
			}
		}
	}

	return result
}

func mergeAdjacent(units []Unit) []Unit {
	result := make([]Unit, 0, len(units))
	for _, u := range units {
		if n := len(result); n > 0 && result[n-1].sameSpeaker(u) {
			prev := result[n-1]
			result[n-1] = NewUnit(prev.Text+u.Text, prev.SpeakerIndex, prev.MinLengthMs+u.MinLengthMs)
			continue
		}
		result = append(result, u)
	}
	return result
}
