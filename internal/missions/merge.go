package missions

import "github.com/pathwaylabs/engage/internal/domain"

// Delta carries the authoritative fields of a completion response that
// are merged into the local mission list.
type Delta struct {
	PointsAwarded int
	PointsTotal   int
	CallUnlocked  bool
	NextMission   *domain.Mission
}

// Merge applies a completion delta to the local mission list and returns
// a new list. The completed mission is marked completed with its artifact
// recorded; every other mission keeps its local state, so a completion is
// never reverted by a stale delta. A next mission whose id already exists
// locally is skipped, otherwise it is appended with missing optional
// fields normalised.
func Merge(local []domain.Mission, completedID, answer string, delta Delta) []domain.Mission {
	out := make([]domain.Mission, len(local))
	copy(out, local)

	var completed *domain.Mission
	for i := range out {
		if out[i].ID == completedID {
			out[i].Status = domain.MissionCompleted
			out[i].Artifact = domain.MissionArtifact{Answer: answer}
			completed = &out[i]
			break
		}
	}

	if delta.NextMission == nil {
		return out
	}
	for i := range out {
		if out[i].ID == delta.NextMission.ID {
			return out
		}
	}

	next := *delta.NextMission
	if next.Status == "" {
		next.Status = domain.MissionPending
	}
	if next.Type == "" && completed != nil {
		next.Type = completed.Type
	}
	return append(out, next)
}
