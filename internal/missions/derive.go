// Package missions derives mission view-state and performs completions.
package missions

import (
	"strings"

	"github.com/pathwaylabs/engage/internal/domain"
)

// Visual statuses. "in-progress" and "ready" are rendering decisions only;
// the stored status never holds them.
const (
	VisualPending    = "pending"
	VisualInProgress = "in-progress"
	VisualReady      = "ready"
	VisualCompleted  = "completed"
)

// RequiredSeconds holds the per-type time gates.
type RequiredSeconds struct {
	ReadCaseStudy int
	ViewProcess   int
	VapiCall      int
}

// ForType returns the gate for a time-gated mission type, 0 otherwise.
func (r RequiredSeconds) ForType(t domain.MissionType) int {
	switch t {
	case domain.MissionReadCaseStudy:
		return r.ReadCaseStudy
	case domain.MissionViewProcess:
		return r.ViewProcess
	case domain.MissionVapiWebCall:
		return r.VapiCall
	}
	return 0
}

// TimeSource exposes the session accumulators the derivation reads.
// *session.Store satisfies it.
type TimeSource interface {
	CaseStudyTime(id string) int
	ProcessSectionTotal() int
	VapiTime() int
}

// ViewState is the derived per-mission rendering state. It is a pure
// function of the mission, the accumulators and the unsaved input draft.
type ViewState struct {
	IsInputMission         bool
	IsReadCaseStudyMission bool
	IsViewProcessMission   bool
	IsVapiCallMission      bool
	TimeSpent              int
	RequiredSeconds        int
	TimedProgressPct       float64
	VisualStatus           string
}

// isInputMission reports whether the mission expects free-text input.
func isInputMission(m domain.Mission) bool {
	return (m.Type == domain.MissionAdditionalInput || m.Type == domain.MissionChat) &&
		m.Input.Placeholder != ""
}

// isReadCaseStudyMission reports whether the mission gates on a concrete
// case study.
func isReadCaseStudyMission(m domain.Mission) bool {
	return m.Type == domain.MissionReadCaseStudy &&
		m.Options.TargetCaseStudyID != "" &&
		m.Options.TargetCaseStudyID != domain.NoTargetCaseStudy
}

// Derive computes the view state for one mission.
func Derive(m domain.Mission, times TimeSource, draft string, req RequiredSeconds) ViewState {
	vs := ViewState{
		IsInputMission:         isInputMission(m),
		IsReadCaseStudyMission: isReadCaseStudyMission(m),
		IsViewProcessMission:   m.Type == domain.MissionViewProcess,
		IsVapiCallMission:      m.Type == domain.MissionVapiWebCall,
	}

	switch {
	case vs.IsReadCaseStudyMission:
		vs.TimeSpent = times.CaseStudyTime(m.Options.TargetCaseStudyID)
	case vs.IsViewProcessMission:
		vs.TimeSpent = times.ProcessSectionTotal()
	case vs.IsVapiCallMission:
		vs.TimeSpent = times.VapiTime()
	}

	timed := vs.IsReadCaseStudyMission || vs.IsViewProcessMission || vs.IsVapiCallMission
	if timed {
		vs.RequiredSeconds = req.ForType(m.Type)
		if vs.RequiredSeconds > 0 {
			pct := 100 * float64(vs.TimeSpent) / float64(vs.RequiredSeconds)
			if pct > 100 {
				pct = 100
			}
			vs.TimedProgressPct = pct
		}
	}

	switch {
	case m.Completed():
		vs.VisualStatus = VisualCompleted
	case vs.IsInputMission && strings.TrimSpace(draft) != "":
		vs.VisualStatus = VisualInProgress
	case timed && vs.TimeSpent > 0 && vs.TimeSpent < vs.RequiredSeconds:
		vs.VisualStatus = VisualInProgress
	case timed && vs.RequiredSeconds > 0 && vs.TimeSpent >= vs.RequiredSeconds:
		vs.VisualStatus = VisualReady
	default:
		vs.VisualStatus = VisualPending
	}

	return vs
}
