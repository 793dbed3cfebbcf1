package domain

// PhaseStatus is the state of a single generation phase.
type PhaseStatus string

// Possible phase status values
const (
	StatusNotStarted PhaseStatus = "not_started"
	StatusInProgress PhaseStatus = "in_progress"
	StatusCompleted  PhaseStatus = "completed"
	StatusFailed     PhaseStatus = "failed"
)

// IsValid reports whether s is one of the known statuses.
func (s PhaseStatus) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the phase will not change again.
func (s PhaseStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Phase names one generation stage of a Song.
type Phase string

const (
	PhaseLyrics Phase = "lyrics"
	PhaseAudio  Phase = "audio"
	PhaseVideo  Phase = "video"
)

// DeriveOverallStatus reduces the three phase statuses to the song's overall
// status:
//
//   - failed if any phase failed
//   - completed if lyrics and audio completed and video completed or not requested
//   - in_progress if any phase left not_started
//   - not_started otherwise
func DeriveOverallStatus(lyrics, audio, video PhaseStatus, videoRequested bool) PhaseStatus {
	if lyrics == StatusFailed || audio == StatusFailed || video == StatusFailed {
		return StatusFailed
	}
	if lyrics == StatusCompleted && audio == StatusCompleted &&
		(video == StatusCompleted || !videoRequested) {
		return StatusCompleted
	}
	if lyrics != StatusNotStarted || audio != StatusNotStarted || video != StatusNotStarted {
		return StatusInProgress
	}
	return StatusNotStarted
}
