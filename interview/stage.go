package interview

import "github.com/krshsl/hireagent/backend/models"

// Stage is the point of the conversation a session is paused at.
type Stage int

const (
	// StageClosed: the interview has finished.
	StageClosed Stage = iota
	// StageGreeting: no question has been asked yet.
	StageGreeting
	// StageSkills: asked for skills, waiting for them.
	StageSkills
	// StageReadiness: skills noted, waiting for the applicant to be ready.
	StageReadiness
	// StageResume: questions already asked but the applicant has not confirmed to continue.
	StageResume
	// StageInterview: questions are being asked and answered.
	StageInterview
)

var stageNames = map[Stage]string{
	StageClosed:    "closed",
	StageGreeting:  "greeting",
	StageSkills:    "skills",
	StageReadiness: "readiness",
	StageResume:    "resume",
	StageInterview: "interview",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// StageOf computes the stage of a session snapshot. Exactly one stage applies
// to every combination of fields; a finished session is always closed.
func StageOf(s *models.Session) Stage {
	switch {
	case s.Final:
		return StageClosed
	case s.NQuestions == 0 && s.LastQuestion == nil:
		return StageGreeting
	case s.NQuestions == 0 && s.LastAnswer == nil:
		return StageSkills
	case s.NQuestions == 0 && !s.Ready:
		return StageReadiness
	case s.NQuestions != 0 && !s.Ready:
		return StageResume
	default:
		return StageInterview
	}
}
