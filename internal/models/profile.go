package models

import (
	"fmt"
	"strings"
)

// CareerStage describes where the user is in their working life.
type CareerStage string

const (
	CareerStageStudent   CareerStage = "student"
	CareerStageEarly     CareerStage = "early"
	CareerStageMid       CareerStage = "mid"
	CareerStageSenior    CareerStage = "senior"
	CareerStageExecutive CareerStage = "executive"
	CareerStageRetired   CareerStage = "retired"
)

// ValidCareerStages is the set of all valid career stages.
var ValidCareerStages = []CareerStage{
	CareerStageStudent,
	CareerStageEarly,
	CareerStageMid,
	CareerStageSenior,
	CareerStageExecutive,
	CareerStageRetired,
}

// IsValid returns true if the career stage is recognized.
func (cs CareerStage) IsValid() bool {
	for _, v := range ValidCareerStages {
		if cs == v {
			return true
		}
	}
	return false
}

// RiskTolerance describes the user's appetite for risk.
type RiskTolerance string

const (
	RiskConservative RiskTolerance = "conservative"
	RiskModerate     RiskTolerance = "moderate"
	RiskAggressive   RiskTolerance = "aggressive"
)

// ValidRiskTolerances is the set of all valid risk tolerances.
var ValidRiskTolerances = []RiskTolerance{
	RiskConservative,
	RiskModerate,
	RiskAggressive,
}

// IsValid returns true if the risk tolerance is recognized.
func (rt RiskTolerance) IsValid() bool {
	for _, v := range ValidRiskTolerances {
		if rt == v {
			return true
		}
	}
	return false
}

// TimeHorizon describes the planning window the user cares about.
type TimeHorizon string

const (
	HorizonShort  TimeHorizon = "short"  // under 2 years
	HorizonMedium TimeHorizon = "medium" // 2-10 years
	HorizonLong   TimeHorizon = "long"   // 10+ years
)

// ValidTimeHorizons is the set of all valid time horizons.
var ValidTimeHorizons = []TimeHorizon{
	HorizonShort,
	HorizonMedium,
	HorizonLong,
}

// IsValid returns true if the time horizon is recognized.
func (th TimeHorizon) IsValid() bool {
	for _, v := range ValidTimeHorizons {
		if th == v {
			return true
		}
	}
	return false
}

// AdviceTone controls how blunt the advisor is allowed to be.
type AdviceTone string

const (
	ToneBlunt    AdviceTone = "blunt"
	ToneBalanced AdviceTone = "balanced"
	ToneGentle   AdviceTone = "gentle"
)

// IsValid returns true if the advice tone is recognized.
func (at AdviceTone) IsValid() bool {
	switch at {
	case ToneBlunt, ToneBalanced, ToneGentle:
		return true
	}
	return false
}

// Profile is the singleton record describing the person being advised.
type Profile struct {
	Name          string        `json:"name"`
	Age           int           `json:"age,omitempty"`
	CareerStage   CareerStage   `json:"career_stage,omitempty"`
	Industry      string        `json:"industry,omitempty"`
	Occupation    string        `json:"occupation,omitempty"`
	RiskTolerance RiskTolerance `json:"risk_tolerance,omitempty"`
	TimeHorizon   TimeHorizon   `json:"time_horizon,omitempty"`
	Dependents    int           `json:"dependents"`
	Tone          AdviceTone    `json:"tone,omitempty"`
	Bio           string        `json:"bio,omitempty"`
}

// Summary renders the profile as compact prose for prompt inclusion.
// Unset fields are omitted rather than rendered as placeholders.
func (p Profile) Summary() string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, fmt.Sprintf("Name: %s", p.Name))
	}
	if p.Age > 0 {
		parts = append(parts, fmt.Sprintf("Age: %d", p.Age))
	}
	if p.Occupation != "" {
		occ := p.Occupation
		if p.Industry != "" {
			occ = fmt.Sprintf("%s (%s)", occ, p.Industry)
		}
		parts = append(parts, fmt.Sprintf("Occupation: %s", occ))
	} else if p.Industry != "" {
		parts = append(parts, fmt.Sprintf("Industry: %s", p.Industry))
	}
	if p.CareerStage != "" {
		parts = append(parts, fmt.Sprintf("Career stage: %s", p.CareerStage))
	}
	if p.RiskTolerance != "" {
		parts = append(parts, fmt.Sprintf("Risk tolerance: %s", p.RiskTolerance))
	}
	if p.TimeHorizon != "" {
		parts = append(parts, fmt.Sprintf("Time horizon: %s", p.TimeHorizon))
	}
	if p.Dependents > 0 {
		parts = append(parts, fmt.Sprintf("Dependents: %d", p.Dependents))
	}
	if p.Bio != "" {
		parts = append(parts, fmt.Sprintf("About: %s", p.Bio))
	}
	return strings.Join(parts, "\n")
}

// Charter captures the user's stated values and direction. Values keep
// the order the user declared them in; that order is meaningful.
type Charter struct {
	Values         []string `json:"values"`
	NonNegotiables []string `json:"non_negotiables"`
	LongTermGoals  []string `json:"long_term_goals"`
	AntiGoals      []string `json:"anti_goals"`
}

// IsEmpty returns true if no charter content has been declared.
func (c Charter) IsEmpty() bool {
	return len(c.Values) == 0 && len(c.NonNegotiables) == 0 &&
		len(c.LongTermGoals) == 0 && len(c.AntiGoals) == 0
}

// Summary renders the charter for prompt inclusion, preserving value order.
func (c Charter) Summary() string {
	var b strings.Builder
	writeList := func(heading string, items []string) {
		if len(items) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(heading)
		b.WriteString(":\n")
		for i, item := range items {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, item))
		}
	}
	writeList("Core values (in priority order)", c.Values)
	writeList("Non-negotiables", c.NonNegotiables)
	writeList("Long-term goals", c.LongTermGoals)
	writeList("Anti-goals (outcomes to avoid)", c.AntiGoals)
	return strings.TrimRight(b.String(), "\n")
}
