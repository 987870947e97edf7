package models

import (
	"fmt"
	"strings"
	"time"
)

// EventCategory classifies a life event.
type EventCategory string

const (
	EventCareer       EventCategory = "career"
	EventFinancial    EventCategory = "financial"
	EventRelationship EventCategory = "relationship"
	EventHealth       EventCategory = "health"
	EventEducation    EventCategory = "education"
	EventFamily       EventCategory = "family"
	EventGrowth       EventCategory = "personal_growth"
	EventOther        EventCategory = "other"
)

// ValidEventCategories is the set of all valid event categories.
var ValidEventCategories = []EventCategory{
	EventCareer,
	EventFinancial,
	EventRelationship,
	EventHealth,
	EventEducation,
	EventFamily,
	EventGrowth,
	EventOther,
}

// IsValid returns true if the event category is recognized.
func (ec EventCategory) IsValid() bool {
	for _, v := range ValidEventCategories {
		if ec == v {
			return true
		}
	}
	return false
}

// LifeEvent is one entry in the user's personal timeline.
type LifeEvent struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Category     EventCategory `json:"category"`
	Significance int           `json:"significance"` // 1-10
	Lessons      string        `json:"lessons,omitempty"`
	OccurredAt   time.Time     `json:"occurred_at"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Summary renders the event as a single prompt-ready line.
func (e LifeEvent) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s (%s, significance %d/10)",
		e.OccurredAt.Format("2006-01"), e.Title, e.Category, e.Significance)
	if e.Description != "" {
		fmt.Fprintf(&b, ": %s", e.Description)
	}
	if e.Lessons != "" {
		fmt.Fprintf(&b, " Lessons: %s", e.Lessons)
	}
	return b.String()
}
