package model

import (
	"strings"
	"time"
)

// Category classifies an opportunity. Open strings are mapped to Other.
type Category string

const (
	CategoryInternship  Category = "Internship"
	CategoryScholarship Category = "Scholarship"
	CategoryEvent       Category = "Event"
	CategoryJob         Category = "Job"
	CategoryOther       Category = "Other"
)

// Categories lists the canonical choices in display order.
func Categories() []Category {
	return []Category{CategoryInternship, CategoryScholarship, CategoryEvent, CategoryJob, CategoryOther}
}

// ParseCategory maps free text to a category, falling back to Other.
func ParseCategory(s string) Category {
	for _, c := range Categories() {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c
		}
	}
	return CategoryOther
}

// Priority controls how many reminders an opportunity gets.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

func Priorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

// ParsePriority maps free text to a priority, falling back to Medium.
func ParsePriority(s string) Priority {
	for _, p := range Priorities() {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p
		}
	}
	return PriorityMedium
}

// Opportunity is a deadline-bound item tracked for a single user.
// Deadline is stored in UTC; only the three lifecycle flags mutate after
// creation.
type Opportunity struct {
	OppID          string `gorm:"primaryKey"`
	UserID         int64  `gorm:"index"`
	Title          string
	Category       Category
	Description    string
	SourceLink     string
	Priority       Priority
	Deadline       time.Time `gorm:"index"`
	RawSourceText  string
	Archived       bool `gorm:"default:false"`
	Done           bool `gorm:"default:false"`
	MissedNotified bool `gorm:"default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Active reports whether the opportunity still participates in reminders.
func (o Opportunity) Active() bool {
	return !o.Archived && !o.Done
}
