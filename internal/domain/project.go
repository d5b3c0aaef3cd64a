package domain

import (
	"strings"
	"time"
)

// ProjectStatus tracks the lifecycle stage of a project.
type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// MaxProjectNameLength bounds the project name after trimming.
const MaxProjectNameLength = 100

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// Normalize trims and lower-cases s.
func (s ProjectStatus) Normalize() ProjectStatus {
	return ProjectStatus(strings.ToLower(strings.TrimSpace(string(s))))
}

// ParseProjectStatus normalizes raw input; empty input yields the planning default.
func ParseProjectStatus(raw string) (ProjectStatus, bool) {
	s := ProjectStatus(raw).Normalize()
	if s == "" {
		return ProjectStatusPlanning, true
	}
	return s, s.Valid()
}

// Project groups tasks under a single owner.
type Project struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Status         ProjectStatus `json:"status"`
	StartDate      *time.Time    `json:"startDate,omitempty"`
	EndDate        *time.Time    `json:"endDate,omitempty"`
	OwnerID        string        `json:"ownerId"`
	OwnerFirstName string        `json:"ownerFirstName,omitempty"`
	OwnerLastName  string        `json:"ownerLastName,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// ProjectPatch is a partial project update. Nil fields are left untouched.
type ProjectPatch struct {
	Name        *string             `json:"name,omitempty"`
	Description *string             `json:"description,omitempty"`
	Status      *ProjectStatus      `json:"status,omitempty"`
	StartDate   Optional[time.Time] `json:"startDate,omitzero"`
	EndDate     Optional[time.Time] `json:"endDate,omitzero"`
}

// Empty reports whether the patch changes nothing.
func (p ProjectPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil && !p.StartDate.Set && !p.EndDate.Set
}

// Normalized returns p with its status trimmed and lower-cased.
func (p ProjectPatch) Normalized() ProjectPatch {
	if p.Status != nil {
		s := p.Status.Normalize()
		p.Status = &s
	}
	return p
}

// Apply merges the patch into a copy of current.
func (p ProjectPatch) Apply(current Project) Project {
	next := current
	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		next.Description = strings.TrimSpace(*p.Description)
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.StartDate.Set {
		next.StartDate = p.StartDate.Value
	}
	if p.EndDate.Set {
		next.EndDate = p.EndDate.Value
	}
	return next
}
