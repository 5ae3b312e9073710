/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"fmt"
	"time"
)

// Status enumerates schedule lifecycle states. Transitions are explicit;
// the store never advances a status on its own.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Color returns the calendar display color for the status.
func (s Status) Color() string {
	switch s {
	case StatusScheduled:
		return "#3b82f6"
	case StatusInProgress:
		return "#f59e0b"
	case StatusCompleted:
		return "#10b981"
	case StatusCancelled:
		return "#ef4444"
	default:
		return "#6b7280"
	}
}

// Date is a calendar date with day precision, normalized to midnight UTC.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

// ParseDate accepts a bare date ("2006-01-02") or an RFC3339 timestamp,
// which is truncated to its date.
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

// Time returns the date as midnight UTC.
func (d Date) Time() time.Time { return d.t }

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Before reports whether d falls before o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After reports whether d falls after o.
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// Equal reports whether two dates name the same day.
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

func (d Date) String() string { return d.t.Format(dateLayout) }

// MarshalJSON encodes the date as "2006-01-02".
func (d Date) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts bare dates and RFC3339 timestamps.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s", s)
	}
	s = s[1 : len(s)-1]
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Schedule is a time-bounded work assignment binding a job to one or more
// employees. StartDate and EndDate are inclusive calendar dates.
type Schedule struct {
	ID                 string    `json:"id"`
	JobID              string    `json:"job_id"`
	EmployeeIDs        []string  `json:"employee_ids"`
	Title              string    `json:"title"`
	StartDate          Date      `json:"start_date"`
	EndDate            Date      `json:"end_date"`
	Status             Status    `json:"status"`
	Notes              string    `json:"notes,omitempty"`
	PredecessorID      string    `json:"predecessor_id,omitempty"`
	PredecessorLagDays int       `json:"predecessor_lag_days,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HasEmployee reports whether the schedule binds the given employee.
func (s Schedule) HasEmployee(employeeID string) bool {
	for _, id := range s.EmployeeIDs {
		if id == employeeID {
			return true
		}
	}
	return false
}

// Conflict reports one employee double-booked against an existing schedule.
type Conflict struct {
	EmployeeID string   `json:"employee_id"`
	Schedule   Schedule `json:"schedule"`
}

// Severity classifies a notice for the notification sink.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notice is a short user-facing message emitted after mutating operations.
type Notice struct {
	Title    string
	Body     string
	Severity Severity
}

// Notifier is the fire-and-forget notification sink. The store never
// depends on delivery.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Persister loads and saves the full schedule list as one document.
// Load must tolerate a missing or malformed document by returning an
// empty list rather than an error the store cannot recover from.
type Persister interface {
	Load(ctx context.Context) ([]Schedule, error)
	Save(ctx context.Context, schedules []Schedule) error
}

// JobDirectory resolves job names for display projections.
type JobDirectory interface {
	JobName(ctx context.Context, id string) (string, bool)
}

// EmployeeDirectory resolves employee names for display projections.
type EmployeeDirectory interface {
	EmployeeName(ctx context.Context, id string) (string, bool)
}
