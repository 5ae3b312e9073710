/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timeclock

import (
	"context"
	"sort"
	"time"

	"github.com/sitewisehq/sitewise/internal/models"
)

// PayrollLine summarizes one employee's pay for a period. Hours past the
// weekly overtime threshold are paid at time and a half.
type PayrollLine struct {
	EmployeeID    string  `json:"employee_id"`
	EmployeeName  string  `json:"employee_name"`
	HourlyRate    float64 `json:"hourly_rate"`
	RegularHours  float64 `json:"regular_hours"`
	OvertimeHours float64 `json:"overtime_hours"`
	FlaggedHours  float64 `json:"flagged_hours"`
	GrossPay      float64 `json:"gross_pay"`
}

// PayrollSummary rolls closed entries between from and to (half-open) into
// per-employee pay lines. Overtime is computed per calendar week, Monday
// based, so a long week followed by a short one does not average out.
func (s *Service) PayrollSummary(ctx context.Context, from, to time.Time) ([]PayrollLine, error) {
	var entries []models.TimeEntry
	if err := s.db.WithContext(ctx).
		Where("clock_out IS NOT NULL AND clock_in >= ? AND clock_in < ?", from, to).
		Order("clock_in ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	// employee -> week start -> hours
	weekly := make(map[string]map[time.Time]float64)
	flagged := make(map[string]float64)

	for _, entry := range entries {
		hours := entry.ClockOut.Sub(entry.ClockIn).Hours()
		if hours <= 0 {
			continue
		}

		week := weekStart(entry.ClockIn)
		if weekly[entry.EmployeeID] == nil {
			weekly[entry.EmployeeID] = make(map[time.Time]float64)
		}
		weekly[entry.EmployeeID][week] += hours

		if entry.Flagged {
			flagged[entry.EmployeeID] += hours
		}
	}

	lines := make([]PayrollLine, 0, len(weekly))
	for employeeID, weeks := range weekly {
		var emp models.Employee
		if err := s.db.WithContext(ctx).First(&emp, "id = ?", employeeID).Error; err != nil {
			// Entries can outlive a deleted employee. Keep the hours
			// visible with a zero rate.
			emp = models.Employee{ID: employeeID, Name: "Unknown Employee"}
		}

		line := PayrollLine{
			EmployeeID:   employeeID,
			EmployeeName: emp.Name,
			HourlyRate:   emp.HourlyRate,
			FlaggedHours: flagged[employeeID],
		}

		for _, hours := range weeks {
			if hours > s.overtimeWeeklyHours {
				line.RegularHours += s.overtimeWeeklyHours
				line.OvertimeHours += hours - s.overtimeWeeklyHours
			} else {
				line.RegularHours += hours
			}
		}

		line.GrossPay = line.RegularHours*emp.HourlyRate + line.OvertimeHours*emp.HourlyRate*1.5
		lines = append(lines, line)
	}

	sort.Slice(lines, func(i, j int) bool {
		return lines[i].EmployeeName < lines[j].EmployeeName
	})

	return lines, nil
}

// weekStart returns midnight UTC on the Monday of t's week.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
