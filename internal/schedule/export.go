/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ExportResult carries rendered export data plus download metadata.
type ExportResult struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExportICal renders the schedules intersecting [start, end] as an iCal
// calendar of all-day events. iCal end dates are exclusive, so one day
// past the inclusive EndDate.
func (s *Store) ExportICal(ctx context.Context, jobs JobDirectory, start, end Date) (*ExportResult, error) {
	inRange := s.InRange(start, end)

	jobName := func(id string) string {
		if jobs != nil {
			if name, ok := jobs.JobName(ctx, id); ok {
				return name
			}
		}
		return unknownJobName
	}

	var buf bytes.Buffer
	buf.WriteString("BEGIN:VCALENDAR\r\n")
	buf.WriteString("VERSION:2.0\r\n")
	buf.WriteString("PRODID:-//Sitewise//Crew Schedule Export//EN\r\n")
	buf.WriteString("X-WR-CALNAME:Crew Schedule\r\n")
	buf.WriteString("CALSCALE:GREGORIAN\r\n")
	buf.WriteString("METHOD:PUBLISH\r\n")

	for _, sched := range inRange {
		buf.WriteString("BEGIN:VEVENT\r\n")
		buf.WriteString(fmt.Sprintf("UID:%s@sitewise\r\n", sched.ID))
		buf.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", time.Now().UTC().Format("20060102T150405Z")))
		buf.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", sched.StartDate.Time().Format("20060102")))
		buf.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", sched.EndDate.AddDays(1).Time().Format("20060102")))
		buf.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICalText(sched.Title)))
		buf.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICalText(jobName(sched.JobID))))
		if sched.Notes != "" {
			buf.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICalText(sched.Notes)))
		}
		buf.WriteString(fmt.Sprintf("X-APPLE-CALENDAR-COLOR:%s\r\n", sched.Status.Color()))
		buf.WriteString("END:VEVENT\r\n")
	}

	buf.WriteString("END:VCALENDAR\r\n")

	return &ExportResult{
		Data:        buf.Bytes(),
		Filename:    fmt.Sprintf("crew-schedule-%s-to-%s.ics", start, end),
		ContentType: "text/calendar; charset=utf-8",
	}, nil
}

// crewSheet is the YAML layout handed to site supervisors.
type crewSheet struct {
	GeneratedAt time.Time        `yaml:"generated_at"`
	RangeStart  string           `yaml:"range_start"`
	RangeEnd    string           `yaml:"range_end"`
	Assignments []crewAssignment `yaml:"assignments"`
}

type crewAssignment struct {
	Title  string   `yaml:"title"`
	Job    string   `yaml:"job"`
	Crew   []string `yaml:"crew"`
	Start  string   `yaml:"start"`
	End    string   `yaml:"end"`
	Status string   `yaml:"status"`
	Notes  string   `yaml:"notes,omitempty"`
}

// ExportCrewSheet renders a printable YAML crew sheet for the range.
func (s *Store) ExportCrewSheet(ctx context.Context, jobs JobDirectory, employees EmployeeDirectory, start, end Date) (*ExportResult, error) {
	sheet := crewSheet{
		GeneratedAt: time.Now().UTC(),
		RangeStart:  start.String(),
		RangeEnd:    end.String(),
	}

	for _, sched := range s.InRange(start, end) {
		jobName := unknownJobName
		if jobs != nil {
			if name, ok := jobs.JobName(ctx, sched.JobID); ok {
				jobName = name
			}
		}
		crew := make([]string, 0, len(sched.EmployeeIDs))
		for _, id := range sched.EmployeeIDs {
			name := unknownEmployeeName
			if employees != nil {
				if resolved, ok := employees.EmployeeName(ctx, id); ok {
					name = resolved
				}
			}
			crew = append(crew, name)
		}

		sheet.Assignments = append(sheet.Assignments, crewAssignment{
			Title:  sched.Title,
			Job:    jobName,
			Crew:   crew,
			Start:  sched.StartDate.String(),
			End:    sched.EndDate.String(),
			Status: string(sched.Status),
			Notes:  sched.Notes,
		})
	}

	data, err := yaml.Marshal(sheet)
	if err != nil {
		return nil, fmt.Errorf("encode crew sheet: %w", err)
	}

	return &ExportResult{
		Data:        data,
		Filename:    fmt.Sprintf("crew-sheet-%s-to-%s.yaml", start, end),
		ContentType: "application/yaml",
	}, nil
}

func escapeICalText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
