package timeclock

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/sitewisehq/sitewise/internal/models"
)

func seedClosedEntry(t *testing.T, svc *Service, employeeID string, clockIn time.Time, hours float64, flagged bool) {
	t.Helper()
	out := clockIn.Add(time.Duration(hours * float64(time.Hour)))
	entry := &models.TimeEntry{
		ID:         employeeID + clockIn.Format("-20060102T15"),
		EmployeeID: employeeID,
		JobID:      "job-1",
		ClockIn:    clockIn,
		ClockOut:   &out,
		Flagged:    flagged,
	}
	if err := svc.db.Create(entry).Error; err != nil {
		t.Fatalf("seed entry: %v", err)
	}
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.001 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestPayrollSummarySplitsOvertimePerWeek(t *testing.T) {
	svc := newTestService(t)
	seedJob(t, svc, 0)
	if err := svc.db.Create(&models.Employee{
		ID:         "emp-1",
		Name:       "Dana Fields",
		HourlyRate: 50,
		Active:     true,
	}).Error; err != nil {
		t.Fatalf("seed employee: %v", err)
	}

	// Week of Mon Mar 2: five 9-hour days, 45h total.
	monday := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	for day := 0; day < 5; day++ {
		seedClosedEntry(t, svc, "emp-1", monday.AddDate(0, 0, day), 9, false)
	}
	// Week of Mon Mar 9: one 8-hour day. Must not absorb last week's excess.
	seedClosedEntry(t, svc, "emp-1", monday.AddDate(0, 0, 7), 8, false)

	lines, err := svc.PayrollSummary(context.Background(),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PayrollSummary: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	line := lines[0]
	if line.EmployeeName != "Dana Fields" {
		t.Fatalf("unexpected name %q", line.EmployeeName)
	}
	approx(t, "RegularHours", line.RegularHours, 48)  // 40 + 8
	approx(t, "OvertimeHours", line.OvertimeHours, 5) // 45 - 40
	// 48h * $50 + 5h * $75
	approx(t, "GrossPay", line.GrossPay, 48*50+5*75)
}

func TestPayrollSummaryTracksFlaggedHours(t *testing.T) {
	svc := newTestService(t)
	seedJob(t, svc, 0)
	if err := svc.db.Create(&models.Employee{
		ID:         "emp-1",
		Name:       "Dana Fields",
		HourlyRate: 40,
	}).Error; err != nil {
		t.Fatalf("seed employee: %v", err)
	}

	monday := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	seedClosedEntry(t, svc, "emp-1", monday, 8, false)
	seedClosedEntry(t, svc, "emp-1", monday.AddDate(0, 0, 1), 6, true)

	lines, err := svc.PayrollSummary(context.Background(),
		monday.AddDate(0, 0, -1), monday.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("PayrollSummary: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	approx(t, "RegularHours", lines[0].RegularHours, 14)
	approx(t, "FlaggedHours", lines[0].FlaggedHours, 6)
}

func TestPayrollSummaryIgnoresOpenEntriesAndUnknownEmployees(t *testing.T) {
	svc := newTestService(t)
	seedJob(t, svc, 0)

	monday := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

	// Open entry: no clock-out, excluded.
	if err := svc.db.Create(&models.TimeEntry{
		ID:         "open-1",
		EmployeeID: "emp-1",
		JobID:      "job-1",
		ClockIn:    monday,
	}).Error; err != nil {
		t.Fatalf("seed open entry: %v", err)
	}

	// Closed entry for an employee no longer on the roster.
	seedClosedEntry(t, svc, "emp-gone", monday, 8, false)

	lines, err := svc.PayrollSummary(context.Background(),
		monday.AddDate(0, 0, -1), monday.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("PayrollSummary: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected only the closed entry's line, got %d", len(lines))
	}
	if lines[0].EmployeeName != "Unknown Employee" {
		t.Fatalf("expected placeholder name, got %q", lines[0].EmployeeName)
	}
	if lines[0].GrossPay != 0 {
		t.Fatalf("unknown employee should have zero rate, got %v", lines[0].GrossPay)
	}

	approx(t, "RegularHours", lines[0].RegularHours, 8)
}

func TestWeekStart(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)}, // Monday
		{time.Date(2026, 3, 8, 1, 0, 0, 0, time.UTC), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},   // Sunday
		{time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},   // next Monday
	}
	for _, tc := range cases {
		if got := weekStart(tc.in); !got.Equal(tc.want) {
			t.Errorf("weekStart(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
