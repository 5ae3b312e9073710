/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"testing"

	"github.com/sitewisehq/sitewise/internal/models"
)

func seedTimeclockJob(t *testing.T, env *testEnv) {
	t.Helper()
	if err := env.db.Create(&models.Job{
		ID:           "job-1",
		Name:         "Riverside Apartments",
		Status:       models.JobActive,
		Latitude:     45.5231,
		Longitude:    -122.6765,
		FenceRadiusM: 150,
	}).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
}

func TestClockInAndOut(t *testing.T) {
	env := newTestEnv(t)
	seedTimeclockJob(t, env)
	token := env.token(t, "w1", models.RoleWorker)

	lat, lng := 45.5232, -122.6764
	rr := env.request(t, "POST", "/api/v1/timeclock/clock-in", token, punchRequest{
		EmployeeID: "emp-1",
		JobID:      "job-1",
		Latitude:   &lat,
		Longitude:  &lng,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	entry := decodeBody[models.TimeEntry](t, rr)
	if !entry.FenceVerified || entry.Flagged {
		t.Fatalf("in-fence punch should verify, got %+v", entry)
	}

	rr = env.request(t, "POST", "/api/v1/timeclock/clock-in", token, punchRequest{
		EmployeeID: "emp-1",
		JobID:      "job-1",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for double clock-in, got %d", rr.Code)
	}

	rr = env.request(t, "POST", "/api/v1/timeclock/clock-out", token, punchRequest{
		EmployeeID: "emp-1",
		Latitude:   &lat,
		Longitude:  &lng,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	closed := decodeBody[models.TimeEntry](t, rr)
	if closed.ClockOut == nil {
		t.Fatal("expected clock out timestamp")
	}
}

func TestClockInUnknownJob(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "w1", models.RoleWorker)

	rr := env.request(t, "POST", "/api/v1/timeclock/clock-in", token, punchRequest{
		EmployeeID: "emp-1",
		JobID:      "missing",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestClockOutWithoutOpenEntry(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "w1", models.RoleWorker)

	rr := env.request(t, "POST", "/api/v1/timeclock/clock-out", token, punchRequest{
		EmployeeID: "emp-1",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestEntriesFlaggedFilter(t *testing.T) {
	env := newTestEnv(t)
	seedTimeclockJob(t, env)
	token := env.token(t, "w1", models.RoleWorker)

	// One punch inside the fence, one far outside it.
	inLat, inLng := 45.5232, -122.6764
	outLat, outLng := 45.5900, -122.6000
	env.request(t, "POST", "/api/v1/timeclock/clock-in", token, punchRequest{
		EmployeeID: "emp-1", JobID: "job-1", Latitude: &inLat, Longitude: &inLng,
	})
	env.request(t, "POST", "/api/v1/timeclock/clock-in", token, punchRequest{
		EmployeeID: "emp-2", JobID: "job-1", Latitude: &outLat, Longitude: &outLng,
	})

	rr := env.request(t, "GET", "/api/v1/timeclock/entries?flagged=true", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	entries := decodeBody[[]models.TimeEntry](t, rr)
	if len(entries) != 1 || entries[0].EmployeeID != "emp-2" {
		t.Fatalf("expected only the out-of-fence entry, got %+v", entries)
	}
}

func TestPayrollRequiresManager(t *testing.T) {
	env := newTestEnv(t)
	worker := env.token(t, "w1", models.RoleWorker)
	manager := env.token(t, "m1", models.RoleManager)

	rr := env.request(t, "GET", "/api/v1/timeclock/payroll?from=2026-03-02T00:00:00Z&to=2026-03-09T00:00:00Z", worker, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}

	rr = env.request(t, "GET", "/api/v1/timeclock/payroll?from=2026-03-02T00:00:00Z&to=2026-03-09T00:00:00Z", manager, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}
