/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/sitewisehq/sitewise/internal/models"
)

func TestDeliveriesLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "f1", models.RoleForeman)

	rr := env.request(t, "POST", "/api/v1/deliveries/", token, deliveryCreateRequest{
		JobID:    "job-1",
		Supplier: "Cascade Concrete",
		Material: "Ready-mix 4000psi",
		Quantity: 12,
		Unit:     "yd3",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decodeBody[models.Delivery](t, rr)
	if created.Status != models.DeliveryOrdered {
		t.Fatalf("expected ordered status, got %s", created.Status)
	}

	rr = env.request(t, "PATCH", "/api/v1/deliveries/"+created.ID+"/status", token, deliveryStatusRequest{
		Status: models.DeliveryReceived,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	received := decodeBody[models.Delivery](t, rr)
	if received.ReceivedAt == nil {
		t.Fatal("expected receipt timestamp")
	}

	rr = env.request(t, "PATCH", "/api/v1/deliveries/"+created.ID+"/status", token, deliveryStatusRequest{
		Status: "lost",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rr.Code)
	}
}

func TestDeliveriesPhotoUpload(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "f1", models.RoleForeman)

	rr := env.request(t, "POST", "/api/v1/deliveries/", token, deliveryCreateRequest{
		JobID:    "job-1",
		Material: "Rebar #5",
	})
	created := decodeBody[models.Delivery](t, rr)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="photo"; filename="ticket.jpg"`)
	hdr.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte("fake-jpeg-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/v1/deliveries/"+created.ID+"/photo", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[models.Delivery](t, rec)
	if updated.PhotoKey == "" {
		t.Fatal("expected photo key recorded")
	}

	getReq := httptest.NewRequest("GET", "/api/v1/deliveries/"+created.ID+"/photo", nil)
	getReq.Header.Set("Authorization", "Bearer "+token)
	getRec := httptest.NewRecorder()
	env.router.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching photo, got %d", getRec.Code)
	}
	if got := getRec.Body.String(); got != "fake-jpeg-bytes" {
		t.Fatalf("unexpected photo body %q", got)
	}
}

func TestDeliveriesDeleteRequiresManager(t *testing.T) {
	env := newTestEnv(t)
	foreman := env.token(t, "f1", models.RoleForeman)
	manager := env.token(t, "m1", models.RoleManager)

	rr := env.request(t, "POST", "/api/v1/deliveries/", foreman, deliveryCreateRequest{
		JobID:    "job-1",
		Material: "Lumber",
	})
	created := decodeBody[models.Delivery](t, rr)

	rr = env.request(t, "DELETE", "/api/v1/deliveries/"+created.ID+"/", foreman, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}

	rr = env.request(t, "DELETE", "/api/v1/deliveries/"+created.ID+"/", manager, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}
