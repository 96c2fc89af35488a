package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/cyglobaltech/storefront-backend/internal/identity"
	"github.com/cyglobaltech/storefront-backend/internal/users"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
)

type stubProfiles struct {
	profiles map[uuid.UUID]*users.Profile
	admin    bool
	updates  int
}

func (s *stubProfiles) GetProfile(_ context.Context, uid uuid.UUID) (*users.Profile, error) {
	return s.profiles[uid], nil
}

func (s *stubProfiles) UpdateProfile(_ context.Context, uid uuid.UUID, name, surname, phone string) error {
	s.updates++
	p := s.profiles[uid]
	p.Name, p.Surname, p.Phone = name, surname, phone
	return nil
}

func (s *stubProfiles) IsAdmin(context.Context, *identity.Session) bool {
	return s.admin
}

func TestProfileGet(t *testing.T) {
	uid := uuid.New()
	svc := &stubProfiles{profiles: map[uuid.UUID]*users.Profile{uid: {ID: uid, Email: "ada@example.com", Role: enums.RoleUser}}}
	handler := ProfileGet(svc, testLogger())

	rec := serve(handler, jsonRequest(http.MethodGet, "/api/v1/profile", ""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}

	rec = serve(handler, withSession(jsonRequest(http.MethodGet, "/api/v1/profile", ""), &identity.Session{UserID: uuid.New()}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing profile got %d", rec.Code)
	}

	rec = serve(handler, withSession(jsonRequest(http.MethodGet, "/api/v1/profile", ""), &identity.Session{UserID: uid}))
	var profile users.Profile
	decodeData(t, rec, &profile)
	if profile.ID != uid {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestProfileUpdate(t *testing.T) {
	uid := uuid.New()
	svc := &stubProfiles{profiles: map[uuid.UUID]*users.Profile{uid: {ID: uid, Email: "ada@example.com"}}}
	handler := ProfileUpdate(svc, testLogger())
	sess := &identity.Session{UserID: uid}

	rec := serve(handler, withSession(jsonRequest(http.MethodPatch, "/api/v1/profile", `{"name":"  ","surname":"Lovelace"}`), sess))
	if rec.Code != http.StatusBadRequest || svc.updates != 0 {
		t.Fatalf("expected 400 without update, got %d", rec.Code)
	}

	rec = serve(handler, withSession(jsonRequest(http.MethodPatch, "/api/v1/profile", `{"name":" Ada ","surname":"Lovelace","phone":""}`), sess))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	var profile users.Profile
	decodeData(t, rec, &profile)
	if profile.Name != "Ada" || profile.Surname != "Lovelace" || profile.Phone != "" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	rec = serve(handler, withSession(jsonRequest(http.MethodPatch, "/api/v1/profile", `{"name":"Ada","surname":"Lovelace","email":"x@example.com"}`), sess))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown fields to be rejected, got %d", rec.Code)
	}
}

func TestProfileAdminStatus(t *testing.T) {
	rec := serve(ProfileAdminStatus(&stubProfiles{admin: true}, testLogger()), jsonRequest(http.MethodGet, "/api/v1/profile/admin", ""))
	var body map[string]bool
	decodeData(t, rec, &body)
	if !body["is_admin"] {
		t.Fatalf("expected admin, got %+v", body)
	}
}
