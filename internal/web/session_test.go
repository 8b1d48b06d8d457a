package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestSessionStore(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	userID := uuid.New()

	session, err := store.Create(ctx, userID, "carol")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if session.ID == "" {
		t.Fatal("Create() returned empty session ID")
	}
	if session.UserID != userID || session.Username != "carol" {
		t.Errorf("session = %+v", session)
	}

	got := store.Get(ctx, session.ID)
	if got == nil || got.ID != session.ID {
		t.Fatalf("Get() = %+v, want session %s", got, session.ID)
	}

	store.Delete(ctx, session.ID)
	if store.Get(ctx, session.ID) != nil {
		t.Error("Get() after Delete() should return nil")
	}
}

func TestSessionStore_UnknownID(t *testing.T) {
	store := NewSessionStore()
	if store.Get(context.Background(), "nope") != nil {
		t.Error("Get() for unknown ID should return nil")
	}
}

func TestSessionStore_GetFromRequest(t *testing.T) {
	store := NewSessionStore()
	session, err := store.Create(context.Background(), uuid.New(), "carol")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if store.GetFromRequest(req) != nil {
		t.Error("GetFromRequest() without cookie should return nil")
	}

	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: session.ID})
	got := store.GetFromRequest(req)
	if got == nil || got.ID != session.ID {
		t.Errorf("GetFromRequest() = %+v, want session %s", got, session.ID)
	}
}

func TestSessionCookies(t *testing.T) {
	store := NewSessionStore()
	session := &Session{ID: "session-id"}

	rec := httptest.NewRecorder()
	store.SetCookie(rec, session)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("len(cookies) = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != sessionCookieName || c.Value != "session-id" {
		t.Errorf("cookie = %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	rec = httptest.NewRecorder()
	store.ClearCookie(rec)
	cookies = rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Errorf("ClearCookie() cookies = %+v, want MaxAge -1", cookies)
	}
}
