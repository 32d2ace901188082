package intercom

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nhle/helpdesk-sync/internal/source"
)

func TestListConversationsSendsAuthAndVersionHeaders(t *testing.T) {
	var gotAuth, gotVersion, gotAccept string

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotVersion = r.Header.Get("Intercom-Version")
			gotAccept = r.Header.Get("Accept")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"type":"conversation.list","conversations":[]}`))
		},
	))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-token")
	if _, err := client.ListConversations(context.Background(), ""); err != nil {
		t.Fatalf("ListConversations() failed: %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Errorf("expected Bearer auth header, got %q", gotAuth)
	}
	if gotVersion != "2.9" {
		t.Errorf("expected Intercom-Version 2.9, got %q", gotVersion)
	}
	if gotAccept != "application/json" {
		t.Errorf("expected Accept application/json, got %q", gotAccept)
	}
}

func TestListConversationsPaginationParams(t *testing.T) {
	var gotPerPage, gotStartingAfter string

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			gotPerPage = q.Get("per_page")
			gotStartingAfter = q.Get("starting_after")
			w.Write([]byte(`{"conversations":[]}`))
		},
	))
	defer srv.Close()

	client := NewClient(srv.URL, "token")

	// First page: no starting_after.
	if _, err := client.ListConversations(context.Background(), ""); err != nil {
		t.Fatalf("ListConversations() failed: %v", err)
	}
	if gotPerPage != "50" {
		t.Errorf("expected per_page=50, got %q", gotPerPage)
	}
	if gotStartingAfter != "" {
		t.Errorf("expected no starting_after on first page, got %q", gotStartingAfter)
	}

	// Later page: cursor passed through.
	if _, err := client.ListConversations(context.Background(), "tok_123"); err != nil {
		t.Fatalf("ListConversations() failed: %v", err)
	}
	if gotStartingAfter != "tok_123" {
		t.Errorf("expected starting_after=tok_123, got %q", gotStartingAfter)
	}
}

func TestListConversationsParsesNextCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"type": "conversation.list",
				"conversations": [
					{"id": "1", "title": "Hello", "updated_at": 1650000000}
				],
				"pages": {"next": {"starting_after": "tok_next"}}
			}`))
		},
	))
	defer srv.Close()

	client := NewClient(srv.URL, "token")
	page, err := client.ListConversations(context.Background(), "")
	if err != nil {
		t.Fatalf("ListConversations() failed: %v", err)
	}

	if len(page.Conversations) != 1 || page.Conversations[0].ID != "1" {
		t.Fatalf("unexpected conversations: %+v", page.Conversations)
	}
	if page.Pages == nil || page.Pages.Next == nil ||
		page.Pages.Next.StartingAfter != "tok_next" {
		t.Errorf("expected next cursor tok_next, got %+v", page.Pages)
	}
}

func TestUnauthorizedReturnsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
	))
	defer srv.Close()

	client := NewClient(srv.URL, "bad-token")
	_, err := client.ListConversations(context.Background(), "")
	if err == nil {
		t.Fatal("expected an error on 401")
	}
	if !source.IsAuthError(err) {
		t.Errorf("expected AuthError, got %T: %v", err, err)
	}
}

func TestAPIErrorMessageSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{
				"type": "error.list",
				"errors": [{"code": "not_found", "message": "Resource Not Found"}]
			}`))
		},
	))
	defer srv.Close()

	client := NewClient(srv.URL, "token")
	_, err := client.ListConversations(context.Background(), "")
	if err == nil {
		t.Fatal("expected an error on 404")
	}
	if got := err.Error(); !strings.Contains(got, "Resource Not Found") {
		t.Errorf("expected API message in error, got %q", got)
	}
}

func TestRateLimitRetriesWithRetryAfter(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				w.Header().Set("Retry-After", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{"conversations":[]}`))
		},
	))
	defer srv.Close()

	client := NewClient(srv.URL, "token")
	if _, err := client.ListConversations(context.Background(), ""); err != nil {
		t.Fatalf("ListConversations() failed after retry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestMeParsesWorkspace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me" {
				t.Errorf("expected path /me, got %s", r.URL.Path)
			}
			w.Write([]byte(`{
				"type": "admin",
				"id": "1",
				"name": "Ada",
				"email": "ada@example.com",
				"app": {"type": "app", "id_code": "abc123", "name": "Acme"}
			}`))
		},
	))
	defer srv.Close()

	client := NewClient(srv.URL, "token")
	me, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() failed: %v", err)
	}
	if me.Name != "Ada" || me.App.IDCode != "abc123" {
		t.Errorf("unexpected identity: %+v", me)
	}
}
