package serve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/simp-lee/dinesync/internal/domain"
	"github.com/simp-lee/dinesync/internal/identity"
	"github.com/simp-lee/dinesync/internal/listsync"
	"github.com/simp-lee/dinesync/internal/rest"
)

func newTestService(t *testing.T, handler http.Handler, session *identity.Session) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api, err := rest.New(srv.URL)
	if err != nil {
		t.Fatalf("rest.New: %v", err)
	}
	return NewService(api, session, nil)
}

func adminSession() *identity.Session {
	return &identity.Session{Email: "admin@hostel.test", Role: domain.RoleAdmin}
}

func memberSession(email string) *identity.Session {
	return &identity.Session{Email: email, Role: domain.RoleUser, Tier: domain.TierSilver}
}

func queuePage() map[string]any {
	return map[string]any{
		"requests": []domain.MealRequest{
			{BaseModel: domain.BaseModel{ID: 1}, MealTitle: "Biryani", UserEmail: "a@b.test", Status: domain.RequestPending, Likes: 9},
			{BaseModel: domain.BaseModel{ID: 2}, MealTitle: "Dal", UserEmail: "c@d.test", Status: domain.RequestPending, Likes: 4},
		},
		"total": 2,
	}
}

func loadedController(t *testing.T, svc *Service) *listsync.Controller[domain.MealRequest] {
	t.Helper()
	ch := make(chan listsync.Snapshot[domain.MealRequest], 16)
	ctrl := svc.NewController(listsync.WithOnChange(func(s listsync.Snapshot[domain.MealRequest]) { ch <- s }))
	t.Cleanup(ctrl.Close)
	ctrl.Start()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if snap.Phase == listsync.PhaseLoaded {
				return ctrl
			}
			if snap.Phase == listsync.PhaseFailed {
				t.Fatalf("initial load failed: %s", snap.ErrMessage)
			}
		case <-deadline:
			t.Fatal("timed out waiting for initial load")
		}
	}
}

func TestServeMutation_FlipsStatusInPlace(t *testing.T) {
	var mu sync.Mutex
	served := map[string]bool{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(queuePage())
			return
		}
		mu.Lock()
		served[r.URL.Path] = true
		mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "served"})
	})
	svc := newTestService(t, handler, adminSession())
	ctrl := loadedController(t, svc)

	mutator := listsync.NewMutator(
		listsync.ConfirmerFunc(func(string) bool { return true }),
		listsync.NotifierFunc(func(string) {}),
	)

	req := ctrl.Snapshot().Items[0]
	if err := mutator.Run(context.Background(), svc.ServeMutation(ctrl, req)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	hit := served["/requests/1/serve"]
	mu.Unlock()
	if !hit {
		t.Fatal("serve endpoint not hit")
	}

	items := ctrl.Snapshot().Items
	if items[0].Status != domain.RequestDelivered {
		t.Fatalf("status = %q, want delivered", items[0].Status)
	}
	if items[1].Status != domain.RequestPending {
		t.Fatalf("untouched row status = %q, want pending", items[1].Status)
	}
}

func TestServeMutation_RevertsStatusOnFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(queuePage())
			return
		}
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"error": "already delivered"})
	})
	svc := newTestService(t, handler, adminSession())
	ctrl := loadedController(t, svc)

	var notified string
	mutator := listsync.NewMutator(
		listsync.ConfirmerFunc(func(string) bool { return true }),
		listsync.NotifierFunc(func(msg string) { notified = msg }),
	)

	req := ctrl.Snapshot().Items[0]
	err := mutator.Run(context.Background(), svc.ServeMutation(ctrl, req))
	if !domain.IsHTTP(err) {
		t.Fatalf("err = %v, want http error", err)
	}
	if got := ctrl.Snapshot().Items[0].Status; got != domain.RequestPending {
		t.Fatalf("status after revert = %q, want pending", got)
	}
	if notified != "already delivered" {
		t.Fatalf("notification = %q, want server message", notified)
	}
}

func TestCancel_OwnershipRules(t *testing.T) {
	mine := domain.MealRequest{BaseModel: domain.BaseModel{ID: 1}, UserEmail: "me@b.test"}
	theirs := domain.MealRequest{BaseModel: domain.BaseModel{ID: 2}, UserEmail: "other@b.test"}

	t.Run("member cancels own", func(t *testing.T) {
		var gotPath string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "cancelled"})
		})
		svc := newTestService(t, handler, memberSession("me@b.test"))
		if err := svc.Cancel(context.Background(), mine); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if gotPath != "/requests/1" {
			t.Fatalf("path = %q", gotPath)
		}
	})

	t.Run("member cannot cancel another's", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("gated request reached the server")
		})
		svc := newTestService(t, handler, memberSession("me@b.test"))
		if err := svc.Cancel(context.Background(), theirs); !domain.IsUnauthorized(err) {
			t.Fatalf("err = %v, want unauthorized", err)
		}
	})

	t.Run("admin cancels any", func(t *testing.T) {
		var gotHeader string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotHeader = r.Header.Get(rest.DefaultAdminHeader)
			json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "cancelled"})
		})
		svc := newTestService(t, handler, adminSession())
		if err := svc.Cancel(context.Background(), theirs); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if gotHeader != "admin@hostel.test" {
			t.Fatalf("admin header = %q", gotHeader)
		}
	})
}

func TestFetch_RequiresSession(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("anonymous request reached the server")
	})
	svc := newTestService(t, handler, nil)

	_, err := svc.fetchPage(context.Background(), map[string]string{"page": "1"})
	if !domain.IsUnauthorized(err) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}
