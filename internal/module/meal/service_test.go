package meal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/simp-lee/dinesync/internal/domain"
	"github.com/simp-lee/dinesync/internal/identity"
	"github.com/simp-lee/dinesync/internal/listsync"
	"github.com/simp-lee/dinesync/internal/rest"
)

func newTestService(t *testing.T, handler http.Handler, session *identity.Session) (*Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api, err := rest.New(srv.URL)
	if err != nil {
		t.Fatalf("rest.New: %v", err)
	}
	return NewService(api, session, nil), srv
}

func adminSession() *identity.Session {
	return &identity.Session{Email: "admin@hostel.test", Name: "Admin", Role: domain.RoleAdmin, Tier: domain.TierGold}
}

func memberSession() *identity.Session {
	return &identity.Session{Email: "member@hostel.test", Name: "Member", Role: domain.RoleUser, Tier: domain.TierSilver}
}

func freeSession() *identity.Session {
	return &identity.Session{Email: "free@hostel.test", Name: "Free", Role: domain.RoleUser, Tier: domain.TierNone}
}

func okEnvelope(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "ok"})
}

func waitSnapshot(t *testing.T, ch chan listsync.Snapshot[domain.Meal], cond func(listsync.Snapshot[domain.Meal]) bool) listsync.Snapshot[domain.Meal] {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestController_ListsMealsWithDefaultQuery(t *testing.T) {
	var gotQuery map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"meals": []domain.Meal{
				{BaseModel: domain.BaseModel{ID: 1}, Title: "Biryani", Likes: 12},
				{BaseModel: domain.BaseModel{ID: 2}, Title: "Dal", Likes: 7},
			},
			"total": 23,
		})
	})
	svc, _ := newTestService(t, handler, nil)

	ch := make(chan listsync.Snapshot[domain.Meal], 16)
	ctrl := svc.NewController(listsync.WithOnChange(func(s listsync.Snapshot[domain.Meal]) { ch <- s }))
	defer ctrl.Close()
	ctrl.Start()

	snap := waitSnapshot(t, ch, func(s listsync.Snapshot[domain.Meal]) bool { return s.Phase == listsync.PhaseLoaded })
	if len(snap.Items) != 2 || snap.TotalCount != 23 {
		t.Fatalf("got %d items, total %d; want 2 items, total 23", len(snap.Items), snap.TotalCount)
	}
	if snap.Pagination.TotalPages != 3 {
		t.Fatalf("TotalPages = %d, want 3", snap.Pagination.TotalPages)
	}
	if gotQuery["sortBy"] != "likes" || gotQuery["order"] != "desc" {
		t.Fatalf("query = %v, want default sort likes desc", gotQuery)
	}
	if gotQuery["page"] != "1" || gotQuery["limit"] != "10" {
		t.Fatalf("query = %v, want page=1 limit=10", gotQuery)
	}
}

func TestService_AdminGating(t *testing.T) {
	form := AddMealRequest{Title: "Paneer", Category: "dinner", Price: 4.5, Distributor: "Kitchen A"}

	tests := []struct {
		name    string
		session *identity.Session
		run     func(s *Service) error
	}{
		{"add as member", memberSession(), func(s *Service) error { return s.Add(context.Background(), form) }},
		{"add anonymous", nil, func(s *Service) error { return s.Add(context.Background(), form) }},
		{"update as member", memberSession(), func(s *Service) error {
			return s.Update(context.Background(), 1, UpdateMealRequest(form))
		}},
		{"delete as member", memberSession(), func(s *Service) error { return s.Delete(context.Background(), 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				okEnvelope(w)
			})
			svc, _ := newTestService(t, handler, tt.session)

			err := tt.run(svc)
			if !domain.IsUnauthorized(err) {
				t.Fatalf("err = %v, want unauthorized", err)
			}
			if called {
				t.Fatal("request reached the server despite local gate")
			}
		})
	}
}

func TestService_ValidationBlocksBeforeNetwork(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		okEnvelope(w)
	})
	svc, _ := newTestService(t, handler, adminSession())

	err := svc.Add(context.Background(), AddMealRequest{Title: "x", Price: -1})
	if !domain.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if called {
		t.Fatal("invalid form reached the server")
	}
}

func TestService_AddSendsAdminHeader(t *testing.T) {
	var gotHeader string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(rest.DefaultAdminHeader)
		okEnvelope(w)
	})
	svc, _ := newTestService(t, handler, adminSession())

	form := AddMealRequest{Title: "Paneer", Category: "dinner", Price: 4.5, Distributor: "Kitchen A"}
	if err := svc.Add(context.Background(), form); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if gotHeader != "admin@hostel.test" {
		t.Fatalf("admin header = %q, want admin@hostel.test", gotHeader)
	}
}

func TestService_MemberGating(t *testing.T) {
	tests := []struct {
		name    string
		session *identity.Session
		wantErr bool
	}{
		{"anonymous", nil, true},
		{"unsubscribed", freeSession(), true},
		{"silver member", memberSession(), false},
		{"admin", adminSession(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { okEnvelope(w) })
			svc, _ := newTestService(t, handler, tt.session)

			err := svc.Like(context.Background(), 1)
			if tt.wantErr {
				if !domain.IsUnauthorized(err) {
					t.Fatalf("err = %v, want unauthorized", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Like: %v", err)
			}
		})
	}
}

func TestLikeMutation_RollsBackOnServerRejection(t *testing.T) {
	hits := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(map[string]any{
				"meals": []domain.Meal{{BaseModel: domain.BaseModel{ID: 1}, Title: "Biryani", Likes: 5}},
				"total": 1,
			})
			return
		}
		hits++
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "already liked"})
	})
	svc, _ := newTestService(t, handler, memberSession())

	ch := make(chan listsync.Snapshot[domain.Meal], 16)
	ctrl := svc.NewController(listsync.WithOnChange(func(s listsync.Snapshot[domain.Meal]) { ch <- s }))
	defer ctrl.Close()
	ctrl.Start()
	waitSnapshot(t, ch, func(s listsync.Snapshot[domain.Meal]) bool { return s.Phase == listsync.PhaseLoaded })

	var notified string
	mutator := listsync.NewMutator(
		listsync.ConfirmerFunc(func(string) bool { return true }),
		listsync.NotifierFunc(func(msg string) { notified = msg }),
	)

	meal := ctrl.Snapshot().Items[0]
	err := mutator.Run(context.Background(), svc.LikeMutation(ctrl, meal))
	if !domain.IsApplication(err) {
		t.Fatalf("err = %v, want application error", err)
	}
	if hits != 1 {
		t.Fatalf("like endpoint hit %d times, want 1", hits)
	}
	if got := ctrl.Snapshot().Items[0].Likes; got != 5 {
		t.Fatalf("likes after rollback = %d, want 5", got)
	}
	if notified != "already liked" {
		t.Fatalf("notification = %q, want server message", notified)
	}
}

func TestDeleteMutation_ConfirmDeclinedLeavesListAlone(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(map[string]any{
				"meals": []domain.Meal{{BaseModel: domain.BaseModel{ID: 1}, Title: "Biryani"}},
				"total": 1,
			})
			return
		}
		t.Errorf("unexpected %s %s after declined confirm", r.Method, r.URL.Path)
	})
	svc, _ := newTestService(t, handler, adminSession())

	ch := make(chan listsync.Snapshot[domain.Meal], 16)
	ctrl := svc.NewController(listsync.WithOnChange(func(s listsync.Snapshot[domain.Meal]) { ch <- s }))
	defer ctrl.Close()
	ctrl.Start()
	waitSnapshot(t, ch, func(s listsync.Snapshot[domain.Meal]) bool { return s.Phase == listsync.PhaseLoaded })

	mutator := listsync.NewMutator(
		listsync.ConfirmerFunc(func(string) bool { return false }),
		listsync.NotifierFunc(func(string) {}),
	)

	meal := ctrl.Snapshot().Items[0]
	if err := mutator.Run(context.Background(), svc.DeleteMutation(ctrl, meal)); err != listsync.ErrConfirmDeclined {
		t.Fatalf("err = %v, want ErrConfirmDeclined", err)
	}
	if got := len(ctrl.Snapshot().Items); got != 1 {
		t.Fatalf("items after declined delete = %d, want 1", got)
	}
}

func TestService_Get(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meals/7" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"meal not found"}`)
			return
		}
		json.NewEncoder(w).Encode(domain.Meal{BaseModel: domain.BaseModel{ID: 7}, Title: "Biryani", Ingredients: "rice, spices"})
	})
	svc, _ := newTestService(t, handler, nil)

	m, err := svc.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.Title != "Biryani" || m.Ingredients != "rice, spices" {
		t.Fatalf("unexpected meal: %+v", m)
	}

	_, err = svc.Get(context.Background(), 8)
	if !domain.IsHTTP(err) || domain.HTTPStatus(err) != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 http error", err)
	}
	if msg, ok := domain.ServerMessage(err); !ok || msg != "meal not found" {
		t.Fatalf("server message = %q, %v", msg, ok)
	}
}
