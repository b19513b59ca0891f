package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/simp-lee/dinesync/internal/domain"
	"github.com/simp-lee/dinesync/internal/identity"
	"github.com/simp-lee/dinesync/internal/listsync"
	"github.com/simp-lee/dinesync/internal/rest"
)

// newTestCLI builds a cli wired to the given server, answering
// confirmation prompts from answers.
func newTestCLI(t *testing.T, baseURL, answers string, session *identity.Session) (*cli, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	api, err := rest.New(baseURL)
	if err != nil {
		t.Fatalf("rest.New: %v", err)
	}

	var stdout, stderr bytes.Buffer
	c := &cli{
		api:     api,
		session: session,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		stdin:   bufio.NewReader(strings.NewReader(answers)),
		stdout:  &stdout,
		stderr:  &stderr,
		list:    &listFlags{},
		form:    &formFlags{},
	}
	c.mutator = listsync.NewMutator(
		listsync.ConfirmerFunc(c.confirm),
		listsync.NotifierFunc(func(msg string) { fmt.Fprintln(&stderr, msg) }),
		listsync.WithMutatorLogger(c.log),
	)
	return c, &stdout, &stderr
}

func adminSession() *identity.Session {
	return &identity.Session{
		Email: "warden@hostel.test",
		Name:  "Warden",
		Role:  domain.RoleAdmin,
		Tier:  domain.TierPlatinum,
	}
}

func memberSession() *identity.Session {
	return &identity.Session{
		Email: "asha@hostel.test",
		Name:  "Asha",
		Role:  domain.RoleUser,
		Tier:  domain.TierGold,
	}
}

// mealFixtureServer serves a one-meal list plus the mutation endpoints,
// counting how often each is hit.
func mealFixtureServer(deletes, likes *atomic.Int32, likeBody string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /meals", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"meals": []map[string]any{
				{"id": 1, "title": "Dal Tadka", "category": "dinner", "price": 3.5, "likes": 5},
			},
			"total": 1,
		})
	})
	mux.HandleFunc("DELETE /meals/1", func(w http.ResponseWriter, r *http.Request) {
		deletes.Add(1)
		fmt.Fprint(w, `{"success":true,"message":"meal deleted"}`)
	})
	mux.HandleFunc("POST /meals/1/like", func(w http.ResponseWriter, r *http.Request) {
		likes.Add(1)
		fmt.Fprint(w, likeBody)
	})
	return httptest.NewServer(mux)
}

func TestDeleteMeal_DeclinedPromptMakesNoCall(t *testing.T) {
	var deletes, likes atomic.Int32
	ts := mealFixtureServer(&deletes, &likes, "")
	defer ts.Close()

	c, _, stderr := newTestCLI(t, ts.URL, "n\n", adminSession())

	err := c.run("delete-meal", []string{"1"})
	if !errors.Is(err, listsync.ErrConfirmDeclined) {
		t.Fatalf("err = %v; want the confirmation-declined sentinel", err)
	}
	if got := deletes.Load(); got != 0 {
		t.Errorf("delete calls = %d; a declined prompt must not reach the network", got)
	}
	if !strings.Contains(stderr.String(), "Delete \"Dal Tadka\"?") {
		t.Errorf("prompt did not name the meal: %q", stderr.String())
	}
}

func TestDeleteMeal_ConfirmedCallsOnce(t *testing.T) {
	var deletes, likes atomic.Int32
	ts := mealFixtureServer(&deletes, &likes, "")
	defer ts.Close()

	c, stdout, _ := newTestCLI(t, ts.URL, "y\n", adminSession())

	if err := c.run("delete-meal", []string{"1"}); err != nil {
		t.Fatalf("delete-meal: %v", err)
	}
	if got := deletes.Load(); got != 1 {
		t.Errorf("delete calls = %d; want 1", got)
	}
	if !strings.Contains(stdout.String(), "meal deleted") {
		t.Errorf("stdout = %q; want the deletion notice", stdout.String())
	}
}

func TestLikeMeal_ServerRefusalSurfacesMessage(t *testing.T) {
	var deletes, likes atomic.Int32
	ts := mealFixtureServer(&deletes, &likes, `{"success":false,"message":"you already liked this meal"}`)
	defer ts.Close()

	c, _, stderr := newTestCLI(t, ts.URL, "", memberSession())

	err := c.run("like", []string{"1"})
	if err == nil {
		t.Fatal("expected the refused like to fail")
	}
	if got := likes.Load(); got != 1 {
		t.Errorf("like calls = %d; want 1", got)
	}
	if !strings.Contains(stderr.String(), "you already liked this meal") {
		t.Errorf("stderr = %q; want the server's refusal message", stderr.String())
	}
}

func TestDeleteMeal_UnknownIDFailsBeforePrompt(t *testing.T) {
	var deletes, likes atomic.Int32
	ts := mealFixtureServer(&deletes, &likes, "")
	defer ts.Close()

	c, _, stderr := newTestCLI(t, ts.URL, "y\n", adminSession())

	err := c.run("delete-meal", []string{"42"})
	if !domain.IsNotFound(err) {
		t.Fatalf("err = %v; want not-found", err)
	}
	if got := deletes.Load(); got != 0 {
		t.Errorf("delete calls = %d; want 0", got)
	}
	if strings.Contains(stderr.String(), "[y/N]") {
		t.Error("prompted for a row that does not exist")
	}
}
