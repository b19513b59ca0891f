package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/simp-lee/dinesync/internal/domain"
	"github.com/simp-lee/dinesync/internal/identity"
	"github.com/simp-lee/dinesync/internal/rest"
)

func confirmWith(txID string, err error) CardConfirmer {
	return CardConfirmerFunc(func(ctx context.Context, secret string) (string, error) {
		return txID, err
	})
}

func newTestService(t *testing.T, handler http.Handler, session *identity.Session, confirmer CardConfirmer) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api, err := rest.New(srv.URL)
	if err != nil {
		t.Fatalf("rest.New: %v", err)
	}
	return NewService(api, session, confirmer, nil)
}

func member() *identity.Session {
	return &identity.Session{Email: "m@b.test", Role: domain.RoleUser, Tier: domain.TierNone}
}

func TestCheckout_HappyPath(t *testing.T) {
	var savedTx string
	var savedAmount float64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payments/create-intent":
			json.NewEncoder(w).Encode(map[string]any{"client_secret": "cs_123", "amount": 9.99})
		case "/payments/save":
			var req saveRequest
			json.NewDecoder(r.Body).Decode(&req)
			savedTx = req.TransactionID
			savedAmount = req.Amount
			json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "welcome"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	svc := newTestService(t, handler, member(), confirmWith("tx_42", nil))

	if err := svc.Checkout(context.Background(), "Gold"); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if savedTx != "tx_42" {
		t.Fatalf("saved transaction = %q, want tx_42", savedTx)
	}
	if savedAmount != 9.99 {
		t.Fatalf("saved amount = %v, want the intent amount", savedAmount)
	}
}

func TestCheckout_DeclinedCardSavesNothing(t *testing.T) {
	saveCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payments/create-intent":
			json.NewEncoder(w).Encode(map[string]any{"client_secret": "cs_123", "amount": 9.99})
		case "/payments/save":
			saveCalled = true
		}
	})
	svc := newTestService(t, handler, member(), confirmWith("", errors.New("card declined")))

	err := svc.Checkout(context.Background(), "Gold")
	if !domain.IsApplication(err) {
		t.Fatalf("err = %v, want application error", err)
	}
	if saveCalled {
		t.Fatal("declined payment was recorded")
	}
}

func TestCheckout_Gates(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("gated request reached the server")
	})

	t.Run("anonymous", func(t *testing.T) {
		svc := newTestService(t, handler, nil, confirmWith("tx", nil))
		if err := svc.Checkout(context.Background(), "Gold"); !domain.IsUnauthorized(err) {
			t.Fatalf("err = %v, want unauthorized", err)
		}
	})

	t.Run("unknown package", func(t *testing.T) {
		svc := newTestService(t, handler, member(), confirmWith("tx", nil))
		if err := svc.Checkout(context.Background(), "Diamond"); !domain.IsValidation(err) {
			t.Fatalf("err = %v, want validation error", err)
		}
	})
}

func TestPackages(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"packages": []domain.MembershipPackage{
				{Name: "Silver", Price: 4.99},
				{Name: "Gold", Price: 9.99},
				{Name: "Platinum", Price: 19.99},
			},
		})
	})
	svc := newTestService(t, handler, member(), confirmWith("tx", nil))

	pkgs, err := svc.Packages(context.Background())
	if err != nil {
		t.Fatalf("Packages: %v", err)
	}
	if len(pkgs) != 3 || pkgs[1].Name != "Gold" {
		t.Fatalf("unexpected packages: %+v", pkgs)
	}
}
