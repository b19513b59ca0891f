package pkg

import (
	"strings"
	"testing"

	"github.com/simp-lee/dinesync/internal/domain"
)

type testForm struct {
	Email    string  `json:"email" validate:"required,email"`
	Title    string  `json:"title" validate:"required,min=2,max=10"`
	Rating   int     `json:"rating" validate:"gte=1,lte=5"`
	Price    float64 `json:"price" validate:"gte=0"`
	Category string  `json:"category" validate:"omitempty,oneof=breakfast lunch dinner"`
}

func validForm() testForm {
	return testForm{
		Email:    "asha@hostel.test",
		Title:    "Veg Thali",
		Rating:   4,
		Price:    5.5,
		Category: "lunch",
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	if err := ValidateStruct(validForm()); err != nil {
		t.Fatalf("ValidateStruct: %v", err)
	}
}

func TestValidateStruct_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*testForm)
		wantMsg string
	}{
		{
			name:    "missing required field",
			mutate:  func(f *testForm) { f.Title = "" },
			wantMsg: "title is required",
		},
		{
			name:    "bad email",
			mutate:  func(f *testForm) { f.Email = "not-an-email" },
			wantMsg: "email must be a valid email address",
		},
		{
			name:    "too short",
			mutate:  func(f *testForm) { f.Title = "x" },
			wantMsg: "title must be at least 2",
		},
		{
			name:    "too long",
			mutate:  func(f *testForm) { f.Title = "a very long meal title" },
			wantMsg: "title must be at most 10",
		},
		{
			name:    "rating above range",
			mutate:  func(f *testForm) { f.Rating = 6 },
			wantMsg: "rating must be at most 5",
		},
		{
			name:    "negative price",
			mutate:  func(f *testForm) { f.Price = -1 },
			wantMsg: "price must be at least 0",
		},
		{
			name:    "category outside allowed set",
			mutate:  func(f *testForm) { f.Category = "brunch" },
			wantMsg: "category must be one of breakfast lunch dinner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(&form)

			err := ValidateStruct(form)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !domain.IsValidation(err) {
				t.Errorf("IsValidation = false, err = %v", err)
			}
			if msg := domain.UserMessage(err, ""); !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("message %q does not contain %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestValidateStruct_JoinsMultipleFailures(t *testing.T) {
	form := validForm()
	form.Email = ""
	form.Rating = 0

	err := ValidateStruct(form)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	msg := domain.UserMessage(err, "")
	if !strings.Contains(msg, "email is required") || !strings.Contains(msg, "rating must be at least 1") {
		t.Errorf("message %q missing one of the expected parts", msg)
	}
	if !strings.Contains(msg, "; ") {
		t.Errorf("message %q should join failures with a semicolon", msg)
	}
}
