package validator

import (
	"errors"
	"testing"
)

type contactForm struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email_simple"`
	Phone    string `json:"phoneNumber" validate:"omitempty,phone"`
	OTP      string `json:"otp" validate:"omitempty,otp"`
}

type passwordForm struct {
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want map[string]string
	}{
		{
			name: "valid",
			in:   contactForm{FullName: "Ann Lee", Email: "ann@example.com", Phone: "+971501234567", OTP: "123456"},
		},
		{
			name: "missing and malformed",
			in:   contactForm{Email: "not-an-email"},
			want: map[string]string{
				"fullName": "Full Name is required",
				"email":    "Enter a valid email",
			},
		},
		{
			name: "bad phone and otp",
			in:   contactForm{FullName: "A", Email: "a@b.co", Phone: "12ab", OTP: "12345"},
			want: map[string]string{
				"phoneNumber": "Enter a valid phone number",
				"otp":         "OTP must be exactly 6 digits",
			},
		},
		{
			name: "passwords differ",
			in:   passwordForm{NewPassword: "secret1", ConfirmPassword: "secret2"},
			want: map[string]string{"confirm_password": "Passwords do not match"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.in)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Check() = %v, want nil", err)
				}
				return
			}
			var fields FieldErrors
			if !errors.As(err, &fields) {
				t.Fatalf("Check() = %v, want FieldErrors", err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("FieldErrors should match ErrValidation")
			}
			if len(fields) != len(tt.want) {
				t.Fatalf("got %d fields %v, want %v", len(fields), fields, tt.want)
			}
			for k, v := range tt.want {
				if fields[k] != v {
					t.Fatalf("field %q = %q, want %q", k, fields[k], v)
				}
			}
		})
	}
}

func TestValidateVar(t *testing.T) {
	if e := ValidateVar("mobile", "+44 20-7946", "phone_loose"); e != nil {
		t.Fatalf("loose phone rejected: %+v", e)
	}
	e := ValidateVar("mobile", "phone", "required,phone")
	if e == nil || e.Tag != "phone" || e.FailedField != "mobile" {
		t.Fatalf("ValidateVar = %+v, want phone failure on mobile", e)
	}
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"mobileNumber": "Mobile Number",
		"role_id":      "Role Id",
		"":             "Value",
		"name":         "Name",
	}
	for in, want := range tests {
		if got := humanize(in); got != want {
			t.Fatalf("humanize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFieldsFirstErrorWins(t *testing.T) {
	got := Fields([]*ErrorResponse{
		{FailedField: "email", Message: "first"},
		{FailedField: "email", Message: "second"},
	})
	if got["email"] != "first" {
		t.Fatalf("Fields kept %q", got["email"])
	}
	if Fields(nil) != nil {
		t.Fatalf("Fields(nil) should be nil")
	}
}
