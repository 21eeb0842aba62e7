package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse describes one failed field, keyed by its JSON name.
type ErrorResponse struct {
	FailedField string `json:"field"`
	Tag         string `json:"tag"`
	Value       string `json:"value,omitempty"`
	Message     string `json:"message"`
}

var (
	// 7 to 15 digits with an optional leading plus.
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	// Profile phones may contain spaces and dashes.
	loosePhonePattern = regexp.MustCompile(`^\+?[\d\s-]{7,15}$`)
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	otpPattern        = regexp.MustCompile(`^\d{6}$`)
)

var validate = validator.New()

var ErrValidation = errors.New("validation failed")

// FieldErrors maps a field name to its message. The request was not sent.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e))
}

func (e FieldErrors) Is(target error) bool {
	return target == ErrValidation
}

// Check validates data and returns FieldErrors, or nil when valid.
func Check(data interface{}) error {
	if errs := ValidateStruct(data); len(errs) > 0 {
		return FieldErrors(Fields(errs))
	}
	return nil
}

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	validate.RegisterValidation("phone", matchString(phonePattern))
	validate.RegisterValidation("phone_loose", matchString(loosePhonePattern))
	validate.RegisterValidation("email_simple", matchString(emailPattern))
	validate.RegisterValidation("otp", matchString(otpPattern))
}

func matchString(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		return re.MatchString(fl.Field().String())
	}
}

// ValidateStruct runs the struct's validate tags and returns one entry per
// failed field, or nil.
func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*ErrorResponse{{FailedField: "", Tag: "invalid", Message: err.Error()}}
		}
		for _, err := range verrs {
			errors = append(errors, &ErrorResponse{
				FailedField: fieldPath(err.Namespace()),
				Tag:         err.Tag(),
				Value:       err.Param(),
				Message:     message(err.Field(), err.Tag(), err.Param()),
			})
		}
	}
	return errors
}

// ValidateVar checks a single value against a tag list such as "required,phone".
func ValidateVar(field string, value interface{}, tag string) *ErrorResponse {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &ErrorResponse{FailedField: field, Tag: "invalid", Message: err.Error()}
	}
	return &ErrorResponse{
		FailedField: field,
		Tag:         verrs[0].Tag(),
		Value:       verrs[0].Param(),
		Message:     message(field, verrs[0].Tag(), verrs[0].Param()),
	}
}

// Fields flattens errors into field -> message, first error wins.
func Fields(errs []*ErrorResponse) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		if _, seen := out[e.FailedField]; !seen {
			out[e.FailedField] = e.Message
		}
	}
	return out
}

// fieldPath drops the root struct name from a namespace like "CustomerForm.email".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(field, tag, param string) string {
	label := humanize(field)
	switch tag {
	case "required", "required_if", "required_unless", "required_without":
		return label + " is required"
	case "email", "email_simple":
		return "Enter a valid email"
	case "phone", "phone_loose":
		return "Enter a valid phone number"
	case "otp":
		return "OTP must be exactly 6 digits"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(param, " ", ", "))
	case "numeric", "number":
		return label + " must be a number"
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", label, param)
	case "eqfield":
		return "Passwords do not match"
	case "datetime":
		return fmt.Sprintf("%s must use the format %s", label, param)
	}
	return fmt.Sprintf("%s is invalid", label)
}

// humanize turns "mobileNumber" or "role_id" into "Mobile Number" / "Role Id".
func humanize(field string) string {
	if field == "" {
		return "Value"
	}
	var b strings.Builder
	for i, r := range field {
		switch {
		case r == '_':
			b.WriteRune(' ')
			continue
		case i > 0 && r >= 'A' && r <= 'Z':
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	words := strings.Fields(b.String())
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
