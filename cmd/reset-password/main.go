package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"go-survey-console/internal/config"
	"go-survey-console/internal/service"
	"go-survey-console/pkg/apiclient"
	"go-survey-console/pkg/validator"
)

// Resets a console user's password through the upstream OTP flow.
// Without -otp it only requests a code; with -otp and -password it applies it.
func main() {
	email := flag.String("email", "", "account email")
	otp := flag.String("otp", "", "6-digit code from the email")
	password := flag.String("password", "", "new password")
	flag.Parse()

	// 1. Load Env
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if cfg.API.BaseURL == "" {
		log.Fatal("❌ API_BASE_URL is not set")
	}

	// 2. Setup client
	client := apiclient.New(cfg.API.BaseURL, apiclient.WithTimeout(cfg.API.Timeout))
	auth := service.NewAuthService(client, nil, nil, nil, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 3. Request or apply the code
	var msg string
	if *otp == "" {
		msg, err = auth.RequestOTP(ctx, service.RequestOTPRequest{Email: *email})
	} else {
		msg, err = auth.ResetPassword(ctx, service.ResetPasswordRequest{Email: *email, OTP: *otp, NewPassword: *password})
	}
	if err != nil {
		report(err)
		os.Exit(1)
	}
	if msg == "" {
		msg = "done"
	}
	log.Printf("✅ %s", msg)
}

func report(err error) {
	var fields validator.FieldErrors
	if errors.As(err, &fields) {
		for field, msg := range fields {
			fmt.Fprintf(os.Stderr, "❌ %s: %s\n", field, msg)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "❌ %v\n", err)
}
