// totpctl is the operator CLI for the TotpGuard database. It opens the
// same store as the server, using the same environment configuration.
//
// Usage:
//
//	totpctl enable-2fa <email>     mint a fresh TOTP secret for one user
//	totpctl enable-all-2fa         enable TOTP for every user without a secret
//	totpctl show-totp <email>      show a user's secret, current code and QR
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aussiebroadwan/totpguard/internal/twofa/app"
	"github.com/aussiebroadwan/totpguard/internal/twofa/service"
	"github.com/aussiebroadwan/totpguard/internal/twofa/store/drivers/sqlite"
	"github.com/aussiebroadwan/totpguard/pkg/totpx"
)

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg := app.LoadConfig()

	st, err := sqlite.NewStore(app.DatabaseDSN(cfg.DatabaseFile))
	if err != nil {
		fatal("failed to open database: %v", err)
	}
	defer st.Close()

	if err := st.ApplyMigrations(); err != nil {
		fatal("failed to apply migrations: %v", err)
	}

	lifecycle := &service.LifecycleService{
		Store:  st,
		Issuer: cfg.Issuer,
	}

	ctx := context.Background()

	switch cmd := args[0]; cmd {
	case "enable-2fa":
		if len(args) != 2 {
			fatal("usage: totpctl enable-2fa <email>")
		}
		enable2FA(ctx, lifecycle, args[1])
	case "enable-all-2fa":
		enableAll2FA(ctx, lifecycle)
	case "show-totp":
		if len(args) != 2 {
			fatal("usage: totpctl show-totp <email>")
		}
		showTOTP(ctx, lifecycle, args[1])
	default:
		fatal("unknown command: %s", cmd)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `totpctl manages TOTP secrets in the TotpGuard database.

Commands:
  enable-2fa <email>    Mint a fresh TOTP secret for one user (replaces any existing secret)
  enable-all-2fa        Enable TOTP for every user that has no secret yet
  show-totp <email>     Show a user's secret, current code, countdown and provisioning QR

Configuration comes from the same environment variables as the server
(TOTPGUARD_DATABASE_FILE, TOTPGUARD_ISSUER, ...).
`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// enable2FA always mints a fresh secret, replacing any existing one. A
// user that cannot be found is a hard error, never a silent no-op.
func enable2FA(ctx context.Context, lifecycle *service.LifecycleService, email string) {
	res, err := lifecycle.EnableForEmail(ctx, email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			fatal("user not found: %s", email)
		}
		fatal("failed to enable 2FA for %s: %v", email, err)
	}

	fmt.Printf("✓ Enabled 2FA for: %s\n", email)
	fmt.Printf("Secret:           %s\n", res.Secret)
	fmt.Printf("Provisioning URI: %s\n", res.ProvisioningURI)
}

// enableAll2FA sweeps every user; individual failures are reported but
// never abort the sweep.
func enableAll2FA(ctx context.Context, lifecycle *service.LifecycleService) {
	statuses, err := lifecycle.EnableAll(ctx)
	if err != nil {
		fatal("failed to enable 2FA for all users: %v", err)
	}

	var enabled, skipped, failed int
	for _, status := range statuses {
		switch {
		case status.Err != nil:
			failed++
			fmt.Printf("! Failed to enable 2FA for %s: %v\n", status.Email, status.Err)
		case status.Enabled:
			enabled++
			fmt.Printf("✓ Enabled 2FA for: %s\n", status.Email)
		default:
			skipped++
			fmt.Printf("- Skipped (already has 2FA): %s\n", status.Email)
		}
	}

	fmt.Printf("\nDone. Enabled: %d, skipped: %d, failed: %d\n", enabled, skipped, failed)
}

// showTOTP prints the live TOTP state for one user. Any failure,
// including QR encoding, exits non-zero.
func showTOTP(ctx context.Context, lifecycle *service.LifecycleService, email string) {
	snap, err := lifecycle.Snapshot(ctx, email, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			fatal("user not found: %s", email)
		case errors.Is(err, service.ErrTOTPNotEnabled):
			fatal("2FA is not enabled for: %s", email)
		}
		fatal("failed to read TOTP state for %s: %v", email, err)
	}

	fmt.Printf("User:              %s\n", snap.Email)
	fmt.Printf("Secret:            %s\n", snap.Secret)
	fmt.Printf("Current code:      %s\n", snap.CurrentCode)
	fmt.Printf("Seconds remaining: %d (of %d)\n", snap.SecondsRemaining, totpx.Period)
	fmt.Printf("Provisioning URI:  %s\n", snap.ProvisioningURI)
	fmt.Printf("QR code:           %s\n", snap.QRCodeDataURI)
}
