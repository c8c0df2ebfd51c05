package twofa_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aussiebroadwan/totpguard/pkg/twofasdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helpers for TotpGuard end-to-end tests:
 * container setup and shared account fixtures.
 */

const (
	testImageName = "totpguard-test:latest"

	testEmail    = "alice@example.com"
	testName     = "Alice"
	testPassword = "Sup3r$ecretPass"
)

// TestMain builds the Docker image once before all tests and cleans it
// up after they complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building TotpGuard Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up TotpGuard Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/totpguard/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// setupContainer starts the service with auto-provisioning toggled as
// given and returns the base URL. Rate limits are raised well above
// production defaults so rapid test requests do not trip them.
func setupContainer(t *testing.T, autoProvision bool) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"TOTPGUARD_DATABASE_FILE":  "/totpguard.db",
			"TOTPGUARD_PEPPER_FILE":    "/pepper",
			"TOTPGUARD_ISSUER":         "TotpGuard",
			"TOTPGUARD_AUTO_PROVISION": fmt.Sprintf("%t", autoProvision),
			"ENV":                      "test",
			"LOG_LEVEL":                "info",
			"LOG_FORMAT":               "json",
			// Raised limits: tests make many rapid requests
			"RATELIMIT_STRICT_REQUESTS":   "1000",
			"RATELIMIT_STRICT_WINDOW_SEC": "60",
			"RATELIMIT_STRICT_BURST":      "1000",
			"RATELIMIT_MODERATE_REQUESTS": "1000",
			"RATELIMIT_MODERATE_BURST":    "1000",
		},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// createTestUser registers the shared fixture account.
func createTestUser(t *testing.T, client *twofasdk.Client) twofasdk.UserResponse {
	t.Helper()

	user, err := client.CreateUser(context.Background(), twofasdk.CreateUserRequest{
		Email:         testEmail,
		PreferredName: testName,
		Password:      testPassword,
	})
	require.NoError(t, err, "user creation should succeed")
	require.False(t, user.TOTPEnabled, "new accounts start without 2FA")
	return user
}

// requireAPIError asserts err is an *twofasdk.APIError with the code.
func requireAPIError(t *testing.T, err error, code string) {
	t.Helper()

	var apiErr *twofasdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, code, apiErr.Code)
}
