// Package twofasdk is a typed client for the TotpGuard HTTP API. It
// carries the request and response shapes shared between the server
// handlers and consumers, plus a small client used by the end-to-end
// tests.
package twofasdk
