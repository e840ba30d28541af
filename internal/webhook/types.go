package webhook

import (
	"context"

	"github.com/pysentry/pysentry/internal/checker"
	"github.com/pysentry/pysentry/internal/checkout"
	"github.com/pysentry/pysentry/internal/resultlog"
)

// Cloner fetches a repository (optionally one branch) into a fresh
// temporary checkout.
type Cloner interface {
	Clone(ctx context.Context, cloneURL, branch string) (*checkout.Checkout, error)
}

// FileChecker classifies a single file inside a checkout.
type FileChecker interface {
	CheckFile(ctx context.Context, checkoutDir, relPath string) checker.Result
}

// ResultStore is the append-only log the handlers write to and the
// reporting endpoint reads from.
type ResultStore interface {
	Append(ctx context.Context, e resultlog.Entry) error
	Messages(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}

// Config holds webhook server configuration.
type Config struct {
	// Listen is the address the HTTP server binds to.
	Listen string

	// Secret is the HMAC secret for signature verification.
	Secret string

	// MaxBodySize is the maximum allowed request body size in bytes
	// (default: 1MB).
	MaxBodySize int64
}

// CheckResponse is the JSON response for processed push/PR deliveries.
type CheckResponse struct {
	Status      string   `json:"status"`
	ErrorsFound int      `json:"errors_found"`
	Details     []string `json:"details"`
}

// SkippedResponse is returned for pull-request actions that don't warrant
// a scan.
type SkippedResponse struct {
	Status string `json:"status"`
	Action string `json:"action,omitempty"`
}

// IgnoredResponse is returned for event types the service doesn't handle.
type IgnoredResponse struct {
	Status string `json:"status"`
	Event  string `json:"event"`
}

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Entries       int    `json:"entries"`
}

// ErrorResponse is the JSON response for webhook errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Default values
const (
	DefaultMaxBodySize = 1048576 // 1 MB

	signatureHeader = "X-Hub-Signature-256"
	eventHeader     = "X-GitHub-Event"
	deliveryHeader  = "X-GitHub-Delivery"
)
