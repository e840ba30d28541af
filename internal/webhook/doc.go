// Package webhook implements the GitHub webhook listener and the reporting
// endpoint.
//
// # Request Flow
//
//  1. HTTP POST arrives at /webhook
//  2. Body size checked (reject with 413 if too large)
//  3. X-Hub-Signature-256 verified with HMAC-SHA256 over the raw body
//     (constant-time comparison; reject with 401 on any failure)
//  4. Dispatch on X-GitHub-Event:
//     - push: clone the repository, check each commit's added/modified
//       *.py files in payload order
//     - pull_request (opened/synchronize/reopened): clone the head
//       branch, check every *.py file in the checkout
//     - anything else: respond {status: "ignored"}
//  5. Each file gets exactly one result log entry: syntax error, runtime
//     error, timeout, output, file-not-found, or no-errors. A syntax
//     failure suppresses the runtime check for that file.
//  6. The temporary checkout is removed before the response is written,
//     on every path including clone failure.
//
// # Error Responses
//
//   - 401 Unauthorized: invalid or missing signature (no details, log untouched)
//   - 413 Payload Too Large: body exceeds the configured limit
//   - 502 Bad Gateway: clone failed (recorded in the result log)
//   - 500 Internal Server Error: cleanup or result log failure
//
// Per-file failures never fail the delivery; they become log entries and
// the delivery answers 200 with the itemized details.
//
// # Reporting
//
// GET /errors returns every recorded message since process start, in
// append order, as a JSON array of strings. GET /healthz reports liveness
// and the entry count.
package webhook
