package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v82/github"

	"github.com/pysentry/pysentry/internal/checker"
	"github.com/pysentry/pysentry/internal/checkout"
	"github.com/pysentry/pysentry/internal/log"
	"github.com/pysentry/pysentry/internal/resultlog"
)

// qualifyingPRActions are the pull-request actions that trigger a scan.
var qualifyingPRActions = map[string]bool{
	"opened":      true,
	"synchronize": true,
	"reopened":    true,
}

// handlePush checks the added and modified Python files of every commit in
// the delivery, in payload order. Paths listed by multiple commits are
// checked each time they appear.
func (s *Server) handlePush(ctx context.Context, w http.ResponseWriter, deliveryID string, body []byte) {
	logger := log.WithDelivery(deliveryID)

	var event gh.PushEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.respondError(w, http.StatusBadRequest, "malformed push payload")
		return
	}

	cloneURL := event.GetRepo().GetCloneURL()
	logger.Info("handling push", "repo", cloneURL, "commits", len(event.Commits))

	co, err := s.fetcher.Clone(ctx, cloneURL, "")
	if err != nil {
		s.recordCloneFailure(ctx, w, deliveryID, cloneURL, err)
		return
	}

	details := []string{}
	errorsFound := 0
	for _, commit := range event.Commits {
		if commit == nil {
			continue
		}
		paths := append(commit.Added, commit.Modified...)
		for _, path := range paths {
			if !strings.HasSuffix(path, ".py") {
				continue
			}
			res := s.checkAndRecord(ctx, deliveryID, co.Dir, path)
			details = append(details, res.Message)
			if res.Class.IsError() {
				errorsFound++
			}
		}
	}

	if !s.cleanup(w, co, logger) {
		return
	}

	s.respondJSON(w, http.StatusOK, CheckResponse{
		Status:      "errors recorded",
		ErrorsFound: errorsFound,
		Details:     details,
	})
}

// handlePullRequest scans the entire head branch of a qualifying pull
// request. Non-qualifying actions are skipped without cloning.
func (s *Server) handlePullRequest(ctx context.Context, w http.ResponseWriter, deliveryID string, body []byte) {
	logger := log.WithDelivery(deliveryID)

	var event gh.PullRequestEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.respondError(w, http.StatusBadRequest, "malformed pull_request payload")
		return
	}

	action := event.GetAction()
	if !qualifyingPRActions[action] {
		logger.Info("skipping pull_request action", "action", action)
		s.respondJSON(w, http.StatusOK, SkippedResponse{Status: "skipped", Action: action})
		return
	}

	cloneURL := event.GetRepo().GetCloneURL()
	branch := event.GetPullRequest().GetHead().GetRef()
	logger.Info("handling pull_request",
		"repo", cloneURL,
		"number", event.GetNumber(),
		"action", action,
		"branch", branch,
	)

	co, err := s.fetcher.Clone(ctx, cloneURL, branch)
	if err != nil {
		s.recordCloneFailure(ctx, w, deliveryID, cloneURL, err)
		return
	}

	details := []string{}
	errorsFound := 0
	walkErr := co.WalkPython(func(relPath string) error {
		res := s.checkAndRecord(ctx, deliveryID, co.Dir, relPath)
		details = append(details, res.Message)
		if res.Class.IsError() {
			errorsFound++
		}
		return nil
	})

	if !s.cleanup(w, co, logger) {
		return
	}
	if walkErr != nil {
		logger.Error("checkout walk failed", "error", walkErr)
		s.respondError(w, http.StatusInternalServerError, "failed to scan checkout")
		return
	}

	s.respondJSON(w, http.StatusOK, CheckResponse{
		Status:      "errors recorded",
		ErrorsFound: errorsFound,
		Details:     details,
	})
}

// checkAndRecord runs the checkers over one file and appends the outcome
// to the result log. Per-file failures never abort the batch.
func (s *Server) checkAndRecord(ctx context.Context, deliveryID, checkoutDir, relPath string) checker.Result {
	res := s.checker.CheckFile(ctx, checkoutDir, relPath)

	entry := resultlog.Entry{
		DeliveryID: deliveryID,
		Path:       res.Path,
		Class:      string(res.Class),
		Digest:     res.Digest,
		Message:    res.Message,
	}
	if err := s.results.Append(ctx, entry); err != nil {
		log.WithDelivery(deliveryID).Error("failed to append result", "path", relPath, "error", err)
	}
	return res
}

// recordCloneFailure degrades a failed clone to a recorded entry and a 502
// rather than aborting the delivery without a response.
func (s *Server) recordCloneFailure(ctx context.Context, w http.ResponseWriter, deliveryID, cloneURL string, cloneErr error) {
	logger := log.WithDelivery(deliveryID)
	logger.Error("clone failed", "repo", cloneURL, "error", cloneErr)

	entry := resultlog.Entry{
		DeliveryID: deliveryID,
		Class:      "clone_error",
		Message:    fmt.Sprintf("❌ Clone failed for %s: %v", cloneURL, cloneErr),
	}
	if err := s.results.Append(ctx, entry); err != nil {
		logger.Error("failed to append clone failure", "error", err)
	}

	s.respondError(w, http.StatusBadGateway, "failed to clone repository")
}

// cleanup removes the checkout before the response is written. Returns
// false when removal failed and an error response was already sent.
func (s *Server) cleanup(w http.ResponseWriter, co *checkout.Checkout, logger *slog.Logger) bool {
	if err := co.Remove(); err != nil {
		logger.Error("checkout cleanup failed", "dir", co.Dir, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to clean up checkout")
		return false
	}
	return true
}
