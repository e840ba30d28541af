package webhook

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/pysentry/pysentry/internal/checker"
)

func TestPushChecksAddedAndModifiedInOrder(t *testing.T) {
	cloner := &mockCloner{files: map[string]string{
		"a.py": "x = 1\n",
		"b.py": "y = 2\n",
		"c.py": "z = 3\n",
	}}
	chk := &mockChecker{}
	store := &memStore{}
	s := newTestServer(cloner, chk, store)

	body := []byte(`{
		"repository": {"clone_url": "https://example.com/repo.git"},
		"commits": [
			{"added": ["a.py", "notes.txt"], "modified": ["b.py"]},
			{"added": [], "modified": ["a.py", "c.py"]}
		]
	}`)
	rec := postWebhook(t, s, "push", body, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Non-.py paths skipped; duplicates across commits re-checked in order.
	want := []string{"a.py", "b.py", "a.py", "c.py"}
	if len(chk.checked) != len(want) {
		t.Fatalf("checked = %v, want %v", chk.checked, want)
	}
	for i := range want {
		if chk.checked[i] != want[i] {
			t.Errorf("checked[%d] = %q, want %q", i, chk.checked[i], want[i])
		}
	}

	if cloner.lastURL != "https://example.com/repo.git" {
		t.Errorf("cloned %q", cloner.lastURL)
	}
	if cloner.lastRef != "" {
		t.Errorf("push clone used branch %q, want none", cloner.lastRef)
	}
	if len(store.entries) != 4 {
		t.Errorf("recorded %d entries, want 4", len(store.entries))
	}
}

func TestPushSyntaxErrorCountsAndDetails(t *testing.T) {
	cloner := &mockCloner{files: map[string]string{"bad.py": "def f(:\n", "ok.py": "x = 1\n"}}
	chk := &mockChecker{results: map[string]checker.Result{
		"bad.py": {
			Path:    "bad.py",
			Class:   checker.ClassSyntaxError,
			Message: "❌ Error in bad.py at line 1: invalid syntax",
		},
	}}
	s := newTestServer(cloner, chk, &memStore{})

	body := []byte(`{
		"repository": {"clone_url": "https://example.com/repo.git"},
		"commits": [{"added": ["bad.py", "ok.py"], "modified": []}]
	}`)
	rec := postWebhook(t, s, "push", body, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp CheckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ErrorsFound != 1 {
		t.Errorf("ErrorsFound = %d, want 1", resp.ErrorsFound)
	}
	if len(resp.Details) != 2 {
		t.Fatalf("Details = %v, want 2 entries", resp.Details)
	}
	if !strings.Contains(resp.Details[0], "bad.py at line 1") {
		t.Errorf("Details[0] = %q", resp.Details[0])
	}
}

func TestPushFileNotFound(t *testing.T) {
	// Checkout contains no files; the listed path is missing.
	cloner := &mockCloner{files: map[string]string{}}
	chk := &mockChecker{}
	store := &memStore{}
	s := newTestServer(cloner, chk, store)

	body := []byte(`{
		"repository": {"clone_url": "https://example.com/repo.git"},
		"commits": [{"added": ["ghost.py"], "modified": []}]
	}`)
	rec := postWebhook(t, s, "push", body, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(store.entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(store.entries))
	}
	e := store.entries[0]
	if e.Class != string(checker.ClassFileMissing) {
		t.Errorf("Class = %q, want %q", e.Class, checker.ClassFileMissing)
	}
	if !strings.Contains(e.Message, "File not found") {
		t.Errorf("Message = %q", e.Message)
	}
}

func TestPushCloneFailure(t *testing.T) {
	cloner := &mockCloner{cloneErr: errors.New("remote unreachable")}
	store := &memStore{}
	s := newTestServer(cloner, &mockChecker{}, store)

	body := []byte(`{"repository":{"clone_url":"https://example.com/repo.git"},"commits":[]}`)
	rec := postWebhook(t, s, "push", body, true)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if len(store.entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(store.entries))
	}
	if store.entries[0].Class != "clone_error" {
		t.Errorf("Class = %q, want clone_error", store.entries[0].Class)
	}
}

func TestPullRequestSkippedAction(t *testing.T) {
	cloner := &mockCloner{}
	store := &memStore{}
	s := newTestServer(cloner, &mockChecker{}, store)

	body := []byte(`{
		"action": "closed",
		"number": 7,
		"pull_request": {"head": {"ref": "feature"}},
		"repository": {"clone_url": "https://example.com/repo.git"}
	}`)
	rec := postWebhook(t, s, "pull_request", body, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp SkippedResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "skipped" || resp.Action != "closed" {
		t.Errorf("resp = %+v", resp)
	}
	if cloner.calls != 0 {
		t.Error("clone attempted for skipped action")
	}
	if len(store.entries) != 0 {
		t.Error("result log changed for skipped action")
	}
}

func TestPullRequestScansWholeCheckout(t *testing.T) {
	cloner := &mockCloner{files: map[string]string{
		"app.py":      "x = 1\n",
		"pkg/util.py": "y = 2\n",
		"README.md":   "docs\n",
	}}
	chk := &mockChecker{}
	store := &memStore{}
	s := newTestServer(cloner, chk, store)

	body := []byte(`{
		"action": "synchronize",
		"number": 12,
		"pull_request": {"head": {"ref": "feature/scan"}},
		"repository": {"clone_url": "https://example.com/repo.git"}
	}`)
	rec := postWebhook(t, s, "pull_request", body, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if cloner.lastRef != "feature/scan" {
		t.Errorf("cloned branch %q, want feature/scan", cloner.lastRef)
	}

	checked := append([]string(nil), chk.checked...)
	sort.Strings(checked)
	want := []string{"app.py", "pkg/util.py"}
	if len(checked) != len(want) {
		t.Fatalf("checked = %v, want %v", checked, want)
	}
	for i := range want {
		if checked[i] != want[i] {
			t.Errorf("checked[%d] = %q, want %q", i, checked[i], want[i])
		}
	}
	if len(store.entries) != 2 {
		t.Errorf("recorded %d entries, want 2", len(store.entries))
	}
}

func TestPullRequestMalformedPayload(t *testing.T) {
	s := newTestServer(&mockCloner{}, &mockChecker{}, &memStore{})

	rec := postWebhook(t, s, "pull_request", []byte(`{not json`), true)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
