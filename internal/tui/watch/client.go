// Package watch implements the pysentry result-log watch TUI. It is a
// read-only observer of the reporting endpoints; all state lives in the
// service.
package watch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// --- Message types ---

type healthMsg struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Entries       int    `json:"entries"`
}

type entriesMsg []string

type tickMsg time.Time

type errMsg error

// --- Commands ---

// fetchHealth polls the /healthz endpoint.
func fetchHealth(apiURL string) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(apiURL + "/healthz")
		if err != nil {
			return errMsg(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errMsg(fmt.Errorf("healthz returned %d", resp.StatusCode))
		}

		var h healthMsg
		if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
			return errMsg(err)
		}
		return h
	}
}

// fetchEntries polls the /errors endpoint for the full result log.
func fetchEntries(apiURL string) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(apiURL + "/errors")
		if err != nil {
			return errMsg(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errMsg(fmt.Errorf("errors returned %d", resp.StatusCode))
		}

		var entries []string
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			return errMsg(err)
		}
		return entriesMsg(entries)
	}
}
