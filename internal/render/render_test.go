package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/stretchr/testify/require"
)

func TestSignals(t *testing.T) {
	var buf bytes.Buffer
	score := 82.5
	loc := "Hodeidah"
	Signals(&buf, []model.Signal{{
		ID:            "5b0d7c1e-6d4f-4d7e-9a55-0a4f0b1c2d3e",
		Disease:       "Cholera",
		Country:       "Yemen",
		Location:      &loc,
		Cases:         1240,
		TriageStatus:  model.TriagePending,
		PriorityScore: &score,
	}})

	out := buf.String()
	require.Contains(t, out, "Cholera")
	require.Contains(t, out, "Hodeidah, Yemen")
	require.Contains(t, out, "82.5")
	require.Contains(t, out, "Pending Triage")

	buf.Reset()
	Signals(&buf, nil)
	require.Contains(t, buf.String(), "no signals")
}

func TestNotifications(t *testing.T) {
	var buf bytes.Buffer
	Notifications(&buf, model.Inbox{
		Items: []model.Notification{
			{ID: "n1", Title: "New high-priority signal", Message: "Cholera"},
			{ID: "n2", Title: "Reminder", Read: true},
		},
		UnreadCount: 1,
	})
	out := buf.String()
	require.Contains(t, out, "1 unread")
	require.Contains(t, out, "New high-priority signal")
	require.Contains(t, out, "Reminder")
}

func TestScraperStatus(t *testing.T) {
	var buf bytes.Buffer
	ScraperStatus(&buf, model.ScraperStatus{}, false, errors.New("409 conflict"))
	out := buf.String()
	require.Contains(t, out, "never")
	require.Contains(t, out, "sync failed: 409 conflict")
}

func TestCell(t *testing.T) {
	require.Equal(t, "ab   ", cell("ab", 5))
	got := cell("abcdefgh", 5)
	require.Equal(t, 5, len([]rune(strings.TrimRight(got, " "))))
	require.True(t, strings.HasSuffix(got, "…"))
}

func TestFeedStatus(t *testing.T) {
	line := FeedStatus("signals", "error", errors.New("boom"), time.Time{})
	require.Contains(t, line, "signals")
	require.Contains(t, line, "boom")
	require.NotContains(t, line, "updated")
}

func TestStructured(t *testing.T) {
	v := model.FilterOptions{Diseases: []string{"Cholera"}, Locations: []string{"Yemen"}}

	var buf bytes.Buffer
	require.NoError(t, Structured(&buf, FormatJSON, v))
	require.Contains(t, buf.String(), `"diseases": [`)

	buf.Reset()
	require.NoError(t, Structured(&buf, FormatYAML, v))
	require.Contains(t, buf.String(), "diseases:\n  - Cholera")

	require.Error(t, Structured(&buf, "xml", v))
}
