package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/ghitriage/internal/model"
)

const timeLayout = "2006-01-02 15:04"

func formatTime(t model.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

// User prints the signed-in user
func User(w io.Writer, u *model.User) {
	if u == nil {
		Hint(w, "not logged in")
		return
	}
	lines := []string{
		titleStyle.Render(u.DisplayName()),
		"username: " + u.Username,
		"role:     " + accentStyle.Render(u.Role),
	}
	if u.Department != "" {
		lines = append(lines, "dept:     "+u.Department)
	}
	panel(w, lines)
}

// Signals prints a signal table, highest priority first as received
func Signals(w io.Writer, signals []model.Signal) {
	if len(signals) == 0 {
		Hint(w, "no signals")
		return
	}
	fmt.Fprintln(w, headerStyle.Render(row(
		cell("PRIORITY", 8), cell("DISEASE", 22), cell("PLACE", 28),
		cell("CASES", 7), cell("DEATHS", 6), cell("STATUS", 16), cell("ID", 36))))
	for _, s := range signals {
		score := s.Priority()
		fmt.Fprintln(w, row(
			priorityStyle(score).Render(cell(fmt.Sprintf("%.1f", score), 8)),
			cell(s.Disease, 22),
			cell(s.Place(), 28),
			cell(fmt.Sprint(s.Cases), 7),
			cell(fmt.Sprint(s.Deaths), 6),
			cell(s.TriageStatus, 16),
			mutedStyle.Render(s.ID),
		))
	}
}

// Signal prints one signal in detail
func Signal(w io.Writer, s model.Signal) {
	lines := []string{
		titleStyle.Render(s.Disease + " in " + s.Place()),
		"id:        " + s.ID,
		"priority:  " + priorityStyle(s.Priority()).Render(fmt.Sprintf("%.1f", s.Priority())),
		"status:    " + s.TriageStatus + " / " + s.CurrentStatus,
		fmt.Sprintf("cases:     %d (deaths %d)", s.Cases, s.Deaths),
		"reported:  " + formatTime(s.DateReported),
	}
	if s.CaseFatalityRate != nil {
		lines = append(lines, fmt.Sprintf("cfr:       %.2f%%", *s.CaseFatalityRate))
	}
	if d := deref(s.Description); d != "" {
		lines = append(lines, "", d)
	}
	if s.SourceURL != "" {
		lines = append(lines, mutedStyle.Render(s.SourceURL))
	}
	panel(w, lines)
}

// Filters prints the available filter values
func Filters(w io.Writer, opts *model.FilterOptions) {
	fmt.Fprintln(w, headerStyle.Render("Diseases"))
	for _, d := range opts.Diseases {
		fmt.Fprintln(w, "  "+d)
	}
	fmt.Fprintln(w, headerStyle.Render("Locations"))
	for _, l := range opts.Locations {
		fmt.Fprintln(w, "  "+l)
	}
}

// Notifications prints the inbox with unread entries emphasised
func Notifications(w io.Writer, inbox model.Inbox) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Notifications (%d unread)", inbox.UnreadCount)))
	if len(inbox.Items) == 0 {
		Hint(w, "inbox empty")
		return
	}
	for _, n := range inbox.Items {
		marker := " "
		title := n.Title
		if !n.Read {
			marker = accentStyle.Render("●")
			title = unreadStyle.Render(title)
		}
		fmt.Fprintf(w, "%s %s  %s  %s\n", marker, cell(formatTime(n.CreatedAt), 16), title, mutedStyle.Render(n.ID))
		if n.Message != "" {
			fmt.Fprintln(w, "    "+mutedStyle.Render(n.Message))
		}
	}
}

// Escalations prints pending escalations
func Escalations(w io.Writer, items []model.Escalation) {
	if len(items) == 0 {
		Hint(w, "no escalations awaiting a decision")
		return
	}
	fmt.Fprintln(w, headerStyle.Render(row(
		cell("PRIORITY", 8), cell("LEVEL", 10), cell("ESCALATED", 16), cell("REASON", 40), cell("ID", 36))))
	for _, e := range items {
		fmt.Fprintln(w, row(
			cell(e.Priority, 8),
			cell(e.EscalationLevel, 10),
			cell(formatTime(e.EscalatedAt), 16),
			cell(e.EscalationReason, 40),
			mutedStyle.Render(e.ID),
		))
	}
}

// EscalationDetail prints an escalation with its signal and assessment
func EscalationDetail(w io.Writer, d *model.EscalationDetail) {
	lines := []string{
		titleStyle.Render("Escalation " + d.ID),
		"status:    " + d.DirectorStatus,
		"priority:  " + d.Priority,
		"reason:    " + d.EscalationReason,
	}
	if len(d.RecommendedActions) > 0 {
		lines = append(lines, "recommended:")
		for _, a := range d.RecommendedActions {
			lines = append(lines, "  - "+a)
		}
	}
	if dec := deref(d.DirectorDecision); dec != "" {
		lines = append(lines, "decision:  "+dec)
	}
	panel(w, lines)
	Signal(w, d.Signal)
	Assessment(w, &d.Assessment)
}

// Assessment prints an assessment summary
func Assessment(w io.Writer, a *model.Assessment) {
	lines := []string{
		titleStyle.Render(string(a.AssessmentType) + " assessment"),
		"id:      " + a.ID,
		"signal:  " + a.SignalID,
		"status:  " + a.Status,
	}
	switch a.AssessmentType {
	case model.AssessmentIHR:
		for i, q := range []*bool{a.IHRQuestion1, a.IHRQuestion2, a.IHRQuestion3, a.IHRQuestion4} {
			lines = append(lines, fmt.Sprintf("Q%d:      %s", i+1, yesNo(q)))
		}
	case model.AssessmentRRA:
		lines = append(lines,
			"risk:    "+deref(a.RRAOverallRisk),
			"conf:    "+deref(a.RRAConfidenceLevel))
		if len(a.RRARecommendations) > 0 {
			lines = append(lines, "recommendations: "+strings.Join(a.RRARecommendations, "; "))
		}
	}
	if o := deref(a.OutcomeDecision); o != "" {
		lines = append(lines, "outcome: "+o+" ("+deref(a.OutcomeJustification)+")")
	}
	panel(w, lines)
}

func yesNo(b *bool) string {
	switch {
	case b == nil:
		return mutedStyle.Render("unanswered")
	case *b:
		return "yes"
	default:
		return "no"
	}
}

// ScraperStatus prints ingestion state along with any local sync state
func ScraperStatus(w io.Writer, st model.ScraperStatus, syncing bool, syncErr error) {
	state := okStyle.Render("idle")
	if st.IsActive || syncing {
		state = warnStyle.Render("syncing")
	}
	lines := []string{titleStyle.Render("Beacon ingestion") + "  " + state}
	if st.LastSyncAt != nil {
		lines = append(lines, fmt.Sprintf("last sync: %s (%d signals)", formatTime(*st.LastSyncAt), st.LastSyncCount))
	} else {
		lines = append(lines, "last sync: never")
	}
	if e := deref(st.LastSyncError); e != "" {
		lines = append(lines, errStyle.Render("last error: "+e))
	}
	if !st.CanSyncNow && st.NextAllowedSyncAt != nil {
		lines = append(lines, "next sync allowed: "+formatTime(*st.NextAllowedSyncAt))
	}
	if syncErr != nil {
		lines = append(lines, errStyle.Render("sync failed: "+syncErr.Error()))
	}
	panel(w, lines)
}

// MapData prints a marker summary
func MapData(w io.Writer, data model.MapData) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d geocoded signals", data.TotalSignals)))
	for _, m := range data.Markers {
		fmt.Fprintln(w, row(
			priorityStyle(m.PriorityScore).Render(cell(fmt.Sprintf("%.1f", m.PriorityScore), 6)),
			cell(m.Disease, 22),
			cell(m.Country, 24),
			fmt.Sprintf("%.2f,%.2f", m.Latitude, m.Longitude),
		))
	}
}

// FeedStatus is a one-line header for a live feed
func FeedStatus(name, state string, err error, updatedAt time.Time) string {
	line := titleStyle.Render(name) + " " + mutedStyle.Render("["+state+"]")
	if !updatedAt.IsZero() {
		line += mutedStyle.Render(" updated " + updatedAt.Local().Format("15:04:05"))
	}
	if err != nil {
		line += " " + errStyle.Render(err.Error())
	}
	return line
}
