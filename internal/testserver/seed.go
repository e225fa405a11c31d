package testserver

import (
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/ghitriage/internal/model"
	"golang.org/x/crypto/bcrypt"
)

var seedTime = time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)

type seedSignal struct {
	disease, country, location, status string
	priority                           float64
	cases, deaths                      int
	lat, lng                           float64
	ageHours                           int
}

var seedSignals = []seedSignal{
	{"Cholera", "Yemen", "Hodeidah", model.TriagePending, 82.5, 1240, 31, 14.80, 42.95, 6},
	{"Mpox", "Democratic Republic of the Congo", "Kinshasa", model.TriagePending, 74, 310, 12, -4.32, 15.31, 20},
	{"Measles", "Nigeria", "Kano", model.TriageEscalated, 68, 880, 9, 12.00, 8.52, 48},
	{"Dengue", "Brazil", "Sao Paulo", model.TriageAssessing, 55, 15200, 14, -23.55, -46.63, 30},
	{"Avian influenza A(H5N1)", "Cambodia", "", model.TriageRejected, 40, 2, 1, 0, 0, 72},
}

func (s *Server) seed() error {
	users := []struct {
		username, password, fullName, role string
		active                             bool
	}{
		{AnalystUsername, AnalystPassword, "Amina Okafor", "analyst", true},
		{DirectorUsername, DirectorPassword, "Daniel Reyes", "director", true},
		{InactiveUsername, InactivePassword, "Former Analyst", "analyst", false},
	}
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.MinCost)
		if err != nil {
			return err
		}
		s.accounts[u.username] = &account{
			user: model.User{
				ID:         uuid.NewString(),
				Username:   u.username,
				Email:      u.username,
				FullName:   u.fullName,
				Role:       u.role,
				Department: "Health Intelligence",
				IsActive:   u.active,
			},
			hash: hash,
		}
	}

	for _, ss := range seedSignals {
		reported := model.NewTimestamp(seedTime.Add(-time.Duration(ss.ageHours) * time.Hour))
		priority := ss.priority
		sig := &model.Signal{
			ID:            uuid.NewString(),
			Disease:       ss.disease,
			Country:       ss.country,
			DateReported:  reported,
			Cases:         ss.cases,
			Deaths:        ss.deaths,
			SourceURL:     "https://beacon.example.org/events",
			TriageStatus:  ss.status,
			PriorityScore: &priority,
			CurrentStatus: "Active",
			CreatedAt:     reported,
			UpdatedAt:     reported,
		}
		if ss.location != "" {
			loc := ss.location
			sig.Location = &loc
		}
		if ss.lat != 0 || ss.lng != 0 {
			lat, lng := ss.lat, ss.lng
			sig.Latitude, sig.Longitude = &lat, &lng
		}
		s.signals[sig.ID] = sig

		if ss.status == model.TriageEscalated {
			s.seedEscalation(sig)
		}
	}

	analyst := s.accounts[AnalystUsername].user.ID
	for i, n := range []struct {
		title, message, kind, priority string
		read                           bool
	}{
		{"New high-priority signal", "Cholera in Hodeidah scored 82.5", "new_signal", "high", false},
		{"Signal assigned", "Mpox in Kinshasa was assigned to you", "assignment", "normal", false},
		{"Assessment reminder", "Dengue in Sao Paulo has an open assessment", "reminder", "low", true},
	} {
		created := model.NewTimestamp(seedTime.Add(-time.Duration(i) * time.Hour))
		notification := &model.Notification{
			ID:               uuid.NewString(),
			RecipientID:      analyst,
			NotificationType: n.kind,
			Title:            n.title,
			Message:          n.message,
			Read:             n.read,
			Priority:         n.priority,
			CreatedAt:        created,
		}
		if n.read {
			notification.ReadAt = &created
		}
		s.notifications = append(s.notifications, notification)
	}
	return nil
}

func (s *Server) seedEscalation(sig *model.Signal) {
	analyst := s.accounts[AnalystUsername].user.ID
	director := s.accounts[DirectorUsername].user.ID
	at := model.NewTimestamp(seedTime.Add(-2 * time.Hour))

	outcome := string(model.OutcomeEscalate)
	justification := "Sustained transmission across three LGAs with low vaccine coverage"
	yes := true
	a := &model.Assessment{
		ID:                   uuid.NewString(),
		SignalID:             sig.ID,
		AssessmentType:       model.AssessmentIHR,
		IHRQuestion1:         &yes,
		IHRQuestion2:         &yes,
		Status:               "Completed",
		AssignedTo:           analyst,
		OutcomeDecision:      &outcome,
		OutcomeJustification: &justification,
		CreatedAt:            at,
		CompletedAt:          &at,
		UpdatedAt:            at,
	}
	s.assessments[a.ID] = a

	e := &model.Escalation{
		ID:                 uuid.NewString(),
		SignalID:           sig.ID,
		AssessmentID:       a.ID,
		EscalationLevel:    "Director",
		Priority:           "High",
		EscalationReason:   justification,
		RecommendedActions: []string{"Deploy rapid response team", "Notify WHO regional office"},
		DirectorStatus:     model.DirectorPending,
		EscalatedAt:        at,
		EscalatedBy:        analyst,
		CreatedAt:          at,
		UpdatedAt:          at,
	}
	s.escalations[e.ID] = e

	escalationID := e.ID
	s.notifications = append(s.notifications, &model.Notification{
		ID:               uuid.NewString(),
		RecipientID:      director,
		NotificationType: "escalation",
		Title:            "New escalation requires review",
		Message:          "Measles in Kano was escalated",
		EscalationID:     &escalationID,
		Priority:         "high",
		CreatedAt:        at,
	})
}
