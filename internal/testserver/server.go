// Package testserver is an in-process stand-in for the triage backend.
// Tests drive the real API client against it.
package testserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ppiankov/ghitriage/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Seeded accounts
const (
	AnalystUsername  = "analyst@ghi.gov"
	AnalystPassword  = "triage-2024"
	DirectorUsername = "director@ghi.gov"
	DirectorPassword = "decide-2024"
	InactiveUsername = "retired@ghi.gov"
	InactivePassword = "retired-2024"
)

// Route names accepted by Hits, LastQuery, Fail and Gate
const (
	RouteLogin           = "login"
	RouteMe              = "me"
	RouteRefresh         = "refresh"
	RouteLogout          = "logout"
	RouteSignals         = "signals"
	RouteFilters         = "filters"
	RouteMapData         = "map-data"
	RouteScraperStatus   = "scraper-status"
	RoutePollBeacon      = "poll-beacon"
	RouteSignal          = "signal"
	RouteTriage          = "triage"
	RouteCreateAssess    = "assessment-create"
	RouteGetAssess       = "assessment-get"
	RouteUpdateAssess    = "assessment-update"
	RouteCompleteAssess  = "assessment-complete"
	RoutePending         = "escalations-pending"
	RouteEscalation      = "escalation"
	RouteDecision        = "decision"
	RouteNotifications   = "notifications"
	RouteUnreadCount     = "unread-count"
	RouteMarkRead        = "mark-read"
	RouteMarkAllRead     = "mark-all-read"
	tokenLifetimeSeconds = 1800
)

type account struct {
	user model.User
	hash []byte
}

// Server is a stub backend with seeded users, signals, an escalated
// assessment and notifications
type Server struct {
	srv *httptest.Server

	mu            sync.Mutex
	accounts      map[string]*account // by username
	tokens        map[string]string   // token -> username
	signals       map[string]*model.Signal
	assessments   map[string]*model.Assessment
	escalations   map[string]*model.Escalation
	notifications []*model.Notification
	scraper       model.ScraperStatus

	hits     map[string]int
	queries  map[string]url.Values
	failures map[string]int
	gates    map[string]chan struct{}
}

// New starts a seeded server that is closed when the test ends
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		accounts:    make(map[string]*account),
		tokens:      make(map[string]string),
		signals:     make(map[string]*model.Signal),
		assessments: make(map[string]*model.Assessment),
		escalations: make(map[string]*model.Escalation),
		hits:        make(map[string]int),
		queries:     make(map[string]url.Values),
		failures:    make(map[string]int),
		gates:       make(map[string]chan struct{}),
		scraper:     model.ScraperStatus{CanSyncNow: true},
	}
	if err := s.seed(); err != nil {
		t.Fatalf("seed test server: %v", err)
	}

	s.srv = httptest.NewServer(s.router())
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the server's base URL
func (s *Server) URL() string {
	return s.srv.URL
}

// Hits returns how many requests reached route
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// TotalHits returns the number of requests across all routes
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.hits {
		n += h
	}
	return n
}

// LastQuery returns the query string of the latest request to route
func (s *Server) LastQuery(route string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[route]
}

// Fail makes route answer status until Fail is called with 0
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = status
}

// Gate holds requests to route after they are counted until the returned
// func is called
func (s *Server) Gate(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[route] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, route)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// RevokeTokens invalidates every issued token
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

// IssueToken logs username in without going through /auth/login
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	s.tokens[token] = username
	return token
}

// SignalIDs returns seeded signal ids, highest priority first
func (s *Server) SignalIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.sortedSignals()
	ids := make([]string, len(list))
	for i, sig := range list {
		ids[i] = sig.ID
	}
	return ids
}

// PendingEscalationID returns the id of an escalation awaiting review
func (s *Server) PendingEscalationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.escalations {
		if e.DirectorStatus == model.DirectorPending {
			return id
		}
	}
	return ""
}

// NotificationIDs returns the ids of username's notifications, newest first
func (s *Server) NotificationIDs(username string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accounts[username]
	if acct == nil {
		return nil
	}
	var ids []string
	for _, n := range s.inbox(acct.user.ID) {
		ids = append(ids, n.ID)
	}
	return ids
}

// SetScraperStatus replaces the reported ingestion state
func (s *Server) SetScraperStatus(status model.ScraperStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scraper = status
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/auth/login", s.route(RouteLogin, false, s.handleLogin)).Methods(http.MethodPost)
	v1.HandleFunc("/auth/me", s.route(RouteMe, true, s.handleMe)).Methods(http.MethodGet)
	v1.HandleFunc("/auth/refresh", s.route(RouteRefresh, true, s.handleRefresh)).Methods(http.MethodPost)
	v1.HandleFunc("/auth/logout", s.route(RouteLogout, true, s.handleLogout)).Methods(http.MethodPost)

	// Fixed paths before {id}
	v1.HandleFunc("/signals", s.route(RouteSignals, true, s.handleListSignals)).Methods(http.MethodGet)
	v1.HandleFunc("/signals/filters", s.route(RouteFilters, true, s.handleFilters)).Methods(http.MethodGet)
	v1.HandleFunc("/signals/map-data", s.route(RouteMapData, true, s.handleMapData)).Methods(http.MethodGet)
	v1.HandleFunc("/signals/scraper-status", s.route(RouteScraperStatus, true, s.handleScraperStatus)).Methods(http.MethodGet)
	v1.HandleFunc("/signals/poll-beacon", s.route(RoutePollBeacon, true, s.handlePollBeacon)).Methods(http.MethodPost)
	v1.HandleFunc("/signals/{id}", s.route(RouteSignal, true, s.handleGetSignal)).Methods(http.MethodGet)
	v1.HandleFunc("/signals/{id}/triage", s.route(RouteTriage, true, s.handleTriage)).Methods(http.MethodPost)

	v1.HandleFunc("/assessments", s.route(RouteCreateAssess, true, s.handleCreateAssessment)).Methods(http.MethodPost)
	v1.HandleFunc("/assessments/{id}", s.route(RouteGetAssess, true, s.handleGetAssessment)).Methods(http.MethodGet)
	v1.HandleFunc("/assessments/{id}", s.route(RouteUpdateAssess, true, s.handleUpdateAssessment)).Methods(http.MethodPatch)
	v1.HandleFunc("/assessments/{id}/complete", s.route(RouteCompleteAssess, true, s.handleCompleteAssessment)).Methods(http.MethodPost)

	v1.HandleFunc("/escalations/pending", s.route(RoutePending, true, s.handlePending)).Methods(http.MethodGet)
	v1.HandleFunc("/escalations/{id}", s.route(RouteEscalation, true, s.handleEscalation)).Methods(http.MethodGet)
	v1.HandleFunc("/escalations/{id}/decision", s.route(RouteDecision, true, s.handleDecision)).Methods(http.MethodPatch)

	v1.HandleFunc("/notifications", s.route(RouteNotifications, true, s.handleNotifications)).Methods(http.MethodGet)
	v1.HandleFunc("/notifications/unread-count", s.route(RouteUnreadCount, true, s.handleUnreadCount)).Methods(http.MethodGet)
	v1.HandleFunc("/notifications/mark-all-read", s.route(RouteMarkAllRead, true, s.handleMarkAllRead)).Methods(http.MethodPatch)
	v1.HandleFunc("/notifications/{id}/read", s.route(RouteMarkRead, true, s.handleMarkRead)).Methods(http.MethodPatch)

	return r
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user *model.User)

// route counts the request, applies gates and injected failures, and
// resolves the bearer token when authenticated is set
func (s *Server) route(name string, authenticated bool, h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[name]++
		s.queries[name] = r.URL.Query()
		gate := s.gates[name]
		status := s.failures[name]
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		if status != 0 {
			writeDetail(w, status, http.StatusText(status))
			return
		}

		if !authenticated {
			h(w, r, nil)
			return
		}

		user := s.authenticate(r)
		if user == nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		h(w, r, user)
	}
}

func (s *Server) authenticate(r *http.Request) *model.User {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.tokens[token]
	if !ok {
		return nil
	}
	acct := s.accounts[username]
	if acct == nil || !acct.user.IsActive {
		return nil
	}
	u := acct.user
	return &u
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, _ *model.User) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	s.mu.Lock()
	acct := s.accounts[username]
	s.mu.Unlock()

	if acct == nil || bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	if !acct.user.IsActive {
		writeDetail(w, http.StatusForbidden, "Inactive user")
		return
	}

	token := s.IssueToken(username)
	user := acct.user
	writeJSON(w, http.StatusOK, model.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   tokenLifetimeSeconds,
		User:        &user,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, user *model.User) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request, user *model.User) {
	token := s.IssueToken(user.Username)
	writeJSON(w, http.StatusOK, model.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   tokenLifetimeSeconds,
		User:        user,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request, _ *model.User) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request, _ *model.User) {
	q := r.URL.Query()
	status, disease, location := q.Get("status"), q.Get("disease"), q.Get("location")

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []model.Signal{}
	for _, sig := range s.sortedSignals() {
		if status != "" && sig.TriageStatus != status {
			continue
		}
		if disease != "" && sig.Disease != disease {
			continue
		}
		if location != "" && sig.Country != location && (sig.Location == nil || *sig.Location != location) {
			continue
		}
		out = append(out, *sig)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFilters(w http.ResponseWriter, _ *http.Request, _ *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	diseases := map[string]bool{}
	locations := map[string]bool{}
	for _, sig := range s.signals {
		diseases[sig.Disease] = true
		locations[sig.Country] = true
	}
	writeJSON(w, http.StatusOK, model.FilterOptions{
		Diseases:  sortedKeys(diseases),
		Locations: sortedKeys(locations),
	})
}

func (s *Server) handleMapData(w http.ResponseWriter, r *http.Request, _ *model.User) {
	q := r.URL.Query()
	status := q.Get("status")
	minPriority := -1.0
	if v := q.Get("min_priority"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeValidation(w, "min_priority", "Input should be a valid number")
			return
		}
		minPriority = f
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data := model.MapData{Markers: []model.MapMarker{}, HeatmapPoints: []model.HeatmapPoint{}}
	for _, sig := range s.sortedSignals() {
		if sig.Latitude == nil || sig.Longitude == nil {
			continue
		}
		if status != "" && sig.TriageStatus != status {
			continue
		}
		if sig.Priority() < minPriority {
			continue
		}
		data.Markers = append(data.Markers, model.MapMarker{
			ID:            sig.ID,
			Latitude:      *sig.Latitude,
			Longitude:     *sig.Longitude,
			PriorityScore: sig.Priority(),
			Disease:       sig.Disease,
			Country:       sig.Country,
			Location:      sig.Location,
			Cases:         sig.Cases,
			Deaths:        sig.Deaths,
			TriageStatus:  sig.TriageStatus,
			DateReported:  sig.DateReported,
		})
		data.HeatmapPoints = append(data.HeatmapPoints, model.HeatmapPoint{
			Latitude:  *sig.Latitude,
			Longitude: *sig.Longitude,
			Intensity: sig.Priority() / 100,
		})
	}
	data.TotalSignals = len(data.Markers)
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleScraperStatus(w http.ResponseWriter, _ *http.Request, _ *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.scraper)
}

func (s *Server) handlePollBeacon(w http.ResponseWriter, _ *http.Request, _ *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scraper.IsActive {
		writeDetail(w, http.StatusConflict, "A sync is already in progress")
		return
	}
	if !s.scraper.CanSyncNow {
		writeDetail(w, http.StatusTooManyRequests, "Sync rate limited, try again later")
		return
	}
	now := model.NewTimestamp(time.Now())
	s.scraper.LastSyncAt = &now
	s.scraper.LastSyncError = nil
	s.scraper.LastSyncCount = 0
	writeJSON(w, http.StatusOK, model.BeaconSyncResult{Message: "Beacon sync started", Status: "started"})
}

func (s *Server) handleGetSignal(w http.ResponseWriter, r *http.Request, _ *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.signals[mux.Vars(r)["id"]]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Signal not found")
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

func (s *Server) handleTriage(w http.ResponseWriter, r *http.Request, _ *model.User) {
	var body model.TriageUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.signals[mux.Vars(r)["id"]]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Signal not found")
		return
	}
	if body.TriageStatus != "" {
		sig.TriageStatus = body.TriageStatus
	}
	if body.CurrentStatus != "" {
		sig.CurrentStatus = body.CurrentStatus
	}
	sig.UpdatedAt = model.NewTimestamp(time.Now())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signal triaged", "signal_id": sig.ID})
}

func (s *Server) handleCreateAssessment(w http.ResponseWriter, r *http.Request, user *model.User) {
	var body model.AssessmentCreate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.signals[body.SignalID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Signal not found")
		return
	}

	now := model.NewTimestamp(time.Now())
	a := &model.Assessment{
		ID:             uuid.NewString(),
		SignalID:       sig.ID,
		AssessmentType: body.AssessmentType,
		Status:         "In Progress",
		AssignedTo:     user.ID,
		CreatedAt:      now,
		StartedAt:      &now,
		UpdatedAt:      now,
	}
	s.assessments[a.ID] = a
	sig.TriageStatus = model.TriageAssessing
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request, _ *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assessments[mux.Vars(r)["id"]]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Assessment not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateAssessment(w http.ResponseWriter, r *http.Request, _ *model.User) {
	var body model.AssessmentUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assessments[mux.Vars(r)["id"]]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Assessment not found")
		return
	}
	applyUpdate(a, body)
	a.UpdatedAt = model.NewTimestamp(time.Now())
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleCompleteAssessment(w http.ResponseWriter, r *http.Request, user *model.User) {
	var body model.CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if strings.TrimSpace(body.Justification) == "" {
		writeValidation(w, "justification", "String should have at least 1 character")
		return
	}
	if body.Outcome != model.OutcomeArchive && body.Outcome != model.OutcomeEscalate {
		writeValidation(w, "outcome", "Input should be 'archive' or 'escalate'")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assessments[mux.Vars(r)["id"]]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Assessment not found")
		return
	}

	now := model.NewTimestamp(time.Now())
	outcome := string(body.Outcome)
	justification := body.Justification
	a.Status = "Completed"
	a.OutcomeDecision = &outcome
	a.OutcomeJustification = &justification
	a.CompletedAt = &now
	a.UpdatedAt = now

	sig := s.signals[a.SignalID]
	if body.Outcome == model.OutcomeArchive {
		if sig != nil {
			sig.TriageStatus = model.TriageArchived
		}
		writeJSON(w, http.StatusOK, a)
		return
	}

	if sig != nil {
		sig.TriageStatus = model.TriageEscalated
	}
	e := &model.Escalation{
		ID:                 uuid.NewString(),
		SignalID:           a.SignalID,
		AssessmentID:       a.ID,
		EscalationLevel:    "Director",
		Priority:           "High",
		EscalationReason:   justification,
		RecommendedActions: []string{},
		DirectorStatus:     model.DirectorPending,
		EscalatedAt:        now,
		EscalatedBy:        user.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.escalations[e.ID] = e
	if director := s.accounts[DirectorUsername]; director != nil {
		escalationID := e.ID
		s.notifications = append(s.notifications, &model.Notification{
			ID:               uuid.NewString(),
			RecipientID:      director.user.ID,
			NotificationType: "escalation",
			Title:            "New escalation requires review",
			Message:          "An assessment was escalated for a director decision",
			EscalationID:     &escalationID,
			Priority:         "high",
			CreatedAt:        now,
		})
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handlePending(w http.ResponseWriter, _ *http.Request, user *model.User) {
	if user.Role != "director" {
		writeDetail(w, http.StatusForbidden, "Director access required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Escalation{}
	for _, e := range s.escalations {
		if e.DirectorStatus == model.DirectorPending {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EscalatedAt.After(out[j].EscalatedAt.Time)
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEscalation(w http.ResponseWriter, r *http.Request, _ *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.escalations[mux.Vars(r)["id"]]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Escalation not found")
		return
	}
	detail := model.EscalationDetail{Escalation: *e}
	if sig := s.signals[e.SignalID]; sig != nil {
		detail.Signal = *sig
	}
	if a := s.assessments[e.AssessmentID]; a != nil {
		detail.Assessment = *a
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request, user *model.User) {
	if user.Role != "director" {
		writeDetail(w, http.StatusForbidden, "Director access required")
		return
	}
	var body model.DirectorDecision
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.escalations[mux.Vars(r)["id"]]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Escalation not found")
		return
	}

	now := model.NewTimestamp(time.Now())
	decision := string(body.Decision)
	notes := body.DirectorNotes
	reviewer := user.ID
	switch body.Decision {
	case model.DecisionApprove:
		e.DirectorStatus = model.DirectorApproved
		e.ResolvedAt = &now
	case model.DecisionReject:
		e.DirectorStatus = model.DirectorRejected
		e.ResolvedAt = &now
	case model.DecisionRequestMoreInfo:
		e.DirectorStatus = "More Info Requested"
	default:
		writeValidation(w, "director_decision", "Input should be 'approve', 'reject' or 'request_more_info'")
		return
	}
	e.DirectorDecision = &decision
	e.DirectorNotes = &notes
	e.ActionsTaken = body.ActionsTaken
	e.ReviewedBy = &reviewer
	e.ReviewedAt = &now
	e.UpdatedAt = now
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request, user *model.User) {
	q := r.URL.Query()
	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeValidation(w, "limit", "Input should be greater than or equal to 1")
			return
		}
		limit = n
	}
	unreadOnly := q.Get("unread_only") == "true"

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Notification{}
	for _, n := range s.inbox(user.ID) {
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, *n)
		if len(out) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, _ *http.Request, user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.inbox(user.ID) {
		if !n.Read {
			count++
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, user *model.User) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.inbox(user.ID) {
		if n.ID != id {
			continue
		}
		if !n.Read {
			now := model.NewTimestamp(time.Now())
			n.Read = true
			n.ReadAt = &now
		}
		writeJSON(w, http.StatusOK, n)
		return
	}
	writeDetail(w, http.StatusNotFound, "Notification not found")
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, _ *http.Request, user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := model.NewTimestamp(time.Now())
	marked := 0
	for _, n := range s.inbox(user.ID) {
		if !n.Read {
			n.Read = true
			n.ReadAt = &now
			marked++
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked_read": marked})
}

// inbox returns recipientID's notifications newest first. Caller holds mu.
func (s *Server) inbox(recipientID string) []*model.Notification {
	var out []*model.Notification
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt.Time)
	})
	return out
}

// sortedSignals orders by priority, highest first. Caller holds mu.
func (s *Server) sortedSignals() []*model.Signal {
	out := make([]*model.Signal, 0, len(s.signals))
	for _, sig := range s.signals {
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority() > out[j].Priority()
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func applyUpdate(a *model.Assessment, u model.AssessmentUpdate) {
	setBool := func(dst **bool, v *bool) {
		if v != nil {
			*dst = v
		}
	}
	setStr := func(dst **string, v *string) {
		if v != nil {
			*dst = v
		}
	}
	setBool(&a.IHRQuestion1, u.IHRQuestion1)
	setBool(&a.IHRQuestion2, u.IHRQuestion2)
	setBool(&a.IHRQuestion3, u.IHRQuestion3)
	setBool(&a.IHRQuestion4, u.IHRQuestion4)
	setStr(&a.IHRQuestion1Notes, u.IHRQuestion1Notes)
	setStr(&a.IHRQuestion2Notes, u.IHRQuestion2Notes)
	setStr(&a.IHRQuestion3Notes, u.IHRQuestion3Notes)
	setStr(&a.IHRQuestion4Notes, u.IHRQuestion4Notes)
	setStr(&a.IHRDecision, u.IHRDecision)
	setStr(&a.RRAOverallRisk, u.RRAOverallRisk)
	setStr(&a.RRAConfidenceLevel, u.RRAConfidenceLevel)
	if len(u.RRAHazardAssessment) > 0 {
		a.RRAHazardAssessment = u.RRAHazardAssessment
	}
	if len(u.RRAExposureAssessment) > 0 {
		a.RRAExposureAssessment = u.RRAExposureAssessment
	}
	if len(u.RRAContextAssessment) > 0 {
		a.RRAContextAssessment = u.RRAContextAssessment
	}
	if u.RRAKeyUncertainties != nil {
		a.RRAKeyUncertainties = u.RRAKeyUncertainties
	}
	if u.RRARecommendations != nil {
		a.RRARecommendations = u.RRARecommendations
	}
	if u.Status != nil {
		a.Status = *u.Status
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeValidation mimics FastAPI's 422 body
func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{
			"loc":  []string{"body", field},
			"msg":  msg,
			"type": "value_error",
		}},
	})
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
