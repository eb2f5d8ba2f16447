package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"social-fitness-backend/internal/models"
	"social-fitness-backend/internal/repository"

	"github.com/google/uuid"
)

// In-memory stores mirroring the constraints of the SQL schema

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUsers(users ...*models.User) *memUsers {
	s := &memUsers{users: make(map[string]*models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", repository.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (s *memUsers) UpsertByExternalID(_ context.Context, externalID, name string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ExternalID == externalID {
			copied := *u
			return &copied, nil
		}
	}
	u := &models.User{ID: uuid.New().String(), ExternalID: externalID, Name: name}
	s.users[u.ID] = u
	copied := *u
	return &copied, nil
}

func (s *memUsers) UpdatePushToken(_ context.Context, userID string, pushToken *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", repository.ErrNotFound)
	}
	u.PushToken = pushToken
	return nil
}

type memFriendships struct {
	mu    sync.Mutex
	pairs map[[2]string]*models.Friendship
}

func newMemFriendships() *memFriendships {
	return &memFriendships{pairs: make(map[[2]string]*models.Friendship)}
}

func orderedPair(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

func (s *memFriendships) Create(_ context.Context, f *models.Friendship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{f.UserAID, f.UserBID}
	if f.UserAID >= f.UserBID {
		return fmt.Errorf("friendship pair not ordered")
	}
	if _, ok := s.pairs[key]; !ok {
		s.pairs[key] = f
	}
	return nil
}

func (s *memFriendships) Delete(_ context.Context, a, b string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := orderedPair(a, b)
	if _, ok := s.pairs[key]; !ok {
		return fmt.Errorf("friendship not found: %w", repository.ErrNotFound)
	}
	delete(s.pairs, key)
	return nil
}

func (s *memFriendships) Exists(_ context.Context, a, b string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pairs[orderedPair(a, b)]
	return ok, nil
}

func (s *memFriendships) ListFriendIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for key := range s.pairs {
		switch userID {
		case key[0]:
			ids = append(ids, key[1])
		case key[1]:
			ids = append(ids, key[0])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type memEvents struct {
	mu     sync.Mutex
	events map[string]*models.Event
}

func newMemEvents(events ...*models.Event) *memEvents {
	s := &memEvents{events: make(map[string]*models.Event)}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *memEvents) Create(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *e
	s.events[e.ID] = &copied
	return nil
}

func (s *memEvents) GetByID(_ context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event not found: %w", repository.ErrNotFound)
	}
	copied := *e
	return &copied, nil
}

func (s *memEvents) Update(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; !ok {
		return fmt.Errorf("event not found: %w", repository.ErrNotFound)
	}
	copied := *e
	s.events[e.ID] = &copied
	return nil
}

func (s *memEvents) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("event not found: %w", repository.ErrNotFound)
	}
	delete(s.events, id)
	return nil
}

func (s *memEvents) Search(_ context.Context, f models.EventFilter) ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	friends := make(map[string]bool, len(f.FriendIDs))
	for _, id := range f.FriendIDs {
		friends[id] = true
	}

	var out []*models.Event
	for _, e := range s.events {
		visible := e.Visibility == models.VisibilityPublic ||
			(f.ViewerID != "" && e.CreatorID == f.ViewerID) ||
			(f.ViewerID != "" && e.Visibility == models.VisibilityFriends && friends[e.CreatorID])
		if !visible {
			continue
		}
		if f.StartDate != nil && e.StartTime.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && e.StartTime.After(*f.EndDate) {
			continue
		}
		if f.Box != nil && !boxContains(*f.Box, e.Latitude, e.Longitude) {
			continue
		}
		if f.Area != nil && !boxContains(*f.Area, e.Latitude, e.Longitude) {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func boxContains(b models.BoundingBox, lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

type memRSVPs struct {
	mu    sync.Mutex
	rsvps map[[2]string]*models.RSVP
}

func newMemRSVPs() *memRSVPs {
	return &memRSVPs{rsvps: make(map[[2]string]*models.RSVP)}
}

func (s *memRSVPs) Upsert(_ context.Context, r *models.RSVP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{r.EventID, r.UserID}
	if existing, ok := s.rsvps[key]; ok {
		existing.Status = r.Status
		existing.UpdatedAt = r.UpdatedAt
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
		return nil
	}
	copied := *r
	s.rsvps[key] = &copied
	return nil
}

func (s *memRSVPs) Get(_ context.Context, eventID, userID string) (*models.RSVP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rsvps[[2]string{eventID, userID}]
	if !ok {
		return nil, fmt.Errorf("rsvp not found: %w", repository.ErrNotFound)
	}
	copied := *r
	return &copied, nil
}

func (s *memRSVPs) CountByStatus(_ context.Context, eventID string, status models.RSVPStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for key, r := range s.rsvps {
		if key[0] == eventID && r.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *memRSVPs) ListByEvent(_ context.Context, eventID string) ([]*models.RSVP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.RSVP
	for key, r := range s.rsvps {
		if key[0] == eventID {
			copied := *r
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *memRSVPs) set(eventID, userID string, status models.RSVPStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rsvps[[2]string{eventID, userID}] = &models.RSVP{
		ID:      uuid.New().String(),
		EventID: eventID,
		UserID:  userID,
		Status:  status,
	}
}

func (s *memRSVPs) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rsvps)
}

type memJoinRequests struct {
	mu       sync.Mutex
	requests map[string]*models.JoinRequest
	// rsvps receives the RSVP written by Accept
	rsvps *memRSVPs
}

func newMemJoinRequests(rsvps *memRSVPs) *memJoinRequests {
	return &memJoinRequests{requests: make(map[string]*models.JoinRequest), rsvps: rsvps}
}

func (s *memJoinRequests) CreatePending(_ context.Context, req *models.JoinRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.EventID == req.EventID && existing.UserID == req.UserID && existing.Status == models.JoinRequestPending {
			return false, nil
		}
	}
	copied := *req
	s.requests[req.ID] = &copied
	return true, nil
}

func (s *memJoinRequests) GetByID(_ context.Context, id string) (*models.JoinRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("join request not found: %w", repository.ErrNotFound)
	}
	copied := *req
	return &copied, nil
}

func (s *memJoinRequests) ListPendingByEvent(_ context.Context, eventID string) ([]*models.JoinRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.JoinRequest
	for _, req := range s.requests {
		if req.EventID == eventID && req.Status == models.JoinRequestPending {
			copied := *req
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memJoinRequests) UpdateStatus(_ context.Context, id string, status models.JoinRequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.Status != models.JoinRequestPending {
		return fmt.Errorf("pending join request not found: %w", repository.ErrNotFound)
	}
	req.Status = status
	return nil
}

func (s *memJoinRequests) Accept(ctx context.Context, id string, rsvp *models.RSVP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.Status != models.JoinRequestPending {
		return fmt.Errorf("pending join request not found: %w", repository.ErrNotFound)
	}
	if err := s.rsvps.Upsert(ctx, rsvp); err != nil {
		return err
	}
	req.Status = models.JoinRequestAccepted
	return nil
}

// setStatus changes a request behind the controller's back
func (s *memJoinRequests) setStatus(id string, status models.JoinRequestStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[id].Status = status
}

type memLive struct {
	mu       sync.Mutex
	sessions []*models.LiveLocationSession
	points   []*models.LiveLocationPoint
	// appendErr fails the next AppendPoint
	appendErr error
}

func newMemLive() *memLive {
	return &memLive{}
}

func (s *memLive) GetActiveSession(_ context.Context, eventID, userID string) (*models.LiveLocationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.EventID == eventID && session.UserID == userID && session.IsActive {
			copied := *session
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("live session not found: %w", repository.ErrNotFound)
}

func (s *memLive) CreateSession(_ context.Context, session *models.LiveLocationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.EventID == session.EventID && existing.UserID == session.UserID && existing.IsActive {
			*session = *existing
			return nil
		}
	}
	session.IsActive = true
	copied := *session
	s.sessions = append(s.sessions, &copied)
	return nil
}

func (s *memLive) EndSession(_ context.Context, eventID, userID string, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.EventID == eventID && session.UserID == userID && session.IsActive {
			session.IsActive = false
			session.EndedAt = &endedAt
			return nil
		}
	}
	return fmt.Errorf("live session not found: %w", repository.ErrNotFound)
}

func (s *memLive) AppendPoint(_ context.Context, point *models.LiveLocationPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendErr; err != nil {
		s.appendErr = nil
		return err
	}
	copied := *point
	s.points = append(s.points, &copied)
	return nil
}

func (s *memLive) DeletePointsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*models.LiveLocationPoint
	var deleted int64
	for _, point := range s.points {
		if point.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, point)
	}
	s.points = kept
	return deleted, nil
}

func (s *memLive) activeSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, session := range s.sessions {
		if session.IsActive {
			n++
		}
	}
	return n
}

type memNotifications struct {
	mu            sync.Mutex
	notifications []*models.Notification
}

func newMemNotifications() *memNotifications {
	return &memNotifications{}
}

func (s *memNotifications) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *n
	s.notifications = append(s.notifications, &copied)
	return nil
}

func (s *memNotifications) CountSince(_ context.Context, userID string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *memNotifications) ListByUser(_ context.Context, userID string) ([]*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].UserID == userID {
			copied := *s.notifications[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memNotifications) MarkRead(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return fmt.Errorf("notification not found: %w", repository.ErrNotFound)
}

func (s *memNotifications) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

// recordingNotifier captures Notify calls synchronously
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

type notifyCall struct {
	recipientID string
	typ         models.NotificationType
	data        map[string]string
}

func (n *recordingNotifier) Notify(_ context.Context, recipientID string, typ models.NotificationType, data map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{recipientID: recipientID, typ: typ, data: data})
}

func (n *recordingNotifier) sent() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}

// recordingPush captures push deliveries
type recordingPush struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (p *recordingPush) Send(_ context.Context, deviceToken, _, _ string, _ map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = append(p.tokens, deviceToken)
	return p.err
}

func (p *recordingPush) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tokens)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }

type memChats struct {
	mu       sync.Mutex
	threads  map[string]*models.ChatThread
	messages []*models.ChatMessage
}

func newMemChats() *memChats {
	return &memChats{threads: make(map[string]*models.ChatThread)}
}

func (s *memChats) CreateThread(_ context.Context, thread *models.ChatThread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *thread
	s.threads[thread.ID] = &copied
	return nil
}

func (s *memChats) GetThread(_ context.Context, id string) (*models.ChatThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread, ok := s.threads[id]
	if !ok {
		return nil, fmt.Errorf("chat thread not found: %w", repository.ErrNotFound)
	}
	copied := *thread
	return &copied, nil
}

func (s *memChats) ListThreadsByEvent(_ context.Context, eventID string) ([]*models.ChatThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ChatThread
	for _, thread := range s.threads {
		if thread.EventID == eventID {
			copied := *thread
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memChats) CreateMessage(_ context.Context, msg *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *msg
	s.messages = append(s.messages, &copied)
	return nil
}

func (s *memChats) ListMessages(_ context.Context, threadID string, limit int) ([]*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ChatMessage
	for i := len(s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if s.messages[i].ThreadID == threadID {
			copied := *s.messages[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}
