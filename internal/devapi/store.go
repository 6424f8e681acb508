package devapi

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nightpass/nightpass/pkg/schema"
)

var (
	errNotFound       = errors.New("not found")
	errForbidden      = errors.New("forbidden")
	errPhoneTaken     = errors.New("phone number already registered")
	errUnknownPhone   = errors.New("no account for this phone number")
	errNoPending      = errors.New("no pending verification for this phone number")
	errNotPending     = errors.New("approval is not pending")
	errDuplicate      = errors.New("an open approval already exists for this venue")
	errEventRequired  = errors.New("event_id is required for event_specific approvals")
	errEventNotGlobal = errors.New("event does not allow global approvals")
)

// globalPassTTL bounds a global approval; event approvals expire a day after the event.
const globalPassTTL = 30 * 24 * time.Hour

type userRecord struct {
	user schema.User
}

type venueRecord struct {
	venue  schema.Venue
	events []schema.Event
	admins map[int64]bool
}

type approvalRecord struct {
	approval schema.Approval
	userID   int64
}

type pendingRegistration struct {
	firstName string
	lastName  string
}

// Store is the in-memory state behind the development API.
type Store struct {
	mu sync.Mutex

	now func() time.Time

	users     map[int64]*userRecord
	byPhone   map[string]int64
	venues    map[int64]*venueRecord
	approvals map[int64]*approvalRecord

	// phone number -> pending OTP flow
	registrations map[string]pendingRegistration
	logins        map[string]bool

	// refresh token -> user id; removed on logout
	refresh map[string]int64

	uploads map[string]upload

	nextUser     int64
	nextVenue    int64
	nextEvent    int64
	nextApproval int64
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:           now,
		users:         make(map[int64]*userRecord),
		byPhone:       make(map[string]int64),
		venues:        make(map[int64]*venueRecord),
		approvals:     make(map[int64]*approvalRecord),
		registrations: make(map[string]pendingRegistration),
		logins:        make(map[string]bool),
		refresh:       make(map[string]int64),
		uploads:       make(map[string]upload),
	}
}

func (s *Store) stamp() *schema.Time {
	t := schema.NewTime(s.now())
	return &t
}

// AddVenue registers a venue and returns its id. A non-zero v.ID is kept.
func (s *Store) AddVenue(v schema.Venue) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == 0 {
		s.nextVenue++
		v.ID = s.nextVenue
	} else if v.ID > s.nextVenue {
		s.nextVenue = v.ID
	}
	v.CreatedAt = s.stamp()
	v.UpdatedAt = v.CreatedAt
	v.UpcomingEvents = nil
	s.venues[v.ID] = &venueRecord{venue: v, admins: make(map[int64]bool)}
	return v.ID
}

// AddEvent attaches an event to a venue and returns its id.
func (s *Store) AddEvent(venueID int64, e schema.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.venues[venueID]
	if !ok {
		return 0, errNotFound
	}
	if e.ID == 0 {
		s.nextEvent++
		e.ID = s.nextEvent
	} else if e.ID > s.nextEvent {
		s.nextEvent = e.ID
	}
	rec.events = append(rec.events, e)
	sort.Slice(rec.events, func(i, j int) bool {
		return rec.events[i].DateTime.Before(rec.events[j].DateTime.Time)
	})
	return e.ID, nil
}

// PromoteVenueAdmin grants the account behind phone admin rights over venueIDs.
func (s *Store) PromoteVenueAdmin(phone string, venueIDs ...int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uid, ok := s.byPhone[normalizePhone(phone)]
	if !ok {
		return errUnknownPhone
	}
	for _, id := range venueIDs {
		rec, ok := s.venues[id]
		if !ok {
			return errNotFound
		}
		rec.admins[uid] = true
	}
	u := s.users[uid]
	u.user.Role = schema.RoleVenueAdmin
	u.user.UpdatedAt = s.stamp()
	return nil
}

// MarkScanned records that the QR pass of an approval was used at the door.
func (s *Store) MarkScanned(approvalID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.approvals[approvalID]
	if !ok {
		return errNotFound
	}
	if rec.approval.Status != schema.StatusApproved {
		return errNotPending
	}
	rec.approval.QRUsed = true
	rec.approval.Active = false
	return nil
}

// --- accounts ---

func (s *Store) beginRegistration(phone, first, last string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	phone = normalizePhone(phone)
	if _, taken := s.byPhone[phone]; taken {
		return errPhoneTaken
	}
	s.registrations[phone] = pendingRegistration{firstName: first, lastName: last}
	return nil
}

func (s *Store) completeRegistration(phone string) (schema.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	phone = normalizePhone(phone)
	reg, ok := s.registrations[phone]
	if !ok {
		return schema.User{}, errNoPending
	}
	delete(s.registrations, phone)

	s.nextUser++
	incomplete := false
	u := schema.User{
		ID:              s.nextUser,
		FirstName:       reg.firstName,
		LastName:        reg.lastName,
		PhoneNumber:     phone,
		PhoneVerified:   true,
		Role:            "user",
		ProfileComplete: &incomplete,
		CreatedAt:       s.stamp(),
	}
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = &userRecord{user: u}
	s.byPhone[phone] = u.ID
	return u, nil
}

func (s *Store) beginLogin(phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	phone = normalizePhone(phone)
	if _, ok := s.byPhone[phone]; !ok {
		return errUnknownPhone
	}
	s.logins[phone] = true
	return nil
}

func (s *Store) completeLogin(phone string) (schema.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	phone = normalizePhone(phone)
	if !s.logins[phone] {
		return schema.User{}, errNoPending
	}
	delete(s.logins, phone)
	return s.users[s.byPhone[phone]].user, nil
}

func (s *Store) saveRefresh(token string, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[token] = userID
}

func (s *Store) revokeRefresh(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.refresh[token]
	delete(s.refresh, token)
	return ok
}

func (s *Store) user(id int64) (schema.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return schema.User{}, false
	}
	return rec.user, true
}

type profilePatch struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	FacebookURL  *string `json:"facebook_url"`
	InstagramURL *string `json:"instagram_url"`
	LinkedinURL  *string `json:"linkedin_url"`
}

func (s *Store) updateProfile(id int64, p profilePatch) (schema.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return schema.User{}, errNotFound
	}
	u := &rec.user
	if p.FirstName != nil {
		u.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		u.LastName = strings.TrimSpace(*p.LastName)
	}
	if p.FacebookURL != nil || p.InstagramURL != nil || p.LinkedinURL != nil {
		links := socialLinksOrEmpty(u.SocialLinks)
		if p.FacebookURL != nil {
			links.Facebook = p.FacebookURL
		}
		if p.InstagramURL != nil {
			links.Instagram = p.InstagramURL
		}
		if p.LinkedinURL != nil {
			links.Linkedin = p.LinkedinURL
		}
		u.SocialLinks = &links
	}
	s.refreshCompleteness(u)
	return *u, nil
}

// attachImage stores a public URL for an uploaded image. field is "photo" or "id_card".
func (s *Store) attachImage(id int64, field, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return errNotFound
	}
	u := &rec.user
	switch field {
	case fieldPhoto:
		u.ProfilePhotoURL = &url
	case fieldIDCard:
		u.IDCardImageURL = &url
	}
	s.refreshCompleteness(u)
	return nil
}

type upload struct {
	contentType string
	data        []byte
}

func (s *Store) putUpload(name, contentType string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[name] = upload{contentType: contentType, data: data}
}

func (s *Store) getUpload(name string) (upload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[name]
	return u, ok
}

func (s *Store) refreshCompleteness(u *schema.User) {
	complete := u.FirstName != "" && u.LastName != "" &&
		u.ProfilePhotoURL != nil && u.IDCardImageURL != nil
	u.ProfileComplete = &complete
	u.UpdatedAt = s.stamp()
}

// socialLinksOrEmpty copies l, or returns an empty set for nil.
func socialLinksOrEmpty(l *schema.SocialLinks) schema.SocialLinks {
	if l == nil {
		return schema.SocialLinks{}
	}
	return *l
}

// --- catalog ---

func (s *Store) listVenues() []schema.Venue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]schema.Venue, 0, len(s.venues))
	for _, rec := range s.venues {
		out = append(out, s.venueView(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) venue(id int64) (schema.Venue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.venues[id]
	if !ok {
		return schema.Venue{}, false
	}
	return s.venueView(rec), true
}

func (s *Store) events(venueID int64) ([]schema.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.venues[venueID]
	if !ok {
		return nil, false
	}
	out := make([]schema.Event, len(rec.events))
	for i, e := range rec.events {
		out[i] = s.eventView(e)
	}
	return out, true
}

func (s *Store) venueView(rec *venueRecord) schema.Venue {
	v := rec.venue
	v.UpcomingEvents = []schema.Event{}
	for _, e := range rec.events {
		if e.DateTime.After(s.now()) {
			v.UpcomingEvents = append(v.UpcomingEvents, s.eventView(e))
		}
	}
	return v
}

func (s *Store) eventView(e schema.Event) schema.Event {
	upcoming := e.DateTime.After(s.now())
	e.Upcoming = &upcoming
	return e
}

func (s *Store) findEvent(rec *venueRecord, id int64) (schema.Event, bool) {
	for _, e := range rec.events {
		if e.ID == id {
			return e, true
		}
	}
	return schema.Event{}, false
}

// --- approvals ---

func (s *Store) createApproval(userID int64, req schema.ApprovalRequest) (schema.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	venue, ok := s.venues[req.VenueID]
	if !ok {
		return schema.Approval{}, errNotFound
	}

	var event *schema.ApprovalEvent
	switch req.ApprovalType {
	case schema.ApprovalEventSpecific:
		if req.EventID == nil {
			return schema.Approval{}, errEventRequired
		}
		e, ok := s.findEvent(venue, *req.EventID)
		if !ok {
			return schema.Approval{}, errNotFound
		}
		event = &schema.ApprovalEvent{ID: e.ID, Name: e.Name, DateTime: e.DateTime}
	case schema.ApprovalGlobal:
		if req.EventID != nil {
			e, ok := s.findEvent(venue, *req.EventID)
			if !ok {
				return schema.Approval{}, errNotFound
			}
			if !e.AllowGlobalApproval {
				return schema.Approval{}, errEventNotGlobal
			}
		}
	default:
		return schema.Approval{}, errors.New("approval_type must be global or event_specific")
	}

	for _, rec := range s.approvals {
		a := s.approvalView(rec)
		if rec.userID != userID || a.Venue.ID != req.VenueID || a.ApprovalType != req.ApprovalType {
			continue
		}
		if a.Status == schema.StatusRejected || (a.Status == schema.StatusApproved && !a.Active) {
			continue
		}
		if event != nil && (a.Event == nil || a.Event.ID != event.ID) {
			continue
		}
		return schema.Approval{}, errDuplicate
	}

	s.nextApproval++
	a := schema.Approval{
		ID:           s.nextApproval,
		Venue:        schema.ApprovalVenue{ID: venue.venue.ID, Name: venue.venue.Name},
		Event:        event,
		ApprovalType: req.ApprovalType,
		Status:       schema.StatusPending,
		CreatedAt:    *s.stamp(),
	}
	s.approvals[a.ID] = &approvalRecord{approval: a, userID: userID}
	return a, nil
}

func (s *Store) userApprovals(userID int64) []schema.Approval {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []schema.Approval{}
	for _, rec := range s.approvals {
		if rec.userID == userID {
			out = append(out, s.approvalView(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Store) userApproval(userID, id int64) (schema.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.approvals[id]
	if !ok || rec.userID != userID {
		return schema.Approval{}, errNotFound
	}
	return s.approvalView(rec), nil
}

// approvalView refreshes Active against the clock. QR data is only exposed through
// the qr_code endpoint.
func (s *Store) approvalView(rec *approvalRecord) schema.Approval {
	a := rec.approval
	a.Active = a.Status == schema.StatusApproved && !a.QRUsed &&
		(a.ExpiresAt == nil || a.ExpiresAt.After(s.now()))
	a.QRCodeData = nil
	return a
}

// --- administration ---

func (s *Store) adminVenues(userID int64) []schema.AdminVenue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []schema.AdminVenue{}
	for _, rec := range s.venues {
		if rec.admins[userID] {
			out = append(out, s.adminVenueView(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) adminVenue(userID, venueID int64) (schema.AdminVenue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.administered(userID, venueID)
	if err != nil {
		return schema.AdminVenue{}, err
	}
	return s.adminVenueView(rec), nil
}

func (s *Store) administered(userID, venueID int64) (*venueRecord, error) {
	rec, ok := s.venues[venueID]
	if !ok {
		return nil, errNotFound
	}
	if !rec.admins[userID] {
		return nil, errForbidden
	}
	return rec, nil
}

func (s *Store) adminVenueView(rec *venueRecord) schema.AdminVenue {
	stats := schema.VenueStats{TotalEvents: len(rec.events)}
	for _, e := range rec.events {
		if e.DateTime.After(s.now()) {
			stats.UpcomingEvents++
		}
	}
	approved := make(map[int64]bool)
	for _, a := range s.approvals {
		if a.approval.Venue.ID != rec.venue.ID {
			continue
		}
		switch a.approval.Status {
		case schema.StatusPending:
			stats.PendingApprovals++
		case schema.StatusApproved:
			approved[a.userID] = true
		}
	}
	stats.ApprovedUsers = len(approved)

	v := rec.venue
	return schema.AdminVenue{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		Address:     v.Address,
		Stats:       &stats,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func (s *Store) venueApprovals(userID, venueID int64, pendingOnly bool) ([]schema.AdminApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.administered(userID, venueID); err != nil {
		return nil, err
	}
	out := []schema.AdminApproval{}
	for _, rec := range s.approvals {
		if rec.approval.Venue.ID != venueID {
			continue
		}
		if pendingOnly && rec.approval.Status != schema.StatusPending {
			continue
		}
		out = append(out, s.adminApprovalView(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) venueApproval(userID, venueID, id int64) (schema.AdminApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.administered(userID, venueID); err != nil {
		return schema.AdminApproval{}, err
	}
	rec, ok := s.approvals[id]
	if !ok || rec.approval.Venue.ID != venueID {
		return schema.AdminApproval{}, errNotFound
	}
	return s.adminApprovalView(rec), nil
}

// decide moves a pending approval to approved or rejected. Approving mints the QR
// payload and fixes the expiry.
func (s *Store) decide(userID, venueID, id int64, to schema.ApprovalStatus) (schema.AdminApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.administered(userID, venueID); err != nil {
		return schema.AdminApproval{}, err
	}
	rec, ok := s.approvals[id]
	if !ok || rec.approval.Venue.ID != venueID {
		return schema.AdminApproval{}, errNotFound
	}
	if rec.approval.Status != schema.StatusPending {
		return schema.AdminApproval{}, errNotPending
	}

	a := &rec.approval
	a.Status = to
	if to == schema.StatusApproved {
		data := "nightpass:" + uuid.NewString()
		a.QRCodeData = &data

		expires := s.now().Add(globalPassTTL)
		if a.Event != nil {
			expires = a.Event.DateTime.Add(24 * time.Hour)
		}
		t := schema.NewTime(expires)
		a.ExpiresAt = &t
	}
	return s.adminApprovalView(rec), nil
}

func (s *Store) adminApprovalView(rec *approvalRecord) schema.AdminApproval {
	a := s.approvalView(rec)
	u := s.users[rec.userID].user
	return schema.AdminApproval{
		ID:           a.ID,
		User:         schema.AdminApprovalUser{ID: u.ID, FullName: u.FullName(), PhoneNumber: u.PhoneNumber},
		Event:        a.Event,
		ApprovalType: a.ApprovalType,
		Status:       a.Status,
		Active:       a.Active,
		QRUsed:       a.QRUsed,
		ExpiresAt:    a.ExpiresAt,
		CreatedAt:    a.CreatedAt,
	}
}

// qrCode returns the pass payload for a usable approval, or ok=false otherwise.
func (s *Store) qrCode(userID, id int64) (data string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.approvals[id]
	if !found || rec.userID != userID {
		return "", false, errNotFound
	}
	a := s.approvalView(rec)
	if !a.Active || rec.approval.QRCodeData == nil {
		return "", false, nil
	}
	return *rec.approval.QRCodeData, true, nil
}

func normalizePhone(p string) string {
	return strings.ReplaceAll(strings.TrimSpace(p), " ", "")
}
