package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/lanlobby/lanlobby/internal/id"
)

// TicketState is the lifecycle state of a matchmaking ticket.
type TicketState string

// Ticket states. Queued transitions to Assigned when the queue
// deadline passes; Assigned and Expired are terminal.
const (
	TicketQueued   TicketState = "Queued"
	TicketAssigned TicketState = "Assigned"
	TicketExpired  TicketState = "Expired"
)

// DefaultPlaylist is used when the client enqueues without naming one.
const DefaultPlaylist = "playlist_defaultsolo"

// SessionDescriptor points the client at a game session. With no real
// opponent pool, descriptors are synthetic and stable per ticket.
type SessionDescriptor struct {
	SessionID     string `json:"sessionId"`
	SessionKey    string `json:"sessionKey"`
	ServerAddress string `json:"serverAddress"`
	ServerPort    int    `json:"serverPort"`
}

// Ticket is one matchmaking request.
type Ticket struct {
	ID         string             `json:"ticketId"`
	AccountID  string             `json:"accountId"`
	PlaylistID string             `json:"playlistId"`
	Region     string             `json:"region"`
	State      TicketState        `json:"state"`
	CreatedAt  time.Time          `json:"createdAt"`
	Deadline   time.Time          `json:"deadline"`
	Session    *SessionDescriptor `json:"session,omitempty"`
	ResolvedAt time.Time          `json:"resolvedAt,omitzero"`
}

// Enqueue creates a ticket in Queued with a deadline. An account's
// previous live ticket, if any, is superseded.
func (s *Store) Enqueue(accountID, playlistID, region string) *Ticket {
	if playlistID == "" {
		playlistID = DefaultPlaylist
	}
	if region == "" {
		region = "NAE"
	}
	now := s.clock()

	t := &Ticket{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		PlaylistID: playlistID,
		Region:     region,
		State:      TicketQueued,
		CreatedAt:  now,
		Deadline:   now.Add(s.opts.QueueWait),
	}

	s.ticketsMu.Lock()
	s.sweepLocked(now)
	s.tickets[t.ID] = t
	s.liveByAccount[accountID] = t.ID
	s.ticketsMu.Unlock()

	return t.clone()
}

// Ticket returns the current state of a ticket. A ticket still Queued
// past its deadline is resolved to Assigned with a synthetic session
// descriptor before being returned, so a caller never observes Queued
// past the deadline.
func (s *Store) Ticket(ticketID string) (*Ticket, error) {
	now := s.clock()

	s.ticketsMu.Lock()
	defer s.ticketsMu.Unlock()
	s.sweepLocked(now)

	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, &NotFoundError{Kind: "ticket", ID: ticketID}
	}
	s.resolveLocked(t, now)
	return t.clone(), nil
}

// FindPlayer returns the player's live ticket, enqueueing a fresh one
// when none exists. This matches clients that poll findPlayer before
// ever creating a ticket explicitly.
func (s *Store) FindPlayer(accountID string) *Ticket {
	now := s.clock()

	s.ticketsMu.Lock()
	s.sweepLocked(now)
	if ticketID, ok := s.liveByAccount[accountID]; ok {
		if t, ok := s.tickets[ticketID]; ok && t.State != TicketExpired {
			s.resolveLocked(t, now)
			out := t.clone()
			s.ticketsMu.Unlock()
			return out
		}
	}
	s.ticketsMu.Unlock()

	return s.Enqueue(accountID, DefaultPlaylist, "")
}

// CancelTicket moves a Queued ticket to Expired. Terminal tickets are
// left unchanged; cancelling an unknown ticket is NotFound.
func (s *Store) CancelTicket(ticketID string) (*Ticket, error) {
	now := s.clock()

	s.ticketsMu.Lock()
	defer s.ticketsMu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, &NotFoundError{Kind: "ticket", ID: ticketID}
	}
	s.resolveLocked(t, now)
	if t.State == TicketQueued {
		t.State = TicketExpired
		t.ResolvedAt = now
		delete(s.liveByAccount, t.AccountID)
	}
	return t.clone(), nil
}

// resolveLocked applies the deadline transition. Must hold ticketsMu.
func (s *Store) resolveLocked(t *Ticket, now time.Time) {
	if t.State != TicketQueued || now.Before(t.Deadline) {
		return
	}
	t.State = TicketAssigned
	t.ResolvedAt = now
	t.Session = &SessionDescriptor{
		SessionID:     uuid.NewString(),
		SessionKey:    id.Hex(32),
		ServerAddress: s.opts.ServerAddress,
		ServerPort:    s.opts.ServerPort,
	}
	delete(s.liveByAccount, t.AccountID)
}

// sweepLocked garbage-collects terminal tickets past the retention
// window. Must hold ticketsMu.
func (s *Store) sweepLocked(now time.Time) {
	for ticketID, t := range s.tickets {
		if t.State == TicketQueued {
			continue
		}
		if now.Sub(t.ResolvedAt) > s.opts.Retention {
			delete(s.tickets, ticketID)
			if s.liveByAccount[t.AccountID] == ticketID {
				delete(s.liveByAccount, t.AccountID)
			}
		}
	}
}

func (t *Ticket) clone() *Ticket {
	c := *t
	if t.Session != nil {
		session := *t.Session
		c.Session = &session
	}
	return &c
}
