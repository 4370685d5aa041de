package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/lanlobby/lanlobby/pkg/session"
)

// ticketBody serializes a ticket in the shape the client's
// matchmaking poller reads. Queued tickets report a wait estimate;
// assigned tickets carry the session descriptor.
func (g *Gateway) ticketBody(t *session.Ticket) map[string]any {
	body := map[string]any{
		"ticketId":   t.ID,
		"accountId":  t.AccountID,
		"playlistId": t.PlaylistID,
		"region":     t.Region,
		"status":     string(t.State),
		"queuedAt":   formatVendorTime(t.CreatedAt),
	}
	switch t.State {
	case session.TicketQueued:
		remaining := t.Deadline.Sub(g.store.Now())
		if remaining < 0 {
			remaining = 0
		}
		body["estimatedWaitSec"] = int(remaining / time.Second)
		body["queuedPlayers"] = 1
	case session.TicketAssigned:
		body["matchedAt"] = formatVendorTime(t.ResolvedAt)
		body["sessionId"] = t.Session.SessionID
		body["sessionKey"] = t.Session.SessionKey
		body["serverAddress"] = t.Session.ServerAddress
		body["serverPort"] = t.Session.ServerPort
	case session.TicketExpired:
		body["cancelledAt"] = formatVendorTime(t.ResolvedAt)
	}
	return body
}

// handleTicketCreate enqueues a matchmaking ticket. The playlist rides
// in the bucketId query parameter on real clients and in the JSON body
// on the launcher path; accept both.
func (g *Gateway) handleTicketCreate(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	playlist := playlistFromBucket(r.URL.Query().Get("bucketId"))
	region := r.URL.Query().Get("region")
	if r.Body != nil {
		var body struct {
			PlaylistID string `json:"playlistId"`
			Region     string `json:"region"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			if playlist == "" {
				playlist = body.PlaylistID
			}
			if region == "" {
				region = body.Region
			}
		}
	}

	ticket := g.store.Enqueue(accountID, playlist, region)
	writeJSON(w, http.StatusOK, g.ticketBody(ticket))
}

// playlistFromBucket extracts the playlist from the client's composite
// bucketId ("hash:netcl:region:playlist").
func playlistFromBucket(bucket string) string {
	if bucket == "" {
		return ""
	}
	parts := strings.Split(bucket, ":")
	return parts[len(parts)-1]
}

func (g *Gateway) handleTicketQuery(w http.ResponseWriter, r *http.Request) {
	ticket, err := g.store.Ticket(mux.Vars(r)["ticketId"])
	if err != nil {
		g.writeTicketError(w, err, mux.Vars(r)["ticketId"])
		return
	}
	writeJSON(w, http.StatusOK, g.ticketBody(ticket))
}

func (g *Gateway) handleTicketCancel(w http.ResponseWriter, r *http.Request) {
	ticket, err := g.store.CancelTicket(mux.Vars(r)["ticketId"])
	if err != nil {
		g.writeTicketError(w, err, mux.Vars(r)["ticketId"])
		return
	}
	writeJSON(w, http.StatusOK, g.ticketBody(ticket))
}

func (g *Gateway) writeTicketError(w http.ResponseWriter, err error, ticketID string) {
	var notFound *session.NotFoundError
	if errors.As(err, &notFound) {
		writeVendorError(w, http.StatusNotFound, codeTicketNotFound, numTicketNotFound,
			"fortnite", "Unable to find the requested matchmaking ticket", ticketID)
		return
	}
	writeVendorError(w, http.StatusInternalServerError, codeServerError, numServerError,
		"fortnite", err.Error())
}

// handleFindPlayer reports the caller's live ticket, enqueuing one when
// none exists. The client treats the response as a list.
func (g *Gateway) handleFindPlayer(w http.ResponseWriter, r *http.Request) {
	ticket := g.store.FindPlayer(mux.Vars(r)["accountId"])
	writeJSON(w, http.StatusOK, []map[string]any{g.ticketBody(ticket)})
}

func (g *Gateway) handleTryPlayOnPlatform(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("true"))
}
