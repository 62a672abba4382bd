package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"idregistry/internal/access/models"
	id "idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	audit "idregistry/pkg/platform/audit"
)

const maxBodyBytes = 4 << 10

type TransferRequest struct {
	Candidate string `json:"candidate"`
}

type TrustedCallerRequest struct {
	TrustedCaller string `json:"trusted_caller"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if err == io.EOF {
			return dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

// parseIdentity treats an absent field as the null identity so the service,
// not the handler, reports InvalidAddress.
func parseIdentity(field, raw string) (id.Identity, error) {
	identity, err := id.ParseIdentity(raw)
	if err != nil {
		return id.ZeroIdentity, dErrors.Wrap(err, dErrors.CodeInvalidInput, field+" is not a valid address")
	}
	return identity, nil
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return audit.DefaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
	}
	return audit.NormalizeLimit(limit), nil
}

type StateResponse struct {
	RegistryID    string    `json:"registry_id"`
	Owner         string    `json:"owner"`
	PendingOwner  string    `json:"pending_owner,omitempty"`
	TrustedCaller string    `json:"trusted_caller"`
	GateOpen      bool      `json:"gate_open"`
	Paused        bool      `json:"paused"`
	Version       int64     `json:"version"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toStateResponse(snap models.Snapshot) StateResponse {
	resp := StateResponse{
		RegistryID:    string(snap.RegistryID),
		Owner:         snap.Owner.String(),
		TrustedCaller: snap.TrustedCaller.String(),
		GateOpen:      snap.GateOpen,
		Paused:        snap.Paused,
		Version:       snap.Version,
		UpdatedAt:     snap.UpdatedAt,
	}
	if !snap.PendingOwner.IsZero() {
		resp.PendingOwner = snap.PendingOwner.String()
	}
	return resp
}

type DecisionResponse struct {
	Caller  string `json:"caller"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type EventResponse struct {
	ID        string    `json:"id"`
	Sequence  int64     `json:"sequence"`
	Action    string    `json:"action"`
	Caller    string    `json:"caller"`
	Subject   string    `json:"subject,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type EventsResponse struct {
	Events []EventResponse `json:"events"`
}

func toEventsResponse(events []audit.Event) EventsResponse {
	out := EventsResponse{Events: make([]EventResponse, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, EventResponse{
			ID:        e.ID.String(),
			Sequence:  e.Sequence,
			Action:    e.Action,
			Caller:    e.Caller,
			Subject:   e.Subject,
			Detail:    e.Detail,
			RequestID: e.RequestID,
			Timestamp: e.Timestamp,
		})
	}
	return out
}
