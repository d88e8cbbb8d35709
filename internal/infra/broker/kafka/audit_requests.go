package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	auditapp "staycal/internal/app/handlers/audit"
	"staycal/internal/domain/property"
	"staycal/internal/domain/reconciliation"
)

// Inbox records handled message ids. Mark is called only once a message is
// settled, so a retried message is never mistaken for a handled one.
type Inbox interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

// AuditRequest asks for one property to be audited. It may arrive bare or as
// the data of a CloudEvent.
type AuditRequest struct {
	PropertyID string `json:"property_id"`
	RunID      string `json:"run_id,omitempty"`
	Start      string `json:"start,omitempty"`
	Months     int    `json:"months,omitempty"`
}

type envelope struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// AuditRequestHandler turns audit.requests messages into audit commands.
// Malformed requests and unknown properties are logged and acknowledged;
// anything else is returned so the message is retried.
type AuditRequestHandler struct {
	Commands commands.Bus
	Inbox    Inbox
	Logger   *slog.Logger
}

func (h *AuditRequestHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	req, eventID, err := decodeAuditRequest(msg)
	if err != nil {
		h.drop(msg, "malformed audit request", err)
		return nil
	}
	win, err := reconciliation.ParseWindow(req.Start, req.Months)
	if err != nil {
		h.drop(msg, "invalid audit window", err)
		return nil
	}
	if eventID == "" && req.RunID != "" {
		eventID = req.RunID + ":" + req.PropertyID
	}
	if eventID != "" && h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, eventID)
		if err != nil {
			return fmt.Errorf("kafka: inbox: %w", err)
		}
		if seen {
			if h.Logger != nil {
				h.Logger.Debug("audit request already handled", "event_id", eventID)
			}
			return nil
		}
	}

	cmd := auditapp.RunAuditCommand{PropertyID: req.PropertyID, RunID: req.RunID, Window: win}
	res, err := commands.Dispatch[auditapp.RunAuditCommand, *dto.AuditResult](ctx, h.Commands, cmd)
	switch {
	case err == nil:
		if h.Logger != nil && res != nil {
			h.Logger.Info("audit request handled", "property_id", req.PropertyID, "run_id", req.RunID, "summary", res.Summary)
		}
	case errors.Is(err, property.ErrNotFound), errors.Is(err, property.ErrIDRequired), errors.Is(err, reconciliation.ErrInvalidRunID):
		h.drop(msg, "audit request rejected", err)
	default:
		return err
	}
	return h.mark(ctx, eventID)
}

func (h *AuditRequestHandler) mark(ctx context.Context, eventID string) error {
	if eventID == "" || h.Inbox == nil {
		return nil
	}
	if err := h.Inbox.Mark(ctx, eventID); err != nil {
		return fmt.Errorf("kafka: inbox: %w", err)
	}
	return nil
}

func (h *AuditRequestHandler) drop(msg *sarama.ConsumerMessage, reason string, err error) {
	if h.Logger != nil {
		h.Logger.Warn(reason, "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
	}
}

func decodeAuditRequest(msg *sarama.ConsumerMessage) (AuditRequest, string, error) {
	var (
		req     AuditRequest
		eventID = header(msg, "ce-id")
		body    = msg.Value
	)
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return req, "", err
	}
	if len(env.Data) > 0 {
		body = env.Data
		if eventID == "" {
			eventID = env.ID
		}
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, "", err
	}
	req.PropertyID = strings.TrimSpace(req.PropertyID)
	if req.PropertyID == "" && len(msg.Key) > 0 {
		req.PropertyID = string(msg.Key)
	}
	if req.PropertyID == "" {
		return req, "", property.ErrIDRequired
	}
	if err := reconciliation.ValidateRunID(req.RunID); err != nil {
		return req, "", err
	}
	return req, eventID, nil
}

func header(msg *sarama.ConsumerMessage, key string) string {
	for _, h := range msg.Headers {
		if h != nil && strings.EqualFold(string(h.Key), key) {
			return string(h.Value)
		}
	}
	return ""
}

var _ MessageHandler = (*AuditRequestHandler)(nil)
