package intake

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"pipeline-crm/internal/clock"
	"pipeline-crm/internal/lead"
	"pipeline-crm/internal/phone"
)

// ErrEmptyName is returned when a lead arrives without a name.
var ErrEmptyName = errors.New("intake: lead name is required")

// CreateRequest is a single inbound lead, manual or imported.
type CreateRequest struct {
	Name   string `json:"name" binding:"required"`
	Phone  string `json:"phone" binding:"required"`
	Source string `json:"source"`
	Note   string `json:"note"`
}

// RowResult reports the outcome of one row in a batch import.
type RowResult struct {
	Index  int    `json:"index"`
	LeadID string `json:"lead_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult summarizes a batch import. Failed rows never abort the batch.
type BatchResult struct {
	Created int         `json:"created"`
	Failed  int         `json:"failed"`
	Rows    []RowResult `json:"rows"`
}

// Service creates leads. Phone numbers are normalized before storage and every
// new lead is checked against existing ones; a match flags the new lead as a
// duplicate but never rejects it.
type Service struct {
	leads lead.Repository
	clk   clock.Clock
	log   *slog.Logger
}

func NewService(leads lead.Repository, clk clock.Clock, log *slog.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{leads: leads, clk: clk, log: log}
}

// Create registers one lead and returns it. The returned lead carries the
// duplicate flags when another lead already holds the same normalized phone.
func (s *Service) Create(ctx context.Context, req CreateRequest) (lead.Lead, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return lead.Lead{}, ErrEmptyName
	}
	normalized, err := phone.Normalize(req.Phone)
	if err != nil {
		return lead.Lead{}, err
	}

	now := s.clk.Now()
	l := lead.Lead{
		ID:        uuid.NewString(),
		Name:      name,
		Phone:     normalized,
		Source:    strings.TrimSpace(req.Source),
		Status:    lead.StatusFresh,
		Note:      strings.TrimSpace(req.Note),
		CreatedAt: now,
		UpdatedAt: now,
	}

	existing, found, err := s.leads.FindByPhone(ctx, normalized)
	if err != nil {
		return lead.Lead{}, err
	}
	if found {
		l.IsDuplicate = true
		l.DuplicateOf = existing.ID
	}

	if err := s.leads.Insert(ctx, l); err != nil {
		return lead.Lead{}, err
	}
	if l.IsDuplicate {
		s.log.Info("duplicate lead created", "lead_id", l.ID, "duplicate_of", l.DuplicateOf)
	}
	return l, nil
}

// CreateBatch imports rows one by one. Invalid rows are reported in the result
// and skipped; the remaining rows still go through.
func (s *Service) CreateBatch(ctx context.Context, reqs []CreateRequest) (BatchResult, error) {
	res := BatchResult{Rows: make([]RowResult, 0, len(reqs))}
	for i, req := range reqs {
		l, err := s.Create(ctx, req)
		if err != nil {
			if errors.Is(err, ErrEmptyName) || errors.Is(err, phone.ErrInvalidPhone) {
				res.Failed++
				res.Rows = append(res.Rows, RowResult{Index: i, Error: err.Error()})
				continue
			}
			// Storage failure aborts: retrying the batch is the safe move.
			return res, err
		}
		res.Created++
		res.Rows = append(res.Rows, RowResult{Index: i, LeadID: l.ID})
	}
	return res, nil
}
