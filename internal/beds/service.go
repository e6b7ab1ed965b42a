package beds

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wardboard/wardboard/internal/shared"
)

// EventPublisher hands completed bed events to the notification channel.
// Implemented by the jobs client; a nil publisher drops events.
type EventPublisher interface {
	PublishBedEvent(ctx context.Context, ev BedEvent) error
}

// Auditor records who changed which bed. Implemented by shared.AuditLogger.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wraps ward and bed business rules.
type Service struct {
	repo    Repository
	audit   Auditor
	events  EventPublisher
}

// NewService constructs a Service.
func NewService(repo Repository, audit Auditor, events EventPublisher) *Service {
	return &Service{repo: repo, audit: audit, events: events}
}

// ListWards returns all wards.
func (s *Service) ListWards(ctx context.Context) ([]Ward, error) {
	return s.repo.ListWards(ctx)
}

// CreateWard registers a new ward.
func (s *Service) CreateWard(ctx context.Context, actorID int64, code, name string) (Ward, error) {
	ward, err := s.repo.CreateWard(ctx, code, name)
	if err != nil {
		return Ward{}, err
	}
	s.recordAudit(ctx, actorID, "ward.create", "ward", ward.ID, nil)
	return ward, nil
}

// ListBeds returns a page of beds for a ward.
func (s *Service) ListBeds(ctx context.Context, wardID int64, page, perPage int) ([]Bed, shared.Pagination, error) {
	pagination := shared.NewPagination(page, perPage, 0)
	beds, total, err := s.repo.ListBeds(ctx, wardID, pagination.PerPage, pagination.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return beds, shared.NewPagination(pagination.Page, pagination.PerPage, total), nil
}

// AssignBed moves a free bed to occupied and records the patient reference.
func (s *Service) AssignBed(ctx context.Context, actorID, bedID int64, patientRef string) (Bed, error) {
	return s.transition(ctx, actorID, bedID, StatusOccupied, patientRef, "bed.assign")
}

// ReleaseBed moves an occupied bed to cleaning and clears the patient
// reference.
func (s *Service) ReleaseBed(ctx context.Context, actorID, bedID int64) (Bed, error) {
	return s.transition(ctx, actorID, bedID, StatusCleaning, "", "bed.release")
}

// MarkReady returns a cleaned or serviced bed to the free pool.
func (s *Service) MarkReady(ctx context.Context, actorID, bedID int64) (Bed, error) {
	return s.transition(ctx, actorID, bedID, StatusFree, "", "bed.ready")
}

// StartMaintenance takes a free bed out of service.
func (s *Service) StartMaintenance(ctx context.Context, actorID, bedID int64) (Bed, error) {
	return s.transition(ctx, actorID, bedID, StatusMaintenance, "", "bed.maintenance")
}

// OccupancySummary aggregates every ward for the dashboard landing widgets.
func (s *Service) OccupancySummary(ctx context.Context) (OccupancySummary, error) {
	wards, err := s.repo.Occupancy(ctx)
	if err != nil {
		return OccupancySummary{}, err
	}
	summary := OccupancySummary{Wards: wards}
	for _, w := range wards {
		summary.Total += w.Total
		summary.Free += w.Free
		summary.Occupied += w.Occupied
	}
	if summary.Wards == nil {
		summary.Wards = []WardOccupancy{}
	}
	return summary, nil
}

func (s *Service) transition(ctx context.Context, actorID, bedID int64, to BedStatus, patientRef, action string) (Bed, error) {
	bed, err := s.repo.GetBed(ctx, bedID)
	if err != nil {
		return Bed{}, err
	}
	if !CanTransition(bed.Status, to) {
		return Bed{}, fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, bed.Status, to)
	}

	updated, err := s.repo.UpdateBedStatus(ctx, bedID, to, patientRef)
	if err != nil {
		return Bed{}, err
	}

	s.recordAudit(ctx, actorID, action, "bed", updated.ID, map[string]any{
		"from": string(bed.Status),
		"to":   string(to),
	})
	if s.events != nil {
		// Delivery failure must not roll back the transition; the channel
		// retries on its own.
		_ = s.events.PublishBedEvent(ctx, BedEvent{
			WardID:  updated.WardID,
			BedID:   updated.ID,
			BedCode: updated.Code,
			Status:  updated.Status,
			ActorID: actorID,
		})
	}
	return updated, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}
