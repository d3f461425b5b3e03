package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"gestion/internal/audit"
	"gestion/internal/participation/metrics"
	"gestion/internal/participation/models"
	dErrors "gestion/pkg/domain-errors"
	"gestion/pkg/platform/sentinel"
	"gestion/pkg/platform/tx"
	"gestion/pkg/requestcontext"
)

const tracerName = "gestion/participation"

type PersonStore interface {
	FindByID(ctx context.Context, id models.PersonID) (*models.Person, error)
	// Lock holds the person's row until the surrounding transaction ends.
	Lock(ctx context.Context, id models.PersonID) error
}

type ProjectStore interface {
	FindByCode(ctx context.Context, code models.ProjectCode) (*models.Project, error)
}

type ParticipationStore interface {
	Create(ctx context.Context, p *models.Participation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Participation, error)
	ListByPerson(ctx context.Context, personID models.PersonID) ([]*models.Participation, error)
	ListByProject(ctx context.Context, code models.ProjectCode) ([]*models.Participation, error)
	SumPercentage(ctx context.Context, personID models.PersonID, exclude models.ProjectCode) (float64, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service registers participations and enforces the occupation rules.
type Service struct {
	persons        PersonStore
	projects       ProjectStore
	participations ParticipationStore
	tx             tx.Runner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service. txRunner must make Lock, SumPercentage and Create
// atomic with respect to other registrations for the same person.
func New(persons PersonStore, projects ProjectStore, participations ParticipationStore, txRunner tx.Runner, opts ...Option) *Service {
	s := &Service{
		persons:        persons,
		projects:       projects,
		participations: participations,
		tx:             txRunner,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// Register records that personID works on projectCode with the given role and
// share of their time. Errors carry a domain-errors code: not_found for an
// unknown person or project, invalid_state for a rejected percentage, a finished
// project or an over-committed person, conflict for a duplicate participation.
func (s *Service) Register(ctx context.Context, personID models.PersonID, projectCode models.ProjectCode, role models.Role, percentage float64) (*models.Participation, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "participation.Register", trace.WithAttributes(
		attribute.String("person_id", string(personID)),
		attribute.String("project_code", string(projectCode)),
		attribute.Float64("percentage", percentage),
	))
	defer span.End()

	p, err := s.register(ctx, personID, projectCode, role, percentage)
	s.metrics.ObserveRegisterLatency(time.Since(start))
	s.metrics.IncrementOutcome(outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("participation_id", p.ID.String()))
	span.SetStatus(codes.Ok, "")
	s.emitRegistered(ctx, p)
	return p, nil
}

func (s *Service) register(ctx context.Context, personID models.PersonID, projectCode models.ProjectCode, role models.Role, percentage float64) (*models.Participation, error) {
	project, err := s.lookup(ctx, personID, projectCode)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if err := models.ValidatePercentage(percentage); err != nil {
		return nil, err
	}
	if project.IsFinished(now) {
		return nil, dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("project %s is already finished", projectCode))
	}

	var created *models.Participation
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.persons.Lock(ctx, personID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return personNotFound(personID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock person")
		}

		occupied, err := s.participations.SumPercentage(ctx, personID, projectCode)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read occupation")
		}
		if err := models.CheckOccupation(personID, occupied, percentage); err != nil {
			return err
		}

		p, err := models.NewParticipation(uuid.New(), personID, projectCode, role, percentage, now)
		if err != nil {
			return err
		}
		if err := s.participations.Create(ctx, p); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict,
					fmt.Sprintf("person %s already participates in project %s", personID, projectCode))
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save participation")
		}
		created = p
		return nil
	})
	if err != nil {
		var coded *dErrors.Error
		if errors.As(err, &coded) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register participation")
	}
	return created, nil
}

// lookup fetches the person and project concurrently. A missing person is
// reported before a missing project regardless of which lookup finishes first.
func (s *Service) lookup(ctx context.Context, personID models.PersonID, projectCode models.ProjectCode) (*models.Project, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		project        *models.Project
		personMissing  bool
		projectMissing bool
	)

	g.Go(func() error {
		start := time.Now()
		_, err := s.persons.FindByID(gctx, personID)
		s.metrics.ObserveLookupLatency("person", time.Since(start))
		if errors.Is(err, sentinel.ErrNotFound) {
			personMissing = true
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load person")
		}
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		p, err := s.projects.FindByCode(gctx, projectCode)
		s.metrics.ObserveLookupLatency("project", time.Since(start))
		if errors.Is(err, sentinel.ErrNotFound) {
			projectMissing = true
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
		}
		project = p
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if personMissing {
		return nil, personNotFound(personID)
	}
	if projectMissing {
		return nil, projectNotFound(projectCode)
	}
	return project, nil
}

// Get returns a single participation.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Participation, error) {
	p, err := s.participations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("participation %s not found", id))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load participation")
	}
	return p, nil
}

// ListByPerson returns the person's participations, oldest first.
func (s *Service) ListByPerson(ctx context.Context, personID models.PersonID) ([]*models.Participation, error) {
	if _, err := s.persons.FindByID(ctx, personID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, personNotFound(personID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load person")
	}
	list, err := s.participations.ListByPerson(ctx, personID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list participations")
	}
	return list, nil
}

// ListByProject returns the project's participations, oldest first.
func (s *Service) ListByProject(ctx context.Context, code models.ProjectCode) ([]*models.Participation, error) {
	if _, err := s.projects.FindByCode(ctx, code); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, projectNotFound(code)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
	}
	list, err := s.participations.ListByProject(ctx, code)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list participations")
	}
	return list, nil
}

func (s *Service) emitRegistered(ctx context.Context, p *models.Participation) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:      audit.ActionParticipationRegistered,
		Timestamp:   p.CreatedAt,
		Subject:     p.ID.String(),
		PersonID:    string(p.PersonID),
		ProjectCode: string(p.ProjectCode),
		Detail:      fmt.Sprintf("role=%s percentage=%g", p.Role, p.Percentage),
		RequestID:   requestcontext.RequestID(ctx),
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"participation_id", event.Subject,
			"error", err,
		)
	}
}

func personNotFound(id models.PersonID) error {
	return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("person %s not found", id))
}

func projectNotFound(code models.ProjectCode) error {
	return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("project %s not found", code))
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeRegistered
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeNotFound:
		return metrics.OutcomeNotFound
	case dErrors.CodeInvalidState:
		return metrics.OutcomeInvalidState
	case dErrors.CodeConflict:
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}
