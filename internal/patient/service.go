package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Register(ctx context.Context, p Patient) (*Patient, error) {
	p.ID = uuid.New()
	p.Email = strings.TrimSpace(p.Email)
	p.Name = strings.TrimSpace(p.Name)
	if err := p.validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &p)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("patient_id", created.ID.String()).Msg("patient registered")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Update replaces the mutable profile fields. The id is taken from the
// path, not the payload.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p Patient) (*Patient, error) {
	p.ID = id
	p.Email = strings.TrimSpace(p.Email)
	p.Name = strings.TrimSpace(p.Name)
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, &p)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Patient, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// Contact satisfies the notification side's directory lookup.
func (s *Service) Contact(ctx context.Context, id uuid.UUID) (string, string, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", "", err
	}
	return p.Name, p.Email, nil
}
