package patient

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu sync.Mutex
	by map[uuid.UUID]*Patient
}

func newMemRepo() *memRepo {
	return &memRepo{by: make(map[uuid.UUID]*Patient)}
}

func (r *memRepo) Create(_ context.Context, p *Patient) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.by {
		if strings.EqualFold(other.Email, p.Email) {
			return nil, ErrEmailTaken
		}
	}
	cp := *p
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.by[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.by[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.by {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (r *memRepo) Update(_ context.Context, p *Patient) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.by[p.ID]
	if !ok {
		return nil, ErrPatientNotFound
	}
	for id, other := range r.by {
		if id != p.ID && strings.EqualFold(other.Email, p.Email) {
			return nil, ErrEmailTaken
		}
	}
	cp := *p
	cp.CreatedAt = cur.CreatedAt
	cp.UpdatedAt = time.Now()
	r.by[p.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memRepo) List(_ context.Context, limit, offset int) ([]Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Patient
	for _, p := range r.by {
		out = append(out, *p)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func TestRegisterAndLookup(t *testing.T) {
	svc := NewService(newMemRepo(), zerolog.Nop())
	ctx := context.Background()

	created, err := svc.Register(ctx, Patient{
		Name:  "  Jane Doe ",
		Email: " jane@example.com ",
		Phone: "+1 555 0100",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "Jane Doe", created.Name)
	assert.Equal(t, "jane@example.com", created.Email)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	name, email, err := svc.Contact(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", name)
	assert.Equal(t, "jane@example.com", email)
}

func TestRegisterDuplicateEmailCaseInsensitive(t *testing.T) {
	svc := NewService(newMemRepo(), zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Register(ctx, Patient{Name: "Jane", Email: "jane@example.com"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, Patient{Name: "Other Jane", Email: "JANE@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newMemRepo(), zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name    string
		patient Patient
		field   string
	}{
		{"missing name", Patient{Email: "a@example.com"}, "name"},
		{"blank name", Patient{Name: "   ", Email: "a@example.com"}, "name"},
		{"missing email", Patient{Name: "Jane"}, "email"},
		{"malformed email", Patient{Name: "Jane", Email: "not-an-email"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.patient)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestUpdateKeepsIdentity(t *testing.T) {
	svc := NewService(newMemRepo(), zerolog.Nop())
	ctx := context.Background()

	created, err := svc.Register(ctx, Patient{Name: "Jane", Email: "jane@example.com"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, Patient{
		Name:    "Jane Smith",
		Email:   "jane@example.com",
		Address: "12 Elm St",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Jane Smith", updated.Name)
	assert.Equal(t, "12 Elm St", updated.Address)

	_, err = svc.Update(ctx, uuid.New(), Patient{Name: "Ghost", Email: "ghost@example.com"})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}
