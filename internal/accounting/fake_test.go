package accounting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"nudio/internal/domain"
)

type fakeRepo struct {
	mu        sync.Mutex
	byEmail   map[string]*domain.Profile
	reads     int
	writes    int
	failRead  error
	failWrite error
	nextID    int
	now       time.Time
	// raced is stored just before the next Insert, as if another request
	// created the same email first.
	raced *domain.Profile
}

func newFakeRepo(now time.Time) *fakeRepo {
	return &fakeRepo{byEmail: map[string]*domain.Profile{}, now: now}
}

func (f *fakeRepo) put(p domain.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := p
	f.byEmail[p.Email] = &cp
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.failRead != nil {
		return nil, f.failRead
	}
	p, ok := f.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	for _, p := range f.byEmail {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRepo) Insert(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failWrite != nil {
		return nil, f.failWrite
	}
	if f.raced != nil {
		cp := *f.raced
		f.byEmail[cp.Email] = &cp
		f.raced = nil
	}
	if existing, ok := f.byEmail[p.Email]; ok {
		cp := *existing
		return &cp, nil
	}
	f.nextID++
	cp := *p
	cp.ID = fmt.Sprintf("profile-%d", f.nextID)
	cp.CreatedAt = f.now
	cp.UpdatedAt = f.now
	f.byEmail[p.Email] = &cp
	out := cp
	return &out, nil
}

func (f *fakeRepo) Update(_ context.Context, email string, c domain.ProfileChanges) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failWrite != nil {
		return nil, f.failWrite
	}
	p, ok := f.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if c.Role != nil {
		p.Role = *c.Role
	}
	if c.CreditsBalance != nil {
		p.CreditsBalance = *c.CreditsBalance
	}
	if c.FreeCreditsUsed != nil {
		p.FreeCreditsUsed = *c.FreeCreditsUsed
	}
	if c.FreePeriodStart != nil {
		v := *c.FreePeriodStart
		p.FreePeriodStart = &v
	}
	p.UpdatedAt = f.now
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) ApplyDebit(_ context.Context, email string, paid, free, freeLimit int) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failWrite != nil {
		return nil, f.failWrite
	}
	p, ok := f.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.CreditsBalance = max(p.CreditsBalance-paid, 0)
	p.FreeCreditsUsed = max(p.FreeCreditsUsed, min(p.FreeCreditsUsed+free, freeLimit))
	p.UpdatedAt = f.now
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) AddCredits(_ context.Context, id string, amount int) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failWrite != nil {
		return nil, f.failWrite
	}
	for _, p := range f.byEmail {
		if p.ID == id {
			p.CreditsBalance += amount
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeJournal struct {
	entries []domain.CreditTransaction
	err     error
}

func (j *fakeJournal) Append(_ context.Context, tx *domain.CreditTransaction) error {
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, *tx)
	return nil
}

func (j *fakeJournal) ListByProfile(context.Context, string, int) ([]domain.CreditTransaction, error) {
	return j.entries, nil
}

var errBoom = errors.New("connection refused")

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
