package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
)

// MemoryUserRepository keeps users in process memory.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PensionerNumber == user.PensionerNumber {
			return ErrConflict
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) GetByPensionerNumber(_ context.Context, number string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.PensionerNumber == number {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// MemorySubmissionRepository keeps submissions in insertion order.
type MemorySubmissionRepository struct {
	mu   sync.RWMutex
	subs []domain.VerificationSubmission
}

func NewMemorySubmissionRepository() *MemorySubmissionRepository {
	return &MemorySubmissionRepository{}
}

func (r *MemorySubmissionRepository) Create(_ context.Context, sub *domain.VerificationSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub.ID = uuid.NewString()
	stored := *sub
	stored.LiveImageRefs = slices.Clone(sub.LiveImageRefs)
	r.subs = append(r.subs, stored)
	return nil
}

func (r *MemorySubmissionRepository) GetByID(_ context.Context, id string) (*domain.VerificationSubmission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.subs {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemorySubmissionRepository) ListByUser(_ context.Context, userID string, limit int) ([]domain.VerificationSubmission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.VerificationSubmission
	for i := len(r.subs) - 1; i >= 0; i-- {
		if r.subs[i].UserID == userID {
			out = append(out, r.subs[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemorySubmissionRepository) LatestApproved(_ context.Context, userID string) (*domain.VerificationSubmission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *domain.VerificationSubmission
	for i := range r.subs {
		s := &r.subs[i]
		if s.UserID != userID || s.Status != domain.SubmissionApproved {
			continue
		}
		if best == nil || laterApproval(s, best) {
			best = s
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	out := *best
	return &out, nil
}

func laterApproval(a, b *domain.VerificationSubmission) bool {
	switch {
	case a.VerifiedAt == nil && b.VerifiedAt == nil:
	case a.VerifiedAt == nil:
		return false
	case b.VerifiedAt == nil:
		return true
	case !a.VerifiedAt.Equal(*b.VerifiedAt):
		return a.VerifiedAt.After(*b.VerifiedAt)
	}
	return !a.SubmittedAt.Before(b.SubmittedAt)
}

// MemoryIdentityRecordRepository keeps identity records in insertion order.
type MemoryIdentityRecordRepository struct {
	mu      sync.RWMutex
	records []domain.IdentityRecord
}

func NewMemoryIdentityRecordRepository() *MemoryIdentityRecordRepository {
	return &MemoryIdentityRecordRepository{}
}

func (r *MemoryIdentityRecordRepository) Create(_ context.Context, rec *domain.IdentityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = uuid.NewString()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.records = append(r.records, *rec)
	return nil
}

func (r *MemoryIdentityRecordRepository) LatestVerified(_ context.Context, userID string) (*domain.IdentityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].UserID == userID && r.records[i].Verified {
			rec := r.records[i]
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

// MemoryQuarterRepository enforces the (user, quarter, year) key with a map.
type MemoryQuarterRepository struct {
	mu   sync.Mutex
	rows map[quarterKey]domain.QuarterObligation
}

type quarterKey struct {
	user    string
	quarter domain.Quarter
	year    int
}

func NewMemoryQuarterRepository() *MemoryQuarterRepository {
	return &MemoryQuarterRepository{rows: make(map[quarterKey]domain.QuarterObligation)}
}

func keyOf(ob *domain.QuarterObligation) quarterKey {
	return quarterKey{user: ob.UserID, quarter: ob.Quarter, year: ob.Year}
}

func (r *MemoryQuarterRepository) Get(_ context.Context, userID string, quarter domain.Quarter, year int) (*domain.QuarterObligation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ob, ok := r.rows[quarterKey{user: userID, quarter: quarter, year: year}]
	if !ok {
		return nil, ErrNotFound
	}
	return &ob, nil
}

func (r *MemoryQuarterRepository) CreateIfAbsent(_ context.Context, ob *domain.QuarterObligation) (*domain.QuarterObligation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := keyOf(ob)
	if existing, ok := r.rows[k]; ok {
		return &existing, nil
	}
	stored := *ob
	stored.ID = uuid.NewString()
	r.rows[k] = stored
	return &stored, nil
}

func (r *MemoryQuarterRepository) Complete(_ context.Context, ob *domain.QuarterObligation) (*domain.QuarterObligation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := keyOf(ob)
	stored, ok := r.rows[k]
	if !ok {
		stored = *ob
		stored.ID = uuid.NewString()
	} else if stored.Status != domain.ObligationCompleted || !sameRef(stored.SubmissionID, ob.SubmissionID) {
		stored.VerifiedAt = ob.VerifiedAt
	}
	stored.Status = domain.ObligationCompleted
	stored.SubmissionID = ob.SubmissionID
	r.rows[k] = stored
	return &stored, nil
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *MemoryQuarterRepository) ListByUser(_ context.Context, userID string, year int) ([]domain.QuarterObligation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.QuarterObligation
	for k, ob := range r.rows {
		if k.user == userID && (year == 0 || k.year == year) {
			out = append(out, ob)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Quarter < out[j].Quarter
	})
	return out, nil
}

func (r *MemoryQuarterRepository) MarkMissed(_ context.Context, dueBefore time.Time) ([]domain.QuarterObligation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.QuarterObligation
	for k, ob := range r.rows {
		if ob.Status == domain.ObligationPending && ob.DueDate.Before(dueBefore) {
			ob.Status = domain.ObligationMissed
			r.rows[k] = ob
			out = append(out, ob)
		}
	}
	return out, nil
}

// Len reports the number of ledger rows.
func (r *MemoryQuarterRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// MemoryCertificateRepository indexes certificates by submission.
type MemoryCertificateRepository struct {
	mu           sync.RWMutex
	bySubmission map[string]domain.DigitalCertificate
}

func NewMemoryCertificateRepository() *MemoryCertificateRepository {
	return &MemoryCertificateRepository{bySubmission: make(map[string]domain.DigitalCertificate)}
}

func (r *MemoryCertificateRepository) CreateIfAbsent(_ context.Context, cert *domain.DigitalCertificate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.bySubmission[cert.SubmissionID]; ok {
		*cert = existing
		cert.ContentSnapshot = slices.Clone(existing.ContentSnapshot)
		return false, nil
	}
	cert.ID = uuid.NewString()
	stored := *cert
	stored.ContentSnapshot = slices.Clone(cert.ContentSnapshot)
	r.bySubmission[cert.SubmissionID] = stored
	return true, nil
}

func (r *MemoryCertificateRepository) GetByID(_ context.Context, id string) (*domain.DigitalCertificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.bySubmission {
		if c.ID == id {
			c.ContentSnapshot = slices.Clone(c.ContentSnapshot)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryCertificateRepository) GetBySubmission(_ context.Context, submissionID string) (*domain.DigitalCertificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.bySubmission[submissionID]
	if !ok {
		return nil, ErrNotFound
	}
	c.ContentSnapshot = slices.Clone(c.ContentSnapshot)
	return &c, nil
}

func (r *MemoryCertificateRepository) ListByUser(_ context.Context, userID string) ([]domain.DigitalCertificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.DigitalCertificate
	for _, c := range r.bySubmission {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

// Len reports the number of stored certificates.
func (r *MemoryCertificateRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySubmission)
}
