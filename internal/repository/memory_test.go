package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestMemoryQuarterCompleteConverges(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryQuarterRepository()
	first := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	due := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)

	ob := &domain.QuarterObligation{UserID: "u1", Quarter: domain.Q1, Year: 2025, DueDate: due, VerifiedAt: &first, SubmissionID: ptr("s1")}
	a, err := repo.Complete(ctx, ob)
	require.NoError(t, err)

	later := first.Add(time.Hour)
	again := *ob
	again.VerifiedAt = &later
	b, err := repo.Complete(ctx, &again)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.Len())
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, domain.ObligationCompleted, b.Status)
	assert.Equal(t, first, *b.VerifiedAt, "same submission keeps first verified-at")
}

func TestMemoryQuarterCreateIfAbsentAndSweep(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryQuarterRepository()
	due := time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC)

	created, err := repo.CreateIfAbsent(ctx, &domain.QuarterObligation{UserID: "u1", Quarter: domain.Q2, Year: 2025, Status: domain.ObligationPending, DueDate: due})
	require.NoError(t, err)
	dup, err := repo.CreateIfAbsent(ctx, &domain.QuarterObligation{UserID: "u1", Quarter: domain.Q2, Year: 2025, Status: domain.ObligationCompleted, DueDate: due})
	require.NoError(t, err)
	assert.Equal(t, created.ID, dup.ID)
	assert.Equal(t, domain.ObligationPending, dup.Status)

	missed, err := repo.MarkMissed(ctx, due)
	require.NoError(t, err)
	assert.Empty(t, missed, "due date itself is not past")

	missed, err = repo.MarkMissed(ctx, due.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, missed, 1)
	assert.Equal(t, domain.ObligationMissed, missed[0].Status)

	done, err := repo.Complete(ctx, &domain.QuarterObligation{UserID: "u1", Quarter: domain.Q2, Year: 2025, DueDate: due, VerifiedAt: ptr(due.Add(48 * time.Hour)), SubmissionID: ptr("s9")})
	require.NoError(t, err)
	assert.Equal(t, domain.ObligationCompleted, done.Status)
	assert.Equal(t, created.ID, done.ID)
}

func TestMemoryCertificateCreateIfAbsentConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCertificateRepository()

	var wg sync.WaitGroup
	ids := make([]string, 16)
	createdCount := make([]bool, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cert := &domain.DigitalCertificate{UserID: "u1", SubmissionID: "s1", ContentSnapshot: []byte(`{"a":1}`), SignatureHash: "h"}
			created, err := repo.CreateIfAbsent(ctx, cert)
			assert.NoError(t, err)
			ids[i] = cert.ID
			createdCount[i] = created
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, repo.Len())
	minted := 0
	for i := range ids {
		assert.Equal(t, ids[0], ids[i])
		if createdCount[i] {
			minted++
		}
	}
	assert.Equal(t, 1, minted)
}

func TestMemoryLatestApproved(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySubmissionRepository()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.LatestApproved(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	older := &domain.VerificationSubmission{UserID: "u1", Status: domain.SubmissionApproved, SubmittedAt: base, VerifiedAt: ptr(base.Add(2 * time.Hour))}
	newer := &domain.VerificationSubmission{UserID: "u1", Status: domain.SubmissionApproved, SubmittedAt: base.Add(time.Hour), VerifiedAt: ptr(base.Add(time.Hour))}
	flagged := &domain.VerificationSubmission{UserID: "u1", Status: domain.SubmissionFlagged, SubmittedAt: base.Add(3 * time.Hour), VerifiedAt: ptr(base.Add(3 * time.Hour))}
	for _, s := range []*domain.VerificationSubmission{older, newer, flagged} {
		require.NoError(t, repo.Create(ctx, s))
	}

	got, err := repo.LatestApproved(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID, "latest verified-at wins")

	list, err := repo.ListByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, flagged.ID, list[0].ID)
	assert.Equal(t, newer.ID, list[1].ID)
}

func TestMemoryTxManagerNests(t *testing.T) {
	tx := &MemoryTxManager{}
	calls := 0
	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		return tx.WithinTx(ctx, func(context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
