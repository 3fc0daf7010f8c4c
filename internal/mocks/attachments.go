package mocks

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
)

type attachmentRepo struct{ s *Store }

func (r *attachmentRepo) Create(ctx context.Context, attachment *domain.ClaimAttachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("attachments.Create"); err != nil {
		return err
	}
	if _, ok := r.s.claims[attachment.ClaimID]; !ok {
		return foreignKeyViolation("claim_attachments_claim_id_fkey")
	}
	attachment.ID = newID()
	attachment.CreatedAt = r.s.tick()
	r.s.attachments[attachment.ID] = *attachment
	return nil
}

func (r *attachmentRepo) GetByID(ctx context.Context, id string) (*domain.ClaimAttachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	attachment, ok := r.s.attachments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &attachment, nil
}

func (r *attachmentRepo) ListByClaim(ctx context.Context, claimID string) ([]domain.ClaimAttachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ClaimAttachment
	for _, attachment := range r.s.attachments {
		if attachment.ClaimID == claimID {
			out = append(out, attachment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *attachmentRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("attachments.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.attachments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.attachments, id)
	return nil
}
