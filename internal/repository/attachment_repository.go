package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-service/internal/domain"
)

// AttachmentRepository persists claim attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.ClaimAttachment) error
	GetByID(ctx context.Context, id string) (*domain.ClaimAttachment, error)
	ListByClaim(ctx context.Context, claimID string) ([]domain.ClaimAttachment, error)
	Delete(ctx context.Context, id string) error
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

const attachmentColumns = `id, claim_id, filename, original_name, mime_type, size, path, created_at`

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.ClaimAttachment) error {
	const query = `
        INSERT INTO claim_attachments (claim_id, filename, original_name, mime_type, size, path)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		attachment.ClaimID,
		attachment.Filename,
		attachment.OriginalName,
		attachment.MimeType,
		attachment.Size,
		attachment.Path,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.ClaimAttachment, error) {
	return scanAttachment(querier(ctx, r.pool).QueryRow(ctx, `SELECT `+attachmentColumns+` FROM claim_attachments WHERE id=$1`, id))
}

func (r *attachmentRepository) ListByClaim(ctx context.Context, claimID string) ([]domain.ClaimAttachment, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `SELECT `+attachmentColumns+` FROM claim_attachments WHERE claim_id=$1 ORDER BY created_at`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ClaimAttachment
	for rows.Next() {
		attachment, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *attachment)
	}
	return result, rows.Err()
}

func (r *attachmentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM claim_attachments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAttachment(row pgx.Row) (*domain.ClaimAttachment, error) {
	var attachment domain.ClaimAttachment
	if err := row.Scan(
		&attachment.ID,
		&attachment.ClaimID,
		&attachment.Filename,
		&attachment.OriginalName,
		&attachment.MimeType,
		&attachment.Size,
		&attachment.Path,
		&attachment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &attachment, nil
}
