package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reportColumns = `
	id, patient_id, doctor_id, report_type, report_date::text, title, findings_encrypted,
	interpretation_encrypted, file_path, file_name, file_size, mime_type, is_reviewed,
	reviewed_by, reviewed_at, created_by, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanReport(row pgx.Row) (*Report, error) {
	var r Report
	err := row.Scan(
		&r.ID,
		&r.PatientID,
		&r.DoctorID,
		&r.ReportType,
		&r.ReportDate,
		&r.Title,
		&r.FindingsEncrypted,
		&r.InterpretationEncrypted,
		&r.FilePath,
		&r.FileName,
		&r.FileSize,
		&r.MimeType,
		&r.IsReviewed,
		&r.ReviewedBy,
		&r.ReviewedAt,
		&r.CreatedBy,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (p *PgRepository) Insert(ctx context.Context, r *Report) (*Report, error) {
	id := r.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	row := p.pool.QueryRow(ctx, `
		INSERT INTO medical_reports (id, patient_id, doctor_id, report_type, report_date, title,
		                             findings_encrypted, interpretation_encrypted, file_path, file_name,
		                             file_size, mime_type, created_by)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+reportColumns,
		id, r.PatientID, r.DoctorID, r.ReportType, r.ReportDate, r.Title, r.FindingsEncrypted,
		r.InterpretationEncrypted, r.FilePath, r.FileName, r.FileSize, r.MimeType, r.CreatedBy)

	created, err := scanReport(row)
	if err != nil {
		return nil, fmt.Errorf("insert medical report: %w", err)
	}
	return created, nil
}

func (p *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	return scanReport(p.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM medical_reports WHERE id = $1`, id))
}

func (p *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Report, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+reportColumns+`
		FROM medical_reports
		WHERE patient_id = $1
		ORDER BY report_date DESC, created_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

func (p *PgRepository) Update(ctx context.Context, id uuid.UUID, patch Patch) (*Report, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE medical_reports
		SET report_type = COALESCE($2, report_type),
		    report_date = COALESCE($3::date, report_date),
		    title = COALESCE($4, title),
		    findings_encrypted = COALESCE($5, findings_encrypted),
		    interpretation_encrypted = COALESCE($6, interpretation_encrypted),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+reportColumns,
		id, patch.ReportType, patch.ReportDate, patch.Title, patch.Findings, patch.Interpretation)
	return scanReport(row)
}

func (p *PgRepository) MarkReviewed(ctx context.Context, id uuid.UUID, rv Review) (*Report, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE medical_reports
		SET is_reviewed = true, reviewed_by = $2, reviewed_at = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+reportColumns,
		id, rv.By, rv.At)
	return scanReport(row)
}

func (p *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM medical_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete medical report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}
