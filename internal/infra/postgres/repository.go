package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mediacheck/truthscan-service/internal/domain/entity"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.AnalysisJob) error {
	query := `
		INSERT INTO analysis_jobs (
			id, user_id, media_key, media_kind, mode, frame_key, status,
			verdict, ai_percentage, is_ai_generated, frame_index, report,
			attempt, max_attempts, error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.MediaKey, string(job.MediaKind), string(job.Mode),
		job.FrameKey, string(job.Status), job.Verdict, job.AIPercentage,
		job.IsAIGenerated, job.FrameIndex, reportParam(job.Report),
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.AnalysisJob) error {
	query := `
		UPDATE analysis_jobs SET
			status=$2, frame_key=$3, verdict=$4, ai_percentage=$5,
			is_ai_generated=$6, frame_index=$7, report=$8, attempt=$9,
			error_message=$10, updated_at=$11, completed_at=$12
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.FrameKey, job.Verdict, job.AIPercentage,
		job.IsAIGenerated, job.FrameIndex, reportParam(job.Report), job.Attempt,
		job.ErrorMessage, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.AnalysisJob, error) {
	query := `
		SELECT id, user_id, media_key, media_kind, mode, frame_key, status,
			verdict, ai_percentage, is_ai_generated, frame_index, report,
			attempt, max_attempts, error_message, created_at, updated_at, completed_at
		FROM analysis_jobs WHERE id=$1`

	job := &entity.AnalysisJob{}
	var kind, mode, status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.MediaKey, &kind, &mode, &job.FrameKey, &status,
		&job.Verdict, &job.AIPercentage, &job.IsAIGenerated, &job.FrameIndex, &job.Report,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.MediaKind = entity.MediaKind(kind)
	job.Mode = entity.VideoMode(mode)
	job.Status = entity.JobStatus(status)
	return job, nil
}

// reportParam keeps an absent report NULL instead of an empty JSONB value.
func reportParam(report []byte) any {
	if len(report) == 0 {
		return nil
	}
	return string(report)
}
