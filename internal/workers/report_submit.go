package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/plantdash/plantdash/internal/client"
	"github.com/plantdash/plantdash/internal/registry"
	"github.com/plantdash/plantdash/internal/session"
	"github.com/plantdash/plantdash/internal/tasks"
)

// ReportBackend is the part of the API client the report worker needs
type ReportBackend interface {
	session.Authenticator
	CreateReport(ctx context.Context, token string, req client.CreateReportRequest) (*client.Report, error)
}

// HandleSubmitReport sends a queued report request to the backend on behalf
// of the browser session that queued it. The token is read from the
// session's store at processing time, so a logout before processing
// cancels the submission.
func HandleSubmitReport(ctx context.Context, t *asynq.Task, reg *registry.Registry, api ReportBackend, logger zerolog.Logger) error {
	payload, err := tasks.ParseSubmitReportPayload(t)
	if err != nil {
		return fmt.Errorf("failed to parse payload: %v: %w", err, asynq.SkipRetry)
	}

	log := logger.With().
		Str("session_id", payload.SessionID).
		Str("plant_id", payload.Request.PlantID).
		Str("format", payload.Request.Format).
		Logger()

	if !registry.ValidID(payload.SessionID) {
		log.Warn().Msg("Dropping report for invalid session id")
		return fmt.Errorf("invalid session id %q: %w", payload.SessionID, asynq.SkipRetry)
	}

	container := reg.Container(payload.SessionID, api)
	container.Hydrate(ctx)
	container.CheckExpiry(ctx)

	state := container.State()
	if !state.IsAuthenticated {
		log.Warn().Msg("Session is no longer authenticated - dropping report")
		return fmt.Errorf("session not authenticated: %w", asynq.SkipRetry)
	}

	report, err := api.CreateReport(ctx, container.Token(), payload.Request)
	if err != nil {
		if errors.Is(err, session.ErrAuthRejected) {
			// The backend revoked the token; the next page load redirects to login
			container.Logout(ctx)
			log.Warn().Err(err).Msg("Backend rejected session token - dropping report")
			return fmt.Errorf("report rejected: %v: %w", err, asynq.SkipRetry)
		}
		if client.IsAPIError(err, 400) || client.IsAPIError(err, 422) {
			log.Error().Err(err).Msg("Backend refused report request")
			return fmt.Errorf("report refused: %v: %w", err, asynq.SkipRetry)
		}

		log.Error().Err(err).Msg("Failed to submit report")
		return fmt.Errorf("failed to submit report: %w", err)
	}

	log.Info().
		Str("report_id", report.ID).
		Str("user_email", state.User.Email).
		Msg("Report submitted")

	return nil
}
