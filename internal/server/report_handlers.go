package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plantdash/plantdash/internal/client"
	"github.com/plantdash/plantdash/internal/reports"
	"github.com/plantdash/plantdash/internal/tasks"
)

type reportFormPage struct {
	Form    reports.Form
	Errors  reports.FieldErrors
	Plants  []client.Plant
	Formats []string
}

// @Router /reports [get]
func (s *Server) listReports(c *gin.Context) {
	list, err := s.api.ListReports(c.Request.Context(), containerFrom(c).Token())
	if err != nil {
		s.backendError(c, err, "reports.title")
		return
	}

	p := s.page(c, "reports.title")
	if c.Query("queued") == "1" {
		p.Flash = p.T("reports.queued")
	}
	p.Data = list
	s.render(c, http.StatusOK, "reports", p)
}

// @Router /reports/new [get]
func (s *Server) newReport(c *gin.Context) {
	plants, err := s.api.ListPlants(c.Request.Context(), containerFrom(c).Token())
	if err != nil {
		s.backendError(c, err, "reports.new")
		return
	}

	today := time.Now().UTC()
	form := reports.Form{
		PlantID: c.Query("plant_id"),
		From:    today.AddDate(0, 0, -7).Format("2006-01-02"),
		To:      today.Format("2006-01-02"),
		Format:  reports.Formats[0],
	}

	p := s.page(c, "reports.new")
	p.Data = reportFormPage{Form: form, Plants: plants, Formats: reports.Formats}
	s.render(c, http.StatusOK, "report_new", p)
}

// renderReportForm re-renders the builder with the user's input
func (s *Server) renderReportForm(c *gin.Context, status int, form reports.Form, fields reports.FieldErrors, errKey string) {
	plants, err := s.api.ListPlants(c.Request.Context(), containerFrom(c).Token())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to reload plants for report form")
	}

	p := s.page(c, "reports.new")
	if errKey != "" {
		p.Error = p.T(errKey)
	}
	p.Data = reportFormPage{Form: form, Errors: fields, Plants: plants, Formats: reports.Formats}
	s.render(c, status, "report_new", p)
}

// @Router /reports [post]
func (s *Server) submitReport(c *gin.Context) {
	var form reports.Form
	if err := c.ShouldBind(&form); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to bind report form")
		s.renderReportForm(c, http.StatusBadRequest, form, nil, "report.invalid")
		return
	}

	if err := s.reports.Validate(form); err != nil {
		var fields reports.FieldErrors
		if !errors.As(err, &fields) {
			s.logger.Error().Err(err).Msg("Failed to validate report form")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		s.renderReportForm(c, http.StatusUnprocessableEntity, form, fields, "")
		return
	}

	req, err := form.Request()
	if err != nil {
		s.logger.Debug().Err(err).Msg("Failed to convert report form")
		s.renderReportForm(c, http.StatusBadRequest, form, nil, "report.invalid")
		return
	}

	sessionID := c.GetString(ctxSessionID)
	task, err := tasks.NewSubmitReportTask(sessionID, req)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create report task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	info, err := s.queue.Enqueue(task)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to enqueue report task")
		p := s.page(c, "reports.new")
		p.Error = p.T("error.backend")
		s.render(c, http.StatusServiceUnavailable, "error", p)
		return
	}

	s.logger.Info().
		Str("task_id", info.ID).
		Str("session_id", sessionID).
		Str("plant_id", req.PlantID).
		Msg("Report queued")

	c.Redirect(http.StatusSeeOther, "/reports?queued=1")
}
