package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wemcdonald/sqlsafety/pkg/report"
	"github.com/wemcdonald/sqlsafety/pkg/sandbox"
	"github.com/wemcdonald/sqlsafety/pkg/sqlparser"
)

// AnalyzeRequest is the body of POST /analyze
type AnalyzeRequest struct {
	SQL             string             `json:"sql"`
	IncludeRollback *bool              `json:"include_rollback"`
	IncludeDryRun   *bool              `json:"include_dry_run"`
	SampleData      sandbox.SampleData `json:"sample_data"`
}

// Options converts the request flags, defaulting both to true
func (r AnalyzeRequest) Options() report.Options {
	opts := report.DefaultOptions()
	if r.IncludeRollback != nil {
		opts.IncludeRollback = *r.IncludeRollback
	}
	if r.IncludeDryRun != nil {
		opts.IncludeDryRun = *r.IncludeDryRun
	}
	opts.SampleData = r.SampleData
	return opts
}

// AnalyzeResponse wraps every /analyze answer
type AnalyzeResponse struct {
	Success bool                 `json:"success"`
	Data    *report.SafetyReport `json:"data,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// HandleIndex describes the service
func HandleIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "sqlsafety API",
			"version": Version,
			"endpoints": gin.H{
				"/analyze": "POST - Analyze SQL statement",
				"/health":  "GET - Health check",
				"/metrics": "GET - Prometheus metrics",
			},
		})
	}
}

// HandleHealth reports liveness
func HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// HandleAnalyze composes a safety report for the posted statement
func HandleAnalyze(composer *report.Composer, metrics *Metrics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			metrics.RejectedTotal.WithLabelValues("bad_request").Inc()
			c.JSON(http.StatusBadRequest, AnalyzeResponse{Error: "invalid request body: " + err.Error()})
			return
		}
		if strings.TrimSpace(req.SQL) == "" {
			metrics.RejectedTotal.WithLabelValues("empty_sql").Inc()
			c.JSON(http.StatusBadRequest, AnalyzeResponse{Error: "SQL statement cannot be empty"})
			return
		}

		start := time.Now()
		rep, err := composer.Compose(c.Request.Context(), req.SQL, req.Options())
		if err != nil {
			var perr *sqlparser.ParseError
			if errors.As(err, &perr) {
				metrics.RejectedTotal.WithLabelValues("parse_error").Inc()
				c.JSON(http.StatusUnprocessableEntity, AnalyzeResponse{Error: "SQL parsing error: " + perr.Message})
				return
			}
			logger.Error("analysis failed", "error", err)
			metrics.RejectedTotal.WithLabelValues("internal").Inc()
			c.JSON(http.StatusInternalServerError, AnalyzeResponse{Error: "Error analyzing SQL: " + err.Error()})
			return
		}

		metrics.Observe(rep, time.Since(start))
		c.JSON(http.StatusOK, AnalyzeResponse{Success: true, Data: rep})
	}
}
