// internal/server/handlers.go
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	stderrors "avalia-integrity/internal/common/errors"
	"avalia-integrity/internal/models"
)

func (s *Server) handleHealth(c *gin.Context) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"error":  "database unreachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": s.cfg.App.Name,
		"version": s.cfg.App.Version,
	})
}

// handleDetect runs every check, or a single one when ?type= is given.
// Detection is read-only, so the POST exists for its cost, not its effect.
func (s *Server) handleDetect(c *gin.Context) {
	timeout := time.Duration(s.cfg.Server.DetectionTimeout) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if typeParam := c.Query("type"); typeParam != "" {
		div, err := s.detector.Run(ctx, models.DivergenceType(typeParam))
		if err != nil {
			s.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, div)
		return
	}

	c.JSON(http.StatusOK, s.detector.RunAll(ctx))
}

func (s *Server) handleCorrections(c *gin.Context) {
	user := c.GetHeader("X-User")
	if user == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "X-User header is required for correction attribution",
		})
		return
	}

	var req models.CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, stderrors.NewInvalidRequestError(err.Error()))
		return
	}
	req.User = user

	result, err := s.corrector.Apply(c.Request.Context(), &req)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleHistory(c *gin.Context) {
	filter := models.HistoryFilter{
		Type:       models.DivergenceType(c.Query("type")),
		EntityKind: c.Query("entityKind"),
	}

	if v := c.Query("entityId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.renderError(c, stderrors.NewInvalidRequestError("entityId must be an integer"))
			return
		}
		filter.EntityID = id
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			s.renderError(c, stderrors.NewInvalidRequestError("limit must be an integer"))
			return
		}
		filter.Limit = limit
	}
	for param, dst := range map[string]*time.Time{"from": &filter.From, "to": &filter.To} {
		if v := c.Query(param); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				s.renderError(c, stderrors.NewInvalidRequestError(param+" must be RFC3339"))
				return
			}
			*dst = ts
		}
	}

	entries, err := s.history.Query(c.Request.Context(), filter)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func (s *Server) renderError(c *gin.Context, err error) {
	var stdErr *stderrors.StandardError
	if !errors.As(err, &stdErr) {
		s.logger.Error("unhandled error", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch stdErr.Code {
	case stderrors.ErrCodeInvalidRequest, stderrors.ErrCodeUnknownDivergenceType:
		status = http.StatusBadRequest
	case stderrors.ErrCodeFixNotAuthorized:
		status = http.StatusForbidden
	case stderrors.ErrCodeFixNotAvailable:
		status = http.StatusUnprocessableEntity
	}

	c.JSON(status, gin.H{
		"error":   stdErr.Message,
		"code":    stdErr.Code,
		"details": stdErr.Details,
	})
}
