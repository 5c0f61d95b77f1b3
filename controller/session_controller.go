package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docuchat/server/store"
)

const dateLayout = "2006-01-02"

// dateRange parses optional date_from/date_to query params. date_to is
// widened to the end of its day, so both bounds are inclusive. Reports
// false after writing a 400 when a param does not parse.
func dateRange(ctx *gin.Context) (from, to *time.Time, ok bool) {
	if raw := ctx.Query("date_from"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "date_from must be YYYY-MM-DD"})
			return nil, nil, false
		}
		from = &parsed
	}
	if raw := ctx.Query("date_to"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "date_to must be YYYY-MM-DD"})
			return nil, nil, false
		}
		end := parsed.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	return from, to, true
}

// SessionController serves the session review API: past sessions with
// their queries and response-time statistics.
type SessionController struct {
	store *store.Store
}

func NewSessionController(s *store.Store) *SessionController {
	return &SessionController{store: s}
}

// List is the Gin handler for GET /api/v1/sessions.
func (c *SessionController) List(ctx *gin.Context) {
	userID := UserID(ctx)
	if userID == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
		return
	}

	filter := store.SessionFilter{Limit: 50, SortBy: store.SortDateDesc}
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		filter.Limit = n
	}
	if raw := ctx.Query("min_queries"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "min_queries must be a non-negative integer"})
			return
		}
		filter.MinQueries = &n
	}
	if raw := ctx.Query("sort_by"); raw != "" {
		if !store.ValidSort(raw) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "sort_by must be one of date_desc, date_asc, queries_desc, queries_asc"})
			return
		}
		filter.SortBy = raw
	}
	from, to, ok := dateRange(ctx)
	if !ok {
		return
	}
	filter.DateFrom, filter.DateTo = from, to

	sessions, err := c.store.ListSessions(ctx.Request.Context(), userID, filter)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}
	ctx.JSON(http.StatusOK, sessions)
}

// Summary is the Gin handler for GET /api/v1/sessions/stats/summary.
func (c *SessionController) Summary(ctx *gin.Context) {
	userID := UserID(ctx)
	if userID == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
		return
	}

	from, to, ok := dateRange(ctx)
	if !ok {
		return
	}
	stats, err := c.store.SessionsSummary(ctx.Request.Context(), userID, from, to)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute session statistics"})
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

// Get is the Gin handler for GET /api/v1/sessions/:id.
func (c *SessionController) Get(ctx *gin.Context) {
	userID := UserID(ctx)
	if userID == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
		return
	}

	session, err := c.store.GetSession(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
		return
	}
	ctx.JSON(http.StatusOK, session)
}

// Delete is the Gin handler for DELETE /api/v1/sessions/:id.
func (c *SessionController) Delete(ctx *gin.Context) {
	userID := UserID(ctx)
	if userID == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
		return
	}

	if err := c.store.DeleteSession(ctx.Request.Context(), userID, ctx.Param("id")); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
}
