// pkg/server/server.go
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/faraiwande/gdpr-deletion/pkg/pipeline"
	"github.com/faraiwande/gdpr-deletion/pkg/queries"
	"github.com/faraiwande/gdpr-deletion/pkg/warehouse"
)

const dateLayout = "2006-01-02"

// ManualRunner triggers an operator-initiated deletion run.
type ManualRunner interface {
	RunManual(ctx context.Context, date time.Time) *pipeline.RunResult
}

// QueryRunner runs read queries against the analytical warehouse.
type QueryRunner interface {
	RunQuery(ctx context.Context, query string) (*warehouse.ResultSet, error)
}

// Server is the operator trigger surface: pending deletion counts and a
// synchronous manual run endpoint.
type Server struct {
	addr   string
	logger *zap.Logger
	router *gin.Engine
	server *http.Server
}

// executeRequest is the manual run trigger payload
type executeRequest struct {
	Date string `form:"date" json:"date" binding:"required"`
}

// NewRouter builds the operator routes
func NewRouter(runner ManualRunner, wh QueryRunner, prefix string, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", func(c *gin.Context) {
		rs, err := wh.RunQuery(c.Request.Context(), queries.PendingCountsByDate(prefix))
		if err != nil {
			logger.Error("Failed to load pending counts", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to load pending deletion counts"})
			return
		}

		type dateCount struct {
			GDPRDate string `json:"gdprdate"`
			Count    int64  `json:"cnt"`
		}

		counts := make([]dateCount, 0, rs.Len())
		var total int64
		for _, row := range rs.Rows {
			cnt := asInt(row["cnt"])
			total += cnt
			counts = append(counts, dateCount{
				GDPRDate: row.String("gdprdate"),
				Count:    cnt,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"total_count":   total,
			"spids_by_date": counts,
		})
	})

	router.POST("/execute-deletions", func(c *gin.Context) {
		var req executeRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "please select a date"})
			return
		}

		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be formatted YYYY-MM-DD"})
			return
		}

		logger.Info("Manual deletion run requested", zap.String("date", req.Date))
		result := runner.RunManual(c.Request.Context(), date)

		c.JSON(runStatus(result), gin.H{
			"date":             req.Date,
			"state":            result.State.String(),
			"pending":          result.Pending,
			"chunks":           result.Chunks,
			"submitted_chunks": result.SubmittedChunks,
			"failed_chunks":    result.FailedChunks,
			"notices":          result.Notices,
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	return router
}

// NewServer creates the operator HTTP server
func NewServer(addr string, router *gin.Engine, logger *zap.Logger) *Server {
	return &Server{
		addr:   addr,
		logger: logger,
		router: router,
	}
}

// Start begins serving in the background
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", s.addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// runStatus maps a run outcome to an HTTP status. An aborted run is not a
// success: a held lease answers 409 so the caller can retry later, anything
// else that stopped the run before completion answers 500.
func runStatus(result *pipeline.RunResult) int {
	if result.State != pipeline.StateAborted {
		return http.StatusOK
	}
	if result.Failure != nil && result.Failure.Category == pipeline.CategoryLease {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// asInt coerces a driver-dependent count value to int64
func asInt(v interface{}) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case []byte:
		n, _ := strconv.ParseInt(string(val), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	default:
		return 0
	}
}
