package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parking-service/internal/config"
	"parking-service/internal/domain/parking"
	"parking-service/internal/export"
	"parking-service/internal/service"
)

type Handler struct {
	vehicles   *service.VehicleService
	sessions   *service.SessionService
	exceptions *service.ExceptionService
	lpr        *service.LPRService
	stats      *service.StatsService
	backups    *service.BackupService
	config     *config.Config
	log        zerolog.Logger
}

func NewHandler(
	vehicles *service.VehicleService,
	sessions *service.SessionService,
	exceptions *service.ExceptionService,
	lpr *service.LPRService,
	stats *service.StatsService,
	backups *service.BackupService,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		vehicles:   vehicles,
		sessions:   sessions,
		exceptions: exceptions,
		lpr:        lpr,
		stats:      stats,
		backups:    backups,
		config:     cfg,
		log:        log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	// Camera-facing ingestion endpoints, no operator token.
	public := r.Group("/api/v1")
	{
		public.POST("/lpr/entry-events", h.ingestEntryEvent)
		public.POST("/lpr/exit-events", h.ingestExitEvent)
		public.POST("/lpr/exceptions", h.ingestExceptionEvent)
	}

	// Operator dashboard endpoints.
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/vehicles", h.registerVehicle)
		protected.GET("/vehicles", h.listVehicles)
		protected.GET("/vehicles/:id", h.getVehicle)
		protected.PATCH("/vehicles/:id", h.updateVehicle)
		protected.POST("/vehicles/:id/renew", h.renewVehicle)
		protected.POST("/vehicles/:id/status", h.setVehicleStatus)
		protected.POST("/vehicles/bulk-renew", h.bulkRenew)
		protected.POST("/vehicles/bulk-deactivate", h.bulkDeactivate)

		protected.GET("/sessions/current", h.currentSessions)
		protected.GET("/sessions/history", h.historySessions)
		protected.GET("/sessions/search", h.searchSessions)
		protected.GET("/sessions/:id", h.getSession)
		protected.POST("/sessions/:id/exit", h.completeExit)
		protected.POST("/sessions/:id/payment", h.processPayment)

		protected.GET("/exceptions/pending", h.pendingExceptions)
		protected.GET("/exceptions/resolved", h.resolvedExceptions)
		protected.GET("/exceptions/escalated", h.escalatedExceptions)
		protected.GET("/exceptions/suggestions", h.similarPlates)
		protected.GET("/exceptions/:id", h.getException)
		protected.POST("/exceptions/:id/assign", h.assignException)
		protected.POST("/exceptions/:id/resolve", h.resolveException)
		protected.POST("/exceptions/:id/escalate", h.escalateException)

		protected.GET("/stats/overview", h.statsOverview)
		protected.GET("/stats/distribution", h.statsDistribution)
		protected.GET("/stats/top-vehicles", h.statsTopVehicles)
		protected.GET("/stats/daily", h.dailyStats)
		protected.POST("/stats/daily/snapshot", h.snapshotDailyStats)

		protected.POST("/backups", h.createBackup)
		protected.GET("/backups", h.listBackups)
		protected.POST("/backups/restore", h.restoreBackup)

		protected.GET("/exports/sessions", h.exportSessions)
		protected.GET("/exports/vehicles", h.exportVehicles)
		protected.GET("/exports/exceptions", h.exportExceptions)
	}
}

// --- LPR ingestion ---

func (h *Handler) ingestEntryEvent(c *gin.Context) {
	var ev parking.EntryEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	result, err := h.lpr.ProcessEntryEvent(c.Request.Context(), ev)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(result))
}

func (h *Handler) ingestExitEvent(c *gin.Context) {
	var ev parking.EntryEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	result, err := h.lpr.ProcessExitEvent(c.Request.Context(), ev)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(result))
}

func (h *Handler) ingestExceptionEvent(c *gin.Context) {
	var ev parking.ExceptionEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	exc, err := h.exceptions.Create(c.Request.Context(), ev)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(exc))
}

// --- Vehicles ---

func (h *Handler) registerVehicle(c *gin.Context) {
	var in service.RegisterVehicleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	vehicle, err := h.vehicles.Register(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(vehicle))
}

func (h *Handler) listVehicles(c *gin.Context) {
	filters := service.VehicleFilters{
		Type:       parking.VehicleType(c.Query("type")),
		Status:     c.Query("status"),
		Department: c.Query("department"),
		Query:      c.Query("q"),
	}
	c.JSON(http.StatusOK, successResponse(h.vehicles.List(filters)))
}

func (h *Handler) getVehicle(c *gin.Context) {
	vehicle := h.vehicles.FindByID(c.Param("id"))
	if vehicle == nil {
		c.JSON(http.StatusNotFound, errorResponse("vehicle not found"))
		return
	}
	c.JSON(http.StatusOK, successResponse(vehicle))
}

func (h *Handler) updateVehicle(c *gin.Context) {
	var in service.UpdateVehicleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	vehicle, err := h.vehicles.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(vehicle))
}

func (h *Handler) renewVehicle(c *gin.Context) {
	var body struct {
		Months int `json:"months"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	vehicle, err := h.vehicles.Renew(c.Request.Context(), c.Param("id"), body.Months)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(vehicle))
}

func (h *Handler) setVehicleStatus(c *gin.Context) {
	var body struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	vehicle, err := h.vehicles.SetActive(c.Request.Context(), c.Param("id"), body.Active)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(vehicle))
}

func (h *Handler) bulkRenew(c *gin.Context) {
	var body struct {
		IDs    []string `json:"ids"`
		Months int      `json:"months"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.vehicles.BulkRenew(c.Request.Context(), body.IDs, body.Months); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "renewed": len(body.IDs)})
}

func (h *Handler) bulkDeactivate(c *gin.Context) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.vehicles.BulkDeactivate(c.Request.Context(), body.IDs); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "deactivated": len(body.IDs)})
}

// --- Sessions ---

func (h *Handler) currentSessions(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.sessions.CurrentSessions()))
}

func (h *Handler) historySessions(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.sessions.HistorySessions()))
}

func (h *Handler) searchSessions(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, errorResponse("q parameter is required"))
		return
	}
	c.JSON(http.StatusOK, successResponse(h.sessions.Search(query)))
}

func (h *Handler) getSession(c *gin.Context) {
	session := h.sessions.SessionByID(c.Param("id"))
	if session == nil {
		c.JSON(http.StatusNotFound, errorResponse("session not found"))
		return
	}
	c.JSON(http.StatusOK, successResponse(session))
}

func (h *Handler) completeExit(c *gin.Context) {
	var in service.ExitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if in.Operator == "" {
		in.Operator = Operator(c)
	}

	session, err := h.sessions.CompleteExit(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(session))
}

func (h *Handler) processPayment(c *gin.Context) {
	var body struct {
		Method parking.PaymentMethod `json:"method"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	session, err := h.sessions.ProcessPayment(c.Request.Context(), c.Param("id"), body.Method)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(session))
}

// --- Exceptions ---

func (h *Handler) pendingExceptions(c *gin.Context) {
	filters := service.PendingFilters{
		Priority: parking.Priority(c.Query("priority")),
		Gate:     c.Query("gate"),
	}
	c.JSON(http.StatusOK, successResponse(h.exceptions.ListPending(filters)))
}

func (h *Handler) resolvedExceptions(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.exceptions.ListResolved()))
}

func (h *Handler) escalatedExceptions(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.exceptions.ListEscalated()))
}

func (h *Handler) similarPlates(c *gin.Context) {
	partial := strings.TrimSpace(c.Query("plate"))
	if partial == "" {
		c.JSON(http.StatusBadRequest, errorResponse("plate parameter is required"))
		return
	}

	maxResults := 5
	if m := c.Query("max"); m != "" {
		if parsed, err := strconv.Atoi(m); err == nil && parsed > 0 {
			maxResults = parsed
		}
	}

	c.JSON(http.StatusOK, successResponse(h.exceptions.SuggestSimilarPlates(partial, maxResults)))
}

func (h *Handler) getException(c *gin.Context) {
	exc := h.exceptions.ExceptionByID(c.Param("id"))
	if exc == nil {
		c.JSON(http.StatusNotFound, errorResponse("exception not found"))
		return
	}
	c.JSON(http.StatusOK, successResponse(exc))
}

func (h *Handler) assignException(c *gin.Context) {
	var body struct {
		OperatorID string `json:"operator_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if body.OperatorID == "" {
		body.OperatorID = Operator(c)
	}

	exc, err := h.exceptions.Assign(c.Request.Context(), c.Param("id"), body.OperatorID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(exc))
}

func (h *Handler) resolveException(c *gin.Context) {
	var in service.ResolveInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if in.ResolvedBy == "" {
		in.ResolvedBy = Operator(c)
	}

	result, err := h.exceptions.Resolve(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) escalateException(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	exc, err := h.exceptions.Escalate(c.Request.Context(), c.Param("id"), body.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(exc))
}

// --- Statistics ---

func (h *Handler) statsOverview(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.stats.Overview()))
}

func (h *Handler) statsDistribution(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(gin.H{
		"peak_hour":         h.stats.PeakHourToday(),
		"by_vehicle_type":   h.stats.VehicleTypeDistribution(),
		"by_gate":           h.stats.GateDistribution(),
		"revenue_by_method": h.stats.RevenueByMethod(),
		"average_duration":  h.stats.AverageDurationToday(),
	}))
}

func (h *Handler) statsTopVehicles(c *gin.Context) {
	n := 10
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			n = parsed
		}
	}
	byDuration := c.Query("by") == "duration"
	c.JSON(http.StatusOK, successResponse(h.stats.TopVehicles(n, byDuration)))
}

func (h *Handler) dailyStats(c *gin.Context) {
	history, err := h.stats.DailyHistory(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(history))
}

func (h *Handler) snapshotDailyStats(c *gin.Context) {
	stats, err := h.stats.SnapshotDaily(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(stats))
}

// --- Backups ---

func (h *Handler) createBackup(c *gin.Context) {
	backup, err := h.backups.Create(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(backup))
}

func (h *Handler) listBackups(c *gin.Context) {
	backups, err := h.backups.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(backups))
}

func (h *Handler) restoreBackup(c *gin.Context) {
	backup, err := h.backups.RestoreLatest(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(backup))
}

// --- Exports ---

func (h *Handler) exportSessions(c *gin.Context) {
	h.writeCSV(c, export.Filename("sessions", time.Now()), func() error {
		return export.WriteSessionsCSV(c.Writer, h.sessions.Snapshot())
	})
}

func (h *Handler) exportVehicles(c *gin.Context) {
	h.writeCSV(c, export.Filename("vehicles", time.Now()), func() error {
		return export.WriteVehiclesCSV(c.Writer, h.vehicles.Snapshot())
	})
}

func (h *Handler) exportExceptions(c *gin.Context) {
	h.writeCSV(c, export.Filename("exceptions", time.Now()), func() error {
		return export.WriteExceptionsCSV(c.Writer, h.exceptions.Snapshot())
	})
}

func (h *Handler) writeCSV(c *gin.Context, filename string, write func() error) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := write(); err != nil {
		h.log.Error().Err(err).Str("filename", filename).Msg("csv export failed")
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrDuplicatePlate),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrCapacityExceeded):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
