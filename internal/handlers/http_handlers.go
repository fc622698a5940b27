package handlers

import (
	"net/http"

	"lotterybot/internal/models"
	"lotterybot/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// HTTPHandler holds the dependencies for the HTTP handlers, i.e. the lottery
// service. Routing is exact: the fixed paths below are the only handled
// routes and anything else falls through to Unhandled.
type HTTPHandler struct {
	service *services.LotteryService
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.LotteryService) *HTTPHandler {
	return &HTTPHandler{
		service: service,
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/calendar_start", h.CalendarStart)
	router.POST("/calendar_end", h.CalendarEnd)
	router.POST("/events", h.Events)
	router.POST("/submit/discord/:submitter", h.Submit)
	router.GET("/submit/discord/last/:submitter", h.CheckLastSubmission)
	router.NoRoute(h.Unhandled)
}

// CalendarStart handles the request to commence a new lottery season.
func (h *HTTPHandler) CalendarStart(c *gin.Context) {
	var event models.CalendarEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.String(http.StatusBadRequest, "Failed to decode calendar event: %v", err)
		return
	}

	msg, err := h.service.StartSeason(c.Request.Context(), event.CalendarName)
	if err != nil {
		logger.Infof("Calendar start failed: %v", err)
		c.String(http.StatusInternalServerError, "%v", err)
		return
	}
	c.String(http.StatusOK, "%s", msg)
}

// CalendarEnd handles the request to end the running lottery season.
func (h *HTTPHandler) CalendarEnd(c *gin.Context) {
	var event models.CalendarEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.String(http.StatusBadRequest, "Failed to decode calendar event: %v", err)
		return
	}

	msg, err := h.service.EndSeason(c.Request.Context(), event.CalendarName)
	if err != nil {
		logger.Infof("Calendar end failed: %v", err)
		c.String(http.StatusInternalServerError, "%v", err)
		return
	}
	c.String(http.StatusOK, "%s", msg)
}

// Events acknowledges a generic chat message event. The event is decoded but
// triggers nothing yet.
func (h *HTTPHandler) Events(c *gin.Context) {
	var event models.MessageEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.String(http.StatusBadRequest, "Failed to decode message event: %v", err)
		return
	}
	logger.Infof("Received %s event from %s in %s", event.Type, event.User, event.Channel)
	c.String(http.StatusOK, "ok")
}

// Submit handles a guess submission for a submitter.
func (h *HTTPHandler) Submit(c *gin.Context) {
	// "last" is the check-last-submission discriminator segment, never a
	// submitter id; a submit path ending there is missing its id.
	if c.Param("submitter") == "last" {
		h.Unhandled(c)
		return
	}

	var submission models.Submission
	if err := c.ShouldBindJSON(&submission); err != nil {
		c.String(http.StatusBadRequest, "Failed to decode submission: %v", err)
		return
	}

	msg, err := h.service.Submit(c.Request.Context(), c.Param("submitter"), submission)
	if err != nil {
		logger.Infof("Submission failed: %v", err)
		c.String(http.StatusInternalServerError, "%v", err)
		return
	}
	c.String(http.StatusOK, "%s", msg)
}

// CheckLastSubmission reports a submitter's last recorded guess.
func (h *HTTPHandler) CheckLastSubmission(c *gin.Context) {
	msg, err := h.service.LastSubmission(c.Request.Context(), c.Param("submitter"))
	if err != nil {
		logger.Infof("Last submission check failed: %v", err)
		c.String(http.StatusInternalServerError, "%v", err)
		return
	}
	c.String(http.StatusOK, "%s", msg)
}

// Unhandled answers every path no route matched.
func (h *HTTPHandler) Unhandled(c *gin.Context) {
	c.String(http.StatusNotFound, "No handler defined for route %q", c.Request.URL.Path)
}
