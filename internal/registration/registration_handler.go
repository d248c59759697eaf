package registration

import (
	"net/http"
	"strconv"

	"github.com/azydesilva/Ecorporate-sub004/internal/shared/apperror"
	"github.com/azydesilva/Ecorporate-sub004/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("registration.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("registration.handler")
	}
	return &Handler{service: service, logger: l}
}

func getActorID(c *gin.Context) string {
	actorID := c.GetString("user_id_validated")
	if actorID == "" {
		actorID = c.GetString("user_id")
	}
	return actorID
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("registration request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Create(c *gin.Context) {
	actorID := getActorID(c)

	var req CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http create registration validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Input tidak valid", err.Error())
		return
	}

	resp, err := h.service.Create(c.Request.Context(), actorID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) Get(c *gin.Context) {
	resp, stale, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	if stale {
		response.SuccessStale(c, http.StatusOK, resp)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) List(c *gin.Context) {
	var f ListFilter
	f.Stage = c.Query("stage")
	if v := c.Query("pinned"); v != "" {
		pinned := v == "true"
		f.Pinned = &pinned
	}
	if v := c.Query("expired"); v != "" {
		expired := v == "true"
		f.Expired = &expired
	}

	resp, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if pageSize < 1 {
		pageSize = 10
	}

	total := int64(len(resp))
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(resp) {
		start = len(resp)
	}
	if end > len(resp) {
		end = len(resp)
	}

	meta := response.NewPaginationMeta(total, page, pageSize)
	response.Success(c, http.StatusOK, resp[start:end], &meta)
}

func (h *Handler) SubmitStage(c *gin.Context) {
	var req SubmitStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http submit stage validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Input tidak valid", err.Error())
		return
	}

	resp, err := h.service.SubmitStage(
		c.Request.Context(),
		getActorID(c),
		c.Param("id"),
		c.Param("stage"),
		req,
	)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Replace(c *gin.Context) {
	var req ReplaceRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http replace registration validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Input tidak valid", err.Error())
		return
	}

	resp, err := h.service.Replace(c.Request.Context(), getActorID(c), c.Param("id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) StaffAction(c *gin.Context) {
	resp, err := h.service.StaffAction(
		c.Request.Context(),
		getActorID(c),
		c.Param("id"),
		c.Param("action"),
	)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) BeginUpdate(c *gin.Context) {
	resp, err := h.service.BeginUpdate(c.Request.Context(), getActorID(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), getActorID(c), c.Param("id")); err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"cancelled": true}, nil)
}

func (h *Handler) SetPinned(c *gin.Context) {
	var req AnnotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Input tidak valid", err.Error())
		return
	}

	resp, err := h.service.SetPinned(c.Request.Context(), getActorID(c), c.Param("id"), *req.Value)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) SetNoted(c *gin.Context) {
	var req AnnotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Input tidak valid", err.Error())
		return
	}

	resp, err := h.service.SetNoted(c.Request.Context(), getActorID(c), c.Param("id"), *req.Value)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) ContentAccess(c *gin.Context) {
	resp, err := h.service.ContentAccess(c.Request.Context(), c.Param("id"), c.Param("stage"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}
