package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appdispatch "github.com/skol/backend/internal/application/dispatch"
	"github.com/skol/backend/internal/interfaces/http/dto"
)

// DispatchHandler handles dispatch allocation and note endpoints
type DispatchHandler struct {
	BaseHandler
	service *appdispatch.Service
}

// NewDispatchHandler creates a new DispatchHandler
func NewDispatchHandler(service *appdispatch.Service) *DispatchHandler {
	return &DispatchHandler{service: service}
}

// RegisterRoutes registers dispatch routes
func (h *DispatchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	dispatch := rg.Group("/dispatch")
	{
		dispatch.GET("/allocation-plan", h.GetAllocationPlan)
		dispatch.POST("/validate-line", h.ValidateLine)
		dispatch.POST("/notes", h.GenerateNote)
		dispatch.GET("/notes", h.ListNotes)
		dispatch.GET("/notes/:id", h.GetNote)
		dispatch.GET("/notes/folio/:folio", h.GetNoteByFolio)
		dispatch.POST("/notes/:id/receive", h.ConfirmReception)
	}
}

// GetAllocationPlan recomputes the dispatch working view from current state
func (h *DispatchHandler) GetAllocationPlan(c *gin.Context) {
	plan, err := h.service.BuildAllocationPlan(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// ValidateLine stages one operator lot pick and barcode scan
func (h *DispatchHandler) ValidateLine(c *gin.Context) {
	var req appdispatch.ValidateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.ValidateLine(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GenerateNote turns the validated lines for one pharmacy into a dispatch note
func (h *DispatchHandler) GenerateNote(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Authenticated operator required")
		return
	}

	var req appdispatch.GenerateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.GenerateNote(c.Request.Context(), actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListNotes retrieves dispatch notes
func (h *DispatchHandler) ListNotes(c *gin.Context) {
	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BindingError(c, err)
		return
	}
	listReq.Normalize()

	filter := appdispatch.ListFilter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
		Status:   c.Query("status"),
	}

	notes, total, err := h.service.ListNotes(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, notes, total, filter.Page, filter.PageSize)
}

// GetNote retrieves one dispatch note
func (h *DispatchHandler) GetNote(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid dispatch note ID")
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid dispatch note ID")
		return
	}

	resp, err := h.service.GetNote(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetNoteByFolio retrieves one dispatch note by its printed folio
func (h *DispatchHandler) GetNoteByFolio(c *gin.Context) {
	folio := c.Param("folio")
	if folio == "" {
		h.BadRequest(c, "Folio is required")
		return
	}

	resp, err := h.service.GetNoteByFolio(c.Request.Context(), folio)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ConfirmReception marks a note received and moves its prescriptions into
// preparation
func (h *DispatchHandler) ConfirmReception(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Authenticated operator required")
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid dispatch note ID")
		return
	}
	id, err := uuid.Parse(idReq.ID)
	if err != nil {
		h.BadRequest(c, "Invalid dispatch note ID")
		return
	}

	var req appdispatch.ReceiveNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.ConfirmReception(c.Request.Context(), actorID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
