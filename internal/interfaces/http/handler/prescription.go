package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appprescription "github.com/skol/backend/internal/application/prescription"
	"github.com/skol/backend/internal/interfaces/http/dto"
)

// PrescriptionHandler handles prescription lifecycle endpoints. Every
// transition is attributed to the authenticated operator.
type PrescriptionHandler struct {
	BaseHandler
	service *appprescription.Service
}

// NewPrescriptionHandler creates a new PrescriptionHandler
func NewPrescriptionHandler(service *appprescription.Service) *PrescriptionHandler {
	return &PrescriptionHandler{service: service}
}

// RegisterRoutes registers prescription routes
func (h *PrescriptionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	prescriptions := rg.Group("/prescriptions")
	{
		prescriptions.POST("", h.Create)
		prescriptions.GET("", h.List)
		prescriptions.GET("/:id", h.Get)
		prescriptions.GET("/:id/repreparation-assessment", h.AssessRepreparation)
		prescriptions.POST("/:id/intake", h.CompleteIntake)
		prescriptions.POST("/:id/validate", h.Validate)
		prescriptions.POST("/:id/reject", h.Reject)
		prescriptions.POST("/:id/resubmit", h.Resubmit)
		prescriptions.POST("/:id/send-external", h.SendToExternal)
		prescriptions.POST("/:id/receive", h.ReceiveAtSkol)
		prescriptions.POST("/:id/ready", h.MarkReadyForPickup)
		prescriptions.POST("/:id/dispense", h.Dispense)
		prescriptions.POST("/:id/reprepare", h.Reprepare)
		prescriptions.POST("/:id/cancel", h.Cancel)
		prescriptions.POST("/:id/archive", h.Archive)
	}
}

// bindTransition extracts the actor and the path ID shared by every
// transition endpoint
func (h *PrescriptionHandler) bindTransition(c *gin.Context) (actorID, id uuid.UUID, ok bool) {
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Authenticated operator required")
		return uuid.Nil, uuid.Nil, false
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid prescription ID")
		return uuid.Nil, uuid.Nil, false
	}
	id, err = uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid prescription ID")
		return uuid.Nil, uuid.Nil, false
	}
	return actorID, id, true
}

// Create registers a new prescription
func (h *PrescriptionHandler) Create(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Authenticated operator required")
		return
	}

	var req appprescription.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.Create(c.Request.Context(), actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List retrieves prescriptions with optional filters
func (h *PrescriptionHandler) List(c *gin.Context) {
	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BindingError(c, err)
		return
	}
	listReq.Normalize()

	filter := appprescription.ListFilter{
		Page:            listReq.Page,
		PageSize:        listReq.PageSize,
		Status:          c.Query("status"),
		IncludeArchived: c.Query("include_archived") == "true",
	}
	if patientID := c.Query("patient_id"); patientID != "" {
		id, err := uuid.Parse(patientID)
		if err != nil {
			h.BadRequest(c, "Invalid patient_id")
			return
		}
		filter.PatientID = &id
	}

	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Get retrieves one prescription with its full audit trail
func (h *PrescriptionHandler) Get(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid prescription ID")
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid prescription ID")
		return
	}

	resp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CompleteIntake finishes staff item data entry for a portal submission
func (h *PrescriptionHandler) CompleteIntake(c *gin.Context) {
	actorID, id, ok := h.bindTransition(c)
	if !ok {
		return
	}

	var req struct {
		Items []appprescription.ItemRequest `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.CompleteIntake(c.Request.Context(), actorID, id, req.Items)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Validate approves a prescription for fulfillment
func (h *PrescriptionHandler) Validate(c *gin.Context) {
	actorID, id, ok := h.bindTransition(c)
	if !ok {
		return
	}

	resp, err := h.service.Validate(c.Request.Context(), actorID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reject refuses a prescription with a mandatory reason
func (h *PrescriptionHandler) Reject(c *gin.Context) {
	actorID, id, ok := h.bindTransition(c)
	if !ok {
		return
	}

	var req appprescription.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "A rejection reason is required")
		return
	}

	resp, err := h.service.Reject(c.Request.Context(), actorID, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Resubmit returns a corrected document to the validation queue
func (h *PrescriptionHandler) Resubmit(c *gin.Context) {
	actorID, id, ok := h.bindTransition(c)
	if !ok {
		return
	}

	resp, err := h.service.Resubmit(c.Request.Context(), actorID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SendToExternal hands the prescription to its external compounding pharmacy
func (h *PrescriptionHandler) SendToExternal(c *gin.Context) {
	actorID, id, ok := h.bindTransition(c)
	if !ok {
		return
	}

	resp, err := h.service.SendToExternal(c.Request.Context(), actorID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ReceiveAtSkol records physical reception of the compounded product
func (h *PrescriptionHandler) ReceiveAtSkol(c *gin.Context) {
	actorID, id, ok := h.bindTransition(c)
	if !ok {
		return
	}

	var req appprescription.ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.ReceiveAtSkol(c.Request.Context(), actorID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// MarkReadyForPickup flags the product ready for patient hand-off
func (h *PrescriptionHandler) MarkReadyForPickup(c *gin.Context) {
	actorID, id, ok := h.bindTransition(c)
	if !ok {
		return
	}

	var req appprescription.ReadyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.MarkReadyForPickup(c.Request.Context(), actorID, id, req.AttentionOverride)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Dispense performs the final hand-off to the patient
func (h *PrescriptionHandler) Dispense(c *gin.Context) {
	actorID, id, ok := h.bindTransition(c)
	if !ok {
		return
	}

	resp, err := h.service.Dispense(c.Request.Context(), actorID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AssessRepreparation reports whether a new cycle is permitted and how urgent it is
func (h *PrescriptionHandler) AssessRepreparation(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid prescription ID")
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid prescription ID")
		return
	}

	resp, err := h.service.AssessRepreparation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reprepare opens a new compounding cycle
func (h *PrescriptionHandler) Reprepare(c *gin.Context) {
	actorID, id, ok := h.bindTransition(c)
	if !ok {
		return
	}

	var req appprescription.ReprepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.Reprepare(c.Request.Context(), actorID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel cancels a prescription with a mandatory reason
func (h *PrescriptionHandler) Cancel(c *gin.Context) {
	actorID, id, ok := h.bindTransition(c)
	if !ok {
		return
	}

	var req appprescription.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "A cancellation reason is required")
		return
	}

	resp, err := h.service.Cancel(c.Request.Context(), actorID, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Archive hides a finished or expired prescription from default views
func (h *PrescriptionHandler) Archive(c *gin.Context) {
	actorID, id, ok := h.bindTransition(c)
	if !ok {
		return
	}

	resp, err := h.service.Archive(c.Request.Context(), actorID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
