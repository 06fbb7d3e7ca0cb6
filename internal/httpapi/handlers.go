package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pipeline-crm/internal/appointment"
	"pipeline-crm/internal/auth"
	"pipeline-crm/internal/branch"
	"pipeline-crm/internal/claim"
	"pipeline-crm/internal/history"
	"pipeline-crm/internal/intake"
	"pipeline-crm/internal/lead"
	"pipeline-crm/internal/phone"
	"pipeline-crm/internal/rbac"
	"pipeline-crm/internal/settings"
	"pipeline-crm/pkg/logger"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth         *auth.Manager
	Intake       *intake.Service
	Leads        *lead.Service
	Claims       *claim.Manager
	Appointments *appointment.Service
	Branches     *branch.Service
	Settings     *settings.Service
	History      *history.Service
}

// --- Auth ---

type loginRequest struct {
	UserID   string `json:"user_id"`
	BranchID string `json:"branch_id"`
	Role     string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.BranchID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, branch_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.BranchID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Intake ---

func (h Handlers) CreateLead(c *gin.Context) {
	var req intake.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	l, err := h.Intake.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, intake.ErrEmptyName) || errors.Is(err, phone.ErrInvalidPhone) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lead creation failed"})
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (h Handlers) ImportLeads(c *gin.Context) {
	var reqs []intake.CreateRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(reqs) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "empty batch"})
		return
	}
	res, err := h.Intake.CreateBatch(c.Request.Context(), reqs)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "import failed", "partial": res})
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Pool / claims ---

// AcquireLead draws the next eligible lead from the shared pool for the
// calling agent.
func (h Handlers) AcquireLead(c *gin.Context) {
	agentID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	l, err := h.Claims.AcquireNextLead(c.Request.Context(), agentID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, l)
	case errors.Is(err, claim.ErrAgentBusy):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "finish your current lead first"})
	case errors.Is(err, claim.ErrNoneAvailable):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no eligible leads"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pool draw failed"})
	}
}

// ClaimLead claims a specific lead by ID; exactly one concurrent caller wins.
func (h Handlers) ClaimLead(c *gin.Context) {
	agentID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	l, err := h.Claims.ClaimLead(c.Request.Context(), c.Param("lead_id"), agentID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, l)
	case errors.Is(err, claim.ErrAlreadyClaimed):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "lead already claimed"})
	case errors.Is(err, claim.ErrAgentBusy):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "finish your current lead first"})
	case errors.Is(err, lead.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "lead not found"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "claim failed"})
	}
}

// --- Lead lifecycle ---

func (h Handlers) SubmitOutcome(c *gin.Context) {
	agentID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	var out lead.Outcome
	if err := c.ShouldBindJSON(&out); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.Leads.SubmitOutcome(c.Request.Context(), agentID, c.Param("lead_id"), out)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case lead.IsValidation(err):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, lead.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "lead not found"})
	case errors.Is(err, lead.ErrRace):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "lead is no longer yours"})
	case errors.Is(err, branch.ErrSlotFull):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "slot is full"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "outcome failed"})
	}
}

func (h Handlers) LeadHistory(c *gin.Context) {
	entries, err := h.History.ListByLead(c.Request.Context(), c.Param("lead_id"), 100)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// --- Appointment call sessions ---

func (h Handlers) ClaimCall(c *gin.Context) {
	agentID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	a, err := h.Claims.ClaimCall(c.Request.Context(), c.Param("appointment_id"), agentID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, a)
	case errors.Is(err, claim.ErrAlreadyClaimed):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "appointment already claimed"})
	case errors.Is(err, claim.ErrAgentBusy):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "finish your current call first"})
	case errors.Is(err, appointment.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "claim failed"})
	}
}

func (h Handlers) Heartbeat(c *gin.Context) {
	agentID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	err = h.Claims.Heartbeat(c.Request.Context(), c.Param("appointment_id"), agentID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"held": true})
	case errors.Is(err, claim.ErrNotHolder), errors.Is(err, appointment.ErrNotFound):
		// The session already moved on; the client just needs to stop pinging.
		logger.FromGin(c).Debug("heartbeat for a session no longer held",
			"appointment_id", c.Param("appointment_id"), "agent_id", agentID)
		c.JSON(http.StatusOK, gin.H{"held": false})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "heartbeat failed"})
	}
}

// FinishCall releases the caller's session on an appointment.
func (h Handlers) FinishCall(c *gin.Context) {
	agentID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	err = h.Claims.ReleaseCall(c.Request.Context(), c.Param("appointment_id"), agentID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"released": true})
	case errors.Is(err, claim.ErrNotHolder), errors.Is(err, appointment.ErrNotFound):
		logger.FromGin(c).Debug("release for a session no longer held",
			"appointment_id", c.Param("appointment_id"), "agent_id", agentID)
		c.JSON(http.StatusOK, gin.H{"released": false})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "release failed"})
	}
}

// CancelCall ends the caller's session and marks the appointment cancelled.
func (h Handlers) CancelCall(c *gin.Context) {
	agentID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	err = h.Claims.CancelCall(c.Request.Context(), c.Param("appointment_id"), agentID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": appointment.ConfirmationCancelled})
	case errors.Is(err, claim.ErrNotHolder), errors.Is(err, appointment.ErrNotFound):
		logger.FromGin(c).Debug("cancel for a session no longer held",
			"appointment_id", c.Param("appointment_id"), "agent_id", agentID)
		c.JSON(http.StatusOK, gin.H{"released": false})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "cancel failed"})
	}
}

// AbandonCall schedules a grace-delayed release; the UI calls it when the
// agent navigates away without finishing.
func (h Handlers) AbandonCall(c *gin.Context) {
	agentID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	h.Claims.Abandon(c.Request.Context(), c.Param("appointment_id"), agentID)
	c.JSON(http.StatusAccepted, gin.H{"status": "release scheduled"})
}

type bookAppointmentRequest struct {
	LeadID          string `json:"lead_id"`
	BranchID        string `json:"branch_id"`
	SlotID          string `json:"slot_id"`
	Kind            string `json:"kind"`
	ServiceInterest string `json:"service_interest,omitempty"`
	FollowUpReason  string `json:"follow_up_reason,omitempty"`
	Note            string `json:"note,omitempty"`
}

// BookAppointment creates an appointment directly, outside the lead
// lifecycle (walk-ins, inbound requests).
func (h Handlers) BookAppointment(c *gin.Context) {
	agentID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	var req bookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	id, err := h.Appointments.Book(c.Request.Context(), lead.BookingRequest{
		LeadID:          req.LeadID,
		AgentID:         agentID,
		BranchID:        req.BranchID,
		SlotID:          req.SlotID,
		Kind:            req.Kind,
		ServiceInterest: req.ServiceInterest,
		FollowUpReason:  req.FollowUpReason,
		Note:            req.Note,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"appointment_id": id})
	case errors.Is(err, appointment.ErrInvalidBooking):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, branch.ErrSlotFull):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "slot is full"})
	case errors.Is(err, branch.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "branch or slot not found"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "booking failed"})
	}
}

// --- Appointment status ---

type confirmationRequest struct {
	Status appointment.ConfirmationStatus `json:"status"`
}

func (h Handlers) SetConfirmation(c *gin.Context) {
	var req confirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	err := h.Appointments.Confirm(c.Request.Context(), c.Param("appointment_id"), req.Status)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": req.Status})
	case errors.Is(err, appointment.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
	case errors.Is(err, appointment.ErrInvalidBooking):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
	}
}

type checkInRequest struct {
	Status appointment.CheckInStatus `json:"status"`
}

func (h Handlers) SetCheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	err := h.Appointments.CheckIn(c.Request.Context(), c.Param("appointment_id"), req.Status)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": req.Status})
	case errors.Is(err, appointment.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
	case errors.Is(err, appointment.ErrInvalidBooking):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
	}
}

// --- Branches / slots ---

type createBranchRequest struct {
	Name string `json:"name"`
	City string `json:"city"`
}

func (h Handlers) CreateBranch(c *gin.Context) {
	var req createBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	b, err := h.Branches.CreateBranch(c.Request.Context(), req.Name, req.City)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h Handlers) ListBranches(c *gin.Context) {
	bs, err := h.Branches.ListBranches(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "branch list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"branches": bs})
}

func (h Handlers) CreateSlot(c *gin.Context) {
	var slot branch.Slot
	if err := c.ShouldBindJSON(&slot); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	s, err := h.Branches.CreateSlot(c.Request.Context(), c.Param("branch_id"), slot)
	if err != nil {
		if errors.Is(err, branch.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "branch not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h Handlers) ListSlots(c *gin.Context) {
	slots, err := h.Branches.ListSlots(c.Request.Context(), c.Param("branch_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "slot list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// --- Settings ---

type setSettingRequest struct {
	Value float64 `json:"value"`
}

func (h Handlers) GetSetting(c *gin.Context) {
	v, err := h.Settings.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": c.Param("key"), "value": v})
}

func (h Handlers) SetSetting(c *gin.Context) {
	var req setSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Settings.Set(c.Request.Context(), c.Param("key"), req.Value); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": c.Param("key"), "value": req.Value})
}

// Convenience middleware bundles.

func RequireBranchAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireBranch(), rbac.RequireAnyRole(roles...)}
}
