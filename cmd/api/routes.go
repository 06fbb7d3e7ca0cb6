package main

import (
	"github.com/gin-gonic/gin"

	"pipeline-crm/internal/auth"
	"pipeline-crm/internal/httpapi"
	"pipeline-crm/internal/rbac"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.POST("/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	v1.Use(rbac.RequireBranch())
	{
		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			bid, _ := auth.BranchID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(200, gin.H{"user_id": uid, "branch_id": bid, "role": role})
		})

		// LEAD routes
		leads := v1.Group("/leads")
		{
			leads.POST("", rbac.RequireAnyRole(rbac.RoleManager, rbac.RoleAgent), h.CreateLead)
			leads.POST("/import", rbac.RequireAnyRole(rbac.RoleManager, rbac.RoleIntegration), h.ImportLeads)
			leads.POST("/:lead_id/claim", rbac.RequireAnyRole(rbac.RoleAgent, rbac.RoleManager), h.ClaimLead)
			leads.POST("/:lead_id/outcome", rbac.RequireAnyRole(rbac.RoleAgent, rbac.RoleManager), h.SubmitOutcome)
			leads.GET("/:lead_id/history", rbac.RequireAnyRole(rbac.RoleManager), h.LeadHistory)
		}

		// POOL routes
		v1.POST("/pool/acquire", rbac.RequireAnyRole(rbac.RoleAgent, rbac.RoleManager), h.AcquireLead)

		// APPOINTMENT routes
		appts := v1.Group("/appointments")
		appts.Use(rbac.RequireAnyRole(rbac.RoleAgent, rbac.RoleManager))
		{
			appts.POST("", h.BookAppointment)
			appts.POST("/:appointment_id/claim", h.ClaimCall)
			appts.POST("/:appointment_id/heartbeat", h.Heartbeat)
			appts.POST("/:appointment_id/finish", h.FinishCall)
			appts.POST("/:appointment_id/abandon", h.AbandonCall)
			appts.POST("/:appointment_id/cancel", h.CancelCall)
			appts.POST("/:appointment_id/confirmation", h.SetConfirmation)
			appts.POST("/:appointment_id/checkin", h.SetCheckIn)
		}

		// BRANCH routes
		branches := v1.Group("/branches")
		{
			branches.GET("", rbac.RequireAnyRole(rbac.RoleManager, rbac.RoleAgent), h.ListBranches)
			branches.GET("/:branch_id/slots", rbac.RequireAnyRole(rbac.RoleManager, rbac.RoleAgent), h.ListSlots)
			branches.POST("", rbac.RequireAnyRole(rbac.RoleManager), h.CreateBranch)
			branches.POST("/:branch_id/slots", rbac.RequireAnyRole(rbac.RoleManager), h.CreateSlot)
		}

		// ADMIN routes
		// Only manager/admin can touch tuning knobs. Hidden integration role
		// is intentionally NOT included.
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleManager))
		{
			admin.GET("/settings/:key", h.GetSetting)
			admin.PUT("/settings/:key", h.SetSetting)
		}
	}
}
