package controllers

import (
	"log/slog"
	"net/http"

	"venuebooking/internal/delivery/http/helpers"
	"venuebooking/internal/domain"
)

// ReconcileSuccessResponse is the success response envelope for POST /admin/reconcile-blocks.
type ReconcileSuccessResponse struct {
	Data  domain.ReconcileReport `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

type AdminController struct {
	Logger     *slog.Logger
	Reconciler domain.BlockerReconciler
}

func NewAdminController(logger *slog.Logger, reconciler domain.BlockerReconciler) *AdminController {
	return &AdminController{Logger: logger, Reconciler: reconciler}
}

// ReconcileBlocks godoc
// @Summary Repair temporary holds
// @Description Creates missing holds for pending requests and removes orphaned ones. The same sweep also runs on a schedule.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ReconcileSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 503 {object} helpers.APIResponse "error.code: store_unavailable"
// @Router /admin/reconcile-blocks [post]
func (c *AdminController) ReconcileBlocks(w http.ResponseWriter, r *http.Request) {
	report, err := c.Reconciler.Reconcile(r.Context())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	c.Logger.InfoContext(r.Context(), "blocks reconciled", "created", report.Created, "released", report.Released, "failed", report.Failed)
	helpers.WriteJSONSuccess(w, http.StatusOK, report)
}
