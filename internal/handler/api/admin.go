package api

import (
	"net/http"

	resdto "flightshare/internal/handler/dto/response"
	"flightshare/internal/handler/httperr"
	"flightshare/internal/handler/middleware"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/usecase/commands"
	"flightshare/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminCommands commands.AdminCommands
}

func NewAdminHandler(adminCommands commands.AdminCommands) *AdminHandler {
	return &AdminHandler{adminCommands: adminCommands}
}

// @Summary Reset offer
// @Description Reopen an accepted offer that has no completed or pending settlement
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Offer ID"
// @Success 200 {object} queries.OfferView
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /admin/offers/{id}/reset [post]
func (h *AdminHandler) ResetOffer(c *gin.Context) {
	offerID, ok := parseOfferID(c)
	if !ok {
		return
	}
	operator, ok := middleware.GetAuthenticated(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errs.ErrUnauthenticated, "unauthenticated", "Authentication required", nil)
		return
	}

	reset, err := h.adminCommands.Reset(c.Request.Context(), offerID, operator)
	if err != nil {
		switch {
		case errs.Is(err, commands.ErrResetSettled):
			httperr.Abort(c, err, "Offer is settled and cannot be reset")
		case errs.Is(err, commands.ErrResetPending):
			httperr.Abort(c, err, "A settlement attempt is pending")
		default:
			abortOfferError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, queries.NewOfferView(reset))
}

// @Summary Reconcile offer
// @Description Run one reconciliation pass between the offer and its ledger
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Offer ID"
// @Success 200 {object} resdto.ReconcileResponse
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /admin/offers/{id}/reconcile [post]
func (h *AdminHandler) ReconcileOffer(c *gin.Context) {
	offerID, ok := parseOfferID(c)
	if !ok {
		return
	}
	operator, ok := middleware.GetAuthenticated(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errs.ErrUnauthenticated, "unauthenticated", "Authentication required", nil)
		return
	}

	report, err := h.adminCommands.Reconcile(c.Request.Context(), offerID, operator)
	if err != nil {
		abortOfferError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromReconcileReport(report))
}
