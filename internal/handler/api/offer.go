package api

import (
	"net/http"
	"strings"

	reqdto "flightshare/internal/handler/dto/request"
	resdto "flightshare/internal/handler/dto/response"
	"flightshare/internal/handler/httperr"
	"flightshare/internal/handler/middleware"
	"flightshare/internal/pkg/config"
	"flightshare/internal/pkg/cookie"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/usecase/commands"
	"flightshare/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OfferHandler struct {
	offerCommands      commands.OfferCommands
	acceptanceCommands commands.AcceptanceCommands
	settlementCommands commands.SettlementCommands
	offerQueries       queries.OfferQueries
	ledgerQueries      queries.LedgerQueries
	cookieCfg          config.CookieConfig
}

func NewOfferHandler(
	offerCommands commands.OfferCommands,
	acceptanceCommands commands.AcceptanceCommands,
	settlementCommands commands.SettlementCommands,
	offerQueries queries.OfferQueries,
	ledgerQueries queries.LedgerQueries,
	cfg config.Config,
) *OfferHandler {
	return &OfferHandler{
		offerCommands:      offerCommands,
		acceptanceCommands: acceptanceCommands,
		settlementCommands: settlementCommands,
		offerQueries:       offerQueries,
		ledgerQueries:      ledgerQueries,
		cookieCfg:          cfg.Cookie,
	}
}

// @Summary Create offer
// @Description Publish a seat-share offer owned by the caller
// @Tags offers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.CreateOfferRequest true "Offer"
// @Success 201 {object} queries.OfferView
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Router /offers [post]
func (h *OfferHandler) CreateOffer(c *gin.Context) {
	owner, ok := middleware.GetAuthenticated(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errs.ErrUnauthenticated, "unauthenticated", "Authentication required", nil)
		return
	}

	var req reqdto.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "validation_failed", "Invalid request format", nil)
		return
	}

	created, err := h.offerCommands.Create(c.Request.Context(), owner, req)
	if err != nil {
		abortOfferError(c, err)
		return
	}

	c.JSON(http.StatusCreated, queries.NewOfferView(created))
}

// @Summary List open offers
// @Description Open offers, oldest first, with a keyset cursor
// @Tags offers
// @Produce json
// @Param limit query int false "Page size (max 200)"
// @Param after query string false "Cursor from a previous page"
// @Success 200 {object} queries.OfferPage
// @Failure 400 {object} httperr.Response
// @Router /offers [get]
func (h *OfferHandler) ListOffers(c *gin.Context) {
	var q reqdto.ListOffersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "validation_failed", "Invalid query parameters", nil)
		return
	}

	page, err := h.offerQueries.ListOpen(c.Request.Context(), q.After, q.Limit)
	if err != nil {
		if errs.Is(err, queries.ErrInvalidCursor) {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "validation_failed", "Invalid cursor", nil)
			return
		}
		abortOfferError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// @Summary Get offer
// @Tags offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} queries.OfferView
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /offers/{id} [get]
func (h *OfferHandler) GetOffer(c *gin.Context) {
	offerID, ok := parseOfferID(c)
	if !ok {
		return
	}

	view, err := h.offerQueries.GetByID(c.Request.Context(), offerID)
	if err != nil {
		abortOfferError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// @Summary Accept offer
// @Description Accept an open offer. Guests get a continuation (202) to resume after logging in; the continuation can be sent back in the body or rides along as a cookie.
// @Tags offers
// @Accept json
// @Produce json
// @Param id path string true "Offer ID"
// @Param request body reqdto.AcceptOfferRequest false "Continuation from a guest attempt"
// @Success 200 {object} resdto.AcceptResponse
// @Success 202 {object} resdto.AcceptResponse
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 410 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /offers/{id}/accept [post]
func (h *OfferHandler) AcceptOffer(c *gin.Context) {
	offerID, ok := parseOfferID(c)
	if !ok {
		return
	}

	p, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errs.ErrUnauthenticated, "unauthenticated", "Authentication required", nil)
		return
	}

	var req reqdto.AcceptOfferRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "validation_failed", "Invalid request format", nil)
			return
		}
	}
	continuation := strings.TrimSpace(req.Continuation)
	fromCookie := false
	if continuation == "" {
		if grant := cookie.GetContinuation(c); grant != "" {
			continuation = grant
			fromCookie = true
		}
	}

	result, err := h.acceptanceCommands.Accept(c.Request.Context(), commands.AcceptInput{
		OfferID:           offerID,
		Principal:         p,
		ContinuationToken: continuation,
	})
	if err != nil {
		if fromCookie {
			// a cookie grant is spent or unusable either way
			cookie.ClearContinuation(c, h.cookieCfg)
		}
		abortOfferError(c, err)
		return
	}

	if result.Outcome == commands.OutcomePendingAuthentication {
		cookie.SetContinuation(c, h.cookieCfg, result.Continuation.Token, result.Continuation.ExpiresAt)
		c.JSON(http.StatusAccepted, resdto.FromAcceptResult(result))
		return
	}

	if continuation != "" {
		cookie.ClearContinuation(c, h.cookieCfg)
	}
	c.JSON(http.StatusOK, resdto.FromAcceptResult(result))
}

// @Summary Settle offer
// @Description Charge the acceptor and complete the offer. Retrying with the same external reference (body or Idempotency-Key header) never charges twice.
// @Tags offers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Offer ID"
// @Param Idempotency-Key header string false "External reference when not in the body"
// @Param request body reqdto.SettleOfferRequest true "Settlement"
// @Success 200 {object} resdto.SettleResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 402 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /offers/{id}/settle [post]
func (h *OfferHandler) SettleOffer(c *gin.Context) {
	offerID, ok := parseOfferID(c)
	if !ok {
		return
	}

	p, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errs.ErrUnauthenticated, "unauthenticated", "Authentication required", nil)
		return
	}

	var req reqdto.SettleOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "validation_failed", "Invalid request format", nil)
		return
	}

	reference := strings.TrimSpace(req.ExternalReference)
	if reference == "" {
		reference = strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	}
	if reference == "" {
		reference = "stl_" + uuid.NewString()
	}
	// echoed on failures too, so a pending attempt can be retried with it
	c.Header("Idempotency-Key", reference)

	result, err := h.settlementCommands.Settle(c.Request.Context(), commands.SettleInput{
		OfferID:           offerID,
		Principal:         p,
		PaymentMethod:     req.PaymentMethod,
		ExternalReference: reference,
	})
	if err != nil {
		abortOfferError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromSettleResult(result))
}

// @Summary Cancel offer
// @Description Withdraw an open offer. Owner only.
// @Tags offers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Offer ID"
// @Success 200 {object} queries.OfferView
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /offers/{id}/cancel [post]
func (h *OfferHandler) CancelOffer(c *gin.Context) {
	offerID, ok := parseOfferID(c)
	if !ok {
		return
	}

	owner, ok := middleware.GetAuthenticated(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errs.ErrUnauthenticated, "unauthenticated", "Authentication required", nil)
		return
	}

	cancelled, err := h.offerCommands.Cancel(c.Request.Context(), offerID, owner)
	if err != nil {
		abortOfferError(c, err)
		return
	}

	c.JSON(http.StatusOK, queries.NewOfferView(cancelled))
}

// @Summary Offer ledger
// @Description Settlement attempts for an offer. Visible to the owner, the acceptor and admins.
// @Tags offers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Offer ID"
// @Success 200 {object} resdto.LedgerResponse
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /offers/{id}/ledger [get]
func (h *OfferHandler) GetLedger(c *gin.Context) {
	offerID, ok := parseOfferID(c)
	if !ok {
		return
	}

	viewer, ok := middleware.GetAuthenticated(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errs.ErrUnauthenticated, "unauthenticated", "Authentication required", nil)
		return
	}

	entries, err := h.ledgerQueries.ListByOffer(c.Request.Context(), offerID, viewer)
	if err != nil {
		abortOfferError(c, err)
		return
	}
	if entries == nil {
		entries = []*queries.LedgerEntryView{}
	}

	c.JSON(http.StatusOK, resdto.LedgerResponse{OfferID: offerID, Entries: entries})
}

func parseOfferID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "validation_failed", "Invalid offer ID format", nil)
		return uuid.Nil, false
	}
	return id, true
}

// abortOfferError answers with the taxonomy status, except where a narrower
// status tells the client what to do next.
func abortOfferError(c *gin.Context, err error) {
	switch {
	case errs.Is(err, commands.ErrGatewayUnreachable):
		httperr.AbortWithError(c, http.StatusServiceUnavailable, err, errs.CodeOf(err),
			"Payment gateway unavailable. Retry with the same external reference.", nil)
	case errs.Is(err, commands.ErrNotAcceptor):
		httperr.AbortWithError(c, http.StatusForbidden, err, errs.CodeOf(err),
			"Only the acceptor can settle this offer", nil)
	case errs.Is(err, commands.ErrPaymentDeclined):
		httperr.Abort(c, err, "Payment declined")
	case errs.Is(err, commands.ErrSelfAcceptance):
		httperr.Abort(c, err, "Owners cannot accept their own offer")
	case errs.Is(err, commands.ErrSettlementInProgress):
		httperr.Abort(c, err, "Another settlement attempt is in progress")
	case errs.Is(err, commands.ErrReferenceReused):
		httperr.Abort(c, err, "External reference belongs to a different settlement")
	default:
		httperr.Abort(c, err, messageFor(err))
	}
}

func messageFor(err error) string {
	switch errs.KindOf(err) {
	case errs.ErrUnauthenticated:
		return "Authentication required"
	case errs.ErrAlreadyTaken:
		return "Offer already taken"
	case errs.ErrContinuationExpired:
		return "Continuation expired. Start the acceptance again."
	case errs.ErrConflict:
		return "Concurrent update. Please retry."
	case errs.ErrAlreadySettled:
		return "Offer already settled"
	case errs.ErrGatewayFailure:
		return "Payment failed"
	case errs.ErrInvalidState:
		return "Operation not allowed in the offer's current state"
	case errs.ErrNotFound:
		return "Offer not found"
	case errs.ErrForbidden:
		return "Insufficient permissions"
	case errs.ErrValidation:
		return "Invalid request data"
	default:
		return "Internal server error"
	}
}
