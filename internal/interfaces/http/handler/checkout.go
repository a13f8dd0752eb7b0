package handler

import (
	"github.com/echodesk/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
)

// CheckoutHandler handles registration and purchase HTTP requests.
// Register is public: it is the signup form of the marketing site.
type CheckoutHandler struct {
	BaseHandler
	checkoutService *billing.CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *billing.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// Register godoc
//
//	@ID				registerWorkspace
//	@Summary		Register a new workspace
//	@Description	Record a pending registration and open a payment session; the tenant is provisioned when the gateway confirms payment
//	@Tags			checkout
//	@Accept			json
//	@Produce		json
//	@Param			request	body		billing.RegisterInput	true	"Registration request"
//	@Success		201		{object}	APIResponse[billing.CheckoutDTO]
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		409		{object}	dto.ErrorResponse
//	@Failure		502		{object}	dto.ErrorResponse
//	@Router			/billing/register [post]
func (h *CheckoutHandler) Register(c *gin.Context) {
	var req billing.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	checkout, err := h.checkoutService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, checkout)
}

// Purchase godoc
//
//	@ID				purchasePackage
//	@Summary		Buy or change a package
//	@Description	Open a payment session for the current tenant's package purchase
//	@Tags			checkout
//	@Accept			json
//	@Produce		json
//	@Param			request	body		billing.PurchaseInput	true	"Purchase request"
//	@Success		201		{object}	APIResponse[billing.CheckoutDTO]
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		422		{object}	dto.ErrorResponse
//	@Failure		502		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/billing/purchase [post]
func (h *CheckoutHandler) Purchase(c *gin.Context) {
	var req billing.PurchaseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}
	req.TenantID = tenantID

	checkout, err := h.checkoutService.Purchase(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, checkout)
}

// GetOrder godoc
//
//	@ID				getOrder
//	@Summary		Get a payment order
//	@Tags			checkout
//	@Produce		json
//	@Param			id	path		string	true	"Order ID"
//	@Success		200	{object}	APIResponse[billing.OrderDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/billing/orders/{id} [get]
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	order, err := h.checkoutService.GetOrder(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// ListOrders godoc
//
//	@ID				listOrders
//	@Summary		List the tenant's payment orders
//	@Tags			checkout
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum rows (default 50)"
//	@Success		200		{object}	APIResponse[[]billing.OrderDTO]
//	@Failure		401		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/billing/orders [get]
func (h *CheckoutHandler) ListOrders(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	var query struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	orders, err := h.checkoutService.ListOrders(c.Request.Context(), tenantID, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, orders)
}
