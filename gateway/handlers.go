package gateway

import (
	"net/http"
	"strconv"

	"github.com/example/jewelshop/pkg/apperror"
	"github.com/example/jewelshop/pkg/auth"
	"github.com/example/jewelshop/pkg/models"
	"github.com/example/jewelshop/pkg/order"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

type orderIDRequest struct {
	OrderID string `json:"orderId"`
}

type paymentFailureRequest struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

type customerRequestBody struct {
	RequestType string `json:"requestType"`
	Reason      string `json:"reason"`
}

type statusUpdateRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// @Summary Create an order
// @Tags orders
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Replays return the first order"
// @Success 201 {object} models.Order
// @Router /orders [post]
func (g *Gateway) createOrder(c *gin.Context) {
	var req order.CreateOrderInput
	if !g.bind(c, &req) {
		return
	}
	created, err := g.orders.CreateOrder(c.Request.Context(), principal(c), req, c.GetHeader(idempotencyHeader))
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (g *Gateway) listMyOrders(c *gin.Context) {
	page, ok := g.page(c)
	if !ok {
		return
	}
	res, err := g.orders.ListMyOrders(c.Request.Context(), principal(c), page)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (g *Gateway) getOrder(c *gin.Context) {
	o, err := g.orders.GetOrder(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Submit a cancellation or return request
// @Tags orders
// @Router /orders/{id}/request [post]
func (g *Gateway) submitRequest(c *gin.Context) {
	var req customerRequestBody
	if !g.bind(c, &req) {
		return
	}
	o, err := g.orders.SubmitCustomerRequest(c.Request.Context(), principal(c), c.Param("id"), req.RequestType, req.Reason)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Create a gateway payment order
// @Tags payments
// @Router /payments/create-order [post]
func (g *Gateway) createPaymentIntent(c *gin.Context) {
	var req orderIDRequest
	if !g.bind(c, &req) {
		return
	}
	intent, err := g.orders.CreatePaymentIntent(c.Request.Context(), principal(c), req.OrderID)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

// @Summary Verify a completed payment
// @Tags payments
// @Router /payments/verify [post]
func (g *Gateway) verifyPayment(c *gin.Context) {
	var req order.VerifyPaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	ok, err := g.orders.VerifyPayment(c.Request.Context(), principal(c), req)
	if err == nil && !ok {
		err = apperror.New(apperror.KindInvalidSignature, "payment verification failed")
	}
	if err != nil {
		_ = c.Error(err)
		g.logServerError(c, err)
		c.JSON(apperror.HTTPStatus(err), gin.H{"success": false, "error": apperror.PublicMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (g *Gateway) paymentFailure(c *gin.Context) {
	var req paymentFailureRequest
	if !g.bind(c, &req) {
		return
	}
	o, err := g.orders.MarkPaymentFailed(c.Request.Context(), principal(c), req.OrderID, req.Reason)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary List orders (admin)
// @Tags admin
// @Param status query string false "Fulfillment status"
// @Param paymentStatus query string false "Payment status"
// @Router /admin/orders [get]
func (g *Gateway) listOrders(c *gin.Context) {
	page, ok := g.page(c)
	if !ok {
		return
	}

	filter := models.OrderFilter{UserID: c.Query("userId")}
	if s := c.Query("status"); s != "" {
		st, ok := models.ParseFulfillmentStatus(s)
		if !ok {
			g.renderError(c, apperror.InvalidInput("invalid status %q", s))
			return
		}
		filter.Status = st
	}
	if s := c.Query("paymentStatus"); s != "" {
		ps, ok := models.ParsePaymentStatus(s)
		if !ok {
			g.renderError(c, apperror.InvalidInput("invalid paymentStatus %q", s))
			return
		}
		filter.PaymentStatus = ps
	}
	filter.HasRequest, _ = strconv.ParseBool(c.Query("hasRequest"))

	res, err := g.orders.ListOrders(c.Request.Context(), principal(c), filter, page)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Update fulfillment status (admin)
// @Tags admin
// @Router /admin/orders/{id} [patch]
func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var req statusUpdateRequest
	if !g.bind(c, &req) {
		return
	}
	o, err := g.orders.UpdateFulfillmentStatus(c.Request.Context(), principal(c), c.Param("id"), req.Status, req.Comment)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Approve or reject a customer request (admin)
// @Tags admin
// @Router /admin/orders/{id}/request [post]
func (g *Gateway) resolveRequest(c *gin.Context) {
	var req order.ResolveInput
	if !g.bind(c, &req) {
		return
	}
	o, err := g.orders.ResolveCustomerRequest(c.Request.Context(), principal(c), c.Param("id"), req)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (g *Gateway) auditTrail(c *gin.Context) {
	logs, err := g.orders.AuditTrail(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// @Summary Exchange credentials for a bearer token
// @Tags auth
// @Router /auth/login [post]
func (g *Gateway) loginUser(c *gin.Context) {
	if g.login == nil {
		g.renderError(c, apperror.New(apperror.KindConfiguration, "login is not available"))
		return
	}
	var req loginRequest
	if !g.bind(c, &req) {
		return
	}
	res, err := g.login.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (g *Gateway) currentUser(c *gin.Context) {
	if g.login == nil {
		g.renderError(c, apperror.New(apperror.KindConfiguration, "user accounts are not available"))
		return
	}
	user, err := g.login.CurrentUser(c.Request.Context(), principal(c))
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func principal(c *gin.Context) models.Principal {
	p, _ := auth.PrincipalFrom(c)
	return p
}

func (g *Gateway) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		g.renderError(c, apperror.Wrap(apperror.KindInvalidInput, err, "invalid request body"))
		return false
	}
	return true
}

func (g *Gateway) page(c *gin.Context) (models.Page, bool) {
	n, err := queryInt(c, "page")
	if err != nil {
		g.renderError(c, apperror.InvalidInput("page must be a number"))
		return models.Page{}, false
	}
	size, err := queryInt(c, "pageSize")
	if err != nil {
		g.renderError(c, apperror.InvalidInput("pageSize must be a number"))
		return models.Page{}, false
	}
	return models.NewPage(n, size), true
}

func queryInt(c *gin.Context, key string) (int64, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

// renderError is the single translation point from errors to responses.
func (g *Gateway) renderError(c *gin.Context, err error) {
	_ = c.Error(err)
	g.logServerError(c, err)
	c.AbortWithStatusJSON(apperror.HTTPStatus(err), gin.H{
		"error":   apperror.KindOf(err),
		"message": apperror.PublicMessage(err),
	})
}

func (g *Gateway) logServerError(c *gin.Context, err error) {
	if apperror.HTTPStatus(err) < http.StatusInternalServerError {
		return
	}
	g.logger.Error("Request failed",
		zap.String("path", c.FullPath()),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err))
}
