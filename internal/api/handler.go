package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"shopdesk/internal/auth"
	"shopdesk/internal/models"
	"shopdesk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orders    *service.OrderService
	products  *service.ProductService
	staff     *service.StaffService
	analytics *service.AnalyticsService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders *service.OrderService,
	products *service.ProductService,
	staff *service.StaffService,
	analytics *service.AnalyticsService,
) *Handler {
	return &Handler{
		orders:    orders,
		products:  products,
		staff:     staff,
		analytics: analytics,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.POST("/login", h.login)

	authed := v1.Group("")
	authed.Use(AuthRequired(h.staff))
	{
		authed.POST("/logout", h.logout)

		orders := authed.Group("/orders")
		{
			orders.GET("", RequireAction(auth.ActionOrderView), h.listOrders)
			orders.GET("/due", RequireAction(auth.ActionOrderViewAll), h.listDueOrders)
			orders.GET("/:id", RequireAction(auth.ActionOrderView), h.getOrder)
			orders.POST("", RequireAction(auth.ActionOrderCreate), h.createOrder)
			orders.PUT("/:id", RequireAction(auth.ActionOrderEdit), h.updateOrder)
			orders.PATCH("/:id/status", RequireAction(auth.ActionOrderSetStatus), h.setOrderStatus)
			orders.PATCH("/:id/delivery", RequireAction(auth.ActionOrderAssign), h.assignDelivery)
			orders.PATCH("/:id/paid", RequireAction(auth.ActionOrderMarkPaid), h.markPaid)
			orders.DELETE("/:id", RequireAction(auth.ActionOrderDelete), h.deleteOrder)
		}

		products := authed.Group("/products")
		{
			products.GET("", RequireAction(auth.ActionProductView), h.listProducts)
			products.GET("/low-stock", RequireAction(auth.ActionProductView), h.listLowStock)
			products.GET("/:id", RequireAction(auth.ActionProductView), h.getProduct)
			products.GET("/:id/stock", RequireAction(auth.ActionProductView), h.getStock)
			products.POST("", RequireAction(auth.ActionProductManage), h.createProduct)
			products.PUT("/:id", RequireAction(auth.ActionProductManage), h.updateProduct)
			products.PATCH("/:id/stock", RequireAction(auth.ActionProductManage), h.adjustStock)
			products.DELETE("/:id", RequireAction(auth.ActionProductManage), h.deleteProduct)
		}

		staff := authed.Group("/staff")
		{
			staff.GET("", RequireAction(auth.ActionStaffView), h.listStaff)
			staff.GET("/:id", RequireAction(auth.ActionStaffView), h.getStaff)
			staff.POST("", RequireAction(auth.ActionStaffManage), h.createStaff)
			staff.PUT("/:id", RequireAction(auth.ActionStaffManage), h.updateStaff)
			staff.PATCH("/:id/active", RequireAction(auth.ActionStaffManage), h.setStaffActive)
		}

		attendance := authed.Group("/attendance")
		{
			attendance.POST("/check-in", RequireAction(auth.ActionAttendanceRecord), h.checkIn)
			attendance.POST("/check-out", RequireAction(auth.ActionAttendanceRecord), h.checkOut)
			attendance.GET("/me", RequireAction(auth.ActionAttendanceRecord), h.myAttendance)
			attendance.GET("", RequireAction(auth.ActionAttendanceViewAll), h.listAttendance)
		}

		authed.GET("/analytics/sales", RequireAction(auth.ActionAnalyticsView), h.salesReport)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	token, staff, err := h.staff.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"staff": staff,
	})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.staff.Logout(c.Request.Context(), tokenFrom(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) listOrders(c *gin.Context) {
	sess := sessionFrom(c)
	ctx := c.Request.Context()

	// Assignee/creator scoped listings require unscoped visibility.
	if idStr := c.Query("assigned_to"); idStr != "" {
		if !auth.Allowed(sess.Role, auth.ActionOrderViewAll) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not permitted"})
			return
		}
		staffID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid staff ID"})
			return
		}
		orders, err := h.orders.ListByAssignee(ctx, staffID)
		respondOrders(c, orders, err)
		return
	}
	if idStr := c.Query("created_by"); idStr != "" {
		if !auth.Allowed(sess.Role, auth.ActionOrderViewAll) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not permitted"})
			return
		}
		staffID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid staff ID"})
			return
		}
		orders, err := h.orders.ListByCreator(ctx, staffID)
		respondOrders(c, orders, err)
		return
	}

	from, to, err := dateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orders, err := h.orders.ListOrders(ctx, sess.Role, sess.StaffID, from, to)
	respondOrders(c, orders, err)
}

func respondOrders(c *gin.Context, orders []models.Order, err error) {
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) listDueOrders(c *gin.Context) {
	orders, err := h.orders.DueOrders(c.Request.Context())
	respondOrders(c, orders, err)
}

func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := idParam(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	if !h.canTouchOrder(c, order) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":       order,
		"payment_due": order.PaymentDue(time.Now()),
	})
}

func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	sess := sessionFrom(c)
	order, err := h.orders.CreateOrder(c.Request.Context(), sess.StaffID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create order",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (h *Handler) updateOrder(c *gin.Context) {
	orderID, ok := idParam(c)
	if !ok {
		return
	}

	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	sess := sessionFrom(c)
	existing, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if !h.canTouchOrder(c, existing) {
		return
	}

	// Moving an order into dispatched is a separately gated capability.
	if req.Status == models.OrderStatusDispatched &&
		existing.Status != models.OrderStatusDispatched &&
		!auth.Allowed(sess.Role, auth.ActionOrderDispatch) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not permitted"})
		return
	}

	order, err := h.orders.UpdateOrder(c.Request.Context(), orderID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save order",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) setOrderStatus(c *gin.Context) {
	orderID, ok := idParam(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,oneof=pending dc invoice dispatched"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	sess := sessionFrom(c)
	if req.Status == models.OrderStatusDispatched &&
		!auth.Allowed(sess.Role, auth.ActionOrderDispatch) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not permitted"})
		return
	}

	order, err := h.orders.SetStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to set status",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) assignDelivery(c *gin.Context) {
	orderID, ok := idParam(c)
	if !ok {
		return
	}

	var req struct {
		StaffID int64 `json:"staff_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.orders.AssignDeliveryPerson(c.Request.Context(), orderID, req.StaffID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign delivery person"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "assigned"})
}

func (h *Handler) markPaid(c *gin.Context) {
	orderID, ok := idParam(c)
	if !ok {
		return
	}

	var req struct {
		Paid *bool `json:"paid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.orders.MarkPaid(c.Request.Context(), orderID, *req.Paid); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment flag"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) deleteOrder(c *gin.Context) {
	orderID, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), orderID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to delete order",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// canTouchOrder enforces staff-level order visibility: plain staff may only
// read or edit orders they created or are assigned to
func (h *Handler) canTouchOrder(c *gin.Context, order *models.Order) bool {
	sess := sessionFrom(c)
	if auth.SeesAllOrders(sess.Role) {
		return true
	}
	if order.CreatedBy == sess.StaffID {
		return true
	}
	if order.AssignedTo != nil && *order.AssignedTo == sess.StaffID {
		return true
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "Not permitted"})
	return false
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.products.ListProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) listLowStock(c *gin.Context) {
	products, err := h.products.ListLowStock(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	productID, ok := idParam(c)
	if !ok {
		return
	}

	product, err := h.products.GetProduct(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (h *Handler) getStock(c *gin.Context) {
	productID, ok := idParam(c)
	if !ok {
		return
	}

	stock, err := h.products.GetStock(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID, "stock": stock})
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	product, err := h.products.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create product",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

func (h *Handler) updateProduct(c *gin.Context) {
	productID, ok := idParam(c)
	if !ok {
		return
	}

	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	product, err := h.products.UpdateProduct(c.Request.Context(), productID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update product",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (h *Handler) adjustStock(c *gin.Context) {
	productID, ok := idParam(c)
	if !ok {
		return
	}

	var req struct {
		Adjustment int `json:"adjustment" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	newStock, err := h.products.AdjustStock(c.Request.Context(), productID, req.Adjustment)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to adjust stock",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID, "stock": newStock})
}

func (h *Handler) deleteProduct(c *gin.Context) {
	productID, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.products.DeleteProduct(c.Request.Context(), productID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) listStaff(c *gin.Context) {
	staff, err := h.staff.ListStaff(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list staff"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff})
}

func (h *Handler) getStaff(c *gin.Context) {
	staffID, ok := idParam(c)
	if !ok {
		return
	}

	staff, err := h.staff.GetStaff(c.Request.Context(), staffID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Staff not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff})
}

func (h *Handler) createStaff(c *gin.Context) {
	var req service.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	staff, err := h.staff.CreateStaff(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create staff",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"staff": staff})
}

func (h *Handler) updateStaff(c *gin.Context) {
	staffID, ok := idParam(c)
	if !ok {
		return
	}

	var req service.UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	staff, err := h.staff.UpdateStaff(c.Request.Context(), staffID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update staff"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff})
}

func (h *Handler) setStaffActive(c *gin.Context) {
	staffID, ok := idParam(c)
	if !ok {
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.staff.SetActive(c.Request.Context(), staffID, *req.Active); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update staff"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) checkIn(c *gin.Context) {
	sess := sessionFrom(c)
	record, err := h.staff.CheckIn(c.Request.Context(), sess.StaffID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attendance": record})
}

func (h *Handler) checkOut(c *gin.Context) {
	sess := sessionFrom(c)
	record, err := h.staff.CheckOut(c.Request.Context(), sess.StaffID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": record})
}

func (h *Handler) myAttendance(c *gin.Context) {
	sess := sessionFrom(c)
	from, to, err := dateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	fromVal := now.AddDate(0, -1, 0)
	toVal := now.AddDate(0, 0, 1)
	if from != nil {
		fromVal = *from
	}
	if to != nil {
		toVal = *to
	}

	rows, err := h.staff.AttendanceForStaff(c.Request.Context(), sess.StaffID, fromVal, toVal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list attendance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": rows})
}

func (h *Handler) listAttendance(c *gin.Context) {
	day := time.Now()
	if dayStr := c.Query("day"); dayStr != "" {
		parsed, err := parseDate(dayStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid day"})
			return
		}
		day = parsed
	}

	rows, err := h.staff.AttendanceForDay(c.Request.Context(), day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list attendance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": rows})
}

func (h *Handler) salesReport(c *gin.Context) {
	from, to, err := dateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	fromVal := now.AddDate(0, -1, 0)
	toVal := now
	if from != nil {
		fromVal = *from
	}
	if to != nil {
		toVal = *to
	}

	report, err := h.analytics.SalesReportFor(c.Request.Context(), fromVal, toVal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func dateRange(c *gin.Context) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if s := c.Query("from"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return nil, nil, errors.New("invalid from date")
		}
		from = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return nil, nil, errors.New("invalid to date")
		}
		to = &t
	}
	return from, to, nil
}
