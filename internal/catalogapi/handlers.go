package catalogapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/MarkoPoloResearchLab/storefront/internal/shop"
	"github.com/MarkoPoloResearchLab/storefront/pkg/storefront"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type httpHandler struct {
	logger  *zap.Logger
	service *shop.Service
	metrics *metrics
}

type orderRequest struct {
	ProductID      int64           `json:"product_id"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentDetails json.RawMessage `json:"payment_details"`
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (handler *httpHandler) handleCurrentUser(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing user"))
		return
	}
	ctx.JSON(http.StatusOK, user)
}

func (handler *httpHandler) handleListCategories(ctx *gin.Context) {
	var filter shop.CategoryFilter
	if raw := strings.TrimSpace(ctx.Query("is_game")); raw != "" {
		isGame, err := strconv.ParseBool(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_query", "is_game must be a boolean"))
			return
		}
		filter.IsGame = &isGame
	}
	categories, err := handler.service.Categories(ctx.Request.Context(), filter)
	if err != nil {
		handler.respondError(ctx, "list categories failed", err)
		return
	}
	ctx.JSON(http.StatusOK, categories)
}

func (handler *httpHandler) handleCreateCategory(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing user"))
		return
	}
	var request shop.NewCategory
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	category, err := handler.service.CreateCategory(ctx.Request.Context(), user, request)
	if err != nil {
		handler.respondError(ctx, "create category failed", err)
		return
	}
	ctx.JSON(http.StatusCreated, category)
}

func (handler *httpHandler) handleListProducts(ctx *gin.Context) {
	var filter shop.ProductFilter
	if raw := strings.TrimSpace(ctx.Query("category_id")); raw != "" {
		categoryID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || categoryID <= 0 {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_query", "category_id must be a positive integer"))
			return
		}
		filter.CategoryID = categoryID
	}
	products, err := handler.service.Products(ctx.Request.Context(), filter)
	if err != nil {
		handler.respondError(ctx, "list products failed", err)
		return
	}
	ctx.JSON(http.StatusOK, products)
}

func (handler *httpHandler) handleGetProduct(ctx *gin.Context) {
	productID, ok := pathID(ctx)
	if !ok {
		return
	}
	product, err := handler.service.Product(ctx.Request.Context(), productID)
	if err != nil {
		handler.respondError(ctx, "get product failed", err)
		return
	}
	ctx.JSON(http.StatusOK, product)
}

func (handler *httpHandler) handleCreateProduct(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing user"))
		return
	}
	var request shop.NewProduct
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	product, err := handler.service.CreateProduct(ctx.Request.Context(), user, request)
	if err != nil {
		handler.respondError(ctx, "create product failed", err)
		return
	}
	ctx.JSON(http.StatusCreated, product)
}

func (handler *httpHandler) handleCreateOrder(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing user"))
		return
	}
	var request orderRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	if request.ProductID <= 0 {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "product_id is required"))
		return
	}
	order, err := handler.service.PlaceOrder(ctx.Request.Context(), user, storefront.OrderRequest{
		ProductID:     request.ProductID,
		PaymentMethod: storefront.PaymentMethod(request.PaymentMethod),
	}, request.PaymentDetails)
	if err != nil {
		handler.respondError(ctx, "place order failed", err)
		return
	}
	handler.metrics.orderPlaced(order.PaymentMethod.String())
	ctx.JSON(http.StatusCreated, order)
}

func (handler *httpHandler) handleListOrders(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing user"))
		return
	}
	orders, err := handler.service.Orders(ctx.Request.Context(), user)
	if err != nil {
		handler.respondError(ctx, "list orders failed", err)
		return
	}
	ctx.JSON(http.StatusOK, orders)
}

func (handler *httpHandler) handleUpdateOrderStatus(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing user"))
		return
	}
	orderID, ok := pathID(ctx)
	if !ok {
		return
	}
	var request orderStatusRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	status, err := shop.ParseOrderStatus(request.Status)
	if err != nil {
		handler.respondError(ctx, "update order status failed", err)
		return
	}
	order, err := handler.service.UpdateOrderStatus(ctx.Request.Context(), user, orderID, status)
	if err != nil {
		handler.respondError(ctx, "update order status failed", err)
		return
	}
	ctx.JSON(http.StatusOK, order)
}

func (handler *httpHandler) respondError(ctx *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, shop.ErrForbidden):
		ctx.JSON(http.StatusForbidden, errorResponse("forbidden", "administrator access required"))
	case errors.Is(err, shop.ErrUnknownProduct):
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", "product not found"))
	case errors.Is(err, shop.ErrUnknownOrder):
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", "order not found"))
	case errors.Is(err, shop.ErrUnknownCategory):
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", "category not found"))
	case errors.Is(err, shop.ErrProductUnavailable):
		ctx.JSON(http.StatusConflict, errorResponse("product_unavailable", "product is not available"))
	case shop.IsClientError(err):
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", err.Error()))
	default:
		handler.logger.Error(message, zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "request failed"))
	}
}

func pathID(ctx *gin.Context) (int64, bool) {
	value, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || value <= 0 {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_id", "id must be a positive integer"))
		return 0, false
	}
	return value, true
}
