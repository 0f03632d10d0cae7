package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/services"
)

type OrderManager interface {
	ListOrders(ctx context.Context, storeID string, page, limit int) (*services.OrderResponse, error)
	GetOrder(ctx context.Context, storeID, orderID string) (*models.Order, error)
	CancelOrder(ctx context.Context, storeID, orderID string) (*models.Order, error)
	DeleteOrder(ctx context.Context, storeID, orderID string) error
}

type OrderController struct {
	orders OrderManager
}

func NewOrderController(orders OrderManager) *OrderController {
	return &OrderController{orders: orders}
}

func (oc *OrderController) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	resp, err := oc.orders.ListOrders(c.Request.Context(), c.Param("storeId"), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.orders.GetOrder(c.Request.Context(), c.Param("storeId"), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oc *OrderController) CancelOrder(c *gin.Context) {
	order, err := oc.orders.CancelOrder(c.Request.Context(), c.Param("storeId"), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oc *OrderController) DeleteOrder(c *gin.Context) {
	if err := oc.orders.DeleteOrder(c.Request.Context(), c.Param("storeId"), c.Param("orderId")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}
