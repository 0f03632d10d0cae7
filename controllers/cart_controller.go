package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-service/cart"
	"github.com/yashrajoria/storefront-service/models"
	"go.uber.org/zap"
)

const sessionHeader = "X-Session-ID"

// CartController serves the server-rendered storefront's cart. The shopper
// session id plays the role of the device.
type CartController struct {
	storage cart.Storage
	logger  *zap.Logger
}

func NewCartController(storage cart.Storage, logger *zap.Logger) *CartController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartController{storage: storage, logger: logger}
}

func (cc *CartController) store(c *gin.Context) (*cart.Store, bool) {
	sessionID := c.GetHeader(sessionHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Session-ID header is required"})
		return nil, false
	}
	store, err := cart.NewFactory(sessionID, cc.storage, cc.logger).For(c.Param("storeId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return store, true
}

func (cc *CartController) GetCart(c *gin.Context) {
	store, ok := cc.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.Cart{TenantID: store.TenantID(), Items: store.Items()})
}

func (cc *CartController) AddItem(c *gin.Context) {
	var item models.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	store, ok := cc.store(c)
	if !ok {
		return
	}

	added, err := store.AddItem(item)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"added": added, "items": store.Items()})
}

func (cc *CartController) RemoveItem(c *gin.Context) {
	store, ok := cc.store(c)
	if !ok {
		return
	}
	if !store.RemoveItem(c.Param("productId")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not in cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": store.Items()})
}

func (cc *CartController) ClearCart(c *gin.Context) {
	store, ok := cc.store(c)
	if !ok {
		return
	}
	store.RemoveAll()
	c.Status(http.StatusNoContent)
}
