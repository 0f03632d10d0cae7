package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-service/models"
)

type CheckoutCreator interface {
	CreateSession(ctx context.Context, storeID string, productIDs []string) (*models.CheckoutSession, error)
}

type CheckoutController struct {
	checkout CheckoutCreator
}

func NewCheckoutController(checkout CheckoutCreator) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

// Checkout opens a processor order for the posted product ids.
func (cc *CheckoutController) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := cc.checkout.CreateSession(c.Request.Context(), c.Param("storeId"), req.ProductIDs)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CheckoutResponse{
		OrderID:  session.ProcessorOrderID,
		Amount:   session.Amount,
		Currency: session.Currency,
		KeyID:    session.KeyID,
	})
}
