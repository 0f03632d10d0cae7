package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-service/config"
	"github.com/yashrajoria/storefront-service/controllers"
	"github.com/yashrajoria/storefront-service/metrics"
	"github.com/yashrajoria/storefront-service/middleware"
)

type Handlers struct {
	Checkout *controllers.CheckoutController
	Payment  *controllers.PaymentController
	Orders   *controllers.OrderController
	Cart     *controllers.CartController
	Metrics  *metrics.Metrics

	JWTSecret config.Secret
}

// VerifyCORS is the policy of the payment confirmation endpoint, which the
// processor widget calls from arbitrary storefront origins.
func VerifyCORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	})
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	if h.Payment != nil {
		// Stripe authenticates with its own signature header.
		r.POST("/stripe/webhook", h.Payment.StripeWebhook)
	}

	api := r.Group("/api/:storeId")
	{
		if h.Checkout != nil {
			api.POST("/checkout", h.Checkout.Checkout)
		}

		if h.Payment != nil {
			verify := api.Group("/verify-payment")
			verify.Use(VerifyCORS())
			verify.POST("", h.Payment.VerifyPayment)
			verify.OPTIONS("", h.Payment.VerifyPaymentPreflight)
		}

		if h.Cart != nil {
			api.GET("/cart", h.Cart.GetCart)
			api.POST("/cart/items", h.Cart.AddItem)
			api.DELETE("/cart/items/:productId", h.Cart.RemoveItem)
			api.DELETE("/cart", h.Cart.ClearCart)
		}

		if h.Orders != nil {
			admin := api.Group("/orders")
			admin.Use(middleware.AdminAuth(h.JWTSecret))
			admin.GET("", h.Orders.ListOrders)
			admin.GET("/:orderId", h.Orders.GetOrder)
			admin.POST("/:orderId/cancel", h.Orders.CancelOrder)
			admin.DELETE("/:orderId", h.Orders.DeleteOrder)
		}
	}
}
