package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-service/apperrors"
)

// writeError renders err with its taxonomy status. The full error is kept on
// the context for the request logger; internal causes never reach the body.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	appErr := apperrors.From(err)
	c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
}
