// api/middleware/error_handler.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/termbase/termbase-backend/internal/auth"
	"github.com/termbase/termbase-backend/internal/sqlguard"
	"github.com/termbase/termbase-backend/internal/storage"
)

// ErrorHandler creates a Gin middleware for centralized error handling.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		// Only the last error drives the response.
		err := c.Errors.Last().Err

		customLog.Printf("[ErrorHandler] Detected error: %v | Type: %T", err, err)

		var statusCode int
		var userMessage string

		if errors.Is(err, storage.ErrUserNotFound) {
			statusCode = http.StatusNotFound
			userMessage = err.Error()
		} else if errors.Is(err, storage.ErrUsernameExists) {
			statusCode = http.StatusConflict
			userMessage = err.Error()
		} else if errors.Is(err, storage.ErrInvalidCredentials) {
			statusCode = http.StatusUnauthorized
			userMessage = err.Error()
		} else if errors.Is(err, auth.ErrTokenMalformed) ||
			errors.Is(err, auth.ErrTokenInvalid) ||
			errors.Is(err, auth.ErrTokenClaimsInvalid) ||
			errors.Is(err, auth.ErrUnexpectedSigningMethod) {
			statusCode = http.StatusUnauthorized
			userMessage = "Invalid or malformed authentication token."
		} else if errors.Is(err, auth.ErrTokenExpired) {
			statusCode = http.StatusUnauthorized
			userMessage = "Authentication token has expired."
		} else if errors.Is(err, sqlguard.ErrAccessDenied) {
			statusCode = http.StatusForbidden
			userMessage = err.Error()
		} else if validationErrs, ok := err.(validator.ValidationErrors); ok {
			statusCode = http.StatusBadRequest
			userMessage = "Validation failed. Please check your input."
			for _, fe := range validationErrs {
				customLog.Printf("Validation Error: Field %s failed on %s", fe.Field(), fe.Tag())
			}
		} else {
			statusCode = http.StatusInternalServerError
			userMessage = "An unexpected internal server error occurred."
			customLog.Printf("Unhandled error type: %T, Error: %v", err, err)
		}

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
		} else {
			customLog.Printf("[ErrorHandler] Warning: Response already written before handling error.")
		}
	}
}
