package devserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/dinesync/internal/domain"
)

// listPayload sends one page of a collection under its wire field name
// alongside the total matching count.
func listPayload(c *gin.Context, field string, items any, total int64) {
	c.JSON(http.StatusOK, gin.H{field: items, "total": total})
}

// done sends the mutation envelope for a completed operation.
func done(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// refused sends the mutation envelope for an operation the server
// understood but would not perform. The call itself succeeds at the
// HTTP level; the payload carries the refusal.
func refused(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": false, "message": message})
}

// fail maps a classified error to its HTTP status and emits the error
// payload. Unclassified errors become opaque 500s.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch appErr.Code {
		case domain.CodeValidation:
			status = http.StatusBadRequest
		case domain.CodeUnauthorized:
			status = http.StatusUnauthorized
		case domain.CodeNotFound:
			status = http.StatusNotFound
		case domain.CodeConflict:
			status = http.StatusConflict
		default:
			message = "internal server error"
		}
	}

	c.JSON(status, gin.H{"error": message})
}
