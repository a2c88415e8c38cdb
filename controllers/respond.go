package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nirmalhandloom/storebackend/apperrors"
	"github.com/nirmalhandloom/storebackend/database"
	"github.com/nirmalhandloom/storebackend/dto"
	"github.com/nirmalhandloom/storebackend/logger"
)

// respondError writes err as {message}. Server-side failures are logged with
// the request logger; their details never reach the client.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		ctx := c.Request.Context()
		logger.FromContext(ctx).ErrorContext(ctx, "request failed",
			slog.String("error", err.Error()),
			slog.String("path", c.FullPath()),
		)
	}
	c.JSON(status, gin.H{"message": apperrors.Message(err)})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"message": dto.BindingMessage(err)})
}

// storeError maps repository errors; ErrNotFound becomes a 404 with
// notFound as its message.
func storeError(err error, notFound string) error {
	if errors.Is(err, database.ErrNotFound) {
		return apperrors.NotFound(notFound)
	}
	return apperrors.Persistence(err)
}
