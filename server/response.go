package server

import (
	goerrors "errors"
	"net/http"

	"viztalk/errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError maps domain sentinels onto HTTP statuses. Unknown errors
// become a generic 500 so internals never leak to clients.
func respondError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if goerrors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErrs.Error()})
		return
	}

	switch {
	case goerrors.Is(err, errors.ErrEmptyContent),
		goerrors.Is(err, errors.ErrContentTooLong),
		goerrors.Is(err, errors.ErrSelfConversation),
		goerrors.Is(err, errors.ErrInvalidPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case goerrors.Is(err, errors.ErrConversationNotFound),
		goerrors.Is(err, errors.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case goerrors.Is(err, errors.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case goerrors.Is(err, errors.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case goerrors.Is(err, errors.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errors.ErrStorageUnavailable.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
