package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/yukikurage/org-access-api/internal/errors"
)

// parseIDParam reads a numeric path parameter and answers 400 when it is
// malformed.
func parseIDParam(c *gin.Context, name, message string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, message)
		return 0, false
	}
	return id, true
}

// respondBindError answers 400 for a request body that failed binding,
// listing the offending fields when the binder reports them.
func respondBindError(c *gin.Context, message string, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		apierrors.BadRequest(c, message)
		return
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[fieldErr.Field()] = fieldErr.Tag()
	}
	apierrors.InvalidFields(c, message, fields)
}
