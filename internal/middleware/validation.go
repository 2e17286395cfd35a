package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"github.com/Payphone-Digital/sprintdesk/pkg/validation"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var registerOnce sync.Once

// RegisterJSONFieldNames makes validation errors report json/form tag
// names instead of Go field names.
func RegisterJSONFieldNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})
	})
}

// FormatValidationErrors turns binding failures into one message per
// field, keyed by the JSON field name. A body that is not valid JSON
// yields nil.
func FormatValidationErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		name := e.Field()
		if _, seen := fields[name]; seen {
			continue
		}
		fields[name] = validation.Message(e.StructField(), e.Tag())
	}
	return fields
}

// AbortWithBindError answers 400 for a request that failed binding.
func AbortWithBindError(c *gin.Context, err error) {
	details := FormatValidationErrors(err)

	logger.GetLogger().Warn("Request validation failed",
		zap.String("path", c.Request.URL.Path),
		zap.String("client_ip", c.ClientIP()),
		zap.Int("error_count", len(details)),
		zap.Error(err),
	)

	body := constants.BuildErrorResponse(constants.MsgBadRequest, nil)
	body[constants.ResponseFieldError] = apperrors.ErrInvalidInput.Code
	if details != nil {
		body[constants.ResponseFieldDetails] = details
	} else {
		body[constants.ResponseFieldDetails] = "request body is not valid JSON"
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}
