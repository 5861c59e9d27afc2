package api

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Ib-dI/ylang-creations/configurator"
	"github.com/Ib-dI/ylang-creations/i18n"
	"github.com/Ib-dI/ylang-creations/payment"
	"github.com/Ib-dI/ylang-creations/storage"
	"github.com/Ib-dI/ylang-creations/store"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// validate checks documents that are not bound from a request body, such as
// the settings, against their `validate` tags.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return v
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

func abort(c *gin.Context, status int, key i18n.Key) {
	c.AbortWithStatusJSON(status, errorResponse{Error: i18n.T(lang(c), key)})
}

// deny answers requests rejected by the auth middleware.
func deny(c *gin.Context, status int, key i18n.Key) {
	abort(c, status, key)
}

// invalid answers a request whose body or query failed to bind.
func invalid(c *gin.Context, err error) {
	_ = c.Error(err)
	tag := lang(c)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: i18n.T(tag, i18n.ErrInvalidRequest)})
		return
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = i18n.T(tag, fieldKey(fe))
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error:  i18n.T(tag, i18n.ErrInvalidRequest),
		Fields: fields,
	})
}

func invalidField(c *gin.Context, field string, key i18n.Key) {
	tag := lang(c)
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error:  i18n.T(tag, i18n.ErrInvalidRequest),
		Fields: map[string]string{field: i18n.T(tag, key)},
	})
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func fieldKey(fe validator.FieldError) i18n.Key {
	sized := fe.Kind() == reflect.String || fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map
	switch fe.Tag() {
	case "required", "required_if", "required_with", "required_without":
		return i18n.FieldRequired
	case "email":
		return i18n.FieldEmail
	case "url", "http_url", "uri":
		return i18n.FieldURL
	case "oneof":
		return i18n.FieldOneOf
	case "min", "gte", "gt":
		if sized {
			return i18n.FieldTooShort
		}
		return i18n.FieldMin
	case "max", "lte", "lt":
		if sized {
			return i18n.FieldTooLong
		}
		return i18n.FieldMax
	}
	return i18n.FieldInvalid
}

// fail maps a service error to a localized response. Unexpected errors are
// logged and answered with a generic message.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, store.ErrNotFound):
		abort(c, http.StatusNotFound, i18n.ErrNotFound)
	case errors.Is(err, store.ErrConflict):
		abort(c, http.StatusConflict, i18n.ErrConflict)
	case errors.Is(err, store.ErrInvalidTransition):
		abort(c, http.StatusConflict, i18n.ErrInvalidStatus)

	case errors.Is(err, payment.ErrUnauthenticated):
		abort(c, http.StatusUnauthorized, i18n.ErrUnauthorized)
	case errors.Is(err, payment.ErrEmptyCart):
		abort(c, http.StatusBadRequest, i18n.ErrEmptyCart)
	case errors.Is(err, payment.ErrInvalidItem):
		abort(c, http.StatusBadRequest, i18n.ErrInvalidRequest)
	case errors.Is(err, payment.ErrOutOfStock):
		abort(c, http.StatusConflict, i18n.ErrOutOfStock)
	case errors.Is(err, payment.ErrInvalidSignature):
		abort(c, http.StatusBadRequest, i18n.ErrInvalidSig)
	case errors.Is(err, payment.ErrCheckout):
		s.logger.Error("Checkout failed", "error", err, "requestId", c.GetString(requestIDKey))
		abort(c, http.StatusInternalServerError, i18n.ErrCheckout)

	case errors.Is(err, configurator.ErrProductRequired),
		errors.Is(err, configurator.ErrFabricRequired),
		errors.Is(err, configurator.ErrIncomplete):
		abort(c, http.StatusBadRequest, i18n.ErrStepLocked)
	case errors.Is(err, configurator.ErrNotCustomizable):
		abort(c, http.StatusBadRequest, i18n.ErrUnknownProduct)
	case errors.Is(err, configurator.ErrUnknownFabric):
		abort(c, http.StatusBadRequest, i18n.ErrUnknownFabric)
	case errors.Is(err, configurator.ErrEmbroideryTooLong):
		invalidField(c, "text", i18n.FieldTooLong)
	case errors.Is(err, configurator.ErrUnknownAccessory),
		errors.Is(err, configurator.ErrInvalidStep):
		abort(c, http.StatusBadRequest, i18n.ErrInvalidRequest)

	case errors.Is(err, storage.ErrUnsupportedType):
		abort(c, http.StatusUnsupportedMediaType, i18n.ErrUnsupportedFile)
	case errors.Is(err, storage.ErrTooLarge):
		abort(c, http.StatusRequestEntityTooLarge, i18n.ErrFileTooLarge)
	case errors.Is(err, storage.ErrNotConfigured):
		abort(c, http.StatusServiceUnavailable, i18n.ErrStorageDisabled)

	default:
		s.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err,
			"requestId", c.GetString(requestIDKey))
		abort(c, http.StatusInternalServerError, i18n.ErrInternal)
	}
}
