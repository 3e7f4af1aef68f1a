package handler

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/apierror"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/middleware"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal is a struct; expose it to validator as a float so
	// numeric tags (min, gt) apply.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds the JSON body and runs validator tags. On failure it
// writes the response and returns false.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid JSON: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery binds and validates query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid query: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
	return false
}

// pathID parses the named UUID path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// actor builds the service actor from the verified JWT claims.
func actor(c *gin.Context) service.Actor {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return service.Actor{}
	}
	return service.Actor{ID: claims.StaffID, Name: claims.Name, Role: claims.Role}
}

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported as 500 without detail.
func respondError(c *gin.Context, err error) {
	var (
		stockErr *service.InsufficientStockError
		valErr   *service.ValidationError
	)
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, &apierror.StockError{
			Detail:    stockErr.Error(),
			ItemID:    stockErr.ItemID,
			ItemName:  stockErr.ItemName,
			Available: stockErr.Available,
			Requested: stockErr.Requested,
			Deficit:   stockErr.Deficit(),
		})
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, apierror.New(valErr.Msg))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrTicketClosed),
		errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, apierror.New(err.Error()))
	default:
		log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Msg("unhandled service error")
		c.JSON(http.StatusInternalServerError, apierror.New("Internal server error"))
	}
}
