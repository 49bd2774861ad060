package middleware

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/wms-platform/batching-service/pkg/errors"
)

var validatorOnce sync.Once

var (
	priorityRegex = regexp.MustCompile(`^P[1-4]$`)
	locationRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,31}$`)
)

var customValidations = map[string]validator.Func{
	"priority": func(fl validator.FieldLevel) bool {
		return priorityRegex.MatchString(fl.Field().String())
	},
	"location_id": func(fl validator.FieldLevel) bool {
		return locationRegex.MatchString(fl.Field().String())
	},
	"employee_status": func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "active", "break", "inactive":
			return true
		}
		return false
	},
}

// InitValidator registers the custom tags on Gin's validator engine
func InitValidator() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		for tag, fn := range customValidations {
			_ = v.RegisterValidation(tag, fn)
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
}

// ValidationErrorFormatter flattens validator errors into field messages
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			fields[e.Namespace()] = formatValidationError(e)
		}
	}
	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "priority":
		return "must be one of: P1, P2, P3, P4"
	case "location_id":
		return "must be a warehouse cell id such as A12 or B-02"
	case "employee_status":
		return "must be one of: active, break, inactive"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// BindAndValidate binds the JSON body and runs struct validation
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest("invalid request body: " + err.Error())
	}
	return nil
}
