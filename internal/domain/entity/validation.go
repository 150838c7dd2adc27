package entity

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is the sentinel matched by every ValidationError
var ErrValidation = errors.New("invoice validation failed")

// FieldError describes one violated rule on one field
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError reports every violated field of an invoice
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Has reports whether the given field failed validation
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func invoiceValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate.RegisterStructValidation(uniqueLineItemIDs, Invoice{})
	})
	return validate
}

// uniqueLineItemIDs rejects duplicate line item identifiers within one invoice
func uniqueLineItemIDs(sl validator.StructLevel) {
	inv := sl.Current().Interface().(Invoice)
	seen := make(map[string]bool, len(inv.Services))
	for i, item := range inv.Services {
		if item.ID == "" {
			continue
		}
		if seen[item.ID] {
			sl.ReportError(item.ID, fmt.Sprintf("services[%d].id", i), "ID", "unique", "")
		}
		seen[item.ID] = true
	}
}

// Validate checks required fields, numeric bounds and the services sequence.
// It returns *ValidationError listing every violated field, or nil.
func (i Invoice) Validate() error {
	err := invoiceValidator().Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate invoice: %w", err)
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Invoice.")
		out.Fields = append(out.Fields, FieldError{
			Field:   field,
			Rule:    fe.Tag(),
			Message: ruleMessage(field, fe.Tag(), fe.Param()),
		})
	}
	return out
}

func ruleMessage(field, rule, param string) string {
	switch rule {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s form", field, param)
	case "min":
		return fmt.Sprintf("%s must contain at least %s item", field, param)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "unique":
		return fmt.Sprintf("%s duplicates another line item id", field)
	default:
		return fmt.Sprintf("%s failed %s", field, rule)
	}
}
