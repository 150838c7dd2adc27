package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInvoice() Invoice {
	return Invoice{
		ID:              "draft-1",
		InvoiceNumber:   "INV#OF-000001",
		Date:            "2025-03-14",
		EmployeeName:    "Asha Rao",
		EmployeeID:      "EMP-7",
		EmployeeEmail:   "asha@example.com",
		EmployeeAddress: "12 Park Street",
		EmployeeMobile:  "+91 90000 00000",
		Services: []LineItem{
			{ID: "service-1", Description: "API design", Hours: 2, Rate: 500},
			{ID: "service-2", Description: "Implementation", Hours: 1.5, Rate: 1000},
		},
		TaxRate: 10,
	}
}

func TestInvoice_Validate_Valid(t *testing.T) {
	assert.NoError(t, validInvoice().Validate())
}

func TestInvoice_Validate_ReportsFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(inv *Invoice)
		fields []string
	}{
		{
			name:   "missing employee fields",
			mutate: func(inv *Invoice) { inv.EmployeeName = ""; inv.EmployeeEmail = "" },
			fields: []string{"employeeName", "employeeEmail"},
		},
		{
			name:   "malformed date",
			mutate: func(inv *Invoice) { inv.Date = "14/03/2025" },
			fields: []string{"date"},
		},
		{
			name:   "empty services",
			mutate: func(inv *Invoice) { inv.Services = nil },
			fields: []string{"services"},
		},
		{
			name:   "blank description",
			mutate: func(inv *Invoice) { inv.Services[1].Description = "" },
			fields: []string{"services[1].description"},
		},
		{
			name:   "negative hours",
			mutate: func(inv *Invoice) { inv.Services[0].Hours = -1 },
			fields: []string{"services[0].hours"},
		},
		{
			name:   "tax rate above range",
			mutate: func(inv *Invoice) { inv.TaxRate = 101 },
			fields: []string{"taxRate"},
		},
		{
			name:   "duplicate line item ids",
			mutate: func(inv *Invoice) { inv.Services[1].ID = inv.Services[0].ID },
			fields: []string{"services[1].id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := validInvoice()
			tt.mutate(&inv)

			err := inv.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Len(t, verr.Fields, len(tt.fields))
			for _, field := range tt.fields {
				assert.True(t, verr.Has(field), "expected %s in %v", field, verr.Fields)
			}
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	inv := validInvoice()
	inv.EmployeeMobile = ""

	err := inv.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "employeeMobile is required")
}

func TestNewLineItem_RejectsNegative(t *testing.T) {
	_, err := NewLineItem("x", "work", -0.5, 10)
	assert.ErrorIs(t, err, ErrNegativeQuantity)

	_, err = NewLineItem("x", "work", 1, -10)
	assert.ErrorIs(t, err, ErrNegativeQuantity)

	item, err := NewLineItem("x", "work", 1.5, 10)
	require.NoError(t, err)
	assert.Equal(t, 15.0, item.Amount())
}

func TestSortByDateDesc(t *testing.T) {
	invoices := []Invoice{
		{ID: "old", Date: "2024-01-01"},
		{ID: "bad", Date: "not-a-date"},
		{ID: "new", Date: "2025-06-30"},
		{ID: "mid-a", Date: "2024-12-01"},
		{ID: "mid-b", Date: "2024-12-01"},
	}

	SortByDateDesc(invoices)

	ids := make([]string, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID
	}
	assert.Equal(t, []string{"new", "mid-a", "mid-b", "old", "bad"}, ids)
}
