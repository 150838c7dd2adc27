package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/garyjia/invoice-manager/internal/domain/entity"
)

// itemSpec is a parsed --item value
type itemSpec struct {
	Description string
	Hours       float64
	Rate        float64
}

// parseItem parses "description:hours:rate". The description may itself
// contain colons; hours and rate are taken from the right.
func parseItem(raw string) (itemSpec, error) {
	rateAt := strings.LastIndex(raw, ":")
	if rateAt < 0 {
		return itemSpec{}, fmt.Errorf("item %q: want description:hours:rate", raw)
	}
	hoursAt := strings.LastIndex(raw[:rateAt], ":")
	if hoursAt < 0 {
		return itemSpec{}, fmt.Errorf("item %q: want description:hours:rate", raw)
	}

	description := strings.TrimSpace(raw[:hoursAt])
	if description == "" {
		return itemSpec{}, fmt.Errorf("item %q: description is empty", raw)
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(raw[hoursAt+1:rateAt]), 64)
	if err != nil {
		return itemSpec{}, fmt.Errorf("item %q: bad hours: %w", raw, err)
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(raw[rateAt+1:]), 64)
	if err != nil {
		return itemSpec{}, fmt.Errorf("item %q: bad rate: %w", raw, err)
	}
	return itemSpec{Description: description, Hours: hours, Rate: rate}, nil
}

// applyFlags copies every flag the user set onto the draft
func applyFlags(c *cli.Context, d *entity.Draft, e *env) error {
	if c.IsSet("number") {
		d.Invoice.InvoiceNumber = c.String("number")
	}
	if c.IsSet("date") {
		if err := d.SetDate(c.String("date")); err != nil {
			return err
		}
	}
	if c.IsSet("employee-id") {
		if err := d.SetEmployeeID(c.String("employee-id")); err != nil {
			return err
		}
	}

	employee := entity.Employee{
		Name:    d.Invoice.EmployeeName,
		Email:   d.Invoice.EmployeeEmail,
		Address: d.Invoice.EmployeeAddress,
		Mobile:  d.Invoice.EmployeeMobile,
	}
	for flag, field := range map[string]*string{
		"name":    &employee.Name,
		"email":   &employee.Email,
		"address": &employee.Address,
		"mobile":  &employee.Mobile,
	} {
		if c.IsSet(flag) {
			*field = c.String(flag)
		}
	}
	d.SetEmployee(employee)

	if c.IsSet("tax-rate") {
		if err := d.SetTaxRate(c.Float64("tax-rate")); err != nil {
			return err
		}
	}

	if c.IsSet("item") {
		specs := make([]itemSpec, 0, len(c.StringSlice("item")))
		for _, raw := range c.StringSlice("item") {
			spec, err := parseItem(raw)
			if err != nil {
				return err
			}
			specs = append(specs, spec)
		}
		d.Invoice.Services = nil
		for _, spec := range specs {
			if _, err := d.AddLineItem(e.ids, spec.Description, spec.Hours, spec.Rate); err != nil {
				return err
			}
		}
	}
	return nil
}
