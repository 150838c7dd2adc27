package storeapi

import "fmt"

// operation names a store call and its generic failure message
type operation struct {
	name    string
	failure string
}

var (
	opCreate         = operation{"create", "failed to create invoice"}
	opUpdate         = operation{"update", "failed to update invoice"}
	opList           = operation{"list", "failed to fetch invoices"}
	opGet            = operation{"get", "failed to fetch invoice"}
	opDelete         = operation{"delete", "failed to delete invoice"}
	opListByEmployee = operation{"list_by_employee", "failed to fetch invoices"}
	opDocument       = operation{"download", "failed to download PDF"}
	opEmail          = operation{"send_email", "failed to send email"}
	opCustomEmail    = operation{"send_custom_email", "failed to send email"}
)

// TransportError is a network failure or a non-2xx response
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ApplicationError is a 2xx response whose envelope reports success=false
type ApplicationError struct {
	Op      string
	Message string
}

func (e *ApplicationError) Error() string {
	return e.Message
}

func transportFailure(op operation, status string) string {
	if status == "" {
		return op.failure
	}
	return fmt.Sprintf("%s: %s", op.failure, status)
}
