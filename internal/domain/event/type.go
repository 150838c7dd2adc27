package event

// Type identifies the type of session event
type Type string

const (
	TypeInvoicesLoaded   Type = "invoices.loaded"
	TypeLoadFailed       Type = "invoices.load_failed"
	TypeInvoiceCreated   Type = "invoice.created"
	TypeInvoiceUpdated   Type = "invoice.updated"
	TypeInvoiceDeleted   Type = "invoice.deleted"
	TypeMutationFailed   Type = "mutation.failed"
	TypeSelectionOpened  Type = "selection.opened"
	TypeSelectionCleared Type = "selection.cleared"
	TypeDraftEdited      Type = "draft.edited"
	TypeErrorDismissed   Type = "error.dismissed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeInvoicesLoaded,
		TypeLoadFailed,
		TypeInvoiceCreated,
		TypeInvoiceUpdated,
		TypeInvoiceDeleted,
		TypeMutationFailed,
		TypeSelectionOpened,
		TypeSelectionCleared,
		TypeDraftEdited,
		TypeErrorDismissed:
		return true
	default:
		return false
	}
}
