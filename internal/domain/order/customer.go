package order

import (
	"net/mail"
	"strings"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
)

// Customer is who the order is for. Exactly one of RegisteredCustomer,
// GuestCustomer or AgentCustomer.
type Customer interface {
	// Kind is the order kind the customer implies.
	Kind() Kind
	validate() error
}

// RegisteredCustomer is a customer with an account.
type RegisteredCustomer struct {
	CustomerID id.ID
}

func (RegisteredCustomer) Kind() Kind { return KindRetail }

func (c RegisteredCustomer) validate() error {
	if id.IsNil(c.CustomerID) {
		return apperror.NewValidation("customer is required").WithDetail("field", "customerId")
	}
	return nil
}

// GuestCustomer is a checkout without an account.
type GuestCustomer struct {
	Email string
	Name  string
	Phone string
}

func (GuestCustomer) Kind() Kind { return KindRetail }

func (c GuestCustomer) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("guest name is required").WithDetail("field", "guestName")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return apperror.NewValidation("guest email is invalid").WithDetail("field", "guestEmail")
	}
	return nil
}

// AgentCustomer is a wholesale agent buying on account.
type AgentCustomer struct {
	AgentID id.ID
}

func (AgentCustomer) Kind() Kind { return KindAgent }

func (c AgentCustomer) validate() error {
	if id.IsNil(c.AgentID) {
		return apperror.NewValidation("agent is required").WithDetail("field", "agentId")
	}
	return nil
}

// CustomerFields is the flat persisted form of a Customer.
type CustomerFields struct {
	CustomerID *id.ID
	AgentID    *id.ID
	GuestEmail string
	GuestName  string
	GuestPhone string
}

// Flatten converts c into its persisted columns.
func Flatten(c Customer) CustomerFields {
	switch v := c.(type) {
	case RegisteredCustomer:
		cid := v.CustomerID
		return CustomerFields{CustomerID: &cid}
	case AgentCustomer:
		aid := v.AgentID
		return CustomerFields{AgentID: &aid}
	case GuestCustomer:
		return CustomerFields{GuestEmail: v.Email, GuestName: v.Name, GuestPhone: v.Phone}
	}
	return CustomerFields{}
}

// Customer rebuilds the tagged value from persisted columns.
func (f CustomerFields) Customer() (Customer, error) {
	set := 0
	var c Customer
	if f.CustomerID != nil {
		set++
		c = RegisteredCustomer{CustomerID: *f.CustomerID}
	}
	if f.AgentID != nil {
		set++
		c = AgentCustomer{AgentID: *f.AgentID}
	}
	if f.GuestEmail != "" || f.GuestName != "" {
		set++
		c = GuestCustomer{Email: f.GuestEmail, Name: f.GuestName, Phone: f.GuestPhone}
	}
	if set != 1 {
		return nil, apperror.NewValidation("exactly one of customer, guest or agent must be set").
			WithDetail("field", "customer")
	}
	return c, nil
}
