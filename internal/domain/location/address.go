package location

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/shared"
)

// AddressStatus is the approval state of an address
type AddressStatus string

const (
	AddressStatusPending  AddressStatus = "pending"
	AddressStatusApproved AddressStatus = "approved"
	AddressStatusRejected AddressStatus = "rejected"
)

// IsValid reports whether the status is one of the known values
func (s AddressStatus) IsValid() bool {
	switch s {
	case AddressStatusPending, AddressStatusApproved, AddressStatusRejected:
		return true
	}
	return false
}

// Address is a street-and-number string inside one Settlement.
// Managers create addresses; only an approver moves them out of pending.
type Address struct {
	shared.BaseEntity
	SettlementID uuid.UUID
	Street       string
	Status       AddressStatus
	CreatedBy    *uuid.UUID
}

// NewAddress creates a pending address
func NewAddress(settlementID uuid.UUID, street string, createdBy *uuid.UUID) (*Address, error) {
	if settlementID == uuid.Nil {
		return nil, shared.Validationf("address must reference a settlement")
	}
	street = strings.TrimSpace(street)
	if street == "" {
		return nil, shared.Validationf("street cannot be empty")
	}
	if len(street) > 300 {
		return nil, shared.Validationf("street cannot exceed 300 characters")
	}
	return &Address{
		BaseEntity:   shared.NewBaseEntity(),
		SettlementID: settlementID,
		Street:       street,
		Status:       AddressStatusPending,
		CreatedBy:    createdBy,
	}, nil
}

// IsApproved reports whether the address can host occupancy requests
func (a *Address) IsApproved() bool {
	return a.Status == AddressStatusApproved
}

// Approve moves a pending address to approved
func (a *Address) Approve() error {
	return a.transition(AddressStatusApproved)
}

// Reject moves a pending address to rejected
func (a *Address) Reject() error {
	return a.transition(AddressStatusRejected)
}

func (a *Address) transition(to AddressStatus) error {
	if a.Status != AddressStatusPending {
		return shared.NewDomainError(shared.CodeInvalidState, "only pending addresses can be reviewed")
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	return nil
}
