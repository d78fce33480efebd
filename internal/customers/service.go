// Package customers manages customer records and their purchase history.
package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medstore/m/domain"
	"medstore/m/internal/store"
)

// RecentSalesLimit bounds the sales returned with a customer's detail view.
const RecentSalesLimit = 10

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(st store.Store, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{store: st, now: clock}
}

func (s *Service) Create(ctx context.Context, req domain.CustomerRequest) (domain.Customer, error) {
	c := domain.Customer{
		Name:        strings.TrimSpace(req.Name),
		Phone:       strings.TrimSpace(req.Phone),
		Email:       strings.TrimSpace(req.Email),
		Address:     strings.TrimSpace(req.Address),
		DateOfBirth: strings.TrimSpace(req.DateOfBirth),
		Gender:      strings.TrimSpace(req.Gender),
	}
	if c.Name == "" || c.Phone == "" {
		return domain.Customer{}, domain.Errorf(domain.ErrMissingFields, "Name and phone are required")
	}
	now := s.timestamp()
	c.CreatedAt, c.UpdatedAt = now, now
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := ensurePhoneFree(ctx, tx, c.Phone, 0); err != nil {
			return err
		}
		if err := tx.InsertCustomer(ctx, &c); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return duplicatePhone()
			}
			return fmt.Errorf("insert customer: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id int64, patch domain.CustomerPatch) (domain.Customer, error) {
	var updated domain.Customer
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		c, err := lockCustomer(ctx, tx, id)
		if err != nil {
			return err
		}
		changed := false
		for _, f := range []struct {
			field    string
			dst      *string
			v        *string
			required bool
		}{
			{"name", &c.Name, patch.Name, true},
			{"phone", &c.Phone, patch.Phone, true},
			{"email", &c.Email, patch.Email, false},
			{"address", &c.Address, patch.Address, false},
			{"date_of_birth", &c.DateOfBirth, patch.DateOfBirth, false},
			{"gender", &c.Gender, patch.Gender, false},
		} {
			if f.v == nil {
				continue
			}
			v := strings.TrimSpace(*f.v)
			if f.required && v == "" {
				return domain.Errorf(domain.ErrValidation, "%s cannot be empty", f.field)
			}
			*f.dst = v
			changed = true
		}
		if !changed {
			return domain.Errorf(domain.ErrNoFieldsToUpdate, "No fields to update")
		}
		if patch.Phone != nil {
			if err := ensurePhoneFree(ctx, tx, c.Phone, id); err != nil {
				return err
			}
		}
		c.UpdatedAt = s.timestamp()
		if err := tx.UpdateCustomer(ctx, c); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return duplicatePhone()
			}
			return fmt.Errorf("update customer: %w", err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return updated, nil
}

// Delete removes a customer that has no sales or prescriptions.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := lockCustomer(ctx, tx, id); err != nil {
			return err
		}
		used, err := tx.CustomerReferenced(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return domain.Errorf(domain.ErrInUse, "Cannot delete customer with existing sales or prescriptions")
		}
		return tx.DeleteCustomer(ctx, id)
	})
}

// Get returns the customer with purchase totals and the latest sales.
func (s *Service) Get(ctx context.Context, id int64) (domain.CustomerSummary, error) {
	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.CustomerSummary{}, domain.Errorf(domain.ErrCustomerNotFound, "Customer not found")
		}
		return domain.CustomerSummary{}, err
	}
	recent, err := s.store.ListSales(ctx, domain.SaleFilter{CustomerID: id, Limit: RecentSalesLimit})
	if err != nil {
		return domain.CustomerSummary{}, err
	}
	c.RecentSales = recent
	return c, nil
}

func (s *Service) List(ctx context.Context, search string) ([]domain.CustomerSummary, error) {
	return s.store.ListCustomers(ctx, search)
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func lockCustomer(ctx context.Context, tx store.CustomerTx, id int64) (domain.Customer, error) {
	c, err := tx.CustomerForUpdate(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Customer{}, domain.Errorf(domain.ErrCustomerNotFound, "Customer not found")
	}
	return c, err
}

func ensurePhoneFree(ctx context.Context, tx store.CustomerTx, phone string, self int64) error {
	owner, err := tx.CustomerIDByPhone(ctx, phone)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	case owner != self:
		return duplicatePhone()
	}
	return nil
}

func duplicatePhone() error {
	return domain.Errorf(domain.ErrDuplicatePhone, "Customer with this phone number already exists")
}
