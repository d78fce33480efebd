// Package sales creates and reverses sales. Every sale touches the stock
// ledger, the bill number series and the pricing rules inside one
// transaction.
package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"medstore/m/domain"
	"medstore/m/internal/inventory"
	"medstore/m/internal/pricing"
	"medstore/m/internal/sequence"
	"medstore/m/internal/store"
)

const cancelReason = "Sale cancellation"

// Service is the sale transaction and reversal manager.
type Service struct {
	store    store.Store
	ledger   *inventory.Ledger
	observer inventory.Observer
	loc      *time.Location
	now      func() time.Time
	attempts int
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// Location decides what "the same day" means for cancellation. Defaults to UTC.
	Location      *time.Location
	RetryAttempts int
	Clock         func() time.Time
}

// NewService builds Service.
func NewService(st store.Store, ledger *inventory.Ledger, observer inventory.Observer, cfg ServiceConfig) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	if ledger == nil {
		ledger = inventory.NewLedger(clock)
	}
	return &Service{store: st, ledger: ledger, observer: observer, loc: loc, now: clock, attempts: cfg.RetryAttempts}
}

// CreateSale validates the order, locks every medicine, prices the lines from
// the locked snapshot, numbers the bill and writes header, lines and ledger
// rows in one transaction.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleRequest) (domain.Sale, error) {
	lines, err := mergeLines(req.Items)
	if err != nil {
		return domain.Sale{}, err
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		return domain.Sale{}, domain.Errorf(domain.ErrMissingPaymentMethod, "Payment method is required")
	}
	if req.DiscountAmount.IsNegative() {
		return domain.Sale{}, domain.Errorf(domain.ErrInvalidDiscount, "Discount cannot be negative")
	}
	status := req.PaymentStatus
	if status == "" {
		status = domain.PaymentPaid
	}
	if !validPaymentStatus(status) {
		return domain.Sale{}, domain.Errorf(domain.ErrValidation, "Invalid payment status %q", status)
	}

	var (
		sale    domain.Sale
		changed []domain.Medicine
	)
	err = store.WithRetry(ctx, s.store, s.attempts, func(ctx context.Context, tx store.Tx) error {
		changed = changed[:0]
		if req.CustomerID != nil {
			if _, err := tx.CustomerForUpdate(ctx, *req.CustomerID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return domain.Errorf(domain.ErrCustomerNotFound, "Customer with ID %d not found", *req.CustomerID)
				}
				return err
			}
		}

		locked, err := s.lockInOrder(ctx, tx, lines)
		if err != nil {
			return err
		}
		priced := make([]pricing.Line, 0, len(lines))
		for _, l := range lines {
			med := locked[l.MedicineID]
			if med.Stock < l.Quantity {
				return domain.InsufficientStock(med.Name, med.Stock, l.Quantity)
			}
			priced = append(priced, pricing.Line{
				MedicineID:    l.MedicineID,
				Quantity:      l.Quantity,
				UnitPrice:     med.Price,
				GSTPercentage: med.GSTPercentage,
			})
		}

		bill, err := sequence.Next(ctx, tx, store.BillSeries)
		if err != nil {
			return err
		}
		totals, err := pricing.ComputeSaleTotals(priced, req.DiscountAmount)
		if err != nil {
			return err
		}

		sale = domain.Sale{
			CustomerID:     req.CustomerID,
			BillNumber:     bill,
			TotalAmount:    totals.Subtotal,
			DiscountAmount: totals.Discount,
			GSTAmount:      totals.GSTTotal,
			FinalAmount:    totals.FinalAmount,
			PaymentMethod:  method,
			PaymentStatus:  status,
			Notes:          req.Notes,
			CreatedAt:      s.now().UTC().Truncate(time.Microsecond),
		}
		if err := tx.InsertSale(ctx, &sale); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		saleID := sale.ID
		for _, pl := range totals.Lines {
			item := domain.SaleItem{
				SaleID:       sale.ID,
				MedicineID:   pl.MedicineID,
				MedicineName: locked[pl.MedicineID].Name,
				Quantity:     pl.Quantity,
				UnitPrice:    pl.UnitPrice,
				TotalPrice:   pl.TotalPrice,
				GSTAmount:    pl.GSTAmount,
			}
			if err := tx.InsertSaleItem(ctx, &item); err != nil {
				return fmt.Errorf("insert sale item: %w", err)
			}
			med, err := s.ledger.Post(ctx, tx, inventory.Movement{
				MedicineID:    pl.MedicineID,
				Type:          domain.MovementOut,
				Delta:         -pl.Quantity,
				Reason:        "Sale " + bill,
				ReferenceType: domain.RefSale,
				ReferenceID:   &saleID,
			})
			if err != nil {
				return err
			}
			changed = append(changed, med)
			sale.Items = append(sale.Items, item)
		}
		return nil
	})
	if err != nil {
		return domain.Sale{}, err
	}
	s.notify(ctx, changed)
	return sale, nil
}

// CancelSale reverses a sale made on the current calendar day: every line's
// stock is restored through the ledger and the sale is removed. It returns the
// sale as it was before deletion.
func (s *Service) CancelSale(ctx context.Context, id int64) (domain.Sale, error) {
	var (
		sale    domain.Sale
		changed []domain.Medicine
	)
	err := store.WithRetry(ctx, s.store, s.attempts, func(ctx context.Context, tx store.Tx) error {
		changed = changed[:0]
		var err error
		sale, err = tx.SaleForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Errorf(domain.ErrSaleNotFound, "Sale not found")
			}
			return err
		}
		if !s.sameDay(sale.CreatedAt) {
			return domain.Errorf(domain.ErrCancellationWindowExpired, "Sales can only be cancelled on the same day they were made")
		}
		items, err := tx.SaleItems(ctx, id)
		if err != nil {
			return fmt.Errorf("load sale items: %w", err)
		}
		sale.Items = items

		restore := append([]domain.SaleItem(nil), items...)
		sort.SliceStable(restore, func(i, j int) bool { return restore[i].MedicineID < restore[j].MedicineID })
		saleID := sale.ID
		for _, item := range restore {
			med, err := s.ledger.Post(ctx, tx, inventory.Movement{
				MedicineID:    item.MedicineID,
				Type:          domain.MovementIn,
				Delta:         item.Quantity,
				Reason:        cancelReason,
				ReferenceType: domain.RefSaleCancel,
				ReferenceID:   &saleID,
			})
			if err != nil {
				return err
			}
			changed = append(changed, med)
		}
		if err := tx.DeleteSaleItems(ctx, id); err != nil {
			return fmt.Errorf("delete sale items: %w", err)
		}
		if err := tx.DeleteSale(ctx, id); err != nil {
			return fmt.Errorf("delete sale: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Sale{}, err
	}
	s.notify(ctx, changed)
	return sale, nil
}

// UpdateSale changes the payment status and notes of a sale.
func (s *Service) UpdateSale(ctx context.Context, id int64, patch domain.SalePatch) (domain.Sale, error) {
	if patch.PaymentStatus == nil && patch.Notes == nil {
		return domain.Sale{}, domain.Errorf(domain.ErrNoFieldsToUpdate, "No fields to update")
	}
	if patch.PaymentStatus != nil && !validPaymentStatus(*patch.PaymentStatus) {
		return domain.Sale{}, domain.Errorf(domain.ErrValidation, "Invalid payment status %q", *patch.PaymentStatus)
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sale, err := tx.SaleForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Errorf(domain.ErrSaleNotFound, "Sale not found")
			}
			return err
		}
		if patch.PaymentStatus != nil {
			sale.PaymentStatus = *patch.PaymentStatus
		}
		if patch.Notes != nil {
			sale.Notes = *patch.Notes
		}
		return tx.UpdateSale(ctx, sale)
	})
	if err != nil {
		return domain.Sale{}, err
	}
	return s.GetSale(ctx, id)
}

func (s *Service) GetSale(ctx context.Context, id int64) (domain.Sale, error) {
	sale, err := s.store.GetSale(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Sale{}, domain.Errorf(domain.ErrSaleNotFound, "Sale not found")
	}
	return sale, err
}

// ListFilter is the caller-facing sale filter; dates are YYYY-MM-DD in the
// service location and both ends are inclusive.
type ListFilter struct {
	Search        string
	From          string
	To            string
	PaymentMethod string
	CustomerID    int64
	Limit         int
}

func (s *Service) ListSales(ctx context.Context, f ListFilter) ([]domain.SaleSummary, error) {
	filter := domain.SaleFilter{
		Search:        f.Search,
		PaymentMethod: f.PaymentMethod,
		CustomerID:    f.CustomerID,
		Limit:         f.Limit,
	}
	if f.From != "" {
		from, err := time.ParseInLocation(domain.DateLayout, f.From, s.loc)
		if err != nil {
			return nil, domain.Errorf(domain.ErrValidation, "Invalid from date %q", f.From)
		}
		filter.From = from
	}
	if f.To != "" {
		to, err := time.ParseInLocation(domain.DateLayout, f.To, s.loc)
		if err != nil {
			return nil, domain.Errorf(domain.ErrValidation, "Invalid to date %q", f.To)
		}
		filter.To = to.AddDate(0, 0, 1)
	}
	return s.store.ListSales(ctx, filter)
}

func (s *Service) sameDay(createdAt time.Time) bool {
	y1, m1, d1 := createdAt.In(s.loc).Date()
	y2, m2, d2 := s.now().In(s.loc).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// lockInOrder takes the medicine row locks in ascending id order so two
// sales over the same medicines cannot deadlock.
func (s *Service) lockInOrder(ctx context.Context, tx store.LedgerTx, lines []domain.SaleLineRequest) (map[int64]domain.Medicine, error) {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.MedicineID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	locked := make(map[int64]domain.Medicine, len(ids))
	for _, id := range ids {
		med, err := s.ledger.Lock(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = med
	}
	return locked, nil
}

func (s *Service) notify(ctx context.Context, changed []domain.Medicine) {
	if s.observer != nil && len(changed) > 0 {
		s.observer.StockChanged(ctx, changed)
	}
}

// mergeLines validates the requested lines and folds repeated medicines into
// one line, keeping first-seen order.
func mergeLines(items []domain.SaleLineRequest) ([]domain.SaleLineRequest, error) {
	if len(items) == 0 {
		return nil, domain.Errorf(domain.ErrEmptyOrder, "No items provided")
	}
	index := make(map[int64]int, len(items))
	out := make([]domain.SaleLineRequest, 0, len(items))
	for _, item := range items {
		if item.MedicineID <= 0 || item.Quantity <= 0 {
			return nil, domain.Errorf(domain.ErrInvalidItem, "Invalid item data")
		}
		if i, ok := index[item.MedicineID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.MedicineID] = len(out)
		out = append(out, item)
	}
	return out, nil
}

func validPaymentStatus(status string) bool {
	switch status {
	case domain.PaymentPaid, domain.PaymentPending, domain.PaymentPartial:
		return true
	}
	return false
}
