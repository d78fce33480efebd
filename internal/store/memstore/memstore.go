// Package memstore is an in-memory store.Store. Transactions are serialised by
// a store-wide lock and roll back by restoring a snapshot, which makes it a
// drop-in double for the SQL store in service and handler tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"medstore/m/domain"
	"medstore/m/internal/sequence"
	"medstore/m/internal/store"
)

type state struct {
	medicines         map[int64]domain.Medicine
	movements         []domain.StockMovement
	sales             map[int64]domain.Sale
	saleItems         []domain.SaleItem
	customers         map[int64]domain.Customer
	prescriptions     map[int64]domain.Prescription
	prescriptionItems []domain.PrescriptionItem
	nextID            int64
}

func newState() state {
	return state{
		medicines:     make(map[int64]domain.Medicine),
		sales:         make(map[int64]domain.Sale),
		customers:     make(map[int64]domain.Customer),
		prescriptions: make(map[int64]domain.Prescription),
	}
}

func (s state) clone() state {
	c := state{
		medicines:         make(map[int64]domain.Medicine, len(s.medicines)),
		movements:         append([]domain.StockMovement(nil), s.movements...),
		sales:             make(map[int64]domain.Sale, len(s.sales)),
		saleItems:         append([]domain.SaleItem(nil), s.saleItems...),
		customers:         make(map[int64]domain.Customer, len(s.customers)),
		prescriptions:     make(map[int64]domain.Prescription, len(s.prescriptions)),
		prescriptionItems: append([]domain.PrescriptionItem(nil), s.prescriptionItems...),
		nextID:            s.nextID,
	}
	for k, v := range s.medicines {
		c.medicines[k] = v
	}
	for k, v := range s.sales {
		c.sales[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.prescriptions {
		c.prescriptions[k] = v
	}
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store implements store.Store in memory.
type Store struct {
	mu     sync.Mutex
	state  state
	faults map[string]*fault
}

type fault struct {
	err       error
	remaining int // negative means forever
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{state: newState(), faults: make(map[string]*fault)}
}

// FailOn makes every later call of the named Tx method return err. A nil err
// clears the fault.
func (s *Store) FailOn(method string, err error) {
	s.FailTimes(method, err, -1)
}

// FailTimes makes the next n calls of the named Tx method return err.
func (s *Store) FailTimes(method string, err error, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil || n == 0 {
		delete(s.faults, method)
		return
	}
	s.faults[method] = &fault{err: err, remaining: n}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.state.clone()
	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// Movements returns every ledger row for a medicine in insertion order.
func (s *Store) Movements(medicineID int64) []domain.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StockMovement
	for _, m := range s.state.movements {
		if m.MedicineID == medicineID {
			out = append(out, m)
		}
	}
	return out
}

// SaleCount returns the number of stored sale headers and lines.
func (s *Store) SaleCount() (sales, items int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.sales), len(s.state.saleItems)
}

func (s *Store) GetMedicine(_ context.Context, id int64) (domain.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.medicines[id]
	if !ok {
		return domain.Medicine{}, store.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListMedicines(_ context.Context, filter domain.MedicineFilter, now time.Time) ([]domain.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]domain.Medicine, 0, len(s.state.medicines))
	for _, m := range s.state.medicines {
		if search != "" && !containsAny(search, m.Name, m.Brand, m.Category) {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(filter.Category, m.Category) {
			continue
		}
		if filter.Status != "" && domain.ClassifyStock(m, now) != filter.Status {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListMovements(_ context.Context, medicineID int64, limit int) ([]domain.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StockMovement
	for i := len(s.state.movements) - 1; i >= 0; i-- {
		if m := s.state.movements[i]; m.MedicineID == medicineID {
			out = append(out, m)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) GetSale(_ context.Context, id int64) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.state.sales[id]
	if !ok {
		return domain.Sale{}, store.ErrNotFound
	}
	sale.Items = s.state.itemsOf(id)
	return sale, nil
}

func (s *Store) ListSales(_ context.Context, filter domain.SaleFilter) ([]domain.SaleSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []domain.SaleSummary
	for _, sale := range s.state.sales {
		var cust domain.Customer
		if sale.CustomerID != nil {
			cust = s.state.customers[*sale.CustomerID]
		}
		if search != "" && !containsAny(search, sale.BillNumber, cust.Name, cust.Phone) {
			continue
		}
		if !filter.From.IsZero() && sale.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !sale.CreatedAt.Before(filter.To) {
			continue
		}
		if filter.PaymentMethod != "" && sale.PaymentMethod != filter.PaymentMethod {
			continue
		}
		if filter.CustomerID != 0 && (sale.CustomerID == nil || *sale.CustomerID != filter.CustomerID) {
			continue
		}
		out = append(out, domain.SaleSummary{
			ID:            sale.ID,
			BillNumber:    sale.BillNumber,
			FinalAmount:   sale.FinalAmount,
			PaymentMethod: sale.PaymentMethod,
			PaymentStatus: sale.PaymentStatus,
			CustomerName:  cust.Name,
			CustomerPhone: cust.Phone,
			ItemCount:     int64(len(s.state.itemsOf(sale.ID))),
			CreatedAt:     sale.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) GetCustomer(_ context.Context, id int64) (domain.CustomerSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.customers[id]
	if !ok {
		return domain.CustomerSummary{}, store.ErrNotFound
	}
	return s.state.summarize(c), nil
}

func (s *Store) ListCustomers(_ context.Context, search string) ([]domain.CustomerSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	search = strings.ToLower(strings.TrimSpace(search))
	var out []domain.CustomerSummary
	for _, c := range s.state.customers {
		if search != "" && !containsAny(search, c.Name, c.Phone, c.Email) {
			continue
		}
		out = append(out, s.state.summarize(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetPrescription(_ context.Context, id int64) (domain.Prescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.prescriptions[id]
	if !ok {
		return domain.Prescription{}, store.ErrNotFound
	}
	for _, item := range s.state.prescriptionItems {
		if item.PrescriptionID == id {
			item.MedicineName = s.state.medicines[item.MedicineID].Name
			p.Items = append(p.Items, item)
		}
	}
	return p, nil
}

func (s *Store) ListPrescriptions(_ context.Context, filter domain.PrescriptionFilter) ([]domain.PrescriptionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []domain.PrescriptionSummary
	for _, p := range s.state.prescriptions {
		cust := s.state.customers[p.CustomerID]
		if search != "" && !containsAny(search, p.PrescriptionNumber, p.DoctorName, cust.Name, cust.Phone) {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		sum := domain.PrescriptionSummary{Prescription: p, CustomerName: cust.Name, CustomerPhone: cust.Phone}
		for _, item := range s.state.prescriptionItems {
			if item.PrescriptionID != p.ID {
				continue
			}
			sum.ItemCount++
			if item.Status == domain.PrescriptionFulfilled {
				sum.FulfilledCount++
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *state) itemsOf(saleID int64) []domain.SaleItem {
	var out []domain.SaleItem
	for _, item := range s.saleItems {
		if item.SaleID == saleID {
			item.MedicineName = s.medicines[item.MedicineID].Name
			out = append(out, item)
		}
	}
	return out
}

func (s *state) summarize(c domain.Customer) domain.CustomerSummary {
	sum := domain.CustomerSummary{Customer: c, TotalPurchases: decimal.Zero}
	for _, sale := range s.sales {
		if sale.CustomerID == nil || *sale.CustomerID != c.ID {
			continue
		}
		sum.TotalOrders++
		sum.TotalPurchases = sum.TotalPurchases.Add(sale.FinalAmount)
		if sum.LastVisit == nil || sale.CreatedAt.After(*sum.LastVisit) {
			at := sale.CreatedAt
			sum.LastVisit = &at
		}
	}
	return sum
}

func containsAny(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// memTx runs with Store.mu held by WithTx.
type memTx struct {
	s *Store
}

func (tx *memTx) st() *state { return &tx.s.state }

func (tx *memTx) fault(method string) error {
	f, ok := tx.s.faults[method]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(tx.s.faults, method)
		}
	}
	return fmt.Errorf("memstore %s: %w", method, f.err)
}

func (tx *memTx) MedicineForUpdate(_ context.Context, id int64) (domain.Medicine, error) {
	if err := tx.fault("MedicineForUpdate"); err != nil {
		return domain.Medicine{}, err
	}
	m, ok := tx.st().medicines[id]
	if !ok {
		return domain.Medicine{}, store.ErrNotFound
	}
	return m, nil
}

func (tx *memTx) SetMedicineStock(_ context.Context, id, stock int64, at time.Time) error {
	if err := tx.fault("SetMedicineStock"); err != nil {
		return err
	}
	m, ok := tx.st().medicines[id]
	if !ok {
		return store.ErrNotFound
	}
	if stock < 0 {
		return fmt.Errorf("memstore: stock check violated for medicine %d", id)
	}
	m.Stock = stock
	m.UpdatedAt = at
	tx.st().medicines[id] = m
	return nil
}

func (tx *memTx) InsertMovement(_ context.Context, m *domain.StockMovement) error {
	if err := tx.fault("InsertMovement"); err != nil {
		return err
	}
	m.ID = tx.st().id()
	tx.st().movements = append(tx.st().movements, *m)
	return nil
}

func (tx *memTx) MaxSeriesNumber(_ context.Context, series store.Series) (int64, error) {
	if err := tx.fault("MaxSeriesNumber"); err != nil {
		return 0, err
	}
	var ids []string
	switch series.Table {
	case store.BillSeries.Table:
		for _, s := range tx.st().sales {
			ids = append(ids, s.BillNumber)
		}
	case store.PrescriptionSeries.Table:
		for _, p := range tx.st().prescriptions {
			ids = append(ids, p.PrescriptionNumber)
		}
	default:
		return 0, fmt.Errorf("memstore: unknown series table %q", series.Table)
	}
	var last int64
	for _, id := range ids {
		if n, ok := sequence.Parse(series, id); ok && n > last {
			last = n
		}
	}
	return last, nil
}

func (tx *memTx) InsertSale(_ context.Context, sale *domain.Sale) error {
	if err := tx.fault("InsertSale"); err != nil {
		return err
	}
	for _, existing := range tx.st().sales {
		if existing.BillNumber == sale.BillNumber {
			return store.ErrDuplicate
		}
	}
	sale.ID = tx.st().id()
	row := *sale
	row.Items = nil
	tx.st().sales[sale.ID] = row
	return nil
}

func (tx *memTx) InsertSaleItem(_ context.Context, item *domain.SaleItem) error {
	if err := tx.fault("InsertSaleItem"); err != nil {
		return err
	}
	item.ID = tx.st().id()
	tx.st().saleItems = append(tx.st().saleItems, *item)
	return nil
}

func (tx *memTx) SaleForUpdate(_ context.Context, id int64) (domain.Sale, error) {
	if err := tx.fault("SaleForUpdate"); err != nil {
		return domain.Sale{}, err
	}
	sale, ok := tx.st().sales[id]
	if !ok {
		return domain.Sale{}, store.ErrNotFound
	}
	return sale, nil
}

func (tx *memTx) SaleItems(_ context.Context, saleID int64) ([]domain.SaleItem, error) {
	if err := tx.fault("SaleItems"); err != nil {
		return nil, err
	}
	return tx.st().itemsOf(saleID), nil
}

func (tx *memTx) UpdateSale(_ context.Context, sale domain.Sale) error {
	if err := tx.fault("UpdateSale"); err != nil {
		return err
	}
	existing, ok := tx.st().sales[sale.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.PaymentStatus = sale.PaymentStatus
	existing.Notes = sale.Notes
	tx.st().sales[sale.ID] = existing
	return nil
}

func (tx *memTx) DeleteSaleItems(_ context.Context, saleID int64) error {
	if err := tx.fault("DeleteSaleItems"); err != nil {
		return err
	}
	kept := tx.st().saleItems[:0]
	for _, item := range tx.st().saleItems {
		if item.SaleID != saleID {
			kept = append(kept, item)
		}
	}
	tx.st().saleItems = kept
	return nil
}

func (tx *memTx) DeleteSale(_ context.Context, id int64) error {
	if err := tx.fault("DeleteSale"); err != nil {
		return err
	}
	if _, ok := tx.st().sales[id]; !ok {
		return store.ErrNotFound
	}
	delete(tx.st().sales, id)
	return nil
}

func (tx *memTx) InsertMedicine(_ context.Context, m *domain.Medicine) error {
	if err := tx.fault("InsertMedicine"); err != nil {
		return err
	}
	m.ID = tx.st().id()
	tx.st().medicines[m.ID] = *m
	return nil
}

func (tx *memTx) UpdateMedicine(_ context.Context, m domain.Medicine) error {
	if err := tx.fault("UpdateMedicine"); err != nil {
		return err
	}
	existing, ok := tx.st().medicines[m.ID]
	if !ok {
		return store.ErrNotFound
	}
	m.Stock = existing.Stock
	m.CreatedAt = existing.CreatedAt
	m.Status = ""
	tx.st().medicines[m.ID] = m
	return nil
}

func (tx *memTx) DeleteMedicine(_ context.Context, id int64) error {
	if err := tx.fault("DeleteMedicine"); err != nil {
		return err
	}
	if _, ok := tx.st().medicines[id]; !ok {
		return store.ErrNotFound
	}
	delete(tx.st().medicines, id)
	return nil
}

func (tx *memTx) MedicineReferenced(_ context.Context, id int64) (bool, error) {
	for _, item := range tx.st().saleItems {
		if item.MedicineID == id {
			return true, nil
		}
	}
	for _, item := range tx.st().prescriptionItems {
		if item.MedicineID == id {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memTx) CustomerForUpdate(_ context.Context, id int64) (domain.Customer, error) {
	c, ok := tx.st().customers[id]
	if !ok {
		return domain.Customer{}, store.ErrNotFound
	}
	return c, nil
}

func (tx *memTx) CustomerIDByPhone(_ context.Context, phone string) (int64, error) {
	for _, c := range tx.st().customers {
		if c.Phone == phone {
			return c.ID, nil
		}
	}
	return 0, store.ErrNotFound
}

func (tx *memTx) InsertCustomer(ctx context.Context, c *domain.Customer) error {
	if err := tx.fault("InsertCustomer"); err != nil {
		return err
	}
	if _, err := tx.CustomerIDByPhone(ctx, c.Phone); err == nil {
		return store.ErrDuplicate
	}
	c.ID = tx.st().id()
	tx.st().customers[c.ID] = *c
	return nil
}

func (tx *memTx) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	existing, ok := tx.st().customers[c.ID]
	if !ok {
		return store.ErrNotFound
	}
	if id, err := tx.CustomerIDByPhone(ctx, c.Phone); err == nil && id != c.ID {
		return store.ErrDuplicate
	}
	c.CreatedAt = existing.CreatedAt
	tx.st().customers[c.ID] = c
	return nil
}

func (tx *memTx) DeleteCustomer(_ context.Context, id int64) error {
	if _, ok := tx.st().customers[id]; !ok {
		return store.ErrNotFound
	}
	delete(tx.st().customers, id)
	return nil
}

func (tx *memTx) CustomerReferenced(_ context.Context, id int64) (bool, error) {
	for _, sale := range tx.st().sales {
		if sale.CustomerID != nil && *sale.CustomerID == id {
			return true, nil
		}
	}
	for _, p := range tx.st().prescriptions {
		if p.CustomerID == id {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memTx) PrescriptionForUpdate(_ context.Context, id int64) (domain.Prescription, error) {
	p, ok := tx.st().prescriptions[id]
	if !ok {
		return domain.Prescription{}, store.ErrNotFound
	}
	return p, nil
}

func (tx *memTx) InsertPrescription(_ context.Context, p *domain.Prescription) error {
	if err := tx.fault("InsertPrescription"); err != nil {
		return err
	}
	for _, existing := range tx.st().prescriptions {
		if existing.PrescriptionNumber == p.PrescriptionNumber {
			return store.ErrDuplicate
		}
	}
	p.ID = tx.st().id()
	row := *p
	row.Items = nil
	tx.st().prescriptions[p.ID] = row
	return nil
}

func (tx *memTx) InsertPrescriptionItem(_ context.Context, item *domain.PrescriptionItem) error {
	if err := tx.fault("InsertPrescriptionItem"); err != nil {
		return err
	}
	item.ID = tx.st().id()
	tx.st().prescriptionItems = append(tx.st().prescriptionItems, *item)
	return nil
}

func (tx *memTx) UpdatePrescription(_ context.Context, p domain.Prescription) error {
	existing, ok := tx.st().prescriptions[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.DoctorName = p.DoctorName
	existing.Status = p.Status
	existing.Notes = p.Notes
	existing.UpdatedAt = p.UpdatedAt
	tx.st().prescriptions[p.ID] = existing
	return nil
}
