package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go-pos-backoffice/internal/model"
	"go-pos-backoffice/internal/repository"
	"go-pos-backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeStore is an in-memory stand-in for the database. The runner serializes
// transactions with txMu and restores a snapshot on error, so atomicity and
// rollback behave like the real thing.
type fakeStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	products  map[uuid.UUID]model.Product
	customers map[uuid.UUID]model.Customer
	headers   map[uuid.UUID]model.TransactionHeader
	details   map[uuid.UUID]model.TransactionDetail
	discounts map[uuid.UUID]model.TransactionDiscount

	lockOrder    []uuid.UUID
	totalUpdates int

	// monthLocks emulates the per-bucket advisory lock: acquired inside a
	// transaction, held until the transaction ends.
	monthLocks map[string]*sync.Mutex
	heldLocks  []*sync.Mutex

	failCreateDiscount bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:   make(map[uuid.UUID]model.Product),
		customers:  make(map[uuid.UUID]model.Customer),
		headers:    make(map[uuid.UUID]model.TransactionHeader),
		details:    make(map[uuid.UUID]model.TransactionDetail),
		discounts:  make(map[uuid.UUID]model.TransactionDiscount),
		monthLocks: make(map[string]*sync.Mutex),
	}
}

func (s *fakeStore) releaseHeldLocks() {
	s.mu.Lock()
	held := s.heldLocks
	s.heldLocks = nil
	s.mu.Unlock()
	for i := len(held) - 1; i >= 0; i-- {
		held[i].Unlock()
	}
}

func (s *fakeStore) snapshot() *fakeStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := newFakeStore()
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.customers {
		snap.customers[k] = v
	}
	for k, v := range s.headers {
		snap.headers[k] = v
	}
	for k, v := range s.details {
		snap.details[k] = v
	}
	for k, v := range s.discounts {
		snap.discounts[k] = v
	}
	return snap
}

func (s *fakeStore) restore(snap *fakeStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = snap.products
	s.customers = snap.customers
	s.headers = snap.headers
	s.details = snap.details
	s.discounts = snap.discounts
}

type fakeRunner struct {
	store *fakeStore
}

func (r *fakeRunner) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	snap := r.store.snapshot()
	err := fn(nil)
	r.store.releaseHeldLocks()
	if err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

type fakeProductRepo struct {
	store *fakeStore
}

func (r *fakeProductRepo) Create(product *model.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	r.store.products[product.ID] = *product
	return nil
}

func (r *fakeProductRepo) FindAll(search string) ([]model.Product, error) { return nil, nil }

func (r *fakeProductRepo) FindByID(id uuid.UUID) (*model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok {
		return nil, apperror.NewNotFound("Product")
	}
	return &p, nil
}

func (r *fakeProductRepo) FindByCode(code string) (*model.Product, error) {
	return nil, apperror.NewNotFound("Product")
}

func (r *fakeProductRepo) Update(product *model.Product) error { return nil }
func (r *fakeProductRepo) Delete(id uuid.UUID) error           { return nil }
func (r *fakeProductRepo) BulkDelete(ids []uuid.UUID) error    { return nil }

func (r *fakeProductRepo) CountLowStock(threshold int) (int64, error) { return 0, nil }

func (r *fakeProductRepo) LockByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok {
		return nil, apperror.NewNotFound("Product")
	}
	r.store.lockOrder = append(r.store.lockOrder, id)
	return &p, nil
}

func (r *fakeProductRepo) AdjustStock(tx *gorm.DB, product *model.Product, delta int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	newStock := product.Stock + delta
	if newStock < 0 {
		return apperror.ErrInsufficientStock
	}
	stored := r.store.products[product.ID]
	stored.Stock = newStock
	r.store.products[product.ID] = stored
	product.Stock = newStock
	return nil
}

type fakeCustomerRepo struct {
	store *fakeStore
}

func (r *fakeCustomerRepo) Create(customer *model.Customer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	r.store.customers[customer.ID] = *customer
	return nil
}

func (r *fakeCustomerRepo) FindAll(search string) ([]model.Customer, error) { return nil, nil }

func (r *fakeCustomerRepo) FindByID(id uuid.UUID) (*model.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.customers[id]
	if !ok {
		return nil, apperror.NewNotFound("Customer")
	}
	return &c, nil
}

func (r *fakeCustomerRepo) FindByCode(code string) (*model.Customer, error) {
	return nil, apperror.NewNotFound("Customer")
}

func (r *fakeCustomerRepo) Search(q string, limit int) ([]model.Customer, error) { return nil, nil }
func (r *fakeCustomerRepo) Update(customer *model.Customer) error                { return nil }
func (r *fakeCustomerRepo) Delete(id uuid.UUID) error                            { return nil }
func (r *fakeCustomerRepo) BulkDelete(ids []uuid.UUID) error                     { return nil }
func (r *fakeCustomerRepo) CountCreatedBetween(start, end time.Time) (int64, error) {
	return 0, nil
}

type fakeTxRepo struct {
	store *fakeStore
}

func (r *fakeTxRepo) CreateHeader(tx *gorm.DB, header *model.TransactionHeader) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if header.ID == uuid.Nil {
		header.ID = uuid.New()
	}
	r.store.headers[header.ID] = *header
	return nil
}

func (r *fakeTxRepo) FindHeaderByID(id uuid.UUID) (*model.TransactionHeader, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	h, ok := r.store.headers[id]
	if !ok {
		return nil, apperror.NewNotFound("Transaction")
	}
	return &h, nil
}

func (r *fakeTxRepo) FindHeaderForUpdate(tx *gorm.DB, id uuid.UUID) (*model.TransactionHeader, error) {
	return r.FindHeaderByID(id)
}

func (r *fakeTxRepo) FindAllHeaders(search string) ([]model.TransactionHeader, error) {
	return nil, nil
}

func (r *fakeTxRepo) UpdateHeader(header *model.TransactionHeader) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.headers[header.ID] = *header
	return nil
}

func (r *fakeTxRepo) SoftDeleteHeaders(ids []uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, id := range ids {
		delete(r.store.headers, id)
	}
	return nil
}

func (r *fakeTxRepo) UpdateHeaderTotal(tx *gorm.DB, headerID uuid.UUID, total decimal.Decimal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	h := r.store.headers[headerID]
	h.Total = total
	r.store.headers[headerID] = h
	r.store.totalUpdates++
	return nil
}

func (r *fakeTxRepo) AcquireMonthLock(tx *gorm.DB, yearMonth string) error {
	r.store.mu.Lock()
	lock, ok := r.store.monthLocks[yearMonth]
	if !ok {
		lock = &sync.Mutex{}
		r.store.monthLocks[yearMonth] = lock
	}
	r.store.mu.Unlock()

	lock.Lock()

	r.store.mu.Lock()
	r.store.heldLocks = append(r.store.heldLocks, lock)
	r.store.mu.Unlock()
	return nil
}

func (r *fakeTxRepo) LastInvoiceNumber(tx *gorm.DB, year int, month time.Month) (string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	prefix := "INV/" + time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("0601") + "/"
	last := ""
	for _, h := range r.store.headers {
		if strings.HasPrefix(h.InvoiceNumber, prefix) && h.InvoiceNumber > last {
			last = h.InvoiceNumber
		}
	}
	return last, nil
}

func (r *fakeTxRepo) CreateDetail(tx *gorm.DB, detail *model.TransactionDetail) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if detail.ID == uuid.Nil {
		detail.ID = uuid.New()
	}
	r.store.details[detail.ID] = *detail
	return nil
}

func (r *fakeTxRepo) FindDetailByID(id uuid.UUID) (*model.TransactionDetail, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	d, ok := r.store.details[id]
	if !ok {
		return nil, apperror.NewNotFound("Transaction detail")
	}
	return &d, nil
}

func (r *fakeTxRepo) FindDetailsByHeader(headerID uuid.UUID) ([]model.TransactionDetail, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.TransactionDetail
	for _, d := range r.store.details {
		if d.TransactionHeaderID == headerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeTxRepo) LockDetailsByIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.TransactionDetail, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.TransactionDetail
	for _, id := range ids {
		if d, ok := r.store.details[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeTxRepo) UpdateDetail(tx *gorm.DB, detail *model.TransactionDetail) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.details[detail.ID] = *detail
	return nil
}

func (r *fakeTxRepo) UpdateDetailValues(tx *gorm.DB, detailID uuid.UUID, netPrice, subtotal decimal.Decimal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	d := r.store.details[detailID]
	d.NetPrice = netPrice
	d.Subtotal = subtotal
	r.store.details[detailID] = d
	return nil
}

func (r *fakeTxRepo) SoftDeleteDetail(tx *gorm.DB, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.details, id)
	return nil
}

func (r *fakeTxRepo) FindDiscountsByDetail(tx *gorm.DB, detailID uuid.UUID) ([]model.TransactionDiscount, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.TransactionDiscount
	for _, d := range r.store.discounts {
		if d.TransactionDetailID == detailID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeTxRepo) CreateDiscount(tx *gorm.DB, discount *model.TransactionDiscount) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failCreateDiscount {
		return errors.New("simulated write failure")
	}
	if discount.ID == uuid.Nil {
		discount.ID = uuid.New()
	}
	r.store.discounts[discount.ID] = *discount
	return nil
}

func (r *fakeTxRepo) UpdateDiscount(tx *gorm.DB, discount *model.TransactionDiscount) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.discounts[discount.ID] = *discount
	return nil
}

func (r *fakeTxRepo) DeleteDiscounts(tx *gorm.DB, ids []uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, id := range ids {
		delete(r.store.discounts, id)
	}
	return nil
}

func (r *fakeTxRepo) SumDetailSubtotals(tx *gorm.DB, headerID uuid.UUID) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	total := decimal.Zero
	for _, d := range r.store.details {
		if d.TransactionHeaderID == headerID {
			total = total.Add(d.Subtotal)
		}
	}
	return total, nil
}

func (r *fakeTxRepo) RevenueBetween(start, end time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (r *fakeTxRepo) CountHeadersBetween(start, end time.Time) (int64, error) { return 0, nil }
func (r *fakeTxRepo) TopCustomers(start, end time.Time, limit int) ([]repository.TopCustomerRow, error) {
	return nil, nil
}
func (r *fakeTxRepo) TopProducts(start, end time.Time, limit int) ([]repository.TopProductRow, error) {
	return nil, nil
}
func (r *fakeTxRepo) MonthlyRevenue(start, end time.Time) ([]repository.MonthlyRevenueRow, error) {
	return nil, nil
}

type fixture struct {
	store    *fakeStore
	service  TransactionService
	customer *model.Customer
	product  *model.Product
	header   *model.TransactionHeader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	productRepo := &fakeProductRepo{store: store}
	customerRepo := &fakeCustomerRepo{store: store}
	txRepo := &fakeTxRepo{store: store}

	svc := NewTransactionService(txRepo, productRepo, customerRepo, &fakeRunner{store: store}, nil, zerolog.Nop())

	customer := &model.Customer{Code: "CTM00001", Name: "Test Customer"}
	if err := customerRepo.Create(customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	product := &model.Product{
		Code:  "PROD00001",
		Name:  "Test Product",
		Price: decimal.NewFromInt(100000),
		Stock: 10,
	}
	if err := productRepo.Create(product); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	header, err := svc.CreateHeader(context.Background(), HeaderInput{
		CustomerID:  customer.ID,
		InvoiceDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed header: %v", err)
	}

	return &fixture{store: store, service: svc, customer: customer, product: product, header: header}
}

func (f *fixture) stockOf(id uuid.UUID) int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.products[id].Stock
}

func (f *fixture) headerTotal(id uuid.UUID) decimal.Decimal {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.headers[id].Total
}

func wantDecimal(t *testing.T, got decimal.Decimal, want int64) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Errorf("got %s, want %d", got.String(), want)
	}
}

func TestCreateHeaderNumbersSequentially(t *testing.T) {
	f := newFixture(t)

	want := formatInvoiceNumber(time.Now(), 1)
	if f.header.InvoiceNumber != want {
		t.Errorf("first invoice number = %q, want %q", f.header.InvoiceNumber, want)
	}

	second, err := f.service.CreateHeader(context.Background(), HeaderInput{
		CustomerID:  f.customer.ID,
		InvoiceDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateHeader: %v", err)
	}
	want = formatInvoiceNumber(time.Now(), 2)
	if second.InvoiceNumber != want {
		t.Errorf("second invoice number = %q, want %q", second.InvoiceNumber, want)
	}
}

func TestCreateHeaderConcurrentNumbering(t *testing.T) {
	f := newFixture(t)

	const n = 8
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			header, err := f.service.CreateHeader(context.Background(), HeaderInput{
				CustomerID:  f.customer.ID,
				InvoiceDate: time.Now(),
			})
			if err != nil {
				t.Errorf("CreateHeader: %v", err)
				numbers <- ""
				return
			}
			numbers <- header.InvoiceNumber
		}()
	}
	wg.Wait()
	close(numbers)

	// The fixture already holds sequence 1; the concurrent batch must fill
	// 2..n+1 with no duplicates and no gaps.
	want := make(map[string]bool, n)
	for seq := 2; seq <= n+1; seq++ {
		want[formatInvoiceNumber(time.Now(), seq)] = true
	}
	seen := make(map[string]bool, n)
	for num := range numbers {
		if seen[num] {
			t.Errorf("duplicate invoice number %q", num)
		}
		seen[num] = true
		if !want[num] {
			t.Errorf("unexpected invoice number %q", num)
		}
	}
	if len(seen) != n {
		t.Errorf("distinct numbers = %d, want %d", len(seen), n)
	}
}

func TestCreateHeaderUnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateHeader(context.Background(), HeaderInput{
		CustomerID:  uuid.New(),
		InvoiceDate: time.Now(),
	})
	appErr, ok := asAppError(err)
	if !ok || appErr.Code != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestCreateHeaderRejectsFutureDate(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateHeader(context.Background(), HeaderInput{
		CustomerID:  f.customer.ID,
		InvoiceDate: time.Now().AddDate(0, 0, 2),
	})
	appErr, ok := asAppError(err)
	if !ok || appErr.Code != 422 {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestCreateDetailComputesValuesAndDebitsStock(t *testing.T) {
	f := newFixture(t)

	detail, err := f.service.CreateDetail(context.Background(), f.header.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       2,
		Price:     decimal.NewFromInt(100000),
		Discounts: []DiscountInput{
			{Sequence: 1, Type: model.DiscountPercentage, Value: decimal.NewFromInt(10)},
			{Sequence: 2, Type: model.DiscountAmount, Value: decimal.NewFromInt(5000)},
		},
	})
	if err != nil {
		t.Fatalf("CreateDetail: %v", err)
	}

	wantDecimal(t, detail.NetPrice, 85000)
	wantDecimal(t, detail.Subtotal, 170000)
	if got := f.stockOf(f.product.ID); got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}
	wantDecimal(t, f.headerTotal(f.header.ID), 170000)
}

func TestCreateDetailInsufficientStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateDetail(context.Background(), f.header.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       11,
		Price:     decimal.NewFromInt(100000),
	})
	appErr, ok := asAppError(err)
	if !ok || appErr.Code != 422 {
		t.Fatalf("expected 422, got %v", err)
	}
	if got := f.stockOf(f.product.ID); got != 10 {
		t.Errorf("stock = %d, want 10 (unchanged)", got)
	}
}

func TestCreateDetailConcurrentOversell(t *testing.T) {
	f := newFixture(t)
	f.store.mu.Lock()
	p := f.store.products[f.product.ID]
	p.Stock = 5
	f.store.products[f.product.ID] = p
	f.store.mu.Unlock()

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.CreateDetail(context.Background(), f.header.ID, DetailInput{
				ProductID: f.product.ID,
				Qty:       3,
				Price:     decimal.NewFromInt(100000),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var failures int
	for err := range errs {
		if err != nil {
			failures++
			// The loser fails either at the pre-check or at the locked
			// ledger write, depending on interleaving.
			appErr, ok := asAppError(err)
			if !ok || (appErr.Code != 409 && appErr.Code != 422) {
				t.Errorf("unexpected error: %v", err)
			}
		}
	}
	if failures != 1 {
		t.Fatalf("failures = %d, want exactly 1", failures)
	}
	if got := f.stockOf(f.product.ID); got != 2 {
		t.Errorf("stock = %d, want 2", got)
	}
}

func TestUpdateDetailSameProductAdjustsByDiff(t *testing.T) {
	f := newFixture(t)

	detail, err := f.service.CreateDetail(context.Background(), f.header.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       2,
		Price:     decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("CreateDetail: %v", err)
	}

	updated, err := f.service.UpdateDetail(context.Background(), f.header.ID, detail.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       5,
		Price:     decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("UpdateDetail: %v", err)
	}

	if got := f.stockOf(f.product.ID); got != 5 {
		t.Errorf("stock = %d, want 5", got)
	}
	wantDecimal(t, updated.Subtotal, 500000)
	wantDecimal(t, f.headerTotal(f.header.ID), 500000)
}

func TestUpdateDetailQtyBoundedByStockPlusOwnQty(t *testing.T) {
	f := newFixture(t)

	detail, err := f.service.CreateDetail(context.Background(), f.header.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       4,
		Price:     decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("CreateDetail: %v", err)
	}

	// Stock is now 6; the detail already holds 4, so up to 10 is allowed.
	if _, err := f.service.UpdateDetail(context.Background(), f.header.ID, detail.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       10,
		Price:     decimal.NewFromInt(100000),
	}); err != nil {
		t.Fatalf("UpdateDetail to full stock: %v", err)
	}
	if got := f.stockOf(f.product.ID); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}

	_, err = f.service.UpdateDetail(context.Background(), f.header.ID, detail.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       11,
		Price:     decimal.NewFromInt(100000),
	})
	appErr, ok := asAppError(err)
	if !ok || appErr.Code != 422 {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestUpdateDetailProductSwap(t *testing.T) {
	f := newFixture(t)

	other := &model.Product{
		Code:  "PROD00002",
		Name:  "Other Product",
		Price: decimal.NewFromInt(50000),
		Stock: 3,
	}
	if err := (&fakeProductRepo{store: f.store}).Create(other); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	detail, err := f.service.CreateDetail(context.Background(), f.header.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       4,
		Price:     decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("CreateDetail: %v", err)
	}

	f.store.mu.Lock()
	f.store.lockOrder = nil
	f.store.mu.Unlock()

	updated, err := f.service.UpdateDetail(context.Background(), f.header.ID, detail.ID, DetailInput{
		ProductID: other.ID,
		Qty:       2,
		Price:     decimal.NewFromInt(50000),
	})
	if err != nil {
		t.Fatalf("UpdateDetail swap: %v", err)
	}

	// Old product credited its full 4, new product debited 2.
	if got := f.stockOf(f.product.ID); got != 10 {
		t.Errorf("old product stock = %d, want 10", got)
	}
	if got := f.stockOf(other.ID); got != 1 {
		t.Errorf("new product stock = %d, want 1", got)
	}
	wantDecimal(t, updated.Subtotal, 100000)
	wantDecimal(t, f.headerTotal(f.header.ID), 100000)

	f.store.mu.Lock()
	order := append([]uuid.UUID(nil), f.store.lockOrder...)
	f.store.mu.Unlock()
	if len(order) != 2 {
		t.Fatalf("lock count = %d, want 2", len(order))
	}
	if order[0].String() > order[1].String() {
		t.Errorf("locks taken out of order: %s before %s", order[0], order[1])
	}
}

func TestUpdateDetailWrongHeader(t *testing.T) {
	f := newFixture(t)

	detail, err := f.service.CreateDetail(context.Background(), f.header.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       1,
		Price:     decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("CreateDetail: %v", err)
	}

	_, err = f.service.UpdateDetail(context.Background(), uuid.New(), detail.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       1,
		Price:     decimal.NewFromInt(100000),
	})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteDetailCreditsStock(t *testing.T) {
	f := newFixture(t)

	keep, err := f.service.CreateDetail(context.Background(), f.header.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       2,
		Price:     decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("CreateDetail: %v", err)
	}
	drop, err := f.service.CreateDetail(context.Background(), f.header.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       3,
		Price:     decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("CreateDetail: %v", err)
	}

	if err := f.service.DeleteDetail(context.Background(), f.header.ID, drop.ID); err != nil {
		t.Fatalf("DeleteDetail: %v", err)
	}

	if got := f.stockOf(f.product.ID); got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}
	wantDecimal(t, f.headerTotal(f.header.ID), keep.Subtotal.IntPart())
}

func TestBulkDeleteDetailsRecomputesOnce(t *testing.T) {
	f := newFixture(t)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		d, err := f.service.CreateDetail(context.Background(), f.header.ID, DetailInput{
			ProductID: f.product.ID,
			Qty:       2,
			Price:     decimal.NewFromInt(100000),
		})
		if err != nil {
			t.Fatalf("CreateDetail: %v", err)
		}
		ids = append(ids, d.ID)
	}

	f.store.mu.Lock()
	f.store.totalUpdates = 0
	f.store.mu.Unlock()

	if err := f.service.BulkDeleteDetails(context.Background(), f.header.ID, ids); err != nil {
		t.Fatalf("BulkDeleteDetails: %v", err)
	}

	if got := f.stockOf(f.product.ID); got != 10 {
		t.Errorf("stock = %d, want 10", got)
	}
	wantDecimal(t, f.headerTotal(f.header.ID), 0)

	f.store.mu.Lock()
	updates := f.store.totalUpdates
	f.store.mu.Unlock()
	if updates != 1 {
		t.Errorf("header total recomputed %d times, want 1", updates)
	}
}

func TestCreateDetailRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	f.store.failCreateDiscount = true

	_, err := f.service.CreateDetail(context.Background(), f.header.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       2,
		Price:     decimal.NewFromInt(100000),
		Discounts: []DiscountInput{
			{Sequence: 1, Type: model.DiscountPercentage, Value: decimal.NewFromInt(10)},
		},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	if got := f.stockOf(f.product.ID); got != 10 {
		t.Errorf("stock = %d, want 10 (rolled back)", got)
	}
	details, _ := f.service.ListDetails(f.header.ID)
	if len(details) != 0 {
		t.Errorf("details = %d, want 0 (rolled back)", len(details))
	}
	wantDecimal(t, f.headerTotal(f.header.ID), 0)
}

func TestUpdateDetailRecomputeIsIdempotent(t *testing.T) {
	f := newFixture(t)

	detail, err := f.service.CreateDetail(context.Background(), f.header.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       2,
		Price:     decimal.NewFromInt(100000),
		Discounts: []DiscountInput{
			{Sequence: 1, Type: model.DiscountPercentage, Value: decimal.NewFromInt(10)},
		},
	})
	if err != nil {
		t.Fatalf("CreateDetail: %v", err)
	}

	// Resubmitting the identical line must not drift stock or totals.
	discounts, _ := (&fakeTxRepo{store: f.store}).FindDiscountsByDetail(nil, detail.ID)
	if len(discounts) != 1 {
		t.Fatalf("discounts = %d, want 1", len(discounts))
	}
	discID := discounts[0].ID

	for i := 0; i < 2; i++ {
		if _, err := f.service.UpdateDetail(context.Background(), f.header.ID, detail.ID, DetailInput{
			ProductID: f.product.ID,
			Qty:       2,
			Price:     decimal.NewFromInt(100000),
			Discounts: []DiscountInput{
				{ID: &discID, Sequence: 1, Type: model.DiscountPercentage, Value: decimal.NewFromInt(10)},
			},
		}); err != nil {
			t.Fatalf("UpdateDetail pass %d: %v", i+1, err)
		}
	}

	if got := f.stockOf(f.product.ID); got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}
	wantDecimal(t, f.headerTotal(f.header.ID), 180000)
}

func TestDeleteHeaderKeepsStock(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.CreateDetail(context.Background(), f.header.ID, DetailInput{
		ProductID: f.product.ID,
		Qty:       2,
		Price:     decimal.NewFromInt(100000),
	}); err != nil {
		t.Fatalf("CreateDetail: %v", err)
	}

	if err := f.service.DeleteHeader(context.Background(), f.header.ID); err != nil {
		t.Fatalf("DeleteHeader: %v", err)
	}

	// Removing the invoice itself is an archival act; stock stays consumed.
	if got := f.stockOf(f.product.ID); got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}
}

func TestDiffDiscounts(t *testing.T) {
	detailID := uuid.New()
	keepID := uuid.New()
	dropID := uuid.New()

	existing := []model.TransactionDiscount{
		{BaseModel: model.BaseModel{ID: keepID}, TransactionDetailID: detailID, Sequence: 1, Type: model.DiscountPercentage, Value: decimal.NewFromInt(10)},
		{BaseModel: model.BaseModel{ID: dropID}, TransactionDetailID: detailID, Sequence: 2, Type: model.DiscountAmount, Value: decimal.NewFromInt(5000)},
	}
	submitted := []DiscountInput{
		{ID: &keepID, Sequence: 1, Type: model.DiscountPercentage, Value: decimal.NewFromInt(15)},
		{Sequence: 2, Type: model.DiscountAmount, Value: decimal.NewFromInt(2000)},
	}

	diff := diffDiscounts(detailID, existing, submitted)

	if len(diff.toUpdate) != 1 || diff.toUpdate[0].ID != keepID {
		t.Errorf("toUpdate = %+v, want single row %s", diff.toUpdate, keepID)
	}
	if !diff.toUpdate[0].Value.Equal(decimal.NewFromInt(15)) {
		t.Errorf("updated value = %s, want 15", diff.toUpdate[0].Value)
	}
	if len(diff.toCreate) != 1 || !diff.toCreate[0].Value.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("toCreate = %+v, want single new row of 2000", diff.toCreate)
	}
	if len(diff.toDelete) != 1 || diff.toDelete[0] != dropID {
		t.Errorf("toDelete = %v, want [%s]", diff.toDelete, dropID)
	}
}
