package orders

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tundeabiodun/handyfix-backend/internal/ledger"
	"github.com/tundeabiodun/handyfix-backend/internal/users"
	"github.com/tundeabiodun/handyfix-backend/pkg/config"
	"github.com/tundeabiodun/handyfix-backend/pkg/db/models"
	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
	"github.com/tundeabiodun/handyfix-backend/pkg/errors"
	"github.com/tundeabiodun/handyfix-backend/pkg/types"
)

// ---- fakes -----------------------------------------------------------------

type fakeOrdersRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newFakeOrdersRepo() *fakeOrdersRepo {
	return &fakeOrdersRepo{orders: map[uuid.UUID]*models.Order{}}
}

func copyOrder(o *models.Order) *models.Order {
	clone := *o
	return &clone
}

func (f *fakeOrdersRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	f.orders[order.ID] = copyOrder(order)
	return nil
}

func (f *fakeOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if stored, ok := f.orders[id]; ok {
		return copyOrder(stored), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrdersRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.CustomerID == userID || (o.ProviderID != nil && *o.ProviderID == userID) {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (f *fakeOrdersRepo) ListAll(ctx context.Context, status *enums.OrderStatus, limit, offset int) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if status == nil || o.Status == *status {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (f *fakeOrdersRepo) ListMarketplace(ctx context.Context, match MarketplaceMatch) ([]models.Order, error) {
	skills := map[string]bool{}
	for _, s := range match.Skills {
		skills[s] = true
	}
	var out []models.Order
	for _, o := range f.orders {
		if o.Status != enums.OrderStatusRequested || o.ProviderID != nil {
			continue
		}
		if o.Country != match.Country || o.State != match.State || o.LGA != match.LGA {
			continue
		}
		if !skills[o.ServiceKey] {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	return out, nil
}

func (f *fakeOrdersRepo) Assign(ctx context.Context, orderID, providerID uuid.UUID, timeline []types.TimelineEntry) (bool, error) {
	stored, ok := f.orders[orderID]
	if !ok {
		return false, nil
	}
	if stored.Status != enums.OrderStatusRequested || stored.ProviderID != nil {
		return false, nil
	}
	stored.ProviderID = &providerID
	stored.Status = enums.OrderStatusAccepted
	stored.Timeline = timeline
	return true, nil
}

func (f *fakeOrdersRepo) UpdateGuarded(ctx context.Context, order *models.Order, expected enums.OrderStatus) (bool, error) {
	stored, ok := f.orders[order.ID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	order.UpdatedAt = time.Now().UTC()
	f.orders[order.ID] = copyOrder(order)
	return true, nil
}

func (f *fakeOrdersRepo) SetRating(ctx context.Context, orderID uuid.UUID, side RatingSide, rating *types.OrderRating) (bool, error) {
	stored, ok := f.orders[orderID]
	if !ok || stored.Status != enums.OrderStatusCompleted {
		return false, nil
	}
	switch side {
	case RatingSideCustomer:
		if stored.CustomerRating != nil {
			return false, nil
		}
		stored.CustomerRating = rating
	case RatingSideHandyman:
		if stored.HandymanRating != nil {
			return false, nil
		}
		stored.HandymanRating = rating
	default:
		return false, nil
	}
	return true, nil
}

type fakeUsersRepo struct {
	users map[uuid.UUID]*models.User
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: map[uuid.UUID]*models.User{}}
}

func (f *fakeUsersRepo) WithTx(tx *gorm.DB) users.Repository { return f }

func (f *fakeUsersRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.ID = uuid.New()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsersRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsersRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			out = append(out, *user)
		}
	}
	return out, nil
}

func (f *fakeUsersRepo) List(ctx context.Context, role *enums.Role, limit, offset int) ([]models.User, error) {
	return nil, nil
}

func (f *fakeUsersRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

func (f *fakeUsersRepo) UpdateProviderProfile(ctx context.Context, id uuid.UUID, profile *types.ProviderProfile) error {
	f.users[id].ProviderProfile = profile
	return nil
}

func (f *fakeUsersRepo) UpdateAvatar(ctx context.Context, id uuid.UUID, url string) error {
	return nil
}

func (f *fakeUsersRepo) ApplyCustomerRating(ctx context.Context, id uuid.UUID, stars int) error {
	user, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	total := user.RatingAsCustomerAvg*float64(user.RatingAsCustomerCount) + float64(stars)
	user.RatingAsCustomerCount++
	user.RatingAsCustomerAvg = total / float64(user.RatingAsCustomerCount)
	return nil
}

func (f *fakeUsersRepo) ApplyHandymanRating(ctx context.Context, id uuid.UUID, stars int) error {
	user, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	total := user.RatingAsHandymanAvg*float64(user.RatingAsHandymanCount) + float64(stars)
	user.RatingAsHandymanCount++
	user.RatingAsHandymanAvg = total / float64(user.RatingAsHandymanCount)
	return nil
}

// fakeLedgerRepo backs the real ledger service so fee math and ledger entry
// shapes are exercised end to end.
type fakeLedgerRepo struct {
	balances map[uuid.UUID]int64
	entries  []*models.Transaction
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{balances: map[uuid.UUID]int64{}}
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return f }

func (f *fakeLedgerRepo) Create(ctx context.Context, entry *models.Transaction) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLedgerRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeLedgerRepo) DebitWallet(ctx context.Context, userID uuid.UUID, amount int64) (bool, error) {
	if f.balances[userID] < amount {
		return false, nil
	}
	f.balances[userID] -= amount
	return true, nil
}

func (f *fakeLedgerRepo) CreditWallet(ctx context.Context, userID uuid.UUID, amount int64) error {
	if _, ok := f.balances[userID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.balances[userID] += amount
	return nil
}

func (f *fakeLedgerRepo) entriesFor(userID uuid.UUID) []*models.Transaction {
	var out []*models.Transaction
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// fakeTxRunner runs the transaction body directly. An optional beforeTx hook
// fires once just before the next body, standing in for a competing request
// that commits between a service's snapshot read and its own transaction.
type fakeTxRunner struct {
	beforeTx func()
}

func (r *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.beforeTx != nil {
		hook := r.beforeTx
		r.beforeTx = nil
		hook()
	}
	return fn(nil)
}

type fakeFileStore struct {
	url   string
	saves int
	files map[string]bool
}

func (f *fakeFileStore) Save(ctx context.Context, prefix string, content []byte, ext string) (string, error) {
	if f.files == nil {
		f.files = map[string]bool{}
	}
	f.saves++
	url := fmt.Sprintf("%s/%s_%d%s", f.url, prefix, f.saves, ext)
	f.files[url] = true
	return url, nil
}

func (f *fakeFileStore) Remove(ctx context.Context, url string) error {
	delete(f.files, url)
	return nil
}

// minimal PNG payload that passes image sniffing
var pngBytes = []byte{
	0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a,
	0, 0, 0, 0x0d, 'I', 'H', 'D', 'R',
	0, 0, 0, 1, 0, 0, 0, 1, 8, 2, 0, 0, 0,
	0x90, 0x77, 0x53, 0xde,
	0, 0, 0, 0, 'I', 'E', 'N', 'D', 0xae, 0x42, 0x60, 0x82,
}

// ---- test environment ------------------------------------------------------

type testEnv struct {
	svc        Service
	ordersRepo *fakeOrdersRepo
	usersRepo  *fakeUsersRepo
	ledgerRepo *fakeLedgerRepo
	txRunner   *fakeTxRunner
	files      *fakeFileStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ordersRepo := newFakeOrdersRepo()
	usersRepo := newFakeUsersRepo()
	ledgerRepo := newFakeLedgerRepo()
	txRunner := &fakeTxRunner{}
	files := &fakeFileStore{url: "/uploads"}

	fees := config.FeesConfig{PlatformFeePercent: 10, CommissionPercent: 10, Currency: "NGN"}

	ledgerSvc, err := ledger.NewService(ledgerRepo, txRunner, fees)
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}

	svc, err := NewService(ServiceParams{
		Repo:       ordersRepo,
		Users:      usersRepo,
		Ledger:     ledgerSvc,
		Files:      files,
		TxRunner:   txRunner,
		FeesConfig: fees,
	})
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}

	return &testEnv{
		svc:        svc,
		ordersRepo: ordersRepo,
		usersRepo:  usersRepo,
		ledgerRepo: ledgerRepo,
		txRunner:   txRunner,
		files:      files,
	}
}

func (e *testEnv) addCustomer(balance int64) Actor {
	user := &models.User{ID: uuid.New(), Role: enums.RoleCustomer, Username: "customer"}
	e.usersRepo.users[user.ID] = user
	e.ledgerRepo.balances[user.ID] = balance
	return Actor{ID: user.ID, Role: enums.RoleCustomer}
}

func (e *testEnv) addProvider(profile *types.ProviderProfile) Actor {
	user := &models.User{ID: uuid.New(), Role: enums.RoleProvider, Username: "fixit", ProviderProfile: profile}
	e.usersRepo.users[user.ID] = user
	e.ledgerRepo.balances[user.ID] = 0
	return Actor{ID: user.ID, Role: enums.RoleProvider}
}

func (e *testEnv) addAdmin() Actor {
	user := &models.User{ID: uuid.New(), Role: enums.RoleAdmin, Username: "admin"}
	e.usersRepo.users[user.ID] = user
	return Actor{ID: user.ID, Role: enums.RoleAdmin}
}

func lagosPlumberProfile() *types.ProviderProfile {
	return &types.ProviderProfile{
		Country:   "Nigeria",
		State:     "Lagos",
		LGA:       "Ikeja",
		Skills:    []string{"plumbing"},
		Available: true,
	}
}

func (e *testEnv) createOrder(t *testing.T, customer Actor, price int64) *OrderView {
	t.Helper()
	view, err := e.svc.Create(context.Background(), customer, CreateOrderInput{
		ServiceKey: "plumbing",
		Title:      "Fix kitchen sink",
		Country:    "Nigeria",
		State:      "Lagos",
		LGA:        "Ikeja",
		Price:      price,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return view
}

// advance walks an order to the requested stage using the happy path.
func (e *testEnv) advance(t *testing.T, customer, provider Actor, orderID uuid.UUID, to enums.OrderStatus) {
	t.Helper()
	ctx := context.Background()

	if _, err := e.svc.Accept(ctx, provider, orderID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if to == enums.OrderStatusAccepted {
		return
	}

	if _, err := e.svc.ConfirmPrice(ctx, provider, orderID); err != nil {
		t.Fatalf("confirm price: %v", err)
	}

	code := e.ordersRepo.orders[orderID].VerificationCode
	if _, err := e.svc.Start(ctx, provider, orderID, StartInput{VerificationCode: code, Photo: pngBytes}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if to == enums.OrderStatusInProgress {
		return
	}

	if _, err := e.svc.Complete(ctx, provider, orderID, CompleteInput{Photo: pngBytes}); err != nil {
		t.Fatalf("complete: %v", err)
	}
}

func expectCode(t *testing.T, err error, code errors.Code) {
	t.Helper()
	typed := errors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

// ---- tests -----------------------------------------------------------------

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(0)

	view := env.createOrder(t, customer, 5000)

	if view.Status != enums.OrderStatusRequested {
		t.Fatalf("status = %s, want requested", view.Status)
	}
	if view.ProviderID != nil {
		t.Fatal("new order must be unassigned")
	}
	if len(view.Timeline) != 1 || view.Timeline[0].Status != "requested" {
		t.Fatalf("timeline = %+v", view.Timeline)
	}
	if view.VerificationCode == nil {
		t.Fatal("customer should see the verification code")
	}
	if !regexp.MustCompile(`^\d{6}$`).MatchString(*view.VerificationCode) {
		t.Fatalf("verification code %q is not 6 digits", *view.VerificationCode)
	}
}

func TestCreateOrderRejections(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(0)
	provider := env.addProvider(lagosPlumberProfile())
	ctx := context.Background()

	_, err := env.svc.Create(ctx, provider, CreateOrderInput{
		ServiceKey: "plumbing", Title: "x", Country: "Nigeria", State: "Lagos", LGA: "Ikeja", Price: 100,
	})
	expectCode(t, err, errors.CodeForbidden)

	_, err = env.svc.Create(ctx, customer, CreateOrderInput{
		ServiceKey: "time_travel", Title: "x", Country: "Nigeria", State: "Lagos", LGA: "Ikeja", Price: 100,
	})
	expectCode(t, err, errors.CodeValidation)

	_, err = env.svc.Create(ctx, customer, CreateOrderInput{
		ServiceKey: "plumbing", Title: "x", Country: "Nigeria", State: "Lagos", LGA: "Ikeja", Price: 0,
	})
	expectCode(t, err, errors.CodeValidation)
}

func TestAcceptAssignsProvider(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(0)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 5000)

	view, err := env.svc.Accept(context.Background(), provider, order.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if view.Status != enums.OrderStatusAccepted {
		t.Fatalf("status = %s, want accepted", view.Status)
	}
	if view.ProviderID == nil || *view.ProviderID != provider.ID {
		t.Fatal("provider not assigned")
	}
	if len(view.Timeline) != 2 {
		t.Fatalf("timeline should gain an entry, got %d", len(view.Timeline))
	}
}

func TestAcceptRaceLoserGetsConflict(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(0)
	first := env.addProvider(lagosPlumberProfile())
	second := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 5000)
	ctx := context.Background()

	if _, err := env.svc.Accept(ctx, first, order.ID); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	_, err := env.svc.Accept(ctx, second, order.ID)
	expectCode(t, err, errors.CodeConflict)
}

func TestAcceptRequiresMatchingProfile(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(0)
	order := env.createOrder(t, customer, 5000)
	ctx := context.Background()

	tests := []struct {
		name    string
		profile *types.ProviderProfile
	}{
		{"no profile", nil},
		{"incomplete", &types.ProviderProfile{Country: "Nigeria", Available: true}},
		{"unavailable", &types.ProviderProfile{
			Country: "Nigeria", State: "Lagos", LGA: "Ikeja", Skills: []string{"plumbing"},
		}},
		{"wrong lga", &types.ProviderProfile{
			Country: "Nigeria", State: "Lagos", LGA: "Surulere", Skills: []string{"plumbing"}, Available: true,
		}},
		{"wrong skill", &types.ProviderProfile{
			Country: "Nigeria", State: "Lagos", LGA: "Ikeja", Skills: []string{"barber"}, Available: true,
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			provider := env.addProvider(tc.profile)
			_, err := env.svc.Accept(ctx, provider, order.ID)
			expectCode(t, err, errors.CodePrecondition)
		})
	}
}

func TestConfirmPrice(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(0)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 5000)
	ctx := context.Background()

	// only the assigned provider may confirm
	_, err := env.svc.ConfirmPrice(ctx, provider, order.ID)
	expectCode(t, err, errors.CodeForbidden)

	env.advance(t, customer, provider, order.ID, enums.OrderStatusAccepted)

	view, err := env.svc.ConfirmPrice(ctx, provider, order.ID)
	if err != nil {
		t.Fatalf("confirm price: %v", err)
	}
	if !view.PriceConfirmed || view.PriceConfirmedAt == nil {
		t.Fatal("price confirmation not recorded")
	}

	// re-confirmation is a harmless no-op
	again, err := env.svc.ConfirmPrice(ctx, provider, order.ID)
	if err != nil {
		t.Fatalf("re-confirm: %v", err)
	}
	if !again.PriceConfirmed {
		t.Fatal("price should stay confirmed")
	}
}

func TestStartRequiresConfirmedPrice(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(100000)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 10000)
	env.advance(t, customer, provider, order.ID, enums.OrderStatusAccepted)

	code := env.ordersRepo.orders[order.ID].VerificationCode
	_, err := env.svc.Start(context.Background(), provider, order.ID, StartInput{
		VerificationCode: code,
		Photo:            pngBytes,
	})
	expectCode(t, err, errors.CodePrecondition)
}

func TestStartWrongCodeLeavesOrderAccepted(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(100000)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 10000)
	ctx := context.Background()
	env.advance(t, customer, provider, order.ID, enums.OrderStatusAccepted)
	if _, err := env.svc.ConfirmPrice(ctx, provider, order.ID); err != nil {
		t.Fatalf("confirm price: %v", err)
	}

	_, err := env.svc.Start(ctx, provider, order.ID, StartInput{
		VerificationCode: "000000",
		Photo:            pngBytes,
	})
	expectCode(t, err, errors.CodePrecondition)

	stored := env.ordersRepo.orders[order.ID]
	if stored.Status != enums.OrderStatusAccepted {
		t.Fatalf("status = %s, want accepted", stored.Status)
	}
	if stored.VerificationVerifiedAt != nil {
		t.Fatal("wrong code must not verify")
	}
	if env.ledgerRepo.balances[customer.ID] != 100000 {
		t.Fatal("wallet must be untouched")
	}
}

func TestStartFundsEscrow(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(11000)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 10000)
	env.advance(t, customer, provider, order.ID, enums.OrderStatusInProgress)

	if env.ledgerRepo.balances[customer.ID] != 0 {
		t.Fatalf("customer balance = %d, want 0 (debited 11000)", env.ledgerRepo.balances[customer.ID])
	}

	entries := env.ledgerRepo.entriesFor(customer.ID)
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
	byType := map[enums.TransactionType]int64{}
	for _, e := range entries {
		byType[e.Type] = e.Amount
	}
	if byType[enums.TransactionTypeEscrowDebit] != 10000 || byType[enums.TransactionTypePlatformFee] != 1000 {
		t.Fatalf("unexpected entry amounts: %+v", byType)
	}

	stored := env.ordersRepo.orders[order.ID]
	if stored.Status != enums.OrderStatusInProgress {
		t.Fatalf("status = %s, want in_progress", stored.Status)
	}
	if stored.EscrowJobAmount != 10000 || stored.EscrowPlatformFee != 1000 || stored.EscrowTotal != 11000 {
		t.Fatalf("escrow fields: %d/%d/%d", stored.EscrowJobAmount, stored.EscrowPlatformFee, stored.EscrowTotal)
	}
	if stored.EscrowFundedAt == nil || stored.VerificationVerifiedAt == nil {
		t.Fatal("funding and verification must be stamped")
	}
	if len(stored.BeforeImageURLs) != 1 {
		t.Fatalf("before photos = %d, want 1", len(stored.BeforeImageURLs))
	}
}

func TestStartInsufficientBalanceAborts(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(10999)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 10000)
	ctx := context.Background()
	env.advance(t, customer, provider, order.ID, enums.OrderStatusAccepted)
	if _, err := env.svc.ConfirmPrice(ctx, provider, order.ID); err != nil {
		t.Fatalf("confirm price: %v", err)
	}

	code := env.ordersRepo.orders[order.ID].VerificationCode
	_, err := env.svc.Start(ctx, provider, order.ID, StartInput{VerificationCode: code, Photo: pngBytes})
	expectCode(t, err, errors.CodePrecondition)

	stored := env.ordersRepo.orders[order.ID]
	if stored.Status != enums.OrderStatusAccepted {
		t.Fatalf("status = %s, want accepted (no partial transition)", stored.Status)
	}
	if env.ledgerRepo.balances[customer.ID] != 10999 {
		t.Fatal("wallet must be untouched")
	}
	if len(env.ledgerRepo.entries) != 0 {
		t.Fatal("no ledger entries on failed funding")
	}
}

func TestStartFailedFundingDiscardsPhoto(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(100)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 10000)
	ctx := context.Background()
	env.advance(t, customer, provider, order.ID, enums.OrderStatusAccepted)
	if _, err := env.svc.ConfirmPrice(ctx, provider, order.ID); err != nil {
		t.Fatalf("confirm price: %v", err)
	}
	code := env.ordersRepo.orders[order.ID].VerificationCode

	_, err := env.svc.Start(ctx, provider, order.ID, StartInput{VerificationCode: code, Photo: pngBytes})
	expectCode(t, err, errors.CodePrecondition)

	if len(env.files.files) != 0 {
		t.Fatalf("aborted transaction left %d stored photos", len(env.files.files))
	}

	// with a funded wallet the same transition commits and keeps its photo
	env.ledgerRepo.balances[customer.ID] = 11000
	if _, err := env.svc.Start(ctx, provider, order.ID, StartInput{VerificationCode: code, Photo: pngBytes}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(env.files.files) != 1 {
		t.Fatalf("stored photos = %d, want 1", len(env.files.files))
	}
}

func TestStartRequiresPhoto(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(11000)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 10000)
	ctx := context.Background()
	env.advance(t, customer, provider, order.ID, enums.OrderStatusAccepted)
	if _, err := env.svc.ConfirmPrice(ctx, provider, order.ID); err != nil {
		t.Fatalf("confirm price: %v", err)
	}
	code := env.ordersRepo.orders[order.ID].VerificationCode

	_, err := env.svc.Start(ctx, provider, order.ID, StartInput{VerificationCode: code})
	expectCode(t, err, errors.CodePrecondition)

	_, err = env.svc.Start(ctx, provider, order.ID, StartInput{VerificationCode: code, Photo: []byte("not an image")})
	expectCode(t, err, errors.CodePrecondition)
}

func TestCompleteReleasesEscrow(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(11000)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 10000)
	env.advance(t, customer, provider, order.ID, enums.OrderStatusCompleted)

	if env.ledgerRepo.balances[provider.ID] != 9000 {
		t.Fatalf("provider balance = %d, want 9000", env.ledgerRepo.balances[provider.ID])
	}

	entries := env.ledgerRepo.entriesFor(provider.ID)
	if len(entries) != 2 {
		t.Fatalf("expected 2 provider ledger entries, got %d", len(entries))
	}
	var signed int64
	for _, e := range entries {
		signed += e.Signed()
	}
	if signed != 9000 {
		t.Fatalf("provider entries must net to 9000, got %d", signed)
	}

	stored := env.ordersRepo.orders[order.ID]
	if stored.Status != enums.OrderStatusCompleted {
		t.Fatalf("status = %s, want completed", stored.Status)
	}
	if stored.EscrowReleasedAt == nil {
		t.Fatal("release must be stamped")
	}
	if len(stored.AfterImageURLs) != 1 {
		t.Fatalf("after photos = %d, want 1", len(stored.AfterImageURLs))
	}
}

func TestCompleteRequiresInProgress(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(11000)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 10000)
	env.advance(t, customer, provider, order.ID, enums.OrderStatusAccepted)

	_, err := env.svc.Complete(context.Background(), provider, order.ID, CompleteInput{Photo: pngBytes})
	expectCode(t, err, errors.CodePrecondition)
}

func TestFullLifecycleScenario(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(6000)
	provider := env.addProvider(lagosPlumberProfile())

	order := env.createOrder(t, customer, 5000)
	env.advance(t, customer, provider, order.ID, enums.OrderStatusCompleted)

	if got := env.ledgerRepo.balances[customer.ID]; got != 500 {
		t.Fatalf("customer balance = %d, want 500 (6000 - 5500)", got)
	}
	if got := env.ledgerRepo.balances[provider.ID]; got != 4500 {
		t.Fatalf("provider balance = %d, want 4500", got)
	}
	if env.ordersRepo.orders[order.ID].Status != enums.OrderStatusCompleted {
		t.Fatal("order should be completed")
	}
}

func TestRateUpdatesAggregateOnce(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(11000)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 10000)
	ctx := context.Background()
	env.advance(t, customer, provider, order.ID, enums.OrderStatusCompleted)

	view, err := env.svc.Rate(ctx, customer, order.ID, RateInput{Stars: 4, Note: "solid work"})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if view.CustomerRating == nil || view.CustomerRating.Stars != 4 {
		t.Fatalf("customer rating not recorded: %+v", view.CustomerRating)
	}

	rated := env.usersRepo.users[provider.ID]
	if rated.RatingAsHandymanCount != 1 || rated.RatingAsHandymanAvg != 4 {
		t.Fatalf("provider aggregate = %v/%d, want 4/1", rated.RatingAsHandymanAvg, rated.RatingAsHandymanCount)
	}

	_, err = env.svc.Rate(ctx, customer, order.ID, RateInput{Stars: 5})
	expectCode(t, err, errors.CodeConflict)

	// the other direction is independent
	if _, err := env.svc.Rate(ctx, provider, order.ID, RateInput{Stars: 5}); err != nil {
		t.Fatalf("provider rate: %v", err)
	}
	ratedCustomer := env.usersRepo.users[customer.ID]
	if ratedCustomer.RatingAsCustomerCount != 1 || ratedCustomer.RatingAsCustomerAvg != 5 {
		t.Fatalf("customer aggregate = %v/%d, want 5/1", ratedCustomer.RatingAsCustomerAvg, ratedCustomer.RatingAsCustomerCount)
	}
}

func TestRateConcurrentDuplicateFoldsOnce(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(11000)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 10000)
	ctx := context.Background()
	env.advance(t, customer, provider, order.ID, enums.OrderStatusCompleted)

	// a competing request commits its rating after this call's snapshot
	// read but before its transaction
	env.txRunner.beforeTx = func() {
		if _, err := env.svc.Rate(ctx, customer, order.ID, RateInput{Stars: 5}); err != nil {
			t.Fatalf("competing rate: %v", err)
		}
	}

	_, err := env.svc.Rate(ctx, customer, order.ID, RateInput{Stars: 4})
	expectCode(t, err, errors.CodeConflict)

	stored := env.ordersRepo.orders[order.ID]
	if stored.CustomerRating == nil || stored.CustomerRating.Stars != 5 {
		t.Fatalf("first rating must win: %+v", stored.CustomerRating)
	}
	rated := env.usersRepo.users[provider.ID]
	if rated.RatingAsHandymanCount != 1 || rated.RatingAsHandymanAvg != 5 {
		t.Fatalf("aggregate must fold exactly once, got %v/%d", rated.RatingAsHandymanAvg, rated.RatingAsHandymanCount)
	}
}

func TestRateInterleavedSidesBothPersist(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(11000)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 10000)
	ctx := context.Background()
	env.advance(t, customer, provider, order.ID, enums.OrderStatusCompleted)

	// the provider's rating lands between the customer's snapshot read and
	// the customer's transaction; neither write may erase the other
	env.txRunner.beforeTx = func() {
		if _, err := env.svc.Rate(ctx, provider, order.ID, RateInput{Stars: 5}); err != nil {
			t.Fatalf("provider rate: %v", err)
		}
	}

	if _, err := env.svc.Rate(ctx, customer, order.ID, RateInput{Stars: 4}); err != nil {
		t.Fatalf("customer rate: %v", err)
	}

	stored := env.ordersRepo.orders[order.ID]
	if stored.CustomerRating == nil || stored.HandymanRating == nil {
		t.Fatalf("both ratings must survive interleaving: %+v / %+v", stored.CustomerRating, stored.HandymanRating)
	}
}

func TestRateRequiresCompletion(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(11000)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 10000)
	env.advance(t, customer, provider, order.ID, enums.OrderStatusInProgress)

	_, err := env.svc.Rate(context.Background(), customer, order.ID, RateInput{Stars: 4})
	expectCode(t, err, errors.CodePrecondition)
}

func TestCancelAfterFundingRefunds(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(11000)
	provider := env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 10000)
	ctx := context.Background()
	env.advance(t, customer, provider, order.ID, enums.OrderStatusInProgress)

	if env.ledgerRepo.balances[customer.ID] != 0 {
		t.Fatal("precheck: wallet should be drained by funding")
	}

	view, err := env.svc.SetStatus(ctx, customer, order.ID, SetStatusInput{Status: "canceled", Note: "changed my mind"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if view.Status != enums.OrderStatusCanceled {
		t.Fatalf("status = %s, want canceled", view.Status)
	}
	if env.ledgerRepo.balances[customer.ID] != 11000 {
		t.Fatalf("customer balance = %d, want full 11000 refund", env.ledgerRepo.balances[customer.ID])
	}

	var refunds int
	for _, e := range env.ledgerRepo.entriesFor(customer.ID) {
		if e.Type == enums.TransactionTypeRefund {
			refunds++
		}
	}
	if refunds != 2 {
		t.Fatalf("expected refund entries mirroring the funding split, got %d", refunds)
	}
}

func TestCancelBeforeFundingMovesNoMoney(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(500)
	env.addProvider(lagosPlumberProfile())
	order := env.createOrder(t, customer, 10000)

	view, err := env.svc.SetStatus(context.Background(), customer, order.ID, SetStatusInput{Status: "canceled"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if view.Status != enums.OrderStatusCanceled {
		t.Fatalf("status = %s, want canceled", view.Status)
	}
	if env.ledgerRepo.balances[customer.ID] != 500 || len(env.ledgerRepo.entries) != 0 {
		t.Fatal("no money should move")
	}
}

func TestSetStatusAuthorization(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(11000)
	provider := env.addProvider(lagosPlumberProfile())
	stranger := env.addCustomer(0)
	admin := env.addAdmin()
	order := env.createOrder(t, customer, 10000)
	ctx := context.Background()
	env.advance(t, customer, provider, order.ID, enums.OrderStatusAccepted)

	// provider cannot use the generic path to enter in_progress or completed
	for _, target := range []string{"in_progress", "completed"} {
		_, err := env.svc.SetStatus(ctx, provider, order.ID, SetStatusInput{Status: target})
		expectCode(t, err, errors.CodeForbidden)
	}

	// customer may only cancel
	_, err := env.svc.SetStatus(ctx, customer, order.ID, SetStatusInput{Status: "completed"})
	expectCode(t, err, errors.CodeForbidden)

	// a stranger cannot cancel someone else's order
	_, err = env.svc.SetStatus(ctx, stranger, order.ID, SetStatusInput{Status: "canceled"})
	expectCode(t, err, errors.CodeForbidden)

	// admin override is a pure status change, no settlement
	view, err := env.svc.SetStatus(ctx, admin, order.ID, SetStatusInput{Status: "completed", Note: "manual override"})
	if err != nil {
		t.Fatalf("admin set status: %v", err)
	}
	if view.Status != enums.OrderStatusCompleted {
		t.Fatalf("status = %s, want completed", view.Status)
	}
	if len(env.ledgerRepo.entries) != 0 {
		t.Fatal("admin override must not move money")
	}
}

func TestSetStatusTerminalGuard(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(0)
	admin := env.addAdmin()
	order := env.createOrder(t, customer, 1000)
	ctx := context.Background()

	if _, err := env.svc.SetStatus(ctx, customer, order.ID, SetStatusInput{Status: "canceled"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := env.svc.SetStatus(ctx, admin, order.ID, SetStatusInput{Status: "requested"})
	expectCode(t, err, errors.CodePrecondition)

	_, err = env.svc.SetStatus(ctx, customer, order.ID, SetStatusInput{Status: "canceled"})
	expectCode(t, err, errors.CodePrecondition)
}

func TestGetVisibility(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(0)
	matching := env.addProvider(lagosPlumberProfile())
	farAway := env.addProvider(&types.ProviderProfile{
		Country: "Nigeria", State: "Kano", LGA: "Dala", Skills: []string{"plumbing"}, Available: true,
	})
	order := env.createOrder(t, customer, 5000)
	ctx := context.Background()

	// matching provider can inspect before accepting, without the code
	view, err := env.svc.Get(ctx, matching, order.ID)
	if err != nil {
		t.Fatalf("matching provider get: %v", err)
	}
	if view.VerificationCode != nil {
		t.Fatal("provider must not see the verification code")
	}

	_, err = env.svc.Get(ctx, farAway, order.ID)
	expectCode(t, err, errors.CodeForbidden)
}

func TestGetDisclosesContactInfoAfterAssignment(t *testing.T) {
	env := newTestEnv(t)
	customer := env.addCustomer(0)
	provider := env.addProvider(lagosPlumberProfile())
	admin := env.addAdmin()
	order := env.createOrder(t, customer, 5000)
	ctx := context.Background()

	env.advance(t, customer, provider, order.ID, enums.OrderStatusAccepted)

	// customer sees the provider's handyman-side profile, not the code policy reversed
	custView, err := env.svc.Get(ctx, customer, order.ID)
	if err != nil {
		t.Fatalf("customer get: %v", err)
	}
	if custView.HandymanInfo == nil || custView.CustomerInfo != nil {
		t.Fatalf("customer should see handyman info only: %+v", custView)
	}
	if custView.VerificationCode == nil {
		t.Fatal("customer keeps code visibility")
	}

	provView, err := env.svc.Get(ctx, provider, order.ID)
	if err != nil {
		t.Fatalf("provider get: %v", err)
	}
	if provView.CustomerInfo == nil || provView.HandymanInfo != nil {
		t.Fatalf("provider should see customer info only: %+v", provView)
	}
	if provView.VerificationCode != nil {
		t.Fatal("provider must not see the code")
	}

	adminView, err := env.svc.Get(ctx, admin, order.ID)
	if err != nil {
		t.Fatalf("admin get: %v", err)
	}
	if adminView.CustomerInfo == nil || adminView.HandymanInfo == nil || adminView.VerificationCode == nil {
		t.Fatal("admin sees both parties and the code")
	}
}
