package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	domcart "example.com/storefront-checkout/app/internal/domain/cart"
	domcheckout "example.com/storefront-checkout/app/internal/domain/checkout"
	domcoupon "example.com/storefront-checkout/app/internal/domain/coupon"
	"example.com/storefront-checkout/app/internal/domain/geo"
	domorder "example.com/storefront-checkout/app/internal/domain/order"
	domshipping "example.com/storefront-checkout/app/internal/domain/shipping"
	"example.com/storefront-checkout/app/internal/infra/observability"
)

type mockStore struct {
	mu       sync.Mutex
	sessions map[string]domcheckout.State
}

func newMockStore() *mockStore {
	return &mockStore{sessions: make(map[string]domcheckout.State)}
}

func (m *mockStore) Get(ctx context.Context, sessionID string) (domcheckout.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[sessionID]
	if !ok {
		return domcheckout.State{}, domcheckout.ErrSessionNotFound
	}
	return st, nil
}

func (m *mockStore) Put(ctx context.Context, s domcheckout.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Version++
	m.sessions[s.SessionID] = s
	return nil
}

func (m *mockStore) Update(ctx context.Context, sessionID string, fn domcheckout.Mutator) (domcheckout.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[sessionID]
	if !ok {
		return domcheckout.State{}, domcheckout.ErrSessionNotFound
	}
	next, err := fn(cur)
	if err != nil {
		return domcheckout.State{}, err
	}
	next.Version = cur.Version + 1
	m.sessions[sessionID] = next
	return next, nil
}

func (m *mockStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *mockStore) set(st domcheckout.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[st.SessionID] = st
}

type mockCart struct {
	snapshots map[string]domcart.Snapshot
	cleared   map[string]bool
	err       error
}

func newMockCart() *mockCart {
	return &mockCart{snapshots: make(map[string]domcart.Snapshot), cleared: make(map[string]bool)}
}

func (m *mockCart) Snapshot(ctx context.Context, sessionID string) (domcart.Snapshot, error) {
	if m.err != nil {
		return domcart.Snapshot{}, m.err
	}
	snap, ok := m.snapshots[sessionID]
	if !ok {
		return domcart.Snapshot{SessionID: sessionID, Items: []domcart.Item{}}, nil
	}
	return snap, nil
}

func (m *mockCart) Clear(ctx context.Context, sessionID string) error {
	m.cleared[sessionID] = true
	delete(m.snapshots, sessionID)
	return nil
}

func (m *mockCart) setSubtotal(sessionID string, qty int64, unit float64) {
	m.snapshots[sessionID] = domcart.Snapshot{
		SessionID:        sessionID,
		Items:            []domcart.Item{{ProductID: 1, Name: "Áo thun", Quantity: qty, UnitPrice: unit}},
		Subtotal:         float64(qty) * unit,
		OriginalSubtotal: float64(qty) * unit,
	}
}

type mockResolver struct {
	provinces   []geo.Province
	districts   map[int][]geo.District
	wards       map[int][]geo.Ward
	districtErr error
	onDistricts func(provinceID int)
}

func newMockResolver() *mockResolver {
	return &mockResolver{
		provinces: []geo.Province{{ID: 201, Name: "Hà Nội"}, {ID: 202, Name: "Hồ Chí Minh"}},
		districts: map[int][]geo.District{
			201: {{ID: 1484, ProvinceID: 201, Name: "Ba Đình"}, {ID: 1485, ProvinceID: 201, Name: "Hoàn Kiếm"}},
			202: {{ID: 1442, ProvinceID: 202, Name: "Quận 1"}},
		},
		wards: map[int][]geo.Ward{
			1484: {{Code: "1A0101", DistrictID: 1484, Name: "Phúc Xá"}, {Code: "1A0102", DistrictID: 1484, Name: "Trúc Bạch"}},
			1485: {{Code: "1A0201", DistrictID: 1485, Name: "Hàng Bạc"}},
			1442: {{Code: "20101", DistrictID: 1442, Name: "Bến Nghé"}},
		},
	}
}

func (m *mockResolver) Province(ctx context.Context, id int) (geo.Province, error) {
	p, ok := geo.FindProvince(m.provinces, id)
	if !ok {
		return geo.Province{}, geo.ErrUnknownProvince
	}
	return p, nil
}

func (m *mockResolver) ListDistricts(ctx context.Context, provinceID int) ([]geo.District, error) {
	if m.onDistricts != nil {
		hook := m.onDistricts
		m.onDistricts = nil
		hook(provinceID)
	}
	if m.districtErr != nil {
		return []geo.District{}, fmt.Errorf("%w: %w", geo.ErrLookupFailed, m.districtErr)
	}
	return m.districts[provinceID], nil
}

func (m *mockResolver) ListWards(ctx context.Context, districtID int) ([]geo.Ward, error) {
	return m.wards[districtID], nil
}

type mockCoupons struct {
	applied *domcoupon.Applied
	err     error
	calls   int
}

func (m *mockCoupons) Apply(ctx context.Context, code string, cart domcart.Snapshot, requesterID string) (*domcoupon.Applied, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	a := *m.applied
	a.SubtotalAtApplication = cart.Subtotal
	return &a, nil
}

func (m *mockCoupons) Reconcile(applied *domcoupon.Applied, subtotal float64) (*domcoupon.Applied, bool) {
	if applied == nil {
		return nil, false
	}
	if applied.StaleFor(subtotal) {
		return nil, true
	}
	return applied, false
}

type mockShipping struct {
	quote       domshipping.Quote
	calls       []domshipping.Destination
	onCalculate func()
}

func (m *mockShipping) Calculate(ctx context.Context, dest domshipping.Destination, items []domcart.Item, subtotal float64) domshipping.Quote {
	m.calls = append(m.calls, dest)
	if m.onCalculate != nil {
		hook := m.onCalculate
		m.onCalculate = nil
		hook()
	}
	return m.quote
}

type mockOrders struct {
	submissions []domorder.Submission
	err         error
}

func (m *mockOrders) Submit(ctx context.Context, s domorder.Submission) (*domorder.Placement, error) {
	m.submissions = append(m.submissions, s)
	if m.err != nil {
		return nil, m.err
	}
	return &domorder.Placement{
		OrderID:     "ord-1",
		OrderNumber: "SO-0001",
		Status:      domorder.StatusPending,
		Totals:      domorder.Compute(s.Subtotal, s.ShippingFee, s.TaxAmount, s.DiscountAmount),
	}, nil
}

type mockPublisher struct {
	events []domcheckout.Event
}

func (m *mockPublisher) Publish(ctx context.Context, e domcheckout.Event) error {
	m.events = append(m.events, e)
	return nil
}

func (m *mockPublisher) types() []domcheckout.EventType {
	out := make([]domcheckout.EventType, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc       *Service
	store     *mockStore
	cart      *mockCart
	resolver  *mockResolver
	coupons   *mockCoupons
	shipping  *mockShipping
	orders    *mockOrders
	publisher *mockPublisher
}

const sid = "sess-1"

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     newMockStore(),
		cart:      newMockCart(),
		resolver:  newMockResolver(),
		coupons:   &mockCoupons{applied: &domcoupon.Applied{Code: "SALE10", DiscountType: domcoupon.DiscountPercentage, DiscountValue: 10, DiscountAmount: 10000}},
		shipping:  &mockShipping{quote: domshipping.Quote{Fee: 22000}},
		orders:    &mockOrders{},
		publisher: &mockPublisher{},
	}
	f.svc = NewService(Dependencies{
		Store:     f.store,
		Resolver:  f.resolver,
		Coupons:   f.coupons,
		Shipping:  f.shipping,
		Cart:      f.cart,
		Orders:    f.orders,
		Publisher: f.publisher,
	})
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	n := 0
	f.svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	f.cart.setSubtotal(sid, 1, 100000)
	return f
}

func (f *fixture) begin(t *testing.T) domcheckout.State {
	t.Helper()
	st, err := f.svc.Begin(context.Background(), sid, "")
	require.NoError(t, err)
	return st
}

func (f *fixture) fillBilling(t *testing.T) domcheckout.State {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.UpdateContact(ctx, sid, domcheckout.FormBilling, domcheckout.Contact{
		RecipientName: "Nguyễn Văn A",
		Phone:         "0900000000",
		Email:         "a@example.com",
		AddressLine1:  "12 Hàng Bông",
	})
	require.NoError(t, err)
	_, err = f.svc.SelectProvince(ctx, sid, domcheckout.FormBilling, 201)
	require.NoError(t, err)
	_, err = f.svc.SelectDistrict(ctx, sid, domcheckout.FormBilling, 1484)
	require.NoError(t, err)
	st, err := f.svc.SelectWard(ctx, sid, domcheckout.FormBilling, "1A0101")
	require.NoError(t, err)
	return st
}

func TestBegin_EmptyCart_ReturnsError(t *testing.T) {
	f := newFixture(t)
	f.cart.snapshots = map[string]domcart.Snapshot{}

	_, err := f.svc.Begin(context.Background(), sid, "")
	require.ErrorIs(t, err, domcart.ErrCartEmpty)
}

func TestBegin_ResumesOpenCheckout(t *testing.T) {
	f := newFixture(t)
	first := f.begin(t)
	require.Equal(t, domcheckout.PhaseIdle, first.Phase)

	again, err := f.svc.Begin(context.Background(), sid, "42")
	require.NoError(t, err)
	require.Equal(t, first.CheckoutID, again.CheckoutID)
	require.Equal(t, "42", again.UserID)
	require.Equal(t, []domcheckout.EventType{domcheckout.EventStarted}, f.publisher.types())
}

func TestSelectWard_QuotesActiveDestination(t *testing.T) {
	f := newFixture(t)
	f.begin(t)

	st := f.fillBilling(t)
	require.Equal(t, "Ba Đình", st.Billing.Location.Selection.DistrictName)
	require.Len(t, st.Billing.Location.Wards, 2)
	require.Equal(t, domshipping.Quote{Fee: 22000}, st.Quote)
	require.Equal(t, []domshipping.Destination{{DistrictID: 1484, WardCode: "1A0101"}}, f.shipping.calls)
}

func TestSelectProvince_ResetsLowerLevelsAndQuote(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	f.fillBilling(t)

	st, err := f.svc.SelectProvince(context.Background(), sid, domcheckout.FormBilling, 202)
	require.NoError(t, err)

	sel := st.Billing.Location.Selection
	require.Equal(t, 202, sel.ProvinceID)
	require.Zero(t, sel.DistrictID)
	require.Empty(t, sel.WardCode)
	require.Empty(t, st.Billing.Location.Wards)
	require.Equal(t, []geo.District{{ID: 1442, ProvinceID: 202, Name: "Quận 1"}}, st.Billing.Location.Districts)
	require.Equal(t, domshipping.Quote{}, st.Quote)
	// province change alone never asks the carrier
	require.Len(t, f.shipping.calls, 1)
}

func TestSelectProvince_StaleDistrictsDropped(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	ctx := context.Background()

	// While Hà Nội's districts are loading the user switches to Hồ Chí Minh.
	f.resolver.onDistricts = func(provinceID int) {
		require.Equal(t, 201, provinceID)
		_, err := f.svc.SelectProvince(ctx, sid, domcheckout.FormBilling, 202)
		require.NoError(t, err)
	}

	st, err := f.svc.SelectProvince(ctx, sid, domcheckout.FormBilling, 201)
	require.NoError(t, err)
	require.Equal(t, 202, st.Billing.Location.Selection.ProvinceID)
	require.Equal(t, []geo.District{{ID: 1442, ProvinceID: 202, Name: "Quận 1"}}, st.Billing.Location.Districts)
}

func TestSelectProvince_LookupFailureIsVisible(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	f.resolver.districtErr = errors.New("timeout")

	st, err := f.svc.SelectProvince(context.Background(), sid, domcheckout.FormBilling, 201)
	require.NoError(t, err)
	require.Empty(t, st.Billing.Location.Districts)
	require.Contains(t, st.Billing.Location.DistrictsErr, "lookup")
}

func TestSelectDistrict_NotInVisibleList(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	_, err := f.svc.SelectProvince(context.Background(), sid, domcheckout.FormBilling, 201)
	require.NoError(t, err)

	_, err = f.svc.SelectDistrict(context.Background(), sid, domcheckout.FormBilling, 1442)
	require.ErrorIs(t, err, geo.ErrUnknownDistrict)
}

func TestSetShipToDifferent_SwitchesDestination(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	f.fillBilling(t)
	ctx := context.Background()

	st, err := f.svc.SetShipToDifferent(ctx, sid, true)
	require.NoError(t, err)
	require.Equal(t, domshipping.Quote{}, st.Quote)

	_, err = f.svc.SelectProvince(ctx, sid, domcheckout.FormShipping, 202)
	require.NoError(t, err)
	_, err = f.svc.SelectDistrict(ctx, sid, domcheckout.FormShipping, 1442)
	require.NoError(t, err)
	st, err = f.svc.SelectWard(ctx, sid, domcheckout.FormShipping, "20101")
	require.NoError(t, err)
	require.Equal(t, 22000.0, st.Quote.Fee)
	require.Equal(t, domshipping.Destination{DistrictID: 1442, WardCode: "20101"}, f.shipping.calls[len(f.shipping.calls)-1])

	st, err = f.svc.SetShipToDifferent(ctx, sid, false)
	require.NoError(t, err)
	require.Equal(t, domshipping.Destination{DistrictID: 1484, WardCode: "1A0101"}, f.shipping.calls[len(f.shipping.calls)-1])
	require.Equal(t, 22000.0, st.Quote.Fee)
}

func TestApplyCoupon_FailureKeepsPrevious(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	ctx := context.Background()

	st, err := f.svc.ApplyCoupon(ctx, sid, "sale10")
	require.NoError(t, err)
	require.Equal(t, "SALE10", st.Coupon.Code)
	require.Equal(t, 100000.0, st.Coupon.SubtotalAtApplication)

	f.coupons.err = domcoupon.ErrExpiredOrInvalid
	_, err = f.svc.ApplyCoupon(ctx, sid, "OLD")
	require.ErrorIs(t, err, domcoupon.ErrExpiredOrInvalid)

	st, err = f.svc.State(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, "SALE10", st.Coupon.Code)

	st, err = f.svc.RemoveCoupon(ctx, sid)
	require.NoError(t, err)
	require.Nil(t, st.Coupon)
}

func TestObserveCart_InvalidatesCouponOnSubtotalChange(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	ctx := context.Background()
	_, err := f.svc.ApplyCoupon(ctx, sid, "SALE10")
	require.NoError(t, err)

	obs, err := f.svc.ObserveCart(ctx, sid)
	require.NoError(t, err)
	require.False(t, obs.CouponInvalidated)
	require.NotNil(t, obs.State.Coupon)

	f.cart.setSubtotal(sid, 3, 50000)
	obs, err = f.svc.ObserveCart(ctx, sid)
	require.NoError(t, err)
	require.True(t, obs.CouponInvalidated)
	require.Equal(t, "SALE10", obs.InvalidatedCode)
	require.NotEmpty(t, obs.Notice)
	require.Nil(t, obs.State.Coupon)
	require.Contains(t, f.publisher.types(), domcheckout.EventCouponInvalidated)
}

func TestObserveCart_EmptyCartDropsInFlightQuote(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	ctx := context.Background()

	_, err := f.svc.SelectProvince(ctx, sid, domcheckout.FormBilling, 201)
	require.NoError(t, err)
	_, err = f.svc.SelectDistrict(ctx, sid, domcheckout.FormBilling, 1484)
	require.NoError(t, err)

	f.shipping.onCalculate = func() {
		f.cart.snapshots = map[string]domcart.Snapshot{}
		obs, err := f.svc.ObserveCart(ctx, sid)
		require.NoError(t, err)
		require.True(t, obs.CartEmpty)
	}
	st, err := f.svc.SelectWard(ctx, sid, domcheckout.FormBilling, "1A0101")
	require.NoError(t, err)
	require.Equal(t, uint64(1), st.Epoch)
	require.Equal(t, domshipping.Quote{}, st.Quote)
}

func TestObserveCart_RefilledCartQuotesAgain(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	ctx := context.Background()

	_, err := f.svc.SelectProvince(ctx, sid, domcheckout.FormBilling, 201)
	require.NoError(t, err)
	_, err = f.svc.SelectDistrict(ctx, sid, domcheckout.FormBilling, 1484)
	require.NoError(t, err)

	f.shipping.onCalculate = func() {
		f.cart.snapshots = map[string]domcart.Snapshot{}
		_, err := f.svc.ObserveCart(ctx, sid)
		require.NoError(t, err)
	}
	st, err := f.svc.SelectWard(ctx, sid, domcheckout.FormBilling, "1A0101")
	require.NoError(t, err)
	require.Equal(t, domshipping.Quote{}, st.Quote)

	f.cart.setSubtotal(sid, 1, 100000)
	obs, err := f.svc.ObserveCart(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, 22000.0, obs.State.Quote.Fee)

	// same ward again: nothing new to quote
	_, err = f.svc.SelectWard(ctx, sid, domcheckout.FormBilling, "1A0101")
	require.NoError(t, err)
	require.Len(t, f.shipping.calls, 2)

	sum, err := f.svc.Summary(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, 22000.0, sum.Totals.ShippingFee)
	require.Equal(t, 122000.0, sum.Totals.Total)
}

func TestService_LogsThroughRequestLogger(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.InfoLevel)
	ctx := observability.WithLogger(context.Background(), zap.New(core).With(zap.String("request_id", "req-7")))

	_, err := f.svc.Begin(ctx, sid, "")
	require.NoError(t, err)

	entries := logs.FilterMessage("checkout started").All()
	require.Len(t, entries, 1)
	require.Equal(t, "req-7", entries[0].ContextMap()["request_id"])
}

func TestSummary_DerivesTotals(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	f.fillBilling(t)
	ctx := context.Background()
	_, err := f.svc.ApplyCoupon(ctx, sid, "SALE10")
	require.NoError(t, err)

	snap := f.cart.snapshots[sid]
	snap.OriginalSubtotal = 120000
	f.cart.snapshots[sid] = snap

	sum, err := f.svc.Summary(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, domorder.Totals{Subtotal: 100000, ShippingFee: 22000, DiscountAmount: 10000, Total: 112000}, sum.Totals)
	require.Equal(t, 20000.0, sum.ProductDiscount)
	require.False(t, sum.CouponStale)

	f.cart.setSubtotal(sid, 2, 100000)
	sum, err = f.svc.Summary(ctx, sid)
	require.NoError(t, err)
	require.True(t, sum.CouponStale)
	require.Zero(t, sum.Totals.DiscountAmount)
}

func TestSubmit_ValidationFailure_NoNetwork(t *testing.T) {
	f := newFixture(t)
	f.begin(t)

	_, err := f.svc.Submit(context.Background(), sid, "COD")
	require.ErrorIs(t, err, domcheckout.ErrValidation)

	var verr *domcheckout.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, domcheckout.FormBilling, verr.Form)
	require.Empty(t, f.orders.submissions)

	st, err := f.svc.State(context.Background(), sid)
	require.NoError(t, err)
	require.Equal(t, domcheckout.PhaseIdle, st.Phase)
}

func TestSubmit_InvalidPaymentMethod(t *testing.T) {
	f := newFixture(t)
	f.begin(t)

	_, err := f.svc.Submit(context.Background(), sid, "card; drop table")
	require.ErrorIs(t, err, domorder.ErrInvalidPayment)
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	f.fillBilling(t)
	ctx := context.Background()
	_, err := f.svc.ApplyCoupon(ctx, sid, "SALE10")
	require.NoError(t, err)

	placement, err := f.svc.Submit(ctx, sid, "")
	require.NoError(t, err)
	require.Equal(t, "ord-1", placement.OrderID)
	require.Equal(t, 112000.0, placement.Totals.Total)

	require.Len(t, f.orders.submissions, 1)
	sub := f.orders.submissions[0]
	require.Equal(t, domorder.PaymentCOD, sub.PaymentMethod)
	require.Equal(t, "12 Hàng Bông, Phúc Xá, Ba Đình, Hà Nội", sub.Billing.Address)
	require.Equal(t, 1484, sub.Billing.DistrictID)
	require.Equal(t, "1A0101", sub.Billing.WardCode)
	require.Equal(t, sub.Billing, sub.Shipping)
	require.False(t, sub.ShipToDifferentAddress)
	require.Equal(t, 22000.0, sub.ShippingFee)
	require.Equal(t, 10000.0, sub.DiscountAmount)
	require.Equal(t, "SALE10", sub.CouponCode)
	require.NotEmpty(t, sub.IdempotencyKey)

	require.True(t, f.cart.cleared[sid])
	_, err = f.svc.State(ctx, sid)
	require.ErrorIs(t, err, domcheckout.ErrSessionNotFound)
	require.Contains(t, f.publisher.types(), domcheckout.EventOrderPlaced)
}

func TestSubmit_FailureReturnsToIdleWithDataIntact(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	before := f.fillBilling(t)
	f.orders.err = &domorder.SubmissionError{Kind: domorder.ErrOrderUnreachable, Err: errors.New("connection reset")}
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, sid, "COD")
	require.ErrorIs(t, err, domorder.ErrOrderUnreachable)

	st, err := f.svc.State(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, domcheckout.PhaseIdle, st.Phase)
	require.NotEmpty(t, st.LastError)
	require.Equal(t, before.Billing.Contact, st.Billing.Contact)
	require.Equal(t, before.Billing.Location.Selection, st.Billing.Location.Selection)
	require.False(t, f.cart.cleared[sid])

	// retry works without re-entering anything
	f.orders.err = nil
	_, err = f.svc.Submit(ctx, sid, "COD")
	require.NoError(t, err)
	require.Len(t, f.orders.submissions, 2)
	require.NotEmpty(t, f.orders.submissions[0].IdempotencyKey)
	require.Equal(t, f.orders.submissions[0].IdempotencyKey, f.orders.submissions[1].IdempotencyKey)
}

func TestSubmit_ChangedPayloadGetsNewKey(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	f.fillBilling(t)
	f.orders.err = &domorder.SubmissionError{Kind: domorder.ErrOrderUnreachable, Err: errors.New("timeout")}
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, sid, "COD")
	require.ErrorIs(t, err, domorder.ErrOrderUnreachable)
	st, err := f.svc.State(ctx, sid)
	require.NoError(t, err)
	require.NotEmpty(t, st.SubmissionKey)

	_, err = f.svc.UpdateContact(ctx, sid, domcheckout.FormBilling, domcheckout.Contact{
		RecipientName: "Nguyễn Văn A",
		Phone:         "0911111111",
		Email:         "a@example.com",
		AddressLine1:  "12 Hàng Bông",
	})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, sid, "COD")
	require.ErrorIs(t, err, domorder.ErrOrderUnreachable)

	f.cart.setSubtotal(sid, 2, 100000)
	f.orders.err = nil
	_, err = f.svc.Submit(ctx, sid, "COD")
	require.NoError(t, err)

	require.Len(t, f.orders.submissions, 3)
	keys := map[string]bool{}
	for _, sub := range f.orders.submissions {
		keys[sub.IdempotencyKey] = true
	}
	require.Len(t, keys, 3)
}

func TestSubmit_WhileSubmitting_Rejected(t *testing.T) {
	f := newFixture(t)
	st := f.begin(t)
	st.Phase = domcheckout.PhaseSubmitting
	f.store.set(st)

	_, err := f.svc.Submit(context.Background(), sid, "COD")
	require.ErrorIs(t, err, domcheckout.ErrSubmissionInProgress)

	_, err = f.svc.UpdateContact(context.Background(), sid, domcheckout.FormBilling, domcheckout.Contact{})
	require.ErrorIs(t, err, domcheckout.ErrNotEditable)
	require.ErrorIs(t, f.svc.Leave(context.Background(), sid), domcheckout.ErrSubmissionInProgress)
}

func TestSubmit_StaleCouponStopsSubmission(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	f.fillBilling(t)
	ctx := context.Background()
	_, err := f.svc.ApplyCoupon(ctx, sid, "SALE10")
	require.NoError(t, err)

	f.cart.setSubtotal(sid, 2, 100000)
	_, err = f.svc.Submit(ctx, sid, "COD")
	require.ErrorIs(t, err, domcheckout.ErrCouponInvalidated)
	require.Empty(t, f.orders.submissions)

	st, err := f.svc.State(ctx, sid)
	require.NoError(t, err)
	require.Nil(t, st.Coupon)
	require.Equal(t, domcheckout.PhaseIdle, st.Phase)
}

func TestLeave_DropsLateCouponResult(t *testing.T) {
	f := newFixture(t)
	f.begin(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Leave(ctx, sid))
	_, err := f.svc.ApplyCoupon(ctx, sid, "SALE10")
	require.ErrorIs(t, err, domcheckout.ErrSessionNotFound)

	// a new checkout for the same cart gets a new identity
	st := f.begin(t)
	require.Nil(t, st.Coupon)
	require.Contains(t, f.publisher.types(), domcheckout.EventAbandoned)
}
