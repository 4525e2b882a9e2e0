package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-checkout-service/internal/apperr"
	"github.com/Cheertaboi/storefront-checkout-service/internal/cache"
	"github.com/Cheertaboi/storefront-checkout-service/internal/metrics"
	"github.com/Cheertaboi/storefront-checkout-service/internal/models"
	"github.com/Cheertaboi/storefront-checkout-service/internal/notify"
	"github.com/Cheertaboi/storefront-checkout-service/internal/payment"
	"github.com/Cheertaboi/storefront-checkout-service/pkg/db"
)

// memStore is an in-memory stand-in for Postgres. Transactions are fully
// serialized and roll back by restoring a snapshot, which is stronger than the
// row locks the real repositories take.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	seq  int

	products   map[string]models.Product
	carts      map[string]models.Cart
	cartItems  map[string]models.CartItem
	discounts  map[string]models.DiscountCode
	orders     map[string]models.Order
	orderItems map[string]models.OrderItem
	orderSeq   map[string]int

	discountCollisions int
	failOrderInsert    error
}

type snapshot struct {
	products   map[string]models.Product
	carts      map[string]models.Cart
	cartItems  map[string]models.CartItem
	discounts  map[string]models.DiscountCode
	orders     map[string]models.Order
	orderItems map[string]models.OrderItem
	orderSeq   map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		products:   map[string]models.Product{},
		carts:      map[string]models.Cart{},
		cartItems:  map[string]models.CartItem{},
		discounts:  map[string]models.DiscountCode{},
		orders:     map[string]models.Order{},
		orderItems: map[string]models.OrderItem{},
		orderSeq:   map[string]int{},
	}
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		products:   copyMap(s.products),
		carts:      copyMap(s.carts),
		cartItems:  copyMap(s.cartItems),
		discounts:  copyMap(s.discounts),
		orders:     copyMap(s.orders),
		orderItems: copyMap(s.orderItems),
		orderSeq:   copyMap(s.orderSeq),
	}
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = snap.products
	s.carts = snap.carts
	s.cartItems = snap.cartItems
	s.discounts = snap.discounts
	s.orders = snap.orders
	s.orderItems = snap.orderItems
	s.orderSeq = snap.orderSeq
}

func (s *memStore) DB() db.Querier { return nil }

func (s *memStore) WithTx(ctx context.Context, fn func(q db.Querier) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	defer func() {
		if r := recover(); r != nil {
			s.restore(snap)
			panic(r)
		}
		if err != nil {
			s.restore(snap)
		}
	}()
	return fn(nil)
}

// seeding and inspection helpers

func (s *memStore) addProduct(sellerID, price string, stock int) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Product{
		ID:       uuid.NewString(),
		SellerID: sellerID,
		Title:    "product-" + uuid.NewString()[:6],
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Status:   models.ProductStatusApproved,
	}
	s.products[p.ID] = p
	return p
}

func (s *memStore) setProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *memStore) product(id string) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *memStore) addDiscount(code string, percentage int) models.DiscountCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := models.DiscountCode{ID: uuid.NewString(), Code: code, Percentage: percentage, IsActive: true, CreatedAt: time.Now()}
	s.discounts[d.ID] = d
	return d
}

func (s *memStore) discount(code string) models.DiscountCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.discounts {
		if d.Code == code {
			return d
		}
	}
	return models.DiscountCode{}
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) cartItemCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.cartItems {
		if c, ok := s.carts[it.CartID]; ok && c.UserID == userID {
			n++
		}
	}
	return n
}

func (s *memStore) hasCart(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.carts {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

type orderLine struct {
	p   models.Product
	qty int
}

// addOrder seeds a PAID order.
func (s *memStore) addOrder(buyerID string, lines ...orderLine) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	o := models.Order{
		ID:              uuid.NewString(),
		UserID:          buyerID,
		StripeSessionID: "cs_seed_" + uuid.NewString()[:8],
		Status:          models.OrderStatusPaid,
		TrackingCode:    "ORD-SEED",
		CreatedAt:       time.Now(),
	}
	total := decimal.Zero
	for _, l := range lines {
		p, qty := l.p, l.qty
		line := p.Price.Mul(decimal.NewFromInt(int64(qty)))
		total = total.Add(line)
		it := models.OrderItem{
			ID: uuid.NewString(), OrderID: o.ID, ProductID: p.ID, SellerID: p.SellerID,
			Title: p.Title, UnitPrice: p.Price, Quantity: qty, Subtotal: line, Status: models.ItemStatusPaid,
		}
		s.orderItems[it.ID] = it
	}
	o.Total = total
	s.orders[o.ID] = o
	s.orderSeq[o.ID] = s.seq
	return o
}

func (s *memStore) itemsOf(orderID string) []models.OrderItem {
	out := []models.OrderItem{}
	for _, it := range s.orderItems {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *memStore) storedOrder(id string) (models.Order, []models.OrderItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id], s.itemsOf(id)
}

func (s *memStore) ordersFor(userID string) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			o.Items = s.itemsOf(o.ID)
			out = append(out, o)
		}
	}
	return out
}

// products

type memProducts struct{ s *memStore }

func (r memProducts) Get(ctx context.Context, q db.Querier, id string) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, apperr.NotFound("product not found")
	}
	return &p, nil
}

func (r memProducts) GetForUpdate(ctx context.Context, q db.Querier, id string) (*models.Product, error) {
	return r.Get(ctx, q, id)
}

func (r memProducts) DecrementStock(ctx context.Context, q db.Querier, id string, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return apperr.NotFound("product not found")
	}
	if p.Stock < qty {
		return apperr.InvalidQuantity("not enough stock")
	}
	p.Stock -= qty
	r.s.products[id] = p
	return nil
}

// carts

type memCarts struct{ s *memStore }

func (r memCarts) byUser(userID string) (*models.Cart, bool) {
	for _, c := range r.s.carts {
		if c.UserID == userID {
			return &c, true
		}
	}
	return nil, false
}

func (r memCarts) GetByUser(ctx context.Context, q db.Querier, userID string) (*models.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.byUser(userID)
	if !ok {
		return nil, apperr.NotFound("cart not found")
	}
	return c, nil
}

func (r memCarts) GetByUserForUpdate(ctx context.Context, q db.Querier, userID string) (*models.Cart, error) {
	return r.GetByUser(ctx, q, userID)
}

func (r memCarts) GetOrCreate(ctx context.Context, q db.Querier, userID string) (*models.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.byUser(userID); ok {
		return c, nil
	}
	now := time.Now()
	c := models.Cart{ID: uuid.NewString(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	r.s.carts[c.ID] = c
	return &c, nil
}

func (r memCarts) withProduct(it models.CartItem) models.CartItem {
	p := r.s.products[it.ProductID]
	it.Product = &p
	return it
}

func (r memCarts) ListItems(ctx context.Context, q db.Querier, cartID string) ([]models.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := []models.CartItem{}
	for _, it := range r.s.cartItems {
		if it.CartID == cartID {
			items = append(items, r.withProduct(it))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Product.Title < items[j].Product.Title })
	return items, nil
}

func (r memCarts) GetItemByProduct(ctx context.Context, q db.Querier, cartID, productID string) (*models.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.cartItems {
		if it.CartID == cartID && it.ProductID == productID {
			it = r.withProduct(it)
			return &it, nil
		}
	}
	return nil, apperr.NotFound("cart item not found")
}

func (r memCarts) GetItemForUser(ctx context.Context, q db.Querier, userID, itemID string) (*models.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.cartItems[itemID]
	if !ok || r.s.carts[it.CartID].UserID != userID {
		return nil, apperr.NotFound("cart item not found")
	}
	it = r.withProduct(it)
	return &it, nil
}

func (r memCarts) InsertItem(ctx context.Context, q db.Querier, it *models.CartItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.cartItems {
		if existing.CartID == it.CartID && existing.ProductID == it.ProductID {
			return apperr.New(apperr.KindConflict, "product already in cart")
		}
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	stored := *it
	stored.Product = nil
	r.s.cartItems[it.ID] = stored
	return nil
}

func (r memCarts) UpdateItemQuantity(ctx context.Context, q db.Querier, itemID string, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.cartItems[itemID]
	if !ok {
		return apperr.NotFound("cart item not found")
	}
	it.Quantity = qty
	r.s.cartItems[itemID] = it
	return nil
}

func (r memCarts) DeleteItem(ctx context.Context, q db.Querier, itemID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.cartItems[itemID]; !ok {
		return apperr.NotFound("cart item not found")
	}
	delete(r.s.cartItems, itemID)
	return nil
}

func (r memCarts) ClearItems(ctx context.Context, q db.Querier, cartID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, it := range r.s.cartItems {
		if it.CartID == cartID {
			delete(r.s.cartItems, id)
			n++
		}
	}
	return n, nil
}

// discounts

type memDiscounts struct{ s *memStore }

func (r memDiscounts) Create(ctx context.Context, q db.Querier, d *models.DiscountCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.discountCollisions > 0 {
		r.s.discountCollisions--
		return apperr.New(apperr.KindConflict, "discount code already exists")
	}
	for _, existing := range r.s.discounts {
		if existing.Code == d.Code {
			return apperr.New(apperr.KindConflict, "discount code already exists")
		}
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.CreatedAt = time.Now()
	r.s.discounts[d.ID] = *d
	return nil
}

func (r memDiscounts) List(ctx context.Context, q db.Querier) ([]models.DiscountCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.DiscountCode{}
	for _, d := range r.s.discounts {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memDiscounts) GetByCode(ctx context.Context, q db.Querier, code string) (*models.DiscountCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.discounts {
		if d.Code == code {
			return &d, nil
		}
	}
	return nil, apperr.NotFound("discount code not found")
}

func (r memDiscounts) GetByCodeForUpdate(ctx context.Context, q db.Querier, code string) (*models.DiscountCode, error) {
	return r.GetByCode(ctx, q, code)
}

func (r memDiscounts) SetActive(ctx context.Context, q db.Querier, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.discounts[id]
	if !ok {
		return apperr.NotFound("discount code not found")
	}
	d.IsActive = active
	r.s.discounts[id] = d
	return nil
}

func (r memDiscounts) MarkUsed(ctx context.Context, q db.Querier, id, userID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.discounts[id]
	if !ok || d.IsUsed {
		return apperr.InvalidDiscount("discount already used")
	}
	d.IsUsed = true
	d.UsedAt = &at
	d.UsedByUserID = &userID
	r.s.discounts[id] = d
	return nil
}

// orders

type memOrders struct{ s *memStore }

func (r memOrders) Insert(ctx context.Context, q db.Querier, o *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failOrderInsert != nil {
		return fmt.Errorf("insert order: %w", r.s.failOrderInsert)
	}
	for _, existing := range r.s.orders {
		if existing.StripeSessionID == o.StripeSessionID {
			return apperr.New(apperr.KindConflict, "order already exists for session")
		}
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt, o.UpdatedAt = time.Now(), time.Now()
	stored := *o
	stored.Items = nil
	r.s.seq++
	r.s.orders[o.ID] = stored
	r.s.orderSeq[o.ID] = r.s.seq
	return nil
}

func (r memOrders) InsertItem(ctx context.Context, q db.Querier, it *models.OrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	r.s.orderItems[it.ID] = *it
	return nil
}

func (r memOrders) GetBySessionID(ctx context.Context, q db.Querier, sessionID string) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.StripeSessionID == sessionID {
			o.Items = []models.OrderItem{}
			return &o, nil
		}
	}
	return nil, apperr.NotFound("order not found")
}

func (r memOrders) Get(ctx context.Context, q db.Querier, id string) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	o.Items = r.s.itemsOf(id)
	return &o, nil
}

func (r memOrders) GetForUpdate(ctx context.Context, q db.Querier, id string) (*models.Order, error) {
	return r.Get(ctx, q, id)
}

func (r memOrders) ListItems(ctx context.Context, q db.Querier, orderID string) ([]models.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.itemsOf(orderID), nil
}

func (r memOrders) list(match func(models.Order) bool) []models.Order {
	out := []models.Order{}
	for _, o := range r.s.orders {
		if match(o) {
			o.Items = r.s.itemsOf(o.ID)
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.orderSeq[out[i].ID] > r.s.orderSeq[out[j].ID] })
	return out
}

func (r memOrders) ListByUser(ctx context.Context, q db.Querier, userID string) ([]models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (r memOrders) ListAll(ctx context.Context, q db.Querier) ([]models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(models.Order) bool { return true }), nil
}

func (r memOrders) UpdateStatus(ctx context.Context, q db.Querier, id string, status models.OrderStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return apperr.NotFound("order not found")
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	r.s.orders[id] = o
	return nil
}

func (r memOrders) GetItemOrderID(ctx context.Context, q db.Querier, itemID string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.orderItems[itemID]
	if !ok {
		return "", apperr.NotFound("order item not found")
	}
	return it.OrderID, nil
}

func (r memOrders) GetItemForUpdate(ctx context.Context, q db.Querier, itemID string) (*models.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.orderItems[itemID]
	if !ok {
		return nil, apperr.NotFound("order item not found")
	}
	return &it, nil
}

func (r memOrders) UpdateItemStatus(ctx context.Context, q db.Querier, itemID string, status models.OrderItemStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.orderItems[itemID]
	if !ok {
		return apperr.NotFound("order item not found")
	}
	it.Status = status
	r.s.orderItems[itemID] = it
	return nil
}

func (r memOrders) UpdateItemsStatus(ctx context.Context, q db.Querier, orderID string, from, to models.OrderItemStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, it := range r.s.orderItems {
		if it.OrderID == orderID && it.Status == from {
			it.Status = to
			r.s.orderItems[id] = it
			n++
		}
	}
	return n, nil
}

func (r memOrders) ListSellerSales(ctx context.Context, q db.Querier, sellerID string, status models.OrderItemStatus) ([]models.SellerSale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.SellerSale{}
	for _, it := range r.s.orderItems {
		if it.SellerID != sellerID || (status != "" && it.Status != status) {
			continue
		}
		o := r.s.orders[it.OrderID]
		out = append(out, models.SellerSale{
			OrderItem: it, BuyerID: o.UserID, OrderStatus: o.Status,
			TrackingCode: o.TrackingCode, OrderedAt: o.CreatedAt,
		})
	}
	return out, nil
}

func (r memOrders) SellerStats(ctx context.Context, q db.Querier, sellerID string) (*models.SellerStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st := &models.SellerStats{TotalRevenue: decimal.Zero}
	for _, it := range r.s.orderItems {
		if it.SellerID != sellerID {
			continue
		}
		st.TotalSales++
		switch it.Status {
		case models.ItemStatusPaid:
			st.Paid++
		case models.ItemStatusShipped:
			st.Shipped++
		case models.ItemStatusDelivered:
			st.Delivered++
		case models.ItemStatusCancelled:
			st.Cancelled++
		}
		if it.Status != models.ItemStatusCancelled {
			st.TotalRevenue = st.TotalRevenue.Add(it.Subtotal)
		}
	}
	return st, nil
}

// payment provider

const validSignature = "t=1,v1=valid"

type fakeProvider struct {
	mu        sync.Mutex
	n         int
	sessions  map[string]*payment.SessionStatus
	requests  []payment.SessionRequest
	createErr error
	getCalls  int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: map[string]*payment.SessionStatus{}}
}

func (f *fakeProvider) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.n++
	id := fmt.Sprintf("cs_test_%d", f.n)
	subtotal := decimal.Zero
	for _, li := range req.LineItems {
		subtotal = subtotal.Add(li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity))))
	}
	_, total := discountBreakdown(subtotal, req.DiscountPercentage)
	f.sessions[id] = &payment.SessionStatus{
		ID:          id,
		Status:      payment.SessionStatusOpen,
		AmountTotal: total,
		Metadata:    copyMap(req.Metadata),
	}
	f.requests = append(f.requests, req)
	return &payment.Session{ID: id, URL: "https://pay.example/" + id}, nil
}

func (f *fakeProvider) GetSession(ctx context.Context, id string) (*payment.SessionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperr.NotFound("checkout session not found")
	}
	cp := *s
	return &cp, nil
}

// ParseWebhook accepts the session id as payload.
func (f *fakeProvider) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if signature != validSignature {
		return nil, apperr.New(apperr.KindInvalidSignature, "invalid webhook signature")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[strings.TrimSpace(string(payload))]
	if !ok {
		return nil, apperr.InvalidInput("unknown session")
	}
	cp := *s
	return &payment.Event{ID: "evt_" + s.ID, Type: payment.EventCheckoutCompleted, Session: &cp}, nil
}

// complete marks a session paid and returns the completed event.
func (f *fakeProvider) complete(id string) *payment.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[id]
	s.Status = payment.SessionStatusComplete
	s.PaymentStatus = payment.PaymentStatusPaid
	s.CustomerEmail = "buyer@example.com"
	cp := *s
	return &payment.Event{ID: "evt_" + id, Type: payment.EventCheckoutCompleted, Session: &cp}
}

func (f *fakeProvider) sessionGets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

// notifications

type fakeSender struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (f *fakeSender) Send(n notify.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
}

func (f *fakeSender) ofType(t notify.Type) []notify.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notify.Notification
	for _, n := range f.sent {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// harness wires every service against the same in-memory store.
type harness struct {
	store    *memStore
	provider *fakeProvider
	sender   *fakeSender
	metrics  *metrics.Metrics

	discounts *DiscountService
	carts     *CartService
	checkout  *CheckoutService
	webhooks  *WebhookService
	orders    *OrderService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()
	provider := newFakeProvider()
	sender := &fakeSender{}
	m := metrics.New(prometheus.NewRegistry())

	products, carts, discountRepo, orders := memProducts{store}, memCarts{store}, memDiscounts{store}, memOrders{store}
	discounts := NewDiscountService(store, discountRepo, log)
	return &harness{
		store:     store,
		provider:  provider,
		sender:    sender,
		metrics:   m,
		discounts: discounts,
		carts:     NewCartService(store, carts, products, log),
		checkout: NewCheckoutService(store, products, orders, discounts, provider,
			cache.NewMemorySessionCache(time.Minute), m, log,
			CheckoutConfig{Currency: "cop", MinChargeAmount: decimal.NewFromInt(1), FrontURL: "http://front.test"}),
		webhooks: NewWebhookService(store, carts, products, orders, discounts, provider, sender, m, log),
		orders:   NewOrderService(store, orders, sender, m, log),
	}
}

var errConnReset = errors.New("connection reset by peer")
