package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/availability"
	"github.com/Freeeeeet/consult_booking/internal/events"
	"github.com/Freeeeeet/consult_booking/internal/gateway"
	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/Freeeeeet/consult_booking/internal/repository"
	"go.uber.org/zap"
)

// fakeDB хранилище в памяти. Транзакции сериализуются одним мьютексом,
// откат восстанавливает снимок.
type fakeDB struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data *dataset
	seq  int64
}

type dataset struct {
	users      map[int64]model.User
	rules      map[int64]model.AvailabilityRule
	slots      map[int64]model.AvailableSlot
	appts      map[int64]model.Appointment
	orders     map[int64]model.Order
	orderAppts map[int64][]int64
	payments   map[int64]model.Payment
	refunds    map[int64]model.Refund
}

func newFakeDB() *fakeDB {
	return &fakeDB{data: &dataset{
		users:      map[int64]model.User{},
		rules:      map[int64]model.AvailabilityRule{},
		slots:      map[int64]model.AvailableSlot{},
		appts:      map[int64]model.Appointment{},
		orders:     map[int64]model.Order{},
		orderAppts: map[int64][]int64{},
		payments:   map[int64]model.Payment{},
		refunds:    map[int64]model.Refund{},
	}}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		users:      maps.Clone(d.users),
		rules:      maps.Clone(d.rules),
		slots:      maps.Clone(d.slots),
		appts:      maps.Clone(d.appts),
		orders:     maps.Clone(d.orders),
		orderAppts: make(map[int64][]int64, len(d.orderAppts)),
		payments:   maps.Clone(d.payments),
		refunds:    maps.Clone(d.refunds),
	}
	for k, v := range d.orderAppts {
		c.orderAppts[k] = slices.Clone(v)
	}
	return c
}

type fakeTxKey struct{}

func (db *fakeDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	snapshot := db.data.clone()
	db.mu.Unlock()

	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		db.mu.Lock()
		db.data = snapshot
		db.mu.Unlock()
		return err
	}
	return nil
}

func (db *fakeDB) nextID() int64 {
	db.seq++
	return db.seq
}

// read снимок под мьютексом для проверок в тестах
func (db *fakeDB) read(fn func(d *dataset)) {
	db.mu.Lock()
	defer db.mu.Unlock()
	fn(db.data)
}

func (db *fakeDB) appointment(id int64) model.Appointment {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.data.appts[id]
}

func (db *fakeDB) order(id int64) model.Order {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.data.orders[id]
}

func (db *fakeDB) paymentByOrder(orderID int64) model.Payment {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, p := range db.data.payments {
		if p.OrderID == orderID {
			return p
		}
	}
	return model.Payment{}
}

func (db *fakeDB) refundCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.data.refunds)
}

// --- users

type fakeUsers struct{ db *fakeDB }

func (r fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.data.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r fakeUsers) LockByID(ctx context.Context, id int64) (*model.User, error) {
	if ctx.Value(fakeTxKey{}) == nil {
		return nil, fmt.Errorf("lock user outside transaction")
	}
	return r.GetByID(ctx, id)
}

// --- rules

type fakeRules struct{ db *fakeDB }

func (r fakeRules) Create(_ context.Context, rule *model.AvailabilityRule) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rule.ID = r.db.nextID()
	r.db.data.rules[rule.ID] = *rule
	return nil
}

func (r fakeRules) GetByID(_ context.Context, id int64) (*model.AvailabilityRule, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rule, ok := r.db.data.rules[id]
	if !ok {
		return nil, nil
	}
	return &rule, nil
}

func (r fakeRules) GetByConsultantID(_ context.Context, consultantID int64) ([]*model.AvailabilityRule, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.AvailabilityRule
	for _, rule := range r.db.data.rules {
		if rule.ConsultantID == consultantID {
			out = append(out, &rule)
		}
	}
	slices.SortFunc(out, func(a, b *model.AvailabilityRule) int { return int(a.ID - b.ID) })
	return out, nil
}

func (r fakeRules) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.data.rules, id)
	return nil
}

// --- slots

type fakeSlots struct{ db *fakeDB }

func (r fakeSlots) Create(_ context.Context, slot *model.AvailableSlot) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.data.slots {
		if s.ConsultantID == slot.ConsultantID && s.StartAt.Equal(slot.StartAt) && s.EndAt.Equal(slot.EndAt) {
			return false, nil
		}
	}
	slot.ID = r.db.nextID()
	r.db.data.slots[slot.ID] = *slot
	return true, nil
}

func (r fakeSlots) GetByID(_ context.Context, id int64) (*model.AvailableSlot, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.data.slots[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r fakeSlots) ListInRange(_ context.Context, consultantID int64, from, to time.Time) ([]*model.AvailableSlot, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.AvailableSlot
	for _, s := range r.db.data.slots {
		if s.ConsultantID == consultantID && !s.StartAt.Before(from) && s.StartAt.Before(to) {
			out = append(out, &s)
		}
	}
	slices.SortFunc(out, func(a, b *model.AvailableSlot) int { return a.StartAt.Compare(b.StartAt) })
	return out, nil
}

func (r fakeSlots) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.data.slots, id)
	return nil
}

func (r fakeSlots) Exists(_ context.Context, consultantID int64, start, end time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.data.slots {
		if s.ConsultantID == consultantID && s.StartAt.Equal(start) && s.EndAt.Equal(end) {
			return true, nil
		}
	}
	return false, nil
}

// --- appointments

type fakeAppointments struct {
	db    *fakeDB
	clock *fakeClock
}

func (r fakeAppointments) Create(_ context.Context, a *model.Appointment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a.ID = r.db.nextID()
	a.Version = 0
	a.CreatedAt = r.clock.Now()
	a.UpdatedAt = a.CreatedAt
	r.db.data.appts[a.ID] = *a
	return nil
}

func (r fakeAppointments) GetByID(_ context.Context, id int64) (*model.Appointment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.data.appts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r fakeAppointments) GetByIDForUpdate(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.GetByID(ctx, id)
}

func (r fakeAppointments) LockStaleRequested(_ context.Context, id int64, cutoff time.Time) (*model.Appointment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.data.appts[id]
	if !ok || a.Status != model.AppointmentStatusRequested || !a.CreatedAt.Before(cutoff) {
		return nil, nil
	}
	return &a, nil
}

func (r fakeAppointments) GetByOrderID(_ context.Context, orderID int64) ([]*model.Appointment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Appointment
	for _, id := range r.db.data.orderAppts[orderID] {
		a := r.db.data.appts[id]
		out = append(out, &a)
	}
	return out, nil
}

func (r fakeAppointments) GetByOrderIDForUpdate(ctx context.Context, orderID int64) ([]*model.Appointment, error) {
	return r.GetByOrderID(ctx, orderID)
}

func (r fakeAppointments) filter(keep func(a model.Appointment) bool) []*model.Appointment {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Appointment
	for _, a := range r.db.data.appts {
		if keep(a) {
			out = append(out, &a)
		}
	}
	slices.SortFunc(out, func(a, b *model.Appointment) int { return b.StartAt.Compare(a.StartAt) })
	return out
}

func (r fakeAppointments) GetByClientID(_ context.Context, clientID int64) ([]*model.Appointment, error) {
	return r.filter(func(a model.Appointment) bool { return a.ClientID == clientID }), nil
}

func (r fakeAppointments) GetByConsultantID(_ context.Context, consultantID int64) ([]*model.Appointment, error) {
	return r.filter(func(a model.Appointment) bool { return a.ConsultantID == consultantID }), nil
}

func (r fakeAppointments) GetStaleRequestedIDs(_ context.Context, cutoff time.Time, limit int) ([]int64, error) {
	stale := r.filter(func(a model.Appointment) bool {
		return a.Status == model.AppointmentStatusRequested && a.CreatedAt.Before(cutoff)
	})
	slices.SortFunc(stale, func(a, b *model.Appointment) int { return a.CreatedAt.Compare(b.CreatedAt) })
	var ids []int64
	for _, a := range stale {
		if len(ids) == limit {
			break
		}
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (r fakeAppointments) ExistsActiveOverlap(_ context.Context, consultantID int64, start, end time.Time, excludeID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.data.appts {
		if a.ConsultantID != consultantID || (excludeID != 0 && a.ID == excludeID) {
			continue
		}
		if a.Status.IsBlocking() && a.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeAppointments) Update(_ context.Context, a *model.Appointment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.data.appts[a.ID]
	if !ok || stored.Version != a.Version {
		return repository.ErrStaleVersion
	}
	if stored.Status != a.Status && !stored.Status.CanTransitionTo(a.Status) {
		return fmt.Errorf("illegal appointment transition %s -> %s", stored.Status, a.Status)
	}
	a.Version++
	a.UpdatedAt = r.clock.Now()
	r.db.data.appts[a.ID] = *a
	return nil
}

// --- orders

type fakeOrders struct{ db *fakeDB }

func (r fakeOrders) Create(_ context.Context, o *model.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o.ID = r.db.nextID()
	r.db.data.orders[o.ID] = *o
	return nil
}

func (r fakeOrders) GetByID(_ context.Context, id int64) (*model.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.data.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r fakeOrders) GetByClientID(_ context.Context, clientID int64) ([]*model.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Order
	for _, o := range r.db.data.orders {
		if o.ClientID == clientID {
			out = append(out, &o)
		}
	}
	slices.SortFunc(out, func(a, b *model.Order) int { return int(b.ID - a.ID) })
	return out, nil
}

func (r fakeOrders) UpdateStatus(_ context.Context, id int64, status model.OrderStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.data.orders[id]
	if !ok {
		return fmt.Errorf("order %d not found", id)
	}
	o.Status = status
	r.db.data.orders[id] = o
	return nil
}

func (r fakeOrders) LinkAppointment(_ context.Context, orderID, appointmentID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.data.orderAppts[orderID] = append(r.db.data.orderAppts[orderID], appointmentID)
	return nil
}

func (r fakeOrders) CancelCreatedByAppointment(_ context.Context, appointmentID int64) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var ids []int64
	for orderID, appts := range r.db.data.orderAppts {
		o := r.db.data.orders[orderID]
		if o.Status == model.OrderStatusCreated && slices.Contains(appts, appointmentID) {
			o.Status = model.OrderStatusCancelled
			r.db.data.orders[orderID] = o
			ids = append(ids, orderID)
		}
	}
	return ids, nil
}

// --- payments

type fakePayments struct{ db *fakeDB }

func (r fakePayments) Create(_ context.Context, p *model.Payment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.data.payments {
		if existing.MerchantUID == p.MerchantUID || existing.OrderID == p.OrderID {
			return fmt.Errorf("duplicate payment")
		}
	}
	p.ID = r.db.nextID()
	r.db.data.payments[p.ID] = *p
	return nil
}

func (r fakePayments) find(match func(p model.Payment) bool) *model.Payment {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.data.payments {
		if match(p) {
			return &p
		}
	}
	return nil
}

func (r fakePayments) GetByMerchantUIDForUpdate(_ context.Context, merchantUID string) (*model.Payment, error) {
	return r.find(func(p model.Payment) bool { return p.MerchantUID == merchantUID }), nil
}

func (r fakePayments) GetByOrderIDForUpdate(_ context.Context, orderID int64) (*model.Payment, error) {
	return r.find(func(p model.Payment) bool { return p.OrderID == orderID }), nil
}

func (r fakePayments) GetByOrderID(_ context.Context, orderID int64) (*model.Payment, error) {
	return r.find(func(p model.Payment) bool { return p.OrderID == orderID }), nil
}

func (r fakePayments) Update(_ context.Context, p *model.Payment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.data.payments[p.ID]
	if !ok || stored.Version != p.Version {
		return repository.ErrStaleVersion
	}
	if stored.MerchantUID != p.MerchantUID {
		return fmt.Errorf("merchant_uid is immutable")
	}
	if stored.Status != p.Status && !stored.Status.CanTransitionTo(p.Status) {
		return fmt.Errorf("illegal payment transition %s -> %s", stored.Status, p.Status)
	}
	p.Version++
	r.db.data.payments[p.ID] = *p
	return nil
}

// --- refunds

type fakeRefunds struct{ db *fakeDB }

func (r fakeRefunds) Create(_ context.Context, rf *model.Refund) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.data.refunds[rf.OrderID]; ok {
		return false, nil
	}
	rf.ID = r.db.nextID()
	r.db.data.refunds[rf.OrderID] = *rf
	return true, nil
}

func (r fakeRefunds) ExistsByOrderID(_ context.Context, orderID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, ok := r.db.data.refunds[orderID]
	return ok, nil
}

func (r fakeRefunds) GetByOrderID(_ context.Context, orderID int64) (*model.Refund, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rf, ok := r.db.data.refunds[orderID]
	if !ok {
		return nil, nil
	}
	return &rf, nil
}

// --- collaborators

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeGateway struct {
	mu        sync.Mutex
	payments  map[string]gateway.PaymentInfo
	cancels   []gateway.CancelRequest
	lookupErr error
	cancelErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: map[string]gateway.PaymentInfo{}}
}

func (g *fakeGateway) set(info gateway.PaymentInfo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[info.ImpUID] = info
}

func (g *fakeGateway) GetPayment(_ context.Context, impUID string) (*gateway.PaymentInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lookupErr != nil {
		return nil, g.lookupErr
	}
	info, ok := g.payments[impUID]
	if !ok {
		return nil, fmt.Errorf("payment %s not found", impUID)
	}
	return &info, nil
}

func (g *fakeGateway) Cancel(_ context.Context, req gateway.CancelRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelErr != nil {
		return g.cancelErr
	}
	g.cancels = append(g.cancels, req)
	return nil
}

func (g *fakeGateway) cancelled() []gateway.CancelRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.cancels)
}

type recordedEvents struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recordedEvents) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
	return nil
}

func (r *recordedEvents) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, e := range r.got {
		out = append(out, e.Key)
	}
	return out
}

func (r *recordedEvents) count(key string) int {
	n := 0
	for _, k := range r.keys() {
		if k == key {
			n++
		}
	}
	return n
}

// --- environment

const (
	consultantID     int64 = 1
	clientID         int64 = 2
	otherClientID    int64 = 3
	juniorID         int64 = 4
	noRulesID        int64 = 5
	seoulZone              = "Asia/Seoul"
	firstUserAutoIDs int64 = 100
)

var seoul = mustLoad(seoulZone)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// monday интервал в понедельник 2025-03-03 по Сеулу
func monday(h, m int) time.Time {
	return time.Date(2025, 3, 3, h, m, 0, 0, seoul)
}

type testEnv struct {
	db       *fakeDB
	clock    *fakeClock
	gw       *fakeGateway
	events   *recordedEvents
	ledger   *AppointmentService
	payments *PaymentService
	avail    *AvailabilityService
	slots    *SlotService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newFakeDB()
	db.seq = firstUserAutoIDs
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, seoul)} // суббота
	gw := newFakeGateway()
	rec := &recordedEvents{}
	logger := zap.NewNop()

	override := int64(42000)
	db.data.users[consultantID] = model.User{ID: consultantID, Role: model.UserRoleConsultant, Tier: model.TierSenior}
	db.data.users[clientID] = model.User{ID: clientID, Role: model.UserRoleClient}
	db.data.users[otherClientID] = model.User{ID: otherClientID, Role: model.UserRoleClient}
	db.data.users[juniorID] = model.User{ID: juniorID, Role: model.UserRoleConsultant, Tier: model.TierJunior, BasePrice: &override}
	db.data.users[noRulesID] = model.User{ID: noRulesID, Role: model.UserRoleConsultant, Tier: model.TierExecutive}

	for _, r := range []model.AvailabilityRule{
		{ID: 10, ConsultantID: consultantID, Weekday: 1, StartTime: 10 * 60, EndTime: 12 * 60, SlotMinutes: 30, ZoneID: seoulZone},
		{ID: 11, ConsultantID: consultantID, Weekday: 6, StartTime: 10 * 60, EndTime: 12 * 60, SlotMinutes: 30, ZoneID: seoulZone},
		{ID: 12, ConsultantID: juniorID, Weekday: 1, StartTime: 10 * 60, EndTime: 12 * 60, SlotMinutes: 60, ZoneID: seoulZone},
	} {
		db.data.rules[r.ID] = r
	}

	engine := availability.NewEngine(availability.NewZones(seoulZone))
	links := MeetingLinks{}

	ledger := NewAppointmentService(AppointmentDeps{
		Tx:           db,
		Users:        fakeUsers{db},
		Rules:        fakeRules{db},
		Appointments: fakeAppointments{db: db, clock: clock},
		Orders:       fakeOrders{db},
		Engine:       engine,
		Links:        links,
		Clock:        clock,
		Events:       rec,
		HoldTTL:      15 * time.Minute,
		Logger:       logger,
	})

	payments := NewPaymentService(PaymentDeps{
		Tx:           db,
		Users:        fakeUsers{db},
		Rules:        fakeRules{db},
		Slots:        fakeSlots{db},
		Appointments: fakeAppointments{db: db, clock: clock},
		Orders:       fakeOrders{db},
		Payments:     fakePayments{db},
		Refunds:      fakeRefunds{db},
		Ledger:       ledger,
		Gateway:      gw,
		Zones:        engine.Zones(),
		Links:        links,
		Clock:        clock,
		Events:       rec,
		Logger:       logger,
	})

	return &testEnv{
		db:       db,
		clock:    clock,
		gw:       gw,
		events:   rec,
		ledger:   ledger,
		payments: payments,
		avail:    NewAvailabilityService(fakeUsers{db}, fakeRules{db}, engine, logger),
		slots:    NewSlotService(db, fakeUsers{db}, fakeRules{db}, fakeSlots{db}, engine.Zones(), logger),
	}
}
