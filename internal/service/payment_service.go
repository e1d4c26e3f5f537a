package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/apperr"
	"github.com/Freeeeeet/consult_booking/internal/availability"
	"github.com/Freeeeeet/consult_booking/internal/events"
	"github.com/Freeeeeet/consult_booking/internal/gateway"
	"github.com/Freeeeeet/consult_booking/internal/model"
	"go.uber.org/zap"
)

// SlotRequest запрошенный интервал
type SlotRequest struct {
	StartAt time.Time `json:"start_at" validate:"required"`
	EndAt   time.Time `json:"end_at" validate:"required"`
}

// CheckoutInput запрос на оформление заказа
type CheckoutInput struct {
	ConsultantID int64         `json:"consultant_id" validate:"required,gt=0"`
	Slots        []SlotRequest `json:"slots" validate:"dive"`
	Method       string        `json:"method" validate:"omitempty,max=32"`
}

// CheckoutResult то, что нужно фронтенду для вызова платёжного окна
type CheckoutResult struct {
	OrderID       int64  `json:"order_id"`
	PaymentID     int64  `json:"payment_id"`
	AppointmentID int64  `json:"appointment_id"`
	MerchantUID   string `json:"merchant_uid"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

// WebhookPayload тело уведомления шлюза. Статус и сумма здесь не доверенные.
type WebhookPayload struct {
	ImpUID      string `json:"imp_uid"`
	MerchantUID string `json:"merchant_uid"`
	Status      string `json:"status"`
	Amount      *int64 `json:"amount,omitempty"`
}

// PaymentDeps зависимости PaymentService
type PaymentDeps struct {
	Tx           TxManager
	Users        UserRepository
	Rules        RuleRepository
	Slots        SlotRepository
	Appointments AppointmentRepository
	Orders       OrderRepository
	Payments     PaymentRepository
	Refunds      RefundRepository
	Ledger       *AppointmentService
	Gateway      gateway.Gateway
	Zones        *availability.Zones
	Links        MeetingLinkBuilder
	Clock        Clock
	Events       events.Publisher
	Logger       *zap.Logger

	// RequirePublishedSlot требовать при оформлении опубликованный слот
	RequirePublishedSlot bool
}

// PaymentService сводит заказы, платежи и записи с уведомлениями шлюза.
// Порядок блокировок: платёж, консультант, записи, затем заказы и возвраты.
type PaymentService struct {
	tx           TxManager
	users        UserRepository
	rules        RuleRepository
	slots        SlotRepository
	appointments AppointmentRepository
	orders       OrderRepository
	payments     PaymentRepository
	refunds      RefundRepository
	ledger       *AppointmentService
	gateway      gateway.Gateway
	zones        *availability.Zones
	links        MeetingLinkBuilder
	clock        Clock
	events       events.Publisher
	logger       *zap.Logger

	requirePublishedSlot bool
}

func NewPaymentService(d PaymentDeps) *PaymentService {
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	return &PaymentService{
		tx:                   d.Tx,
		users:                d.Users,
		rules:                d.Rules,
		slots:                d.Slots,
		appointments:         d.Appointments,
		orders:               d.Orders,
		payments:             d.Payments,
		refunds:              d.Refunds,
		ledger:               d.Ledger,
		gateway:              d.Gateway,
		zones:                d.Zones,
		links:                d.Links,
		clock:                d.Clock,
		events:               d.Events,
		logger:               d.Logger,
		requirePublishedSlot: d.RequirePublishedSlot,
	}
}

// settleOutcome чем закончилась попытка провести оплату
type settleOutcome int

const (
	outcomeNone settleOutcome = iota
	outcomePaid
	outcomeAmountMismatch
	outcomeSlotUnavailable
)

// Quote цена сессии у консультанта
func (s *PaymentService) Quote(ctx context.Context, consultantID int64) (*model.Quote, error) {
	consultant, err := requireConsultant(ctx, s.users, consultantID)
	if err != nil {
		return nil, err
	}
	return &model.Quote{
		ConsultantID: consultant.ID,
		Tier:         consultant.Tier,
		UnitPrice:    UnitPrice(consultant),
	}, nil
}

// Checkout создаёт заказ, холд и ожидающий платёж в одной транзакции
func (s *PaymentService) Checkout(ctx context.Context, clientID int64, in CheckoutInput) (*CheckoutResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if len(in.Slots) != 1 {
		return nil, apperr.Validation("SINGLE_SLOT_ONLY", "exactly one slot per order is supported")
	}
	slot := in.Slots[0]

	consultant, err := requireConsultant(ctx, s.users, in.ConsultantID)
	if err != nil {
		return nil, err
	}

	if s.requirePublishedSlot {
		published, err := s.slots.Exists(ctx, consultant.ID, slot.StartAt, slot.EndAt)
		if err != nil {
			return nil, err
		}
		if !published {
			return nil, apperr.Validation("SLOT_NOT_PUBLISHED", "the consultant has not published this slot")
		}
	}

	method := in.Method
	if method == "" {
		method = DefaultPaymentMethod
	}
	unitPrice := UnitPrice(consultant)

	var (
		result      *CheckoutResult
		appointment *model.Appointment
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order := &model.Order{
			ClientID:     clientID,
			ConsultantID: consultant.ID,
			BundleCount:  1,
			UnitPrice:    unitPrice,
			TotalPrice:   unitPrice,
			Status:       model.OrderStatusCreated,
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}

		a, err := s.ledger.createInTx(ctx, consultant.ID, clientID, slot.StartAt, slot.EndAt)
		if err != nil {
			return err
		}

		if err := s.orders.LinkAppointment(ctx, order.ID, a.ID); err != nil {
			return err
		}

		payment := &model.Payment{
			OrderID:     order.ID,
			MerchantUID: IssueMerchantUID(order.ID),
			Status:      model.PaymentStatusPending,
			Amount:      order.TotalPrice,
			Currency:    Currency,
			Method:      method,
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return err
		}

		appointment = a
		result = &CheckoutResult{
			OrderID:       order.ID,
			PaymentID:     payment.ID,
			AppointmentID: a.ID,
			MerchantUID:   payment.MerchantUID,
			Amount:        payment.Amount,
			Currency:      payment.Currency,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Checkout created",
		zap.Int64("order_id", result.OrderID),
		zap.Int64("appointment_id", result.AppointmentID),
		zap.String("merchant_uid", result.MerchantUID),
		zap.Int64("amount", result.Amount),
	)

	publishAll(ctx, s.events, s.logger, appointmentEvent(events.AppointmentRequested, appointment, s.clock))

	return result, nil
}

// Confirm подтверждение оплаты со стороны клиента после возврата из платёжного окна
func (s *PaymentService) Confirm(ctx context.Context, merchantUID, impUID string) (*model.Payment, error) {
	if merchantUID == "" || impUID == "" {
		return nil, apperr.Validation("INVALID_INPUT", "merchant_uid and imp_uid are required")
	}

	var (
		payment *model.Payment
		outcome settleOutcome
		evs     []events.Event
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.payments.GetByMerchantUIDForUpdate(ctx, merchantUID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NotFound("PAYMENT_NOT_FOUND", "payment %s not found", merchantUID)
		}
		if p.Status != model.PaymentStatusPending {
			return apperr.State("PAYMENT_NOT_PENDING", "payment is already %s", p.Status)
		}

		info, err := s.lookup(ctx, impUID)
		if err != nil {
			return err
		}
		if info.MerchantUID != p.MerchantUID {
			return apperr.Conflict("MERCHANT_UID_MISMATCH", "gateway reports a different merchant_uid")
		}
		if info.Status != gateway.StatusPaid {
			return apperr.State("PAYMENT_NOT_PAID", "gateway reports status %q", info.Status)
		}

		order, err := s.order(ctx, p.OrderID)
		if err != nil {
			return err
		}

		if info.Amount != order.TotalPrice {
			outcome = outcomeAmountMismatch
			evs, err = s.markFailed(ctx, p, order, info)
		} else {
			outcome, evs, err = s.settlePaid(ctx, p, order, info)
		}
		payment = p
		return err
	})
	if err != nil {
		return nil, err
	}

	publishAll(ctx, s.events, s.logger, evs...)

	switch outcome {
	case outcomeAmountMismatch:
		return nil, apperr.Conflict("AMOUNT_MISMATCH", "paid amount does not match the order total")
	case outcomeSlotUnavailable:
		return nil, apperr.Conflict("SLOT_UNAVAILABLE", "the slot is no longer available, payment was refunded")
	}

	return payment, nil
}

// HandleWebhook применяет уведомление шлюза. Доставка at-least-once, поэтому повтор
// любого уведомления ничего не меняет. Ошибка возвращается только при сбое шлюза
// или хранилища, чтобы шлюз повторил доставку.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload WebhookPayload) error {
	if payload.MerchantUID == "" || payload.ImpUID == "" {
		return apperr.Validation("INVALID_WEBHOOK", "imp_uid and merchant_uid are required")
	}

	var evs []events.Event
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.payments.GetByMerchantUIDForUpdate(ctx, payload.MerchantUID)
		if err != nil {
			return err
		}
		if p == nil {
			s.logger.Warn("Webhook for unknown payment", zap.String("merchant_uid", payload.MerchantUID))
			return nil
		}

		info, err := s.lookup(ctx, payload.ImpUID)
		if err != nil {
			return err
		}
		if info.MerchantUID != p.MerchantUID {
			s.logger.Warn("Webhook merchant_uid mismatch",
				zap.String("merchant_uid", p.MerchantUID),
				zap.String("verified_merchant_uid", info.MerchantUID),
			)
			return nil
		}

		order, err := s.order(ctx, p.OrderID)
		if err != nil {
			return err
		}

		switch info.Status {
		case gateway.StatusPaid:
			if p.Status != model.PaymentStatusPending {
				return nil
			}
			if info.Amount != order.TotalPrice {
				evs, err = s.markFailed(ctx, p, order, info)
				return err
			}
			_, evs, err = s.settlePaid(ctx, p, order, info)
			return err

		case gateway.StatusCancelled, gateway.StatusRefunded:
			switch p.Status {
			case model.PaymentStatusPaid:
				appts, err := s.appointments.GetByOrderIDForUpdate(ctx, order.ID)
				if err != nil {
					return err
				}
				evs, err = s.applyRefund(ctx, p, order, appts, model.RefundReasonWebhook)
				return err
			case model.PaymentStatusPending:
				evs, err = s.abandon(ctx, p, order, info)
				return err
			}
			return nil

		case gateway.StatusFailed:
			if p.Status != model.PaymentStatusPending {
				return nil
			}
			evs, err = s.markFailed(ctx, p, order, info)
			return err
		}

		s.logger.Debug("Webhook status ignored",
			zap.String("merchant_uid", p.MerchantUID),
			zap.String("status", info.Status),
		)
		return nil
	})
	if err != nil {
		s.logger.Error("Webhook processing failed",
			zap.String("merchant_uid", payload.MerchantUID),
			zap.String("imp_uid", payload.ImpUID),
			zap.Error(err),
		)
		return err
	}

	publishAll(ctx, s.events, s.logger, evs...)
	return nil
}

// Cancel возврат по инициативе клиента. Отменить можно только до дня консультации.
func (s *PaymentService) Cancel(ctx context.Context, clientID, orderID int64, reason string) (*model.OrderView, error) {
	order, err := s.order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != clientID {
		return nil, apperr.Authorization("NOT_ORDER_OWNER", "order belongs to someone else")
	}
	if reason == "" {
		reason = "USER_CANCEL"
	}

	var evs []events.Event
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.payments.GetByOrderIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NotFound("PAYMENT_NOT_FOUND", "order %d has no payment", orderID)
		}

		// после блокировки платежа статус заказа уже не поменяется
		order, err := s.order(ctx, orderID)
		if err != nil {
			return err
		}

		appts, err := s.appointments.GetByOrderIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		loc, err := s.consultantZone(ctx, order.ConsultantID)
		if err != nil {
			return err
		}
		if err := s.checkCancellable(order, p, appts, loc); err != nil {
			return err
		}

		impUID := ""
		if p.ImpUID != nil {
			impUID = *p.ImpUID
		}
		err = s.gateway.Cancel(ctx, gateway.CancelRequest{
			ImpUID:      impUID,
			MerchantUID: p.MerchantUID,
			Amount:      p.Amount,
			Reason:      reason,
		})
		if err != nil {
			return asGatewayError(err)
		}

		evs, err = s.applyRefund(ctx, p, order, appts, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order cancelled by client",
		zap.Int64("order_id", orderID),
		zap.Int64("client_id", clientID),
		zap.String("reason", reason),
	)

	publishAll(ctx, s.events, s.logger, evs...)

	return s.GetOrder(ctx, clientID, orderID)
}

// GetOrder заказ клиента с платежом, возвратом и записями
func (s *PaymentService) GetOrder(ctx context.Context, clientID, orderID int64) (*model.OrderView, error) {
	order, err := s.order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != clientID {
		return nil, apperr.Authorization("NOT_ORDER_OWNER", "order belongs to someone else")
	}
	return s.view(ctx, order)
}

// ListOrders заказы клиента, новые первыми
func (s *PaymentService) ListOrders(ctx context.Context, clientID int64) ([]*model.OrderView, error) {
	orders, err := s.orders.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	out := make([]*model.OrderView, 0, len(orders))
	for _, o := range orders {
		v, err := s.view(ctx, o)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// settlePaid проводит подтверждённую оплату. Если холд уже снят или интервал занят,
// деньги возвращаются через шлюз.
func (s *PaymentService) settlePaid(ctx context.Context, p *model.Payment, order *model.Order, info *gateway.PaymentInfo) (settleOutcome, []events.Event, error) {
	if _, err := s.users.LockByID(ctx, order.ConsultantID); err != nil {
		return outcomeNone, nil, fmt.Errorf("lock consultant: %w", err)
	}

	appts, err := s.appointments.GetByOrderIDForUpdate(ctx, order.ID)
	if err != nil {
		return outcomeNone, nil, err
	}

	available := len(appts) > 0
	for _, a := range appts {
		if !a.Status.IsBlocking() {
			available = false
			break
		}
		busy, err := s.appointments.ExistsActiveOverlap(ctx, a.ConsultantID, a.StartAt, a.EndAt, a.ID)
		if err != nil {
			return outcomeNone, nil, err
		}
		if busy {
			available = false
			break
		}
	}

	applyGatewayInfo(p, info, s.clock.Now())

	if !available {
		s.logger.Warn("Paid for unavailable slot, refunding",
			zap.Int64("order_id", order.ID),
			zap.String("merchant_uid", p.MerchantUID),
		)
		err := s.gateway.Cancel(ctx, gateway.CancelRequest{
			ImpUID:      info.ImpUID,
			MerchantUID: p.MerchantUID,
			Amount:      info.Amount,
			Reason:      model.RefundReasonSlotUnavailable,
		})
		if err != nil {
			return outcomeNone, nil, asGatewayError(err)
		}
		evs, err := s.applyRefund(ctx, p, order, appts, model.RefundReasonSlotUnavailable)
		if err != nil {
			return outcomeNone, nil, err
		}
		return outcomeSlotUnavailable, evs, nil
	}

	p.Status = model.PaymentStatusPaid
	if err := s.payments.Update(ctx, p); err != nil {
		return outcomeNone, nil, err
	}
	if err := s.orders.UpdateStatus(ctx, order.ID, model.OrderStatusPaid); err != nil {
		return outcomeNone, nil, err
	}
	order.Status = model.OrderStatusPaid

	evs := []events.Event{orderEvent(events.PaymentPaid, order, p.Amount, "", s.clock)}
	for _, a := range appts {
		if a.Status == model.AppointmentStatusApproved && a.MeetingURL != nil {
			continue
		}
		s.ledger.markApproved(a)
		if err := saveAppointment(ctx, s.appointments, a); err != nil {
			return outcomeNone, nil, err
		}
		evs = append(evs, appointmentEvent(events.AppointmentApproved, a, s.clock))
	}

	s.logger.Info("Payment settled",
		zap.Int64("order_id", order.ID),
		zap.String("merchant_uid", p.MerchantUID),
		zap.Int64("amount", p.Amount),
	)

	return outcomePaid, evs, nil
}

// applyRefund переводит оплаченный заказ в возврат: записи отменяются,
// возврат записывается не больше одного раза
func (s *PaymentService) applyRefund(ctx context.Context, p *model.Payment, order *model.Order, appts []*model.Appointment, reason string) ([]events.Event, error) {
	p.Status = model.PaymentStatusRefunded
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, err
	}

	if err := s.cancelAppointments(ctx, appts); err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, model.OrderStatusRefunded); err != nil {
		return nil, err
	}
	order.Status = model.OrderStatusRefunded

	exists, err := s.refunds.ExistsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if !exists {
		now := s.clock.Now()
		_, err := s.refunds.Create(ctx, &model.Refund{
			OrderID:     order.ID,
			Amount:      p.Amount,
			Status:      model.RefundStatusCompleted,
			Reason:      reason,
			CompletedAt: &now,
		})
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("Payment refunded",
		zap.Int64("order_id", order.ID),
		zap.String("merchant_uid", p.MerchantUID),
		zap.String("reason", reason),
	)

	return []events.Event{orderEvent(events.PaymentRefunded, order, p.Amount, reason, s.clock)}, nil
}

// abandon оплата отменена на стороне шлюза до списания: денег не было, возврата нет
func (s *PaymentService) abandon(ctx context.Context, p *model.Payment, order *model.Order, info *gateway.PaymentInfo) ([]events.Event, error) {
	p.Status = model.PaymentStatusFailed
	if p.ImpUID == nil && info.ImpUID != "" {
		p.ImpUID = &info.ImpUID
	}
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, err
	}

	appts, err := s.appointments.GetByOrderIDForUpdate(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if err := s.cancelAppointments(ctx, appts); err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, model.OrderStatusCancelled); err != nil {
		return nil, err
	}
	order.Status = model.OrderStatusCancelled

	return []events.Event{orderEvent(events.PaymentFailed, order, p.Amount, info.Status, s.clock)}, nil
}

// markFailed только платёж; холд снимет очистка
func (s *PaymentService) markFailed(ctx context.Context, p *model.Payment, order *model.Order, info *gateway.PaymentInfo) ([]events.Event, error) {
	p.Status = model.PaymentStatusFailed
	if p.ImpUID == nil && info.ImpUID != "" {
		p.ImpUID = &info.ImpUID
	}
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Warn("Payment failed",
		zap.Int64("order_id", order.ID),
		zap.String("merchant_uid", p.MerchantUID),
		zap.String("gateway_status", info.Status),
		zap.Int64("verified_amount", info.Amount),
		zap.Int64("expected_amount", order.TotalPrice),
	)

	return []events.Event{orderEvent(events.PaymentFailed, order, info.Amount, info.Status, s.clock)}, nil
}

func (s *PaymentService) cancelAppointments(ctx context.Context, appts []*model.Appointment) error {
	for _, a := range appts {
		if a.Status.IsTerminal() {
			continue
		}
		a.Status = model.AppointmentStatusCancelled
		if err := saveAppointment(ctx, s.appointments, a); err != nil {
			return err
		}
	}
	return nil
}

// checkCancellable заказ оплачен, ни одна запись не завершена и не начинается сегодня или раньше
func (s *PaymentService) checkCancellable(order *model.Order, p *model.Payment, appts []*model.Appointment, loc *time.Location) error {
	if order.Status != model.OrderStatusPaid || p == nil || p.Status != model.PaymentStatusPaid {
		return apperr.State("ORDER_NOT_PAID", "only paid orders can be cancelled")
	}

	today := dateIn(s.clock.Now(), loc)
	for _, a := range appts {
		if a.Status.IsTerminal() {
			return apperr.State("APPOINTMENT_NOT_CANCELLABLE", "appointment %d is %s", a.ID, a.Status)
		}
		if !dateIn(a.StartAt, loc).After(today) {
			return apperr.State("CANCELLATION_WINDOW_CLOSED", "cancellation is possible until the day before the session")
		}
	}
	return nil
}

func (s *PaymentService) view(ctx context.Context, order *model.Order) (*model.OrderView, error) {
	p, err := s.payments.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	refund, err := s.refunds.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	appts, err := s.appointments.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	loc, err := s.consultantZone(ctx, order.ConsultantID)
	if err != nil {
		return nil, err
	}

	v := &model.OrderView{
		ID:           order.ID,
		ConsultantID: order.ConsultantID,
		BundleCount:  order.BundleCount,
		UnitPrice:    order.UnitPrice,
		TotalPrice:   order.TotalPrice,
		Status:       order.Status,
		CreatedAt:    order.CreatedAt,
		RefundStatus: "NONE",
		Cancellable:  s.checkCancellable(order, p, appts, loc) == nil,
		Appointments: views(appts),
	}
	if p != nil {
		v.MerchantUID = p.MerchantUID
		v.PaymentStatus = p.Status
		v.PaymentMethod = p.PayMethod
		v.PGProvider = p.PGProvider
		v.CardBrand = p.CardBrand
		v.CardLast4 = p.CardLast4
		v.PaidAt = p.PaidAt
	}
	if refund != nil {
		v.RefundStatus = string(refund.Status)
	}

	return v, nil
}

func (s *PaymentService) lookup(ctx context.Context, impUID string) (*gateway.PaymentInfo, error) {
	info, err := s.gateway.GetPayment(ctx, impUID)
	if err != nil {
		return nil, asGatewayError(err)
	}
	return info, nil
}

func (s *PaymentService) order(ctx context.Context, id int64) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("ORDER_NOT_FOUND", "order %d not found", id)
	}
	return order, nil
}

func (s *PaymentService) consultantZone(ctx context.Context, consultantID int64) (*time.Location, error) {
	rules, err := s.rules.GetByConsultantID(ctx, consultantID)
	if err != nil {
		return nil, fmt.Errorf("get rules: %w", err)
	}
	return s.zones.ForConsultant(rules), nil
}

// applyGatewayInfo данные карты и провайдера берутся только из ответа шлюза
func applyGatewayInfo(p *model.Payment, info *gateway.PaymentInfo, now time.Time) {
	impUID := info.ImpUID
	p.ImpUID = &impUID
	p.PGProvider = optional(info.PGProvider)
	p.PayMethod = optional(info.PayMethod)
	p.ReceiptURL = optional(info.ReceiptURL)
	p.CardBrand = optional(info.CardBrand)
	p.CardLast4 = nil
	if len(info.CardLast4) == 4 {
		p.CardLast4 = optional(info.CardLast4)
	}
	paidAt := info.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}
	p.PaidAt = &paidAt
}

// asGatewayError сбои клиента шлюза приводятся к GatewayError
func asGatewayError(err error) error {
	if apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}
	return apperr.Gateway("GATEWAY_ERROR", err)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
