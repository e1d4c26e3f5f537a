// Package gateway описывает, что сервисы оплаты ожидают от внешнего платёжного шлюза.
package gateway

import (
	"context"
	"time"
)

// Статусы платежа в ответе шлюза
const (
	StatusPaid      = "paid"
	StatusReady     = "ready"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusRefunded  = "refunded"
)

// PaymentInfo проверенные шлюзом данные платежа. Всё, что пишется в Payment
// кроме статуса, берётся отсюда, а не из тела вебхука.
type PaymentInfo struct {
	ImpUID      string
	MerchantUID string
	Status      string
	Amount      int64
	PGProvider  string
	PayMethod   string
	ReceiptURL  string
	CardBrand   string
	CardLast4   string
	PaidAt      time.Time // нулевое, если шлюз не сообщил
}

// CancelRequest запрос на полный возврат
type CancelRequest struct {
	ImpUID      string
	MerchantUID string
	Amount      int64
	Reason      string
}

// Gateway внешний платёжный шлюз
type Gateway interface {
	// GetPayment запрашивает платёж по id транзакции шлюза
	GetPayment(ctx context.Context, impUID string) (*PaymentInfo, error)
	// Cancel отменяет оплаченный платёж
	Cancel(ctx context.Context, req CancelRequest) error
}

// Last4 последние четыре цифры из маскированного номера карты ("1234-****-****-4929").
// Если цифр меньше четырёх, возвращает пустую строку.
func Last4(cardNumber string) string {
	digits := make([]byte, 0, 4)
	for i := len(cardNumber) - 1; i >= 0 && len(digits) < 4; i-- {
		c := cardNumber[i]
		if c >= '0' && c <= '9' {
			digits = append(digits, c)
			continue
		}
		if c != '-' && c != ' ' {
			return ""
		}
	}
	if len(digits) < 4 {
		return ""
	}
	return string([]byte{digits[3], digits[2], digits[1], digits[0]})
}
