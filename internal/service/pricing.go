package service

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/google/uuid"
)

const (
	// DefaultUnitPrice цена для неизвестного уровня
	DefaultUnitPrice int64 = 50000
	Currency               = "KRW"
	DefaultPaymentMethod   = "card"
)

var tierPrices = map[model.ConsultantTier]int64{
	model.TierJunior:    30000,
	model.TierSenior:    50000,
	model.TierExecutive: 80000,
}

// UnitPrice цена одной сессии: фиксированная цена консультанта, иначе цена уровня
func UnitPrice(consultant *model.User) int64 {
	if consultant.BasePrice != nil && *consultant.BasePrice > 0 {
		return *consultant.BasePrice
	}
	if price, ok := tierPrices[consultant.Tier]; ok {
		return price
	}
	return DefaultUnitPrice
}

// IssueMerchantUID CF-ORD-{orderID}-{uuid без дефисов}
func IssueMerchantUID(orderID int64) string {
	return fmt.Sprintf("CF-ORD-%d-%s", orderID, strings.ReplaceAll(uuid.NewString(), "-", ""))
}
