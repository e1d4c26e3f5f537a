package notify

import (
	"fmt"
	"strconv"
	"time"
)

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FormatTimeRange форматирует интервал; дата берётся из начала
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", FormatDateTime(start), end.Format("15:04"))
}

// FormatPrice цена в вонах с разделителями разрядов
func FormatPrice(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	s := strconv.FormatInt(amount, 10)
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ' ')
		}
		out = append(out, s[i])
	}
	return sign + string(out) + " ₩"
}
