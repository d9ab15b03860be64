package usecase

import "math"

// 送料の固定ルール
const (
	//割引後の金額がこれ以上なら送料無料
	FreeShippingThreshold = 50.0
	//送料（定額）
	FlatShippingCost = 5.99
)

// 通貨は小数2桁に丸める
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// クーポン割引額。小数2桁に丸めた subtotal * pct / 100。
func DiscountAmount(subtotal float64, pct int) float64 {
	return round2(subtotal * float64(pct) / 100)
}

// 割引後の金額に対する送料
func ShippingCost(afterDiscount float64) float64 {
	if afterDiscount >= FreeShippingThreshold {
		return 0
	}
	return FlatShippingCost
}
