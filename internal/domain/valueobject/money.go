package valueobject

import (
	"fmt"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/pkg/apperror"
)

// Ставка сервисного сбора задаётся в базисных пунктах (1 bps = 0.01%),
// чтобы расчёты выполнялись целочисленно, без плавающей точки.
const (
	// DefaultFeeRateBps — сервисный сбор платформы по умолчанию, 2.5%.
	DefaultFeeRateBps int64 = 250
	// feeRateScale — знаменатель ставки: 10000 bps = 100%.
	feeRateScale int64 = 10000
)

// FeeBreakdown — результат расчёта сбора по работе.
// Все суммы в минимальных единицах валюты (кобо).
type FeeBreakdown struct {
	// ServiceFee — комиссия платформы.
	ServiceFee int64 `json:"service_fee"`
	// TotalDue — сколько всего удерживается с заказчика: base + fee.
	TotalDue int64 `json:"total_due"`
	// NetPayout — сколько получает исполнитель: base - fee.
	NetPayout int64 `json:"net_payout"`
}

// ComputeFee рассчитывает сбор, сумму к удержанию и выплату исполнителю.
// Чистая детерминированная функция: округление сбора — half-up,
// инварианты ServiceFee+NetPayout == baseAmount и TotalDue == baseAmount+ServiceFee
// выполняются точно при любых валидных входных данных.
func ComputeFee(baseAmount, feeRateBps int64) (FeeBreakdown, error) {
	if baseAmount <= 0 {
		return FeeBreakdown{}, apperror.New(apperror.ErrCodeValidation, "сумма работы должна быть положительной")
	}
	if feeRateBps < 0 || feeRateBps >= feeRateScale {
		return FeeBreakdown{}, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("ставка сбора должна быть в диапазоне [0, %d) bps", feeRateScale))
	}

	fee := (baseAmount*feeRateBps + feeRateScale/2) / feeRateScale

	return FeeBreakdown{
		ServiceFee: fee,
		TotalDue:   baseAmount + fee,
		NetPayout:  baseAmount - fee,
	}, nil
}

// SplitShare рассчитывает долю исполнителя при частичном разделении эскроу.
// amount делится по ставке shareBps с округлением half-up.
func SplitShare(amount, shareBps int64) (int64, error) {
	if shareBps <= 0 || shareBps >= feeRateScale {
		return 0, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("доля исполнителя должна быть в диапазоне (0, %d) bps", feeRateScale))
	}
	return (amount*shareBps + feeRateScale/2) / feeRateScale, nil
}
