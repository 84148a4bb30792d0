package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength       = 3
	MaxUsernameLength       = 30
	MinJobTitleLength       = 3
	MaxJobTitleLength       = 200
	MinJobDescriptionLength = 10
	MaxJobDescriptionLength = 5000
	MaxCategoryLength       = 100
	MaxLocationLength       = 100
	MaxSkillLength          = 50
	MaxSkillsCount          = 50
	MaxEvidenceRefs         = 20
	MaxEvidenceRefLength    = 500
	MinPasswordLength       = 8
	MinRating               = 1
	MaxRating               = 5
	// MaxJobAmount — 100 миллионов в основной валюте, в минимальных единицах.
	MaxJobAmount = int64(100_000_000) * 100
)

// ValidateLength проверяет длину строки в рунах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("некорректный email")
	}
	return nil
}

// ValidateAmount проверяет сумму работы в минимальных единицах.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("сумма работы должна быть положительной")
	}
	if amount > MaxJobAmount {
		return fmt.Errorf("сумма работы превышает допустимый максимум")
	}
	return nil
}

// ValidateDeadline проверяет, что дедлайн строго в будущем.
func ValidateDeadline(deadline time.Time) error {
	if !deadline.After(time.Now()) {
		return fmt.Errorf("дедлайн должен быть в будущем")
	}
	return nil
}

// ValidateSkills проверяет список требуемых навыков.
func ValidateSkills(skills []string) error {
	if len(skills) == 0 {
		return fmt.Errorf("укажите хотя бы один требуемый навык")
	}
	if len(skills) > MaxSkillsCount {
		return fmt.Errorf("слишком много навыков, максимум %d", MaxSkillsCount)
	}
	for _, skill := range skills {
		if strings.TrimSpace(skill) == "" {
			return fmt.Errorf("навык не может быть пустым")
		}
		if err := ValidateLength("навык", skill, 1, MaxSkillLength); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRating проверяет оценку работы заказчиком.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("оценка должна быть от %d до %d", MinRating, MaxRating)
	}
	return nil
}

// ValidateEvidenceRefs проверяет ссылки на подтверждающие материалы.
func ValidateEvidenceRefs(refs []string) error {
	if len(refs) > MaxEvidenceRefs {
		return fmt.Errorf("слишком много материалов, максимум %d", MaxEvidenceRefs)
	}
	for _, ref := range refs {
		if err := ValidateLength("ссылка на материал", ref, 1, MaxEvidenceRefLength); err != nil {
			return err
		}
	}
	return nil
}
