package common

import "errors"

// Общие ошибки для всех репозиториев
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	// ErrVersionConflict возвращается, когда запись была изменена
	// параллельным запросом и ожидаемая версия не совпала.
	ErrVersionConflict = errors.New("version conflict")
)
