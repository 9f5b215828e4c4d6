package service

import "errors"

// Ошибки сервиса
var (
	// InvalidInput
	ErrInvalidURL         = errors.New("невалидный URL")
	ErrInvalidShortFormat = errors.New("невалидный короткий код")

	// Conflict
	ErrShortTaken = errors.New("короткий код уже занят")

	ErrNotFound = errors.New("ссылка не найдена")

	// Операционные ошибки, не исправляются клиентом
	ErrAllocationExhausted = errors.New("не удалось подобрать свободный короткий код")
	ErrStoreUnavailable    = errors.New("хранилище недоступно")

	ErrInvalidCredentials = errors.New("неверный пароль")
	ErrInvalidToken       = errors.New("невалидный токен администратора")
)
