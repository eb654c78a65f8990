// errors.go - ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrUnauthenticated - операция требует проверенной личности, а её нет.
	ErrUnauthenticated = errors.New("требуется аутентификация")
	// ErrInternal - сбой зависимости; причина пишется в лог, наружу не отдаётся.
	ErrInternal = errors.New("внутренняя ошибка")
	// ErrInvalidRole - некорректная роль.
	ErrInvalidRole = errors.New("некорректная роль: допустимые значения - admin, support, user")
	// ErrNotFound - пользователь не найден.
	ErrNotFound = errors.New("пользователь не найден")
)
