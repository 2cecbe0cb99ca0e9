package booking

import "errors"

// Ошибки бронирования и подтверждения. Хендлеры сопоставляют их
// с кодами API и HTTP-статусами.
var (
	ErrInvalidShift      = errors.New("эта смена недоступна для записи")
	ErrNotAMember        = errors.New("пользователь не является участником комиссии")
	ErrSlotBlocked       = errors.New("запись на слот заблокирована администратором")
	ErrCapacityExceeded  = errors.New("лимит мест на смену исчерпан")
	ErrAlreadyRegistered = errors.New("активная запись на эту смену уже существует")
	ErrNotOwner          = errors.New("запись принадлежит другому пользователю")
	ErrInvalidState      = errors.New("недопустимый статус записи для этой операции")
	ErrWrongDay          = errors.New("подтверждение возможно только в день смены")
	ErrOutsideWindow     = errors.New("текущее время вне окна смены")
	ErrNotFound          = errors.New("запись не найдена")
	ErrCommitteeNotFound = errors.New("комиссия не найдена")
)
