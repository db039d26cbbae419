package domain

import "errors"

var (
	// Ошибки не найденных сущностей. Сюда же попадают мягко удаленные
	// и истекшие архивные циклы - для внешнего мира их уже нет.
	ErrCycleNotFound = errors.New("cycle not found")

	// Ошибки бизнес-логики
	ErrInvalidDateRange  = errors.New("start date must be before end date")
	ErrInvalidTransition = errors.New("invalid cycle status transition")
	ErrValidation        = errors.New("validation failed")
)
