package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound       = errors.New("recurso no encontrado")
	ErrInvalidInput   = errors.New("entrada inválida")
	ErrDuplicate      = errors.New("recurso duplicado")
	ErrTenantNotFound = errors.New("tienda no encontrada")
	ErrMissingCartKey = errors.New("cart token requerido")
	ErrUnknownEvent   = errors.New("tipo de evento desconocido")
)
