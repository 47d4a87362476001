package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Clases de error del motor de facturación. Un *InvoiceError siempre envuelve
// exactamente una de ellas, de modo que errors.Is(err, domain.ErrValidation) funciona
// sin importar cuánto contexto se haya agregado.
var (
	ErrValidation         = errors.New("validación fallida")
	ErrCounterUnavailable = errors.New("contador de numeración no disponible")
	ErrPersistence        = errors.New("error de persistencia")
	ErrArtifact           = errors.New("error generando el documento renderizado")
	ErrLifecycle          = errors.New("transición de estado no permitida")
)

// Errores de validación concretos (se envuelven en ErrValidation).
var (
	ErrPriceNotConfirmed  = errors.New("el precio de la reserva no está confirmado")
	ErrAlreadyIssued      = errors.New("la reserva ya tiene un documento emitido")
	ErrSettingsMissing    = errors.New("no hay configuración fiscal para el apartamento")
	ErrChannelNotEmitting = errors.New("el canal no permite emitir documento")
	ErrNegativeAmount     = errors.New("importe negativo en una línea")
	ErrIssuanceInProgress = errors.New("ya hay una emisión en curso para la reserva")
	ErrDocumentLocked     = errors.New("el documento está bloqueado")
	ErrInvalidTransition  = errors.New("transición inválida")
)

// ErrorKind identifica la clase de un InvoiceError.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindCounterUnavailable ErrorKind = "counter_unavailable"
	KindPersistence        ErrorKind = "persistence"
	KindArtifact           ErrorKind = "artifact"
	KindLifecycle          ErrorKind = "lifecycle"
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindCounterUnavailable:
		return ErrCounterUnavailable
	case KindPersistence:
		return ErrPersistence
	case KindArtifact:
		return ErrArtifact
	case KindLifecycle:
		return ErrLifecycle
	default:
		return nil
	}
}

// InvoiceError es el error estructurado que devuelve el motor al llamador.
// RollbackErr solo se llena cuando la compensación (liberar número + borrar borrador)
// también falló: en ese caso queda un número reservado huérfano.
type InvoiceError struct {
	Kind        ErrorKind
	Op          string
	Message     string
	Err         error
	RollbackErr error
}

func (e *InvoiceError) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.RollbackErr != nil {
		msg += " (rollback fallido: " + e.RollbackErr.Error() + ")"
	}
	return msg
}

// Unwrap expone la clase, la causa y el fallo de rollback para errors.Is/As.
func (e *InvoiceError) Unwrap() []error {
	errs := make([]error, 0, 3)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.RollbackErr != nil {
		errs = append(errs, e.RollbackErr)
	}
	return errs
}

// NewValidationError construye un error de precondición.
func NewValidationError(op string, cause error, format string, args ...any) *InvoiceError {
	return &InvoiceError{Kind: KindValidation, Op: op, Err: cause, Message: fmt.Sprintf(format, args...)}
}

// NewCounterError construye un CounterUnavailable.
func NewCounterError(op string, cause error) *InvoiceError {
	return &InvoiceError{Kind: KindCounterUnavailable, Op: op, Err: cause}
}

// NewPersistenceError construye un PersistenceError; rollbackErr puede ser nil.
func NewPersistenceError(op string, cause, rollbackErr error) *InvoiceError {
	return &InvoiceError{Kind: KindPersistence, Op: op, Err: cause, RollbackErr: rollbackErr}
}

// NewArtifactError construye un ArtifactError (no fatal para la emisión).
func NewArtifactError(op string, cause error) *InvoiceError {
	return &InvoiceError{Kind: KindArtifact, Op: op, Err: cause}
}

// NewLifecycleError construye un error de transición ilegal.
func NewLifecycleError(op string, cause error, format string, args ...any) *InvoiceError {
	return &InvoiceError{Kind: KindLifecycle, Op: op, Err: cause, Message: fmt.Sprintf(format, args...)}
}

// KindOf devuelve la clase del error, o "" si no es un InvoiceError.
func KindOf(err error) ErrorKind {
	var ie *InvoiceError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
