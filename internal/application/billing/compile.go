package billing

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/rentals-api/internal/domain"
	"github.com/jhoicas/rentals-api/internal/domain/entity"
	"github.com/jhoicas/rentals-api/internal/domain/fiscal"
	"github.com/jhoicas/rentals-api/internal/domain/repository"
)

// CompilerConfig parámetros del compilador.
type CompilerConfig struct {
	// Location zona horaria en la que se determina el año fiscal de emisión.
	Location        *time.Location
	RollbackTimeout time.Duration
	NotifyTimeout   time.Duration
}

func (c CompilerConfig) withDefaults() CompilerConfig {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.RollbackTimeout <= 0 {
		c.RollbackTimeout = 10 * time.Second
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 5 * time.Second
	}
	return c
}

// CompileRequest datos ya cargados para compilar un documento.
type CompileRequest struct {
	Booking   *entity.Booking
	Apartment *entity.Apartment
	Settings  *entity.IssuerSettings
	// Customer reemplaza los datos del huésped si no es nil.
	Customer *entity.CustomerSnapshot
	// Items reemplaza la línea única de estancia si no está vacío.
	Items []fiscal.Item
	// Notes reemplaza las notas por defecto del grupo si no es nil.
	Notes           *string
	LockImmediately bool
}

// IssueOptions opciones de IssueForBooking.
type IssueOptions struct {
	Customer        *entity.CustomerSnapshot
	Items           []fiscal.Item
	Notes           *string
	LockImmediately bool
}

// Compiler genera el documento fiscal de una reserva: reserva el número, finaliza el
// documento y actualiza la reserva. Si algo falla después de reservar, libera el número
// y borra el borrador.
type Compiler struct {
	txRunner      InvoicingTxRunner
	invoiceRepo   repository.InvoiceRepository
	bookingRepo   repository.BookingRepository
	apartmentRepo repository.ApartmentRepository
	settingsRepo  repository.SettingsRepository
	sequence      *SequenceService
	artifacts     ArtifactPipeline // nil: sin representación
	notifier      Notifier         // nil: sin notificación
	guard         BookingGuard     // nil: solo el índice único protege
	log           zerolog.Logger
	cfg           CompilerConfig

	now   func() time.Time
	newID func() string
}

// NewCompiler construye el compilador. artifacts, notifier y guard pueden ser nil.
func NewCompiler(
	txRunner InvoicingTxRunner,
	invoiceRepo repository.InvoiceRepository,
	bookingRepo repository.BookingRepository,
	apartmentRepo repository.ApartmentRepository,
	settingsRepo repository.SettingsRepository,
	sequence *SequenceService,
	artifacts ArtifactPipeline,
	notifier Notifier,
	guard BookingGuard,
	log zerolog.Logger,
	cfg CompilerConfig,
) *Compiler {
	return &Compiler{
		txRunner:      txRunner,
		invoiceRepo:   invoiceRepo,
		bookingRepo:   bookingRepo,
		apartmentRepo: apartmentRepo,
		settingsRepo:  settingsRepo,
		sequence:      sequence,
		artifacts:     artifacts,
		notifier:      notifier,
		guard:         guard,
		log:           log,
		cfg:           cfg.withDefaults(),
		now:           time.Now,
		newID:         func() string { return uuid.New().String() },
	}
}

// IssueForBooking carga reserva, apartamento y configuración y compila el documento.
func (c *Compiler) IssueForBooking(ctx context.Context, bookingID string, opts IssueOptions) (*entity.InvoiceDocument, error) {
	const op = "issue"
	if strings.TrimSpace(bookingID) == "" {
		return nil, domain.NewValidationError(op, domain.ErrInvalidInput, "booking_id vacío")
	}
	booking, err := c.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, domain.NewPersistenceError(op, fmt.Errorf("leer reserva: %w", err), nil)
	}
	if booking == nil {
		return nil, domain.NewValidationError(op, domain.ErrNotFound, "reserva %s no encontrada", bookingID)
	}
	apartment, err := c.apartmentRepo.GetByID(ctx, booking.ApartmentID)
	if err != nil {
		return nil, domain.NewPersistenceError(op, fmt.Errorf("leer apartamento: %w", err), nil)
	}
	if apartment == nil {
		return nil, domain.NewValidationError(op, domain.ErrNotFound, "apartamento %s no encontrado", booking.ApartmentID)
	}
	settings, err := c.settingsRepo.GetByApartmentID(ctx, booking.ApartmentID)
	if err != nil {
		return nil, domain.NewPersistenceError(op, fmt.Errorf("leer configuración fiscal: %w", err), nil)
	}
	return c.Compile(ctx, CompileRequest{
		Booking:         booking,
		Apartment:       apartment,
		Settings:        settings,
		Customer:        opts.Customer,
		Items:           opts.Items,
		Notes:           opts.Notes,
		LockImmediately: opts.LockImmediately,
	})
}

// Compile genera el documento. Ninguna precondición fallida reserva número.
func (c *Compiler) Compile(ctx context.Context, req CompileRequest) (*entity.InvoiceDocument, error) {
	const op = "compile"
	b := req.Booking

	// ── 1. Precondiciones sin E/S ─────────────────────────────────────────────
	if b == nil {
		return nil, domain.NewValidationError(op, domain.ErrInvalidInput, "reserva nula")
	}
	if !b.InvoiceSettings.PriceConfirmed || !b.Price.IsPositive() {
		return nil, domain.NewValidationError(op, domain.ErrPriceNotConfirmed, "reserva %s", b.ID)
	}
	if req.Settings == nil || !req.Settings.Covers(b.ApartmentID) {
		return nil, domain.NewValidationError(op, domain.ErrSettingsMissing, "apartamento %s", b.ApartmentID)
	}
	rule := req.Settings.ResolveChannel(b.Channel)
	if !rule.EmitDocument {
		return nil, domain.NewValidationError(op, domain.ErrChannelNotEmitting, "canal %s", entity.NormalizeChannel(b.Channel))
	}

	// ── 2. Candado por reserva ───────────────────────────────────────────────
	if c.guard != nil {
		ok, err := c.guard.Acquire(ctx, b.ID)
		switch {
		case err != nil:
			c.log.Warn().Err(err).Str("booking_id", b.ID).Msg("candado de emisión no disponible, se continúa")
		case !ok:
			return nil, domain.NewValidationError(op, domain.ErrIssuanceInProgress, "reserva %s", b.ID)
		default:
			defer c.releaseGuard(ctx, b.ID)
		}
	}

	// ── 3. Documento vivo ────────────────────────────────────────────────────
	existing, err := c.liveDocument(ctx, b)
	if err != nil {
		return nil, domain.NewPersistenceError(op, err, nil)
	}
	if existing != nil {
		return nil, domain.NewValidationError(op, domain.ErrAlreadyIssued, "reserva %s tiene el documento %s", b.ID, existing.Number)
	}

	// ── 4. Cálculo fiscal (antes de reservar: una línea negativa no consume número) ──
	calc, err := fiscal.Compute(c.fiscalInput(req, rule))
	if err != nil {
		return nil, domain.NewValidationError(op, err, "cálculo fiscal")
	}

	// ── 5. Borrador provisional ──────────────────────────────────────────────
	now := c.now()
	doc := c.draft(req, calc, now)
	if err := c.invoiceRepo.Create(ctx, doc); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.NewValidationError(op, domain.ErrAlreadyIssued, "reserva %s", b.ID)
		}
		return nil, domain.NewPersistenceError(op, fmt.Errorf("crear borrador: %w", err), nil)
	}

	// ── 6. Reserva del número ────────────────────────────────────────────────
	res, err := c.sequence.reserveWith(ctx, req.Settings, doc.Year, doc.ID)
	if err != nil {
		// La reserva pudo confirmarse aunque el commit reportara error; Release por
		// documento no hace nada si no quedó asignado.
		ie := domain.NewCounterError(op, err)
		ie.RollbackErr = c.rollback(ctx, doc, &Reservation{GroupID: req.Settings.ID, Year: doc.Year, DocumentID: doc.ID})
		return nil, ie
	}

	// ── 7. Finalizar documento y enlazar la reserva en una transacción ───────
	doc.Number = res.Formatted
	doc.SequenceNumber = res.Number
	if req.LockImmediately {
		if err := doc.Transition(entity.StatusIssued, now); err != nil {
			return nil, domain.NewPersistenceError(op, err, c.rollback(ctx, doc, res))
		}
	}
	err = c.txRunner.RunInvoicing(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		bookingRepo repository.BookingRepository,
		_ repository.SequenceRepository,
	) error {
		if err := invoiceRepo.Update(ctx, doc); err != nil {
			return fmt.Errorf("finalizar documento: %w", err)
		}
		if err := bookingRepo.MarkInvoiceEmitted(ctx, b.ID, doc.ID, doc.Number); err != nil {
			return fmt.Errorf("actualizar reserva: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewPersistenceError(op, err, c.rollback(ctx, doc, res))
	}

	c.log.Info().
		Str("document_id", doc.ID).
		Str("booking_id", b.ID).
		Str("number", doc.Number).
		Str("status", string(doc.Status)).
		Msg("documento emitido")

	// ── 8. Representación (no bloqueante) ────────────────────────────────────
	c.attachArtifact(ctx, doc)

	// ── 9. Notificación (fire-and-forget) ────────────────────────────────────
	c.publishAsync(ctx, InvoiceEvent{
		Type:         EventNewInvoice,
		DocumentID:   doc.ID,
		BookingID:    doc.BookingID,
		GroupID:      doc.GroupID,
		Number:       doc.Number,
		CustomerName: doc.Customer.Name,
		Total:        doc.Total,
		OccurredAt:   now,
	})
	return doc, nil
}

// liveDocument devuelve el documento enlazado a la reserva, si existe. Un documento
// anulado sigue contando: conserva su número y la reserva no se vuelve a emitir.
func (c *Compiler) liveDocument(ctx context.Context, b *entity.Booking) (*entity.InvoiceDocument, error) {
	if b.InvoiceSettings.InvoiceEmitted && b.InvoiceSettings.DocumentID != "" {
		doc, err := c.invoiceRepo.GetByID(ctx, b.InvoiceSettings.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("leer documento enlazado: %w", err)
		}
		if doc != nil {
			return doc, nil
		}
	}
	doc, err := c.invoiceRepo.GetByBookingID(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("buscar documento de la reserva: %w", err)
	}
	return doc, nil
}

func (c *Compiler) fiscalInput(req CompileRequest, rule entity.ChannelRule) fiscal.Input {
	s := req.Settings
	in := fiscal.Input{
		ActivityType:     s.ActivityType,
		Price:            req.Booking.Price,
		Description:      stayDescription(req.Booking, req.Apartment),
		Items:            req.Items,
		VATRate:          s.VATRate,
		PricesIncludeVAT: s.PricesIncludeVAT,
	}
	if rule.ApplyWithholding {
		in.Withholding = &fiscal.Withholding{
			Channel: entity.NormalizeChannel(req.Booking.Channel),
			Rate:    rule.WithholdingRate,
			Text:    rule.DisclosureText,
		}
	}
	return in
}

func (c *Compiler) draft(req CompileRequest, calc *fiscal.Result, now time.Time) *entity.InvoiceDocument {
	b, s := req.Booking, req.Settings
	id := c.newID()
	issueDate := now.In(c.cfg.Location)

	customer := entity.CustomerSnapshot{
		Name:    b.Guest.Name,
		Email:   b.Guest.Email,
		Phone:   b.Guest.Phone,
		TaxCode: b.Guest.TaxCode,
		Address: b.Guest.Address,
		Country: b.Guest.Country,
	}
	if req.Customer != nil {
		customer = *req.Customer
	}
	notes := s.DefaultNotes
	if req.Notes != nil {
		notes = *req.Notes
	}
	stay := entity.StayDetails{
		ApartmentID: b.ApartmentID,
		CheckIn:     b.CheckIn,
		CheckOut:    b.CheckOut,
		Nights:      b.Nights(),
		Guests:      b.NumberOfGuests,
		Channel:     entity.NormalizeChannel(b.Channel),
	}
	if req.Apartment != nil {
		stay.ApartmentName = req.Apartment.Name
		stay.ApartmentAddress = req.Apartment.Address
	}

	return &entity.InvoiceDocument{
		ID:           id,
		GroupID:      s.ID,
		BookingID:    b.ID,
		Number:       entity.PlaceholderNumber(id),
		Year:         issueDate.Year(),
		IssueDate:    issueDate,
		DocumentType: s.ActivityType.DocumentType(),
		Issuer: entity.IssuerSnapshot{
			GroupID:      s.ID,
			BusinessName: s.BusinessName,
			Address:      s.Address,
			VATNumber:    s.VATNumber,
			TaxCode:      s.TaxCode,
			Email:        s.Email,
			Phone:        s.Phone,
			IBAN:         s.IBAN,
			ActivityType: s.ActivityType,
		},
		Customer:         customer,
		Stay:             stay,
		Items:            calc.Items,
		Subtotal:         calc.Subtotal,
		TaxAmount:        calc.TaxAmount,
		Total:            calc.Total,
		TaxRate:          calc.TaxRate,
		PricesIncludeVAT: s.PricesIncludeVAT && s.ActivityType == entity.ActivityBusiness,
		Withholding:      calc.Withholding,
		Payment:          ResolvePayment(b),
		Status:           entity.StatusDraft,
		Notes:            notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// rollback libera el número y borra el borrador. Corre sobre un contexto desacoplado
// del llamador para que un timeout del llamador no deje el número huérfano.
func (c *Compiler) rollback(ctx context.Context, doc *entity.InvoiceDocument, res *Reservation) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.RollbackTimeout)
	defer cancel()

	var errs []error
	if res != nil {
		if err := c.sequence.Release(rctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.invoiceRepo.Delete(rctx, doc.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		errs = append(errs, fmt.Errorf("borrar borrador %s: %w", doc.ID, err))
	}
	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	ev := c.log.Error().Bool("rollback_failed", true).Err(err).Str("document_id", doc.ID).Str("booking_id", doc.BookingID)
	if res != nil {
		ev = ev.Str("group_id", res.GroupID).Int("year", res.Year).Int64("number", res.Number)
	}
	ev.Msg("compensación fallida: número reservado huérfano")
	return err
}

func (c *Compiler) releaseGuard(ctx context.Context, bookingID string) {
	gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.RollbackTimeout)
	defer cancel()
	if err := c.guard.Release(gctx, bookingID); err != nil {
		c.log.Warn().Err(err).Str("booking_id", bookingID).Msg("no se pudo liberar el candado de emisión")
	}
}

// attachArtifact pide la representación y guarda la ubicación. Un fallo queda como nota
// interna; el documento sigue siendo válido.
func (c *Compiler) attachArtifact(ctx context.Context, doc *entity.InvoiceDocument) {
	if c.artifacts == nil {
		return
	}
	loc, err := c.artifacts.RenderAndStore(ctx, doc)
	if err != nil {
		c.log.Warn().Err(err).Str("document_id", doc.ID).Msg("representación no generada")
		doc.AppendInternalNote("Generazione documento non riuscita: "+err.Error(), c.now())
	} else {
		doc.ArtifactLocation = loc
		doc.UpdatedAt = c.now()
	}
	if err := c.invoiceRepo.Update(ctx, doc); err != nil {
		c.log.Warn().Err(err).Str("document_id", doc.ID).Msg("no se pudo guardar el resultado de la representación")
	}
}

func (c *Compiler) publishAsync(ctx context.Context, ev InvoiceEvent) {
	publishAsync(ctx, c.notifier, c.cfg.NotifyTimeout, c.log, ev)
}

func publishAsync(ctx context.Context, n Notifier, timeout time.Duration, log zerolog.Logger, ev InvoiceEvent) {
	if n == nil {
		return
	}
	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := n.Publish(nctx, ev); err != nil {
			log.Warn().Err(err).Str("type", ev.Type).Str("document_id", ev.DocumentID).Msg("notificación descartada")
		}
	}()
}

func stayDescription(b *entity.Booking, a *entity.Apartment) string {
	name := "alloggio"
	if a != nil && a.Name != "" {
		name = a.Name
	}
	nights := b.Nights()
	unit := "notti"
	if nights == 1 {
		unit = "notte"
	}
	return fmt.Sprintf("Soggiorno presso %s dal %s al %s (%d %s)",
		name, b.CheckIn.Format("02/01/2006"), b.CheckOut.Format("02/01/2006"), nights, unit)
}

// ── Pago ─────────────────────────────────────────────────────────────────────

// Métodos de pago resueltos.
const (
	PaymentMethodCard         = "card"
	PaymentMethodPayPal       = "paypal"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodPlatform     = "platform"
	PaymentMethodCash         = "cash"
	PaymentMethodOther        = "other"
)

var (
	ibanPattern = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{11,30}$`)
	croPattern  = regexp.MustCompile(`^(CRO|TRN)?[0-9]{11,35}$`)
	otaChannels = map[string]bool{"airbnb": true, "booking.com": true, "booking": true, "expedia": true, "vrbo": true}
)

// ResolvePayment deriva estado y método de pago desde la reserva.
func ResolvePayment(b *entity.Booking) entity.PaymentInfo {
	p := b.Payment
	status := entity.PaymentPending
	if strings.EqualFold(p.Status, entity.BookingPaymentPaid) ||
		(p.Amount.IsPositive() && p.Amount.GreaterThanOrEqual(b.Price)) {
		status = entity.PaymentPaid
	}
	return entity.PaymentInfo{
		Status:    status,
		Method:    inferPaymentMethod(p.Method, p.Reference, b.Channel),
		Reference: p.Reference,
		PaidAt:    p.PaidAt,
	}
}

func inferPaymentMethod(method, reference, channel string) string {
	if m := strings.ToLower(strings.TrimSpace(method)); m != "" {
		return m
	}
	ref := strings.TrimSpace(reference)
	compact := strings.ToUpper(strings.ReplaceAll(ref, " ", ""))
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "pi_"), strings.HasPrefix(lower, "ch_"), strings.HasPrefix(lower, "cs_"):
		return PaymentMethodCard
	case strings.HasPrefix(compact, "PAYID-"), strings.Contains(lower, "paypal"):
		return PaymentMethodPayPal
	case ref != "" && (ibanPattern.MatchString(compact) || croPattern.MatchString(compact)):
		return PaymentMethodBankTransfer
	}
	if otaChannels[entity.NormalizeChannel(channel)] {
		return PaymentMethodPlatform
	}
	return PaymentMethodOther
}
