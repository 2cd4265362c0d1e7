package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"autonoleggio/internal/booking"
	"autonoleggio/internal/db"
	"autonoleggio/internal/entities"
	"autonoleggio/internal/eventbus"
	"autonoleggio/internal/logger"
	"autonoleggio/internal/metrics"
	"autonoleggio/internal/utils"
)

const (
	PaymentMethodOnline = "online"
	PaymentMethodOnSite = "on_site"

	paymentStatusPending = "pending"
	paymentStatusPaid    = "paid"
	paymentStatusRefund  = "refunded"

	msgInvalidWindow  = "drop-off must be after pick-up"
	msgNoAvailability = "no vehicles are available for the requested window"
)

// cancellationNotice is how long before pick-up a reservation can still
// be cancelled.
const cancellationNotice = 12 * time.Hour

var (
	ErrVehicleNotFound     = errors.New("vehicle not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrInvalidWindow       = errors.New(msgInvalidWindow)
	ErrTooLateToCancel     = errors.New("reservations can only be cancelled more than 12 hours before pick-up")
	ErrCannotCancel        = errors.New("reservation can no longer be cancelled")
)

// ReservationStore is the slice of the reservation repository the
// booking service writes and reads through.
type ReservationStore interface {
	ListBlocking(ctx context.Context) ([]db.Reservation, error)
	CreateReservation(ctx context.Context, res *db.Reservation) error
	GetReservationByCode(ctx context.Context, code, email string) (*entities.ReservationResponse, error)
	GetReservationViewByCode(ctx context.Context, code string) (*entities.ReservationResponse, error)
	GetReservationViewBySession(ctx context.Context, sessionID string) (*entities.ReservationResponse, error)
	GetReservationByCodeOnly(ctx context.Context, code string) (*db.Reservation, error)
	UpdateStatusByCode(ctx context.Context, code string, newStatus db.ReservationStatus) (db.ReservationStatus, error)
	MarkVehicleRented(ctx context.Context, vehicleID int) error
	ReleaseVehicleIfIdle(ctx context.Context, vehicleID int) error
	SetStripeSession(ctx context.Context, reservationID int, sessionID string) error
	UpdatePaymentBySessionID(ctx context.Context, sessionID, paymentStatus string) (string, error)
	ListReservations(ctx context.Context, date, status string, vehicleID, limit, offset int) (*entities.ReservationsList, error)
}

// CustomerStore upserts booking customers.
type CustomerStore interface {
	UpsertByEmail(ctx context.Context, c *db.Customer) error
}

// CheckoutProvider opens and refunds online payments.
type CheckoutProvider interface {
	CreateCheckoutSession(amount int64, currency, description, customerEmail, lang string) (string, string, error)
	RefundPaymentBySessionID(sessionID string) error
	SessionIDForPaymentIntent(paymentIntentID string) (string, error)
}

// BookingService answers availability and pricing questions from the
// current snapshot and owns the reservation lifecycle. The database,
// not the snapshot, is authoritative on create: every submission
// re-checks the window inside a transaction.
type BookingService struct {
	fleet     FleetStore
	store     ReservationStore
	customers CustomerStore
	snapshots *SnapshotService
	checkout  CheckoutProvider
	notifier  Notifier
	bus       eventbus.EventBus
	metrics   metrics.Recorder
	log       logger.Logger
}

func NewBookingService(
	fleet FleetStore,
	store ReservationStore,
	customers CustomerStore,
	snapshots *SnapshotService,
	checkout CheckoutProvider,
	notifier Notifier,
	bus eventbus.EventBus,
	rec metrics.Recorder,
	log logger.Logger,
) *BookingService {
	if rec == nil {
		rec = metrics.NopRecorder{}
	}
	return &BookingService{
		fleet:     fleet,
		store:     store,
		customers: customers,
		snapshots: snapshots,
		checkout:  checkout,
		notifier:  notifier,
		bus:       bus,
		metrics:   rec,
		log:       log,
	}
}

// CheckAvailability lists the vehicles free for the requested window.
// An invalid window is answered with an empty list and a message, not
// an error.
func (s *BookingService) CheckAvailability(ctx context.Context, req entities.AvailabilityRequest) (*entities.AvailabilityResponse, error) {
	s.metrics.RecordAvailabilityQuery()

	resp := &entities.AvailabilityResponse{
		RequestedStartTime: req.StartTime,
		RequestedEndTime:   req.EndTime,
		Vehicles:           []entities.VehicleSummary{},
	}

	w := booking.Window{Start: req.StartTime, End: req.EndTime}
	if !w.Valid() {
		resp.Message = msgInvalidWindow
		return resp, nil
	}

	snap, err := s.currentSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	resp.SnapshotVersion = snap.Version

	for _, v := range snap.Available(w) {
		resp.Vehicles = append(resp.Vehicles, toVehicleSummary(v))
	}
	if len(resp.Vehicles) == 0 {
		resp.Message = msgNoAvailability
	}
	return resp, nil
}

// QuotePrice computes the authoritative price for one vehicle and
// window. An invalid window yields a null price with a message.
func (s *BookingService) QuotePrice(ctx context.Context, req entities.QuoteRequest) (*entities.QuoteResponse, error) {
	s.metrics.RecordQuote()

	vehicle, err := s.lookupVehicle(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}

	resp := &entities.QuoteResponse{
		VehicleID: vehicle.ID,
		Currency:  "EUR",
	}

	w := booking.Window{Start: req.StartTime, End: req.EndTime}
	quote, ok := booking.QuoteFor(*vehicle, w)
	if !ok {
		resp.Message = msgInvalidWindow
		return resp, nil
	}
	resp.Tier = quote.Tier
	resp.Days = quote.Days
	resp.Price = &quote.PriceEUR
	return resp, nil
}

// CreateReservation books a vehicle for a customer. The price is always
// recomputed server side; online payments get a Stripe Checkout link,
// on-site payments settle at pick-up. The loser of a concurrent race
// for the same vehicle and window gets booking.ErrVehicleConflict.
func (s *BookingService) CreateReservation(ctx context.Context, req *entities.ReservationRequest) (*entities.ReservationResponse, error) {
	w := booking.Window{Start: req.StartTime, End: req.EndTime}
	if !w.Valid() {
		return nil, ErrInvalidWindow
	}

	vehicle, err := s.lookupVehicle(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	price, ok := booking.CalculatePrice(*vehicle, w)
	if !ok {
		return nil, ErrInvalidWindow
	}

	lang := utils.NormalizeLanguage(req.Language)
	customer := &db.Customer{
		FullName:      req.FullName,
		Email:         req.Email,
		Phone:         req.Phone,
		LicenseNumber: req.LicenseNumber,
		Language:      lang,
	}
	if err := s.customers.UpsertByEmail(ctx, customer); err != nil {
		return nil, err
	}

	method := req.PaymentMethod
	if method != PaymentMethodOnline {
		method = PaymentMethodOnSite
	}

	reservation := &db.Reservation{
		Code:          newReservationCode(),
		VehicleID:     vehicle.ID,
		CustomerID:    customer.ID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Status:        db.ReservationScheduled,
		PriceEUR:      price,
		PaymentMethod: method,
		PaymentStatus: paymentStatusPending,
		Language:      lang,
	}

	if err := s.store.CreateReservation(ctx, reservation); err != nil {
		if errors.Is(err, booking.ErrVehicleConflict) {
			s.metrics.RecordBookingConflict()
			s.log.Infof("conflict creating reservation for vehicle %d [%s, %s)", vehicle.ID, req.StartTime, req.EndTime)
		}
		return nil, err
	}

	resp := &entities.ReservationResponse{
		Code:          reservation.Code,
		VehicleID:     vehicle.ID,
		VehicleName:   vehicle.Name,
		VehiclePlate:  vehicle.LicensePlate,
		StartTime:     reservation.StartTime,
		EndTime:       reservation.EndTime,
		Status:        string(reservation.Status),
		PriceEUR:      price,
		PaymentMethod: method,
		PaymentStatus: reservation.PaymentStatus,
		CustomerName:  customer.FullName,
		CustomerEmail: customer.Email,
		CustomerPhone: customer.Phone,
		Language:      lang,
	}

	if method == PaymentMethodOnline {
		description := fmt.Sprintf("GreenRent reservation %s: %s", reservation.Code, vehicle.Name)
		url, sessionID, err := s.checkout.CreateCheckoutSession(int64(price)*100, "eur", description, customer.Email, lang)
		if err != nil {
			// The reservation stands; the customer pays at pick-up.
			s.log.Errorf("checkout session for reservation %s failed: %v", reservation.Code, err)
			resp.Message = "online payment is unavailable right now, please pay at pick-up"
		} else {
			if err := s.store.SetStripeSession(ctx, reservation.ID, sessionID); err != nil {
				s.log.Errorf("could not attach checkout session to reservation %s: %v", reservation.Code, err)
			}
			resp.CheckoutURL = url
		}
	}

	s.bus.Publish(eventbus.Event{Kind: eventbus.ReservationCreated, VehicleID: vehicle.ID})
	s.metrics.RecordReservationCreated(method)

	status := statusTranslation(db.ReservationScheduled, lang)
	s.notifier.SendReservationEmail(*resp, status)
	s.notifier.SendReservationSMS(*resp, status)

	return resp, nil
}

// sessionCreator implements booking.ReservationCreator for the wizard:
// the frozen vehicle, window and details become an on-site reservation
// in one call.
type sessionCreator struct {
	svc *BookingService
}

func (c sessionCreator) CreateReservation(ctx context.Context, vehicleID int, w booking.Window, d booking.CustomerDetails) (*db.Reservation, error) {
	req := &entities.ReservationRequest{
		VehicleID:     vehicleID,
		StartTime:     w.Start,
		EndTime:       w.End,
		FullName:      d.FullName,
		Email:         d.Email,
		Phone:         d.Phone,
		LicenseNumber: d.LicenseNumber,
		Language:      d.Language,
		PaymentMethod: PaymentMethodOnSite,
	}
	resp, err := c.svc.CreateReservation(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.svc.store.GetReservationByCodeOnly(ctx, resp.Code)
}

// SessionCreator adapts the service to the wizard's creator interface.
func (s *BookingService) SessionCreator() booking.ReservationCreator {
	return sessionCreator{svc: s}
}

// GetReservation returns the customer view of a reservation; the email
// must match the one used to book.
func (s *BookingService) GetReservation(ctx context.Context, code, email string) (*entities.ReservationResponse, error) {
	resp, err := s.store.GetReservationByCode(ctx, code, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return resp, nil
}

// CancelReservation cancels a scheduled reservation more than 12 hours
// before pick-up, refunding an online payment if one was made.
func (s *BookingService) CancelReservation(ctx context.Context, code, email string) error {
	view, err := s.store.GetReservationByCode(ctx, code, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReservationNotFound
		}
		return err
	}
	reservation, err := s.store.GetReservationByCodeOnly(ctx, code)
	if err != nil {
		return err
	}

	if !reservation.Status.CanTransitionTo(db.ReservationCancelled) || reservation.Status == db.ReservationCancelled {
		return ErrCannotCancel
	}
	if reservation.StartTime.Sub(time.Now().UTC()) < cancellationNotice {
		return ErrTooLateToCancel
	}

	if reservation.PaymentStatus == paymentStatusPaid && reservation.StripeSessionID != "" {
		if err := s.checkout.RefundPaymentBySessionID(reservation.StripeSessionID); err != nil {
			return err
		}
		if _, err := s.store.UpdatePaymentBySessionID(ctx, reservation.StripeSessionID, paymentStatusRefund); err != nil {
			s.log.Errorf("could not record refund for reservation %s: %v", code, err)
		}
	}

	if _, err := s.store.UpdateStatusByCode(ctx, code, db.ReservationCancelled); err != nil {
		return err
	}

	s.bus.Publish(eventbus.Event{Kind: eventbus.ReservationCancelled, VehicleID: reservation.VehicleID})

	status := statusTranslation(db.ReservationCancelled, view.Language)
	s.notifier.SendReservationEmail(*view, status)
	s.notifier.SendReservationSMS(*view, status)
	return nil
}

// AdvanceReservation moves a reservation through its lifecycle from
// the rental desk: check-in at pick-up, check-out at return, or a desk
// cancellation. The vehicle status follows the transition and a paid
// online reservation is refunded when the desk cancels it.
func (s *BookingService) AdvanceReservation(ctx context.Context, code string, target db.ReservationStatus) (*entities.ReservationResponse, error) {
	switch target {
	case db.ReservationScheduled, db.ReservationActive, db.ReservationCompleted, db.ReservationCancelled:
	default:
		return nil, fmt.Errorf("%w: unknown status '%s'", booking.ErrInvalidTransition, target)
	}

	reservation, err := s.store.GetReservationByCodeOnly(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	if reservation.Status == target {
		return s.store.GetReservationViewByCode(ctx, code)
	}
	if !reservation.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s cannot become %s", booking.ErrInvalidTransition, reservation.Status, target)
	}

	if target == db.ReservationCancelled && reservation.PaymentStatus == paymentStatusPaid && reservation.StripeSessionID != "" {
		if err := s.checkout.RefundPaymentBySessionID(reservation.StripeSessionID); err != nil {
			return nil, err
		}
		if _, err := s.store.UpdatePaymentBySessionID(ctx, reservation.StripeSessionID, paymentStatusRefund); err != nil {
			s.log.Errorf("could not record refund for reservation %s: %v", code, err)
		}
	}

	if _, err := s.store.UpdateStatusByCode(ctx, code, target); err != nil {
		return nil, err
	}

	switch target {
	case db.ReservationActive:
		if err := s.store.MarkVehicleRented(ctx, reservation.VehicleID); err != nil {
			s.log.Errorf("%v", err)
		}
		s.bus.Publish(eventbus.Event{Kind: eventbus.ReservationAdvanced, VehicleID: reservation.VehicleID})
	case db.ReservationCompleted:
		if err := s.store.ReleaseVehicleIfIdle(ctx, reservation.VehicleID); err != nil {
			s.log.Errorf("%v", err)
		}
		s.bus.Publish(eventbus.Event{Kind: eventbus.ReservationAdvanced, VehicleID: reservation.VehicleID})
	case db.ReservationCancelled:
		if err := s.store.ReleaseVehicleIfIdle(ctx, reservation.VehicleID); err != nil {
			s.log.Errorf("%v", err)
		}
		s.bus.Publish(eventbus.Event{Kind: eventbus.ReservationCancelled, VehicleID: reservation.VehicleID})
	}

	view, err := s.store.GetReservationViewByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if target == db.ReservationCancelled {
		status := statusTranslation(db.ReservationCancelled, view.Language)
		s.notifier.SendReservationEmail(*view, status)
		s.notifier.SendReservationSMS(*view, status)
	}
	s.log.Infof("reservation %s moved to %s", code, target)
	return view, nil
}

// ListReservations returns a filtered page for the admin panel.
func (s *BookingService) ListReservations(ctx context.Context, date, status string, vehicleID, limit, offset int) (*entities.ReservationsList, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListReservations(ctx, date, status, vehicleID, limit, offset)
}

// MarkPaymentBySession records a payment outcome reported by Stripe and
// returns the reservation code it belongs to.
func (s *BookingService) MarkPaymentBySession(ctx context.Context, sessionID, paymentStatus string) (string, error) {
	code, err := s.store.UpdatePaymentBySessionID(ctx, sessionID, paymentStatus)
	if err != nil {
		return "", err
	}
	s.log.Infof("payment for reservation %s is now %s", code, paymentStatus)
	return code, nil
}

// GetReservationBySession resolves a reservation from its Stripe
// Checkout session id, for the payment confirmation page.
func (s *BookingService) GetReservationBySession(ctx context.Context, sessionID string) (*entities.ReservationResponse, error) {
	view, err := s.store.GetReservationViewBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return view, nil
}

// ConfirmOnlinePayment marks a checkout session paid and tells the
// customer their reservation is confirmed.
func (s *BookingService) ConfirmOnlinePayment(ctx context.Context, sessionID string) (string, error) {
	code, err := s.MarkPaymentBySession(ctx, sessionID, paymentStatusPaid)
	if err != nil {
		return "", err
	}
	view, err := s.store.GetReservationViewByCode(ctx, code)
	if err != nil {
		s.log.Errorf("paid reservation %s could not be loaded for notification: %v", code, err)
		return code, nil
	}
	status := statusTranslation(db.ReservationScheduled, view.Language)
	s.notifier.SendReservationEmail(*view, status)
	s.notifier.SendReservationSMS(*view, status)
	return code, nil
}

// RecordExternalRefund handles a refund issued outside the API, for
// example from the Stripe dashboard: the payment is marked refunded and
// the reservation cancelled so the vehicle frees up.
func (s *BookingService) RecordExternalRefund(ctx context.Context, paymentIntentID string) error {
	sessionID, err := s.checkout.SessionIDForPaymentIntent(paymentIntentID)
	if err != nil {
		return err
	}
	code, err := s.store.UpdatePaymentBySessionID(ctx, sessionID, paymentStatusRefund)
	if err != nil {
		return err
	}

	reservation, err := s.store.GetReservationByCodeOnly(ctx, code)
	if err != nil {
		return err
	}
	if reservation.Status.CanTransitionTo(db.ReservationCancelled) && reservation.Status != db.ReservationCancelled {
		if _, err := s.store.UpdateStatusByCode(ctx, code, db.ReservationCancelled); err != nil {
			return err
		}
		s.bus.Publish(eventbus.Event{Kind: eventbus.ReservationCancelled, VehicleID: reservation.VehicleID})
	}

	if view, err := s.store.GetReservationViewByCode(ctx, code); err == nil {
		status := statusTranslation(db.ReservationCancelled, view.Language)
		s.notifier.SendReservationEmail(*view, status)
		s.notifier.SendReservationSMS(*view, status)
	}
	s.log.Infof("external refund recorded for reservation %s", code)
	return nil
}

func (s *BookingService) currentSnapshot(ctx context.Context) (*booking.Snapshot, error) {
	if snap := s.snapshots.Current(); snap != nil {
		return snap, nil
	}
	return s.snapshots.Refresh(ctx)
}

func (s *BookingService) lookupVehicle(ctx context.Context, id int) (*db.Vehicle, error) {
	vehicle, err := s.fleet.GetVehicle(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return vehicle, nil
}

func newReservationCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "GR-" + raw[:8]
}

func toVehicleSummary(v db.Vehicle) entities.VehicleSummary {
	return entities.VehicleSummary{
		ID:           v.ID,
		Name:         v.Name,
		Make:         v.Make,
		Model:        v.Model,
		Year:         v.Year,
		LicensePlate: v.LicensePlate,
		Status:       string(v.Status),
		Rate4h:       v.Rate4h,
		Rate12h:      v.Rate12h,
		DailyRate:    v.DailyRate,
	}
}
