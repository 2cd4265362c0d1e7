package service

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"autonoleggio/internal/db"
	"autonoleggio/internal/entities"
	"autonoleggio/internal/logger"
)

// Notifier delivers booking and fleet notifications to customers and
// operators.
type Notifier interface {
	SendReservationEmail(res entities.ReservationResponse, status string)
	SendReservationSMS(res entities.ReservationResponse, status string)
	SendComplianceAlert(v db.Vehicle, reason string)
}

type NotifyService struct {
	log logger.Logger
}

func NewNotifyService(log logger.Logger) *NotifyService {
	return &NotifyService{log: log}
}

// localTime returns the agency timezone for customer-facing timestamps.
func localTime() *time.Location {
	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		return time.FixedZone("CET", 1*60*60)
	}
	return loc
}

// SendReservationEmail mails the reservation summary in the customer's
// language. The SendGrid call happens on its own goroutine so booking
// flows never wait on the mail provider.
func (s *NotifyService) SendReservationEmail(res entities.ReservationResponse, status string) {
	loc := localTime()

	emailData := entities.ReservationEmailData{
		CustomerName:       res.CustomerName,
		ReservationCode:    res.Code,
		VehicleName:        res.VehicleName,
		VehiclePlate:       res.VehiclePlate,
		StartTimeFormatted: res.StartTime.In(loc).Format("02 Jan 2006 15:04 MST"),
		EndTimeFormatted:   res.EndTime.In(loc).Format("02 Jan 2006 15:04 MST"),
		PriceFormatted:     fmt.Sprintf("%d EUR", res.PriceEUR),
		CurrentYear:        time.Now().In(loc).Year(),
	}

	var emailSubject, plainTextBody string
	switch res.Language {
	case "es":
		emailSubject = fmt.Sprintf("Tu reserva en GreenRent está %s - Código: %s", status, emailData.ReservationCode)
		plainTextBody = fmt.Sprintf(
			"Hola %s,\n\nTu reserva en GreenRent está %s.\n\n"+
				"Detalles de la reserva:\n"+
				"Código de Reserva: %s\n"+
				"Vehículo: %s (Patente: %s)\n"+
				"Retiro: %s\n"+
				"Devolución: %s\n"+
				"Precio: %s\n\n"+
				"Gracias por elegir GreenRent.\n\n"+
				"GreenRent. Todos los derechos reservados.",
			emailData.CustomerName, status, emailData.ReservationCode, emailData.VehicleName, emailData.VehiclePlate,
			emailData.StartTimeFormatted, emailData.EndTimeFormatted, emailData.PriceFormatted,
		)
	case "it":
		emailSubject = fmt.Sprintf("La tua prenotazione GreenRent è %s - Codice: %s", status, emailData.ReservationCode)
		plainTextBody = fmt.Sprintf(
			"Ciao %s,\n\nLa tua prenotazione presso GreenRent è %s.\n\n"+
				"Dettagli della prenotazione:\n"+
				"Codice prenotazione: %s\n"+
				"Veicolo: %s (Targa: %s)\n"+
				"Ritiro: %s\n"+
				"Riconsegna: %s\n"+
				"Prezzo: %s\n\n"+
				"Grazie per aver scelto GreenRent.\n\n"+
				"GreenRent. Tutti i diritti riservati.",
			emailData.CustomerName, status, emailData.ReservationCode, emailData.VehicleName, emailData.VehiclePlate,
			emailData.StartTimeFormatted, emailData.EndTimeFormatted, emailData.PriceFormatted,
		)
	default:
		emailSubject = fmt.Sprintf("Your GreenRent reservation is %s - Code: %s", status, emailData.ReservationCode)
		plainTextBody = fmt.Sprintf(
			"Hello %s,\n\nYour reservation at GreenRent is %s.\n\n"+
				"Reservation Details:\n"+
				"Reservation Code: %s\n"+
				"Vehicle: %s (Plate: %s)\n"+
				"Pick-up: %s\n"+
				"Drop-off: %s\n"+
				"Price: %s\n\n"+
				"Thank you for choosing GreenRent.\n\n"+
				"GreenRent. All rights reserved.",
			emailData.CustomerName, status, emailData.ReservationCode, emailData.VehicleName, emailData.VehiclePlate,
			emailData.StartTimeFormatted, emailData.EndTimeFormatted, emailData.PriceFormatted,
		)
	}

	var htmlBody string
	tmplPath := filepath.Join("internal", "templates", "reservation_email.html")
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		s.log.Warnf("could not parse email template %s: %v", tmplPath, err)
	} else {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, emailData); err != nil {
			s.log.Warnf("could not render email template for reservation %s: %v", emailData.ReservationCode, err)
		} else {
			htmlBody = buf.String()
		}
	}

	go func(toEmail, toName, subject, plainBody, htmlBodyContent string) {
		if err := SendEmailWithSendGrid(toEmail, toName, subject, plainBody, htmlBodyContent); err != nil {
			s.log.Errorf("email delivery failed for reservation %s: %v", emailData.ReservationCode, err)
		}
	}(res.CustomerEmail, emailData.CustomerName, emailSubject, plainTextBody, htmlBody)
}

// SendReservationSMS texts a short status note in the customer's
// language.
func (s *NotifyService) SendReservationSMS(res entities.ReservationResponse, status string) {
	loc := localTime()
	pickup := res.StartTime.In(loc).Format("02/01 15:04")

	var smsMessage string
	switch res.Language {
	case "es":
		smsMessage = fmt.Sprintf("GreenRent: ¡Tu reserva %s está %s!\nRetiro: %s.\nMás detalles en tu correo.",
			res.Code, status, pickup)
	case "it":
		smsMessage = fmt.Sprintf("GreenRent: La tua prenotazione %s è %s!\nRitiro: %s.\nAltri dettagli nella tua email.",
			res.Code, status, pickup)
	default:
		smsMessage = fmt.Sprintf("GreenRent: Reservation %s is %s!\nPick-up: %s.\nMore details in your email.",
			res.Code, status, pickup)
	}

	if err := SendSMS(res.CustomerPhone, smsMessage); err != nil {
		s.log.Errorf("sms delivery failed for reservation %s: %v", res.Code, err)
	}
}

// SendComplianceAlert mails the operations inbox about a vehicle whose
// inspection or insurance is about to lapse.
func (s *NotifyService) SendComplianceAlert(v db.Vehicle, reason string) {
	opsEmail := os.Getenv("OPS_ALERT_EMAIL")
	if opsEmail == "" {
		s.log.Warnf("OPS_ALERT_EMAIL not set, dropping compliance alert for vehicle %s", v.LicensePlate)
		return
	}

	subject := fmt.Sprintf("Compliance alert: %s (%s)", v.Name, v.LicensePlate)
	body := fmt.Sprintf(
		"Vehicle %s (%s, plate %s) needs attention:\n\n%s\n\n"+
			"Move it to maintenance or renew the paperwork before the next rental.",
		v.Name, v.Model, v.LicensePlate, reason,
	)

	go func() {
		if err := SendEmailWithSendGrid(opsEmail, "GreenRent Operations", subject, body, ""); err != nil {
			s.log.Errorf("compliance alert for vehicle %s failed: %v", v.LicensePlate, err)
		}
	}()
}

// SendEmailWithSendGrid delivers one email through SendGrid.
func SendEmailWithSendGrid(toEmailAddress, toName, subject, plainTextContent, htmlContent string) error {
	sendgridAPIKey := os.Getenv("SENDGRID_API_KEY")
	if sendgridAPIKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is not configured")
	}

	fromEmail := os.Getenv("SENDGRID_FROM_EMAIL")
	if fromEmail == "" {
		return fmt.Errorf("SENDGRID_FROM_EMAIL is not configured")
	}

	fromName := os.Getenv("SENDGRID_FROM_NAME")
	if fromName == "" {
		fromName = "GreenRent"
	}

	from := mail.NewEmail(fromName, fromEmail)
	to := mail.NewEmail(toName, toEmailAddress)

	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)

	client := sendgrid.NewSendClient(sendgridAPIKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s failed: %w", toEmailAddress, err)
	}
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
}

// SendSMS delivers one SMS through Twilio. Numbers must be E.164.
func SendSMS(toNumber string, messageBody string) error {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	fromNumber := os.Getenv("TWILIO_FROM_NUMBER")

	if accountSid == "" || authToken == "" || fromNumber == "" {
		return fmt.Errorf("twilio credentials are not fully configured")
	}
	if !strings.HasPrefix(toNumber, "+") {
		return fmt.Errorf("destination number '%s' is not E.164", toNumber)
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   accountSid,
		Password:   authToken,
		AccountSid: accountSid,
	})

	params := &openapi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(fromNumber)
	params.SetBody(messageBody)

	if _, err := client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send to %s failed: %w", toNumber, err)
	}
	return nil
}

// statusTranslation renders a reservation status in the customer's
// language for emails and texts.
func statusTranslation(status db.ReservationStatus, lang string) string {
	switch lang {
	case "es":
		switch status {
		case db.ReservationScheduled:
			return "confirmada"
		case db.ReservationActive:
			return "activa"
		case db.ReservationCompleted:
			return "finalizada"
		case db.ReservationCancelled:
			return "cancelada"
		}
	case "it":
		switch status {
		case db.ReservationScheduled:
			return "confermata"
		case db.ReservationActive:
			return "attiva"
		case db.ReservationCompleted:
			return "conclusa"
		case db.ReservationCancelled:
			return "annullata"
		}
	}
	switch status {
	case db.ReservationScheduled:
		return "confirmed"
	case db.ReservationActive:
		return "active"
	case db.ReservationCompleted:
		return "completed"
	case db.ReservationCancelled:
		return "cancelled"
	}
	return string(status)
}
