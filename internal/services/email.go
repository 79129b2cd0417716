package services

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"valles-rodes/internal/booking"
	"valles-rodes/internal/models"
)

type EmailService struct {
	host     string
	port     string
	user     string
	pass     string
	from     string
	workshop string
	devMode  bool
	logger   *zap.Logger
}

// NewEmailService logs instead of sending when SMTP is not configured.
func NewEmailService(host, port, user, pass, from, workshop string, logger *zap.Logger) *EmailService {
	devMode := host == "" || user == ""
	if devMode {
		logger.Warn("email service running in dev mode, messages are logged")
	}
	return &EmailService{
		host:     host,
		port:     port,
		user:     user,
		pass:     pass,
		from:     from,
		workshop: workshop,
		devMode:  devMode,
		logger:   logger,
	}
}

// SendBookingNotification tells the workshop about a new booking request.
func (s *EmailService) SendBookingNotification(req models.BookingRequest) error {
	if s.workshop == "" {
		return fmt.Errorf("workshop email not configured")
	}
	subject := fmt.Sprintf("Nueva reserva: %s (%s)", req.Form.Name, serviceName(req.Form.Service))
	return s.sendHTML(s.workshop, subject, bookingBody(req))
}

func serviceName(service string) string {
	switch service {
	case models.ServiceMaintenance:
		return "Mantenimiento programado"
	case models.ServiceTires:
		return "Cambio de neumáticos"
	case models.ServicePickup:
		return "Recogida y entrega"
	default:
		return service
	}
}

func yesNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}

func bookingBody(req models.BookingRequest) string {
	f := req.Form
	rows := [][2]string{
		{"Nombre", f.Name},
		{"Teléfono", f.Phone},
		{"Email", f.Email},
		{"Población", f.City},
		{"Servicio", serviceName(f.Service)},
		{"Modelo", f.Model},
		{"Matrícula", f.Plate},
		{"Fecha", f.Date},
		{"Franja", f.Start + " – " + f.End},
		{"Dirección", f.Address},
		{"Coche de sustitución", yesNo(f.ReplacementCar)},
	}
	if f.Service == models.ServiceTires && f.TireSize != "" {
		rows = append(rows, [2]string{"Medida", f.TireSize})
	}

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #0f172a;">
  <h2 style="margin: 0 0 16px;">Nueva solicitud de reserva</h2>
  <table style="border-collapse: collapse; font-size: 14px;">
`)
	for _, r := range rows {
		fmt.Fprintf(&b, "    <tr><td style=\"padding: 4px 12px 4px 0; color: #64748b;\">%s</td><td style=\"padding: 4px 0;\">%s</td></tr>\n",
			r[0], html.EscapeString(r[1]))
	}
	b.WriteString("  </table>\n")

	if len(req.TireOptions) > 0 {
		b.WriteString("  <h3 style=\"margin: 24px 0 8px;\">Presupuesto orientativo</h3>\n  <ul>\n")
		for _, o := range req.TireOptions {
			fmt.Fprintf(&b, "    <li>%s: %d €/rueda (%s)</li>\n", booking.TierLabel(o.Tier), o.Price, o.ETA)
		}
		b.WriteString("  </ul>\n")
	}

	fmt.Fprintf(&b, "  <p style=\"color: #94a3b8; font-size: 12px;\">Ref. %s</p>\n</body>\n</html>", req.ID)
	return b.String()
}

func (s *EmailService) sendHTML(to, subject, htmlBody string) error {
	if s.devMode {
		s.logger.Info("dev email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.String("body", htmlBody))
		return nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	s.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
