package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/ManuelReschke/ImmoFox/internal/pkg/env"
)

// SendMail sends an email via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

// SendActivationMail sends the account activation link after registration
func SendActivationMail(to, name, activationURL string) error {
	subject := "Bitte bestätige dein ImmoFox Konto"
	body := fmt.Sprintf(
		"<p>Hallo %s,</p>"+
			"<p>willkommen bei ImmoFox! Bitte bestätige deine E-Mail-Adresse über den folgenden Link:</p>"+
			"<p><a href=\"%s\">%s</a></p>"+
			"<p>Der Link ist 24 Stunden gültig.</p>",
		name, activationURL, activationURL,
	)
	return SendMail(to, subject, body)
}

// SendInquiryNotification informs a listing owner about a new message
func SendInquiryNotification(to, propertyTitle, senderName, messageURL string) error {
	subject := fmt.Sprintf("Neue Anfrage zu deinem Inserat: %s", propertyTitle)
	body := fmt.Sprintf(
		"<p>%s hat dir eine Nachricht zu deinem Inserat <strong>%s</strong> geschickt.</p>"+
			"<p><a href=\"%s\">Nachricht ansehen</a></p>",
		senderName, propertyTitle, messageURL,
	)
	return SendMail(to, subject, body)
}

// SendSubscriptionEndedMail informs a user that their paid plan has ended
func SendSubscriptionEndedMail(to, name string) error {
	subject := "Dein ImmoFox Abo ist beendet"
	body := fmt.Sprintf(
		"<p>Hallo %s,</p>"+
			"<p>dein kostenpflichtiges Abo wurde beendet. Dein Konto läuft ab sofort im Free-Tarif weiter.</p>"+
			"<p>Veröffentlichte Inserate über dem Free-Limit bleiben online, neue Veröffentlichungen sind erst nach einem Upgrade wieder möglich.</p>",
		name,
	)
	return SendMail(to, subject, body)
}
