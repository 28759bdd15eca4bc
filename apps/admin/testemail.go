package main

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/trezcool/maoni/core"
)

// testEmail synchronously sends the "test" email, to check the email configuration.
func (cli *commandLine) testEmail(to string) error {
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("invalid email %q: %w", to, err)
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{*addr},
		Subject:      "Test email",
		TemplateName: "test",
		TemplateData: map[string]interface{}{"SentAt": time.Now().Format(time.RFC1123)},
	}
	if err = cli.mailSvc.SendMessage(msg); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "test email sent to %s\n", addr.Address)
	return nil
}
