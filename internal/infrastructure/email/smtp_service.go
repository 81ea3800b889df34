package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"mime/quotedprintable"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/rs/xid"

	"receipt-service/pkg/logger"
)

// EmailService sends receipt emails with PDF attachments.
type EmailService interface {
	Send(ctx context.Context, msg Message) (*SendResult, error)
}

type smtpEmailService struct {
	smtpAddr string
	smtpFrom string
}

func NewSMTPEmailService(host, port, from string) EmailService {
	return &smtpEmailService{
		smtpAddr: host + ":" + port,
		smtpFrom: from,
	}
}

// Send composes a multipart MIME message (alternative text/html bodies plus
// attachments) and delivers it over SMTP. The returned message id is
// synthesized locally; net/smtp does not surface one.
func (s *smtpEmailService) Send(ctx context.Context, msg Message) (*SendResult, error) {
	from := msg.From
	if from == "" {
		from = s.smtpFrom
	}

	messageID := fmt.Sprintf("<%s@%s>", xid.New().String(), domainOf(from))

	raw, err := buildMIME(from, messageID, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to build mime message: %w", err)
	}

	if err := smtp.SendMail(s.smtpAddr, nil, from, []string{msg.To}, raw); err != nil {
		logger.Info("Failed to send email", map[string]interface{}{
			"to":        msg.To,
			"smtp_addr": s.smtpAddr,
			"error":     err.Error(),
		})
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	return &SendResult{MessageID: messageID}, nil
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}

func buildMIME(from, messageID string, msg Message) ([]byte, error) {
	var buf bytes.Buffer

	mixed := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	// Header block is written manually; multipart.Writer only handles parts.
	headers := []string{
		fmt.Sprintf("To: %s", msg.To),
		fmt.Sprintf("Subject: %s", msg.Subject),
		fmt.Sprintf("Message-ID: %s", messageID),
		"MIME-Version: 1.0",
		fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q", mixed.Boundary()),
	}
	buf.WriteString(strings.Join(headers, "\r\n"))
	buf.WriteString("\r\n\r\n")

	// Body: multipart/alternative with text then html.
	altBuf := &bytes.Buffer{}
	alt := multipart.NewWriter(altBuf)

	if msg.Text != "" {
		if err := writeQuotedPart(alt, "text/plain; charset=utf-8", msg.Text); err != nil {
			return nil, err
		}
	}
	if msg.HTML != "" {
		if err := writeQuotedPart(alt, "text/html; charset=utf-8", msg.HTML); err != nil {
			return nil, err
		}
	}
	if err := alt.Close(); err != nil {
		return nil, err
	}

	bodyHeader := textproto.MIMEHeader{}
	bodyHeader.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", alt.Boundary()))
	bodyPart, err := mixed.CreatePart(bodyHeader)
	if err != nil {
		return nil, err
	}
	if _, err := bodyPart.Write(altBuf.Bytes()); err != nil {
		return nil, err
	}

	for _, att := range msg.Attachments {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", att.ContentType)
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Filename))

		part, err := mixed.CreatePart(header)
		if err != nil {
			return nil, err
		}

		encoded := base64.StdEncoding.EncodeToString(att.Content)
		// Wrap at 76 chars per RFC 2045.
		for len(encoded) > 0 {
			n := 76
			if n > len(encoded) {
				n = len(encoded)
			}
			if _, err := part.Write([]byte(encoded[:n] + "\r\n")); err != nil {
				return nil, err
			}
			encoded = encoded[n:]
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeQuotedPart(w *multipart.Writer, contentType, body string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType)
	header.Set("Content-Transfer-Encoding", "quoted-printable")

	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}

	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(body)); err != nil {
		return err
	}
	return qp.Close()
}
