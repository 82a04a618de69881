package gmail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"
)

// Message is an outgoing email. Text, HTML or both may be set; with HTML the
// message is multipart/alternative.
type Message struct {
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Text    string
	HTML    string
}

// Recipients returns every envelope recipient: To, then Cc, then Bcc.
func (m Message) Recipients() []string {
	all := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	all = append(all, m.To...)
	all = append(all, m.Cc...)
	return append(all, m.Bcc...)
}

func (m Message) validate() error {
	if len(m.To) == 0 {
		return errors.New("at least one recipient is required")
	}
	if m.Text == "" && m.HTML == "" {
		return errors.New("body is required")
	}
	if strings.ContainsAny(m.Subject, "\r\n") {
		return errors.New("subject must not contain line breaks")
	}
	if m.From != "" {
		if err := checkAddress("From", m.From); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		name  string
		addrs []string
	}{{"To", m.To}, {"Cc", m.Cc}, {"Bcc", m.Bcc}} {
		for _, addr := range f.addrs {
			if err := checkAddress(f.name, addr); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkAddress rejects anything but a single RFC 5322 address, which also
// keeps header values free of line breaks.
func checkAddress(field, addr string) error {
	if strings.ContainsAny(addr, "\r\n") {
		return fmt.Errorf("invalid %s address %q: contains a line break", field, addr)
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Errorf("invalid %s address %q: %w", field, addr, err)
	}
	return nil
}

// Build renders the message. withBcc keeps the Bcc header, which the Gmail
// API reads to deliver blind copies; SMTP delivery passes them as envelope
// recipients and must not reveal them.
func (m Message) Build(withBcc bool) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	header := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
		}
	}
	header("From", m.From)
	header("To", strings.Join(m.To, ", "))
	header("Cc", strings.Join(m.Cc, ", "))
	if withBcc {
		header("Bcc", strings.Join(m.Bcc, ", "))
	}
	header("Subject", encodeRFC2047(m.Subject))
	header("Date", time.Now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	if m.HTML == "" {
		writePart(&buf, "text/plain", m.Text)
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	header("Content-Type", mime.FormatMediaType("multipart/alternative", map[string]string{"boundary": mw.Boundary()}))
	buf.WriteString("\r\n")

	for _, part := range []struct{ typ, body string }{
		{"text/plain", m.Text},
		{"text/html", m.HTML},
	} {
		if part.body == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.typ + `; charset="UTF-8"`},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		if err := writeQP(w, part.body); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writePart writes the headers and body of a single-part message.
func writePart(buf *bytes.Buffer, typ, body string) {
	fmt.Fprintf(buf, "Content-Type: %s; charset=\"UTF-8\"\r\n", typ)
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	_ = writeQP(buf, body)
}

func writeQP(w io.Writer, body string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(body)); err != nil {
		return err
	}
	return qp.Close()
}

// encodeRFC2047 encodes non-ASCII header values, e.g. umlauts in subjects.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}
