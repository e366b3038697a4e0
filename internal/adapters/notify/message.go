package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	perr "ottscout/internal/platform/errors"
)

// Build renders msg as a multipart/mixed RFC 5322 message
func Build(from string, to []string, msg Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := []string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject),
		"Date: " + now.Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary=" + mw.Boundary(),
	}
	buf.WriteString(strings.Join(hdr, "\r\n") + "\r\n\r\n")

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=utf-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "create html part")
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(msg.HTML)); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "encode html part")
	}
	if err := qp.Close(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "encode html part")
	}

	if len(msg.Attachment) > 0 {
		ct := msg.AttachmentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		att, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {ct},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": msg.AttachmentName})},
		})
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "create attachment part")
		}
		if _, err := att.Write(wrap76(base64.StdEncoding.EncodeToString(msg.Attachment))); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "encode attachment")
		}
	}
	if err := mw.Close(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "close multipart")
	}
	return buf.Bytes(), nil
}

// wrap76 breaks base64 text into RFC 2045 lines
func wrap76(s string) []byte {
	var b bytes.Buffer
	for len(s) > 76 {
		b.WriteString(s[:76])
		b.WriteString("\r\n")
		s = s[76:]
	}
	b.WriteString(s)
	b.WriteString("\r\n")
	return b.Bytes()
}

func dialSMTP(ctx context.Context, addr, host string, timeout time.Duration) (client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	_ = conn.SetDeadline(time.Now().Add(timeout))
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "smtp greeting")
	}
	return c, nil
}
