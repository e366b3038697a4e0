// Package notify delivers the run report by mail over SMTP with STARTTLS
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ottscout/internal/platform/config"
	perr "ottscout/internal/platform/errors"
	"ottscout/internal/platform/logger"
)

// XLSXType is the MIME type of the attachment
const XLSXType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Config holds the SMTP endpoint and credentials
type Config struct {
	Host     string
	Port     int
	From     string
	To       []string
	Password string
	Timeout  time.Duration
}

// FromConfig reads OTTSCOUT_SMTP_* and OTTSCOUT_MAIL_* keys
func FromConfig(c config.Conf) Config {
	c = c.Prefix("OTTSCOUT_")
	password, _ := c.MaySecret("MAIL_PASSWORD")
	return Config{
		Host:     c.MayString("SMTP_HOST", "smtp.gmail.com"),
		Port:     c.MayInt("SMTP_PORT", 587),
		From:     c.MayString("MAIL_FROM", ""),
		To:       c.MayCSV("MAIL_TO", nil),
		Password: password,
		Timeout:  c.MayDuration("SMTP_TIMEOUT", 30*time.Second),
	}
}

// Ready reports whether sender, recipient and password are all set
func (c Config) Ready() bool {
	return strings.TrimSpace(c.From) != "" && len(c.To) > 0 && c.Password != ""
}

func (c Config) addr() string { return net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) }

// Message is one mail with an optional attachment
type Message struct {
	Subject        string
	HTML           string
	AttachmentName string
	AttachmentType string
	Attachment     []byte
}

// Notifier sends a Message
type Notifier interface {
	Send(ctx context.Context, m Message) error
	Enabled() bool
}

// New returns an SMTP notifier, or a no-op one when the config is incomplete
func New(cfg Config) Notifier {
	if !cfg.Ready() {
		return noop{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Mailer{cfg: cfg, dial: dialSMTP, now: time.Now}
}

type noop struct{}

func (noop) Send(ctx context.Context, _ Message) error {
	logger.C(ctx).Info().Msg("mail skipped: set OTTSCOUT_MAIL_FROM, OTTSCOUT_MAIL_TO and OTTSCOUT_MAIL_PASSWORD to enable")
	return nil
}

func (noop) Enabled() bool { return false }

// client is the part of *smtp.Client the mailer drives
type client interface {
	Extension(string) (bool, string)
	StartTLS(*tls.Config) error
	Auth(smtp.Auth) error
	Mail(string) error
	Rcpt(string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Mailer talks SMTP
type Mailer struct {
	cfg  Config
	dial func(ctx context.Context, addr, host string, timeout time.Duration) (client, error)
	now  func() time.Time
}

// Enabled is always true for a constructed Mailer
func (m *Mailer) Enabled() bool { return true }

// Send delivers msg to every recipient
// Authentication failures carry ErrorCodeMissingCredential
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	log := logger.C(ctx)
	body, err := Build(m.cfg.From, m.cfg.To, msg, m.now())
	if err != nil {
		return err
	}

	c, err := m.dial(ctx, m.cfg.addr(), m.cfg.Host, m.cfg.Timeout)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "dial %s", m.cfg.addr())
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return perr.Newf(perr.ErrorCodeUnavailable, "%s does not offer STARTTLS", m.cfg.Host)
	}
	if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "starttls")
	}
	if err := c.Auth(smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)); err != nil {
		if isAuthFailure(err) {
			return perr.Wrap(err, perr.ErrorCodeMissingCredential,
				"smtp authentication failed: check MAIL_FROM and MAIL_PASSWORD (an app password for Gmail)")
		}
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "smtp auth")
	}
	if err := c.Mail(m.cfg.From); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "smtp MAIL FROM")
	}
	for _, to := range m.cfg.To {
		if err := c.Rcpt(to); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "smtp RCPT TO %s", to)
		}
	}
	w, err := c.Data()
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "smtp DATA")
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "write message")
	}
	if err := w.Close(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "finish message")
	}
	if err := c.Quit(); err != nil {
		log.Warn().Err(err).Msg("smtp quit")
	}
	log.Info().Strs("to", m.cfg.To).Int("bytes", len(body)).Msg("mail sent")
	return nil
}

func isAuthFailure(err error) bool {
	var tp *textproto.Error
	if errors.As(err, &tp) {
		return tp.Code == 535 || tp.Code == 534 || tp.Code == 530
	}
	return false
}

// Report composes the run mail: dated subject, HTML body and the spreadsheet at xlsxPath
func Report(day time.Time, html, xlsxPath string) (Message, error) {
	date := day.UTC().Format("2006-01-02")
	msg := Message{
		Subject: "New Indian Movies & Shows - " + date,
		HTML:    html,
	}
	if xlsxPath == "" {
		return msg, nil
	}
	b, err := os.ReadFile(xlsxPath)
	if err != nil {
		return Message{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "read attachment %s", xlsxPath)
	}
	msg.AttachmentName = "new_releases_" + date + ".xlsx"
	if filepath.Ext(xlsxPath) != ".xlsx" {
		msg.AttachmentName = filepath.Base(xlsxPath)
	}
	msg.AttachmentType = XLSXType
	msg.Attachment = b
	return msg, nil
}
