package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ottscout/internal/platform/config"
	perr "ottscout/internal/platform/errors"
	kit "ottscout/internal/platform/testkit"
)

type fakeClient struct {
	noTLS   bool
	authErr error
	calls   []string
	data    bytes.Buffer
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func (f *fakeClient) Extension(ext string) (bool, string) { return !f.noTLS, "" }
func (f *fakeClient) StartTLS(c *tls.Config) error {
	f.calls = append(f.calls, "starttls:"+c.ServerName)
	return nil
}
func (f *fakeClient) Auth(smtp.Auth) error {
	f.calls = append(f.calls, "auth")
	return f.authErr
}
func (f *fakeClient) Mail(from string) error {
	f.calls = append(f.calls, "mail:"+from)
	return nil
}
func (f *fakeClient) Rcpt(to string) error {
	f.calls = append(f.calls, "rcpt:"+to)
	return nil
}
func (f *fakeClient) Data() (io.WriteCloser, error) { return nopCloser{&f.data}, nil }
func (f *fakeClient) Quit() error {
	f.calls = append(f.calls, "quit")
	return nil
}
func (f *fakeClient) Close() error { return nil }

func testMailer(fc *fakeClient) *Mailer {
	cfg := Config{Host: "smtp.example.com", Port: 587, From: "bot@example.com", To: []string{"a@example.com", "b@example.com"}, Password: "pw"}
	m := New(cfg).(*Mailer)
	m.dial = func(context.Context, string, string, time.Duration) (client, error) { return fc, nil }
	m.now = func() time.Time { return time.Date(2024, 1, 7, 9, 0, 0, 0, time.UTC) }
	return m
}

func TestNew_IncompleteConfigIsNoop(t *testing.T) {
	cases := []Config{
		{To: []string{"a@x"}, Password: "p"},
		{From: "f@x", Password: "p"},
		{From: "f@x", To: []string{"a@x"}},
	}
	for i, c := range cases {
		n := New(c)
		if n.Enabled() {
			t.Fatalf("case %d: want noop", i)
		}
		if err := n.Send(context.Background(), Message{}); err != nil {
			t.Fatalf("case %d: noop Send = %v", i, err)
		}
	}
}

func TestSend_Conversation(t *testing.T) {
	fc := &fakeClient{}
	m := testMailer(fc)
	msg := Message{Subject: "New Indian Movies & Shows - 2024-01-07", HTML: "<p>hi</p>", AttachmentName: "r.xlsx", AttachmentType: XLSXType, Attachment: []byte("PK\x03\x04")}

	if err := m.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	want := "starttls:smtp.example.com auth mail:bot@example.com rcpt:a@example.com rcpt:b@example.com quit"
	if got := strings.Join(fc.calls, " "); got != want {
		t.Fatalf("calls = %s", got)
	}
	kit.MustContain(t, fc.data.String(), "Subject: New Indian Movies & Shows - 2024-01-07")
}

func TestSend_AuthFailureIsCredentialError(t *testing.T) {
	fc := &fakeClient{authErr: &textproto.Error{Code: 535, Msg: "5.7.8 Username and Password not accepted"}}
	err := testMailer(fc).Send(context.Background(), Message{Subject: "s"})
	if !perr.IsCode(err, perr.ErrorCodeMissingCredential) {
		t.Fatalf("want MissingCredential, got %v", err)
	}
	for _, c := range fc.calls {
		if strings.HasPrefix(c, "mail:") {
			t.Fatalf("MAIL FROM sent after failed auth")
		}
	}
}

func TestSend_RequiresStartTLS(t *testing.T) {
	err := testMailer(&fakeClient{noTLS: true}).Send(context.Background(), Message{})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("want Unavailable, got %v", err)
	}
}

func TestBuild_MultipartWithAttachment(t *testing.T) {
	payload := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 40)
	raw, err := Build("bot@example.com", []string{"a@example.com"}, Message{
		Subject:        "Résumé",
		HTML:           "<h2>New Indian Movies &amp; Shows</h2>",
		AttachmentName: "new_releases_2024-01-07.xlsx",
		AttachmentType: XLSXType,
		Attachment:     payload,
	}, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	m, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	dec := new(mime.WordDecoder)
	if subj, _ := dec.DecodeHeader(m.Header.Get("Subject")); subj != "Résumé" {
		t.Fatalf("subject = %q", subj)
	}
	mt, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	if err != nil || mt != "multipart/mixed" {
		t.Fatalf("content type = %q (%v)", mt, err)
	}

	mr := multipart.NewReader(m.Body, params["boundary"])
	html, err := mr.NextPart()
	if err != nil {
		t.Fatal(err)
	}
	hb, _ := io.ReadAll(html) // quoted-printable is decoded by the reader
	kit.MustContain(t, string(hb), "New Indian Movies &amp; Shows")

	att, err := mr.NextPart()
	if err != nil {
		t.Fatal(err)
	}
	if att.FileName() != "new_releases_2024-01-07.xlsx" || att.Header.Get("Content-Type") != XLSXType {
		t.Fatalf("attachment header = %v", att.Header)
	}
	enc, _ := io.ReadAll(att)
	for _, line := range strings.Split(strings.TrimSpace(string(enc)), "\r\n") {
		if len(line) > 76 {
			t.Fatalf("base64 line too long: %d", len(line))
		}
	}
}

func TestReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new_releases_2024-01-07.xlsx")
	if err := os.WriteFile(path, []byte("xlsx"), 0o600); err != nil {
		t.Fatal(err)
	}
	msg, err := Report(time.Date(2024, 1, 7, 23, 0, 0, 0, time.UTC), "<p/>", path)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Subject != "New Indian Movies & Shows - 2024-01-07" || msg.AttachmentName != "new_releases_2024-01-07.xlsx" ||
		string(msg.Attachment) != "xlsx" || msg.AttachmentType != XLSXType {
		t.Fatalf("msg = %+v", msg)
	}
	if _, err := Report(time.Now(), "", filepath.Join(t.TempDir(), "missing.xlsx")); err == nil {
		t.Fatalf("missing attachment should fail")
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("OTTSCOUT_MAIL_FROM", "bot@example.com")
	t.Setenv("OTTSCOUT_MAIL_TO", "a@example.com, b@example.com")
	t.Setenv("OTTSCOUT_MAIL_PASSWORD", "pw")
	cfg := FromConfig(config.New())
	if cfg.Host != "smtp.gmail.com" || cfg.Port != 587 || len(cfg.To) != 2 || !cfg.Ready() {
		t.Fatalf("cfg = %+v", cfg)
	}
}
