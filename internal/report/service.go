package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/signintech/gopdf"

	"post-discharge-assistant/internal/consultation"
)

var ErrDeliveryDisabled = errors.New("care team delivery is not configured")

// DefaultFontPaths are the common DejaVuSans locations on Debian and Alpine.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

type TelegramClient interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName string) error
}

type Service struct {
	tgClient       TelegramClient
	careTeamChatID int64
	fontPaths      []string
	log            zerolog.Logger
}

// NewService builds the transcript service. tg may be nil, which disables
// delivery but keeps rendering.
func NewService(tg TelegramClient, careTeamChatID int64, fontPaths []string, log zerolog.Logger) *Service {
	if len(fontPaths) == 0 {
		fontPaths = DefaultFontPaths
	}
	return &Service{
		tgClient:       tg,
		careTeamChatID: careTeamChatID,
		fontPaths:      fontPaths,
		log:            log,
	}
}

// Render lays out the confirmed record and the conversation as a PDF.
func (s *Service) Render(ctx context.Context, c consultation.Session) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := s.loadFont(&pdf); err != nil {
		return nil, err
	}

	w := &writer{pdf: &pdf}
	w.heading("Post-Discharge Conversation Summary", 20)
	w.br(10)

	w.font(11)
	w.line(fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")))
	w.line(fmt.Sprintf("Session: %s", c.ID))
	if c.Confirmed != nil {
		w.line(fmt.Sprintf("Patient: %s", c.Confirmed.Name))
		w.line(fmt.Sprintf("Primary diagnosis: %s", c.Confirmed.Diagnosis))
		w.line(fmt.Sprintf("Discharge date: %s", c.Confirmed.DischargeDate))
	}
	w.br(10)

	w.heading("Conversation", 14)
	w.font(10)
	if len(c.History) == 0 {
		w.line("- No messages.")
	}
	for _, m := range c.History {
		w.paragraph(fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format("15:04"), speaker(m.Role), m.Content))
	}

	if w.err != nil {
		return nil, w.err
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// SendToCareTeam renders the transcript and posts it to the configured chat.
func (s *Service) SendToCareTeam(ctx context.Context, c consultation.Session) error {
	if s.tgClient == nil || s.careTeamChatID == 0 {
		return ErrDeliveryDisabled
	}
	data, err := s.Render(ctx, c)
	if err != nil {
		return err
	}

	fileName := fmt.Sprintf("report_%s.pdf", c.ID.String())
	s.log.Info().Int64("chat_id", s.careTeamChatID).Str("file", fileName).Msg("Sending transcript to care team")
	if err := s.tgClient.SendMessage(ctx, s.careTeamChatID, summary(c)); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	if err := s.tgClient.SendDocument(ctx, s.careTeamChatID, data, fileName); err != nil {
		return fmt.Errorf("send transcript: %w", err)
	}
	return nil
}

func (s *Service) loadFont(pdf *gopdf.GoPdf) error {
	var fontErr error
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err != nil {
			fontErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("failed to load font for PDF, install ttf-dejavu or set REPORT_FONT_PATH: %w", fontErr)
}

// summary is the chat line that announces a transcript.
func summary(c consultation.Session) string {
	patient := "unknown patient"
	if c.Confirmed != nil {
		patient = fmt.Sprintf("%s (%s, discharged %s)", c.Confirmed.Name, c.Confirmed.Diagnosis, c.Confirmed.DischargeDate)
	}
	questions := 0
	for _, m := range c.History {
		if m.Role == consultation.RoleUser {
			questions++
		}
	}
	return fmt.Sprintf("Post-discharge conversation with %s: %d question(s) asked. Transcript attached.", patient, questions)
}

func speaker(role string) string {
	if role == consultation.RoleUser {
		return "Patient"
	}
	return "Assistant"
}

// writer keeps the first layout error so the body reads top to bottom.
type writer struct {
	pdf *gopdf.GoPdf
	err error
}

func (w *writer) font(size float64) {
	if w.err == nil {
		w.err = w.pdf.SetFont("DejaVu", "", size)
	}
}

func (w *writer) heading(text string, size float64) {
	w.font(size)
	w.line(text)
}

func (w *writer) line(text string) {
	if w.err != nil {
		return
	}
	w.newPageIfNeeded()
	w.err = w.pdf.Cell(nil, text)
	w.pdf.Br(15)
}

func (w *writer) paragraph(text string) {
	if w.err != nil {
		return
	}
	lines, err := w.pdf.SplitText(text, 500)
	if err != nil {
		w.err = err
		return
	}
	for _, l := range lines {
		w.newPageIfNeeded()
		if w.err = w.pdf.Cell(nil, l); w.err != nil {
			return
		}
		w.pdf.Br(12)
	}
	w.pdf.Br(5)
}

func (w *writer) br(h float64) {
	w.pdf.Br(h)
}

func (w *writer) newPageIfNeeded() {
	if w.pdf.GetY() > 800 {
		w.pdf.AddPage()
	}
}
