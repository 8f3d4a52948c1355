package confirm

import (
	"bytes"
	"testing"
	"time"

	"go.uber.org/zap"

	"consentbot/internal/models"
)

func testEvent() models.ConsentEvent {
	return models.ConsentEvent{
		Timestamp: time.Date(2025, 6, 1, 10, 30, 0, 0, time.Local),
		User: models.User{
			ID:        42,
			Username:  "ivan",
			FirstName: "Иван",
			LastName:  "Петров",
		},
		Status: models.StatusAgreed,
	}
}

func TestRenderer_ProducesPDF(t *testing.T) {
	renderer := NewRenderer("", "", zap.NewNop())

	out, err := renderer.Render(testEvent(), []string{"consent.pdf", "consent2.pdf"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(out) == 0 {
		t.Fatal("Render() produced no bytes")
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("Render() output does not start with a PDF header: %q", out[:8])
	}
}

// A missing font file must never fail the render: the renderer falls back to
// the built-in font.
func TestRenderer_MissingFontFallsBack(t *testing.T) {
	renderer := NewRenderer("/nonexistent/DejaVuSans.ttf", "/nonexistent/DejaVuSans-Bold.ttf", zap.NewNop())

	out, err := renderer.Render(testEvent(), []string{"consent.pdf"})
	if err != nil {
		t.Fatalf("Render() error = %v, want fallback to built-in font", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("fallback render did not produce a PDF")
	}
}

func TestRenderer_NoUsernameUsesNumericID(t *testing.T) {
	renderer := NewRenderer("", "", zap.NewNop())

	event := testEvent()
	event.User.Username = ""
	out, err := renderer.Render(event, nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(out) == 0 {
		t.Fatal("Render() produced no bytes")
	}
}
