package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/sub_go_server/config"
)

func TestRenderReceipt(t *testing.T) {
	body, err := RenderReceipt(&Receipt{
		Username:       "user1",
		InvoiceNumber:  "INV-12-01J0000000",
		PlanName:       "Pro Fiber 500GB",
		Amount:         "719.20",
		PaymentMethod:  "VISA ****4242",
		BilledAt:       "2025-06-15",
		PeriodEnd:      "2025-07-15",
		CurrencySymbol: "₹",
	})
	require.NoError(t, err)

	assert.Contains(t, body, "INV-12-01J0000000")
	assert.Contains(t, body, "₹719.20")
	assert.Contains(t, body, "VISA ****4242")
	assert.NotContains(t, body, "Download receipt")
}

func TestRenderReceipt_EscapesInput(t *testing.T) {
	body, err := RenderReceipt(&Receipt{Username: "<script>x</script>", ArchiveURL: "https://oss.example.com/r.json"})
	require.NoError(t, err)

	assert.NotContains(t, body, "<script>x</script>")
	assert.Contains(t, body, "Download receipt")
}

func TestBuildHeaders(t *testing.T) {
	h := buildHeaders("billing@example.com", "user@example.com", "Receipt")

	assert.Contains(t, h, "From: billing@example.com\r\n")
	assert.Contains(t, h, "To: user@example.com\r\n")
	assert.Contains(t, h, "Content-Type: text/html; charset=UTF-8\r\n")
}

func TestService_Enabled(t *testing.T) {
	assert.False(t, NewService(&config.EmailConfig{}).Enabled())
	assert.False(t, NewService(nil).Enabled())
	assert.True(t, NewService(&config.EmailConfig{SMTPHost: "smtp.example.com"}).Enabled())
}
