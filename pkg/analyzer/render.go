package analyzer

import (
	"strings"

	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/dtos"
)

// RenderVerdict turns a backend verdict into the success status.
// Optional fields are only mentioned when the backend populated them.
func RenderVerdict(resp dtos.AnalysisResponse) Status {
	var b strings.Builder
	style := StyleSafe
	if resp.Fraud {
		style = StyleAlert
		b.WriteString("⚠️ Fraudulent QR code detected!")
	} else {
		b.WriteString("✅ QR code looks safe.")
	}
	if !resp.Confidence.IsZero() {
		b.WriteString(" Confidence: ")
		b.WriteString(resp.Confidence.String())
		b.WriteString(".")
	}
	if reason := strings.TrimSpace(resp.Reason); reason != "" {
		b.WriteString(" Reason: ")
		b.WriteString(reason)
		b.WriteString(".")
	}
	if decoded := strings.TrimSpace(resp.DecodedData); decoded != "" {
		b.WriteString(" Decoded: ")
		b.WriteString(decoded)
	}

	result := resp
	return Status{
		State:   pkg.ScanStateSuccess,
		Style:   style,
		Message: b.String(),
		Result:  &result,
	}
}
