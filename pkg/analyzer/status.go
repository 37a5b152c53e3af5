package analyzer

import (
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/dtos"
)

// Style is the presentation class applied to the status element.
type Style string

const (
	StyleInfo    Style = "info"
	StyleAlert   Style = "alert"
	StyleSafe    Style = "safe"
	StyleError   Style = "error"
	StyleWarning Style = "warning"
)

const (
	MsgSelectFile         = "Please select a file"
	MsgAnalyzing          = "Analyzing…"
	MsgBackendUnreachable = "Error: backend unreachable"
)

// Status is what a StatusSurface displays after each transition.
type Status struct {
	State   pkg.ScanState          `json:"state"`
	Style   Style                  `json:"style"`
	Message string                 `json:"message"`
	Result  *dtos.AnalysisResponse `json:"result,omitempty"`
}

// IsFraud reports whether the status carries a fraud verdict.
func (s Status) IsFraud() bool {
	return s.Result != nil && s.Result.Fraud
}

func selectFileStatus() Status {
	return Status{State: pkg.ScanStateError, Style: StyleWarning, Message: MsgSelectFile}
}

func analyzingStatus() Status {
	return Status{State: pkg.ScanStateAnalyzing, Style: StyleInfo, Message: MsgAnalyzing}
}

func unreachableStatus() Status {
	return Status{State: pkg.ScanStateError, Style: StyleError, Message: MsgBackendUnreachable}
}
