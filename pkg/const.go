package pkg

const HeaderTraceId string = "X-Trace-Id"

const (
	TraceId     string = "trace_id"
	ImageSha256 string = "image_sha256"
)

// ImageFormField is the multipart field carrying the uploaded QR image.
const ImageFormField string = "image"

type ScanState string

const (
	ScanStateIdle      ScanState = "idle"
	ScanStateAnalyzing ScanState = "analyzing"
	ScanStateSuccess   ScanState = "success"
	ScanStateError     ScanState = "error"
)
