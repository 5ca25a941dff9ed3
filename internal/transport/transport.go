package transport

// CaptureSender sends framed capture chunks.
type CaptureSender interface {
	SendCapture(data []byte) error
}

// CaptureReceiver receives framed capture chunks.
type CaptureReceiver interface {
	OnCapture(callback func(data []byte))
}

// RequestSender sends serialized capture requests.
type RequestSender interface {
	SendRequest(data []byte) error
}

// RequestReceiver receives serialized capture requests.
type RequestReceiver interface {
	OnRequest(callback func(data []byte))
}

// Data channel labels.
const (
	CapturesLabel = "captures"
	RequestsLabel = "requests"
)
