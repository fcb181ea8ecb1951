package session

// Observer receives session outcomes from a Manager. Implementations must
// be safe for concurrent use and must not block; they run inside the
// session handlers.
type Observer interface {
	ObserveEnrollmentFrame(p EnrollmentProgress)
	ObserveScanResult(r ScanResult)
	ObserveKeyCount(n int)
}

// NoopObserver discards everything.
type NoopObserver struct{}

func (NoopObserver) ObserveEnrollmentFrame(EnrollmentProgress) {}
func (NoopObserver) ObserveScanResult(ScanResult)              {}
func (NoopObserver) ObserveKeyCount(int)                       {}
