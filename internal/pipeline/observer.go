package pipeline

import "time"

// Observer receives pipeline measurements. *metrics.ServerMetrics
// implements it.
type Observer interface {
	ObserveResolution(kind string, status int, d time.Duration)
	IncPrivacyRejection()
	IncPipelineError(kind string)
	ObserveDataAggregation(d time.Duration, files int)
}

type nopObserver struct{}

func (nopObserver) ObserveResolution(string, int, time.Duration) {}
func (nopObserver) IncPrivacyRejection()                         {}
func (nopObserver) IncPipelineError(string)                      {}
func (nopObserver) ObserveDataAggregation(time.Duration, int)    {}
