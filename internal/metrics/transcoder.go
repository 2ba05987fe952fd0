package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TranscodeTotal counts engine runs by mode (audio, mux) and result.
	TranscodeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytgrab_transcode_total",
		Help: "Transcode engine runs by mode and result",
	}, []string{"mode", "result"})

	// TranscodeFailureReasonTotal counts classified engine failures.
	TranscodeFailureReasonTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytgrab_transcode_failure_reason_total",
		Help: "Transcode failures by classified stderr reason",
	}, []string{"reason"})

	// ProcTerminateTotal counts termination signals sent to engine process groups.
	ProcTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytgrab_proc_terminate_total",
		Help: "Signals sent to engine process groups by signal and result",
	}, []string{"signal", "result"})

	// ProcWaitTotal counts observed engine exits.
	ProcWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytgrab_proc_wait_total",
		Help: "Engine process exits by outcome",
	}, []string{"outcome"})
)

// IncTranscode records an engine run.
func IncTranscode(mode, result string) {
	TranscodeTotal.WithLabelValues(mode, result).Inc()
}

// IncTranscodeFailureReason records a classified failure.
func IncTranscodeFailureReason(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	TranscodeFailureReasonTotal.WithLabelValues(reason).Inc()
}

// IncProcTerminate records a termination signal.
func IncProcTerminate(signal, result string) {
	ProcTerminateTotal.WithLabelValues(signal, result).Inc()
}

// IncProcWait records a process exit.
func IncProcWait(outcome string) {
	ProcWaitTotal.WithLabelValues(outcome).Inc()
}
