package generation

import "fmt"

// ResultKind tags a Result.
type ResultKind int

const (
	// KindFailed means the vendor reported a terminal failure.
	KindFailed ResultKind = iota
	// KindProcessing means the vendor accepted the job and is still working.
	KindProcessing
	// KindCompleted means the content is ready.
	KindCompleted
)

func (k ResultKind) String() string {
	switch k {
	case KindCompleted:
		return "completed"
	case KindProcessing:
		return "processing"
	default:
		return "failed"
	}
}

// JobHandle identifies an asynchronous vendor job. ID is opaque; Provider
// names the vendor that issued it so status checks can be routed back.
type JobHandle struct {
	Provider string
	ID       string
}

func (h JobHandle) String() string {
	return fmt.Sprintf("%s/%s", h.Provider, h.ID)
}

// Result is the single normalized shape of every vendor response. Only the
// fields belonging to Kind are meaningful.
type Result struct {
	Kind ResultKind

	// Completed
	ContentRef string
	VideoRef   string
	Duration   float64

	// Processing
	Job JobHandle

	// Failed
	Reason string
}

// Completed builds a result for ready content. Duration is in seconds.
func Completed(contentRef string, duration float64) Result {
	return Result{Kind: KindCompleted, ContentRef: contentRef, Duration: duration}
}

// Processing builds a result for a job that is still running.
func Processing(job JobHandle) Result {
	return Result{Kind: KindProcessing, Job: job}
}

// Failed builds a result for a vendor-reported failure.
func Failed(reason string) Result {
	return Result{Kind: KindFailed, Reason: reason}
}

// WithVideo returns a copy of a completed result carrying a video the vendor
// bundled with the audio.
func (r Result) WithVideo(ref string) Result {
	r.VideoRef = ref
	return r
}
