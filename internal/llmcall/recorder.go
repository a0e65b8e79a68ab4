package llmcall

import (
	"github.com/scrapetab/scrapetab/internal/defra"
	"github.com/scrapetab/scrapetab/internal/providers"
)

// Collection is the DefraDB collection call records live in.
const Collection = "LLMCall"

// Recorder handles fire-and-forget call recording via a Sink. Recording
// never blocks or fails the extraction it belongs to.
type Recorder struct {
	sink *defra.Sink
}

// NewRecorder creates a new call recorder.
func NewRecorder(sink *defra.Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Record captures a completion call asynchronously.
func (r *Recorder) Record(result *providers.ChatResult) {
	if r == nil || r.sink == nil {
		return
	}

	call := FromChatResult(result)
	if call == nil {
		return
	}

	r.sink.Send(defra.WriteOp{
		Collection: Collection,
		Document:   call.ToMap(),
	})
}
