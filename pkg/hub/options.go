package hub

import (
	"time"

	"go.uber.org/zap"

	"github.com/smartbotkit/lwp/pkg/lwp"
)

const (
	defaultQueueDepth         = 32
	defaultStaleVirtualPortID = 0x10
)

// defaultModeQueries is the detail sequence issued per input mode during
// bring-up. Value format comes last; it is the one piece value decode cannot
// work without.
var defaultModeQueries = []lwp.ModeInfoType{
	lwp.ModeInfoName,
	lwp.ModeInfoRawRange,
	lwp.ModeInfoPercentRange,
	lwp.ModeInfoSIRange,
	lwp.ModeInfoSymbol,
	lwp.ModeInfoValueFormat,
}

type Options struct {
	// HubID is the hub id byte placed in every frame. Real hubs use 0.
	HubID byte

	Logger *zap.Logger

	// ResponseTimeout bounds the wait for a response to one request. Zero
	// waits forever, which matches hub firmware behavior but wedges the
	// queue if a response is silently dropped.
	ResponseTimeout time.Duration

	// QueueDepth is the submission buffer of the transmission queue.
	QueueDepth int

	// ExtraModeQueries adds detail queries to the per-mode bring-up
	// sequence. Mapping, motor bias and capability bits live here; the
	// latter two go unanswered on most firmware revisions.
	ExtraModeQueries []lwp.ModeInfoType

	// StaleVirtualPortID is the virtual port some firmware keeps alive
	// across reconnects without re-announcing it. Start sends a disconnect
	// for it up front and ignores the outcome. Zero disables the
	// workaround.
	StaleVirtualPortID byte
}

func DefaultOptions() Options {
	return Options{
		Logger:             zap.L(),
		QueueDepth:         defaultQueueDepth,
		StaleVirtualPortID: defaultStaleVirtualPortID,
	}
}

func (o Options) modeQueries() []lwp.ModeInfoType {
	if len(o.ExtraModeQueries) == 0 {
		return defaultModeQueries
	}
	qs := make([]lwp.ModeInfoType, 0, len(defaultModeQueries)+len(o.ExtraModeQueries))
	qs = append(qs, defaultModeQueries...)
	qs = append(qs, o.ExtraModeQueries...)
	return qs
}
