// Package observer holds the outer adapters of the notification bus: the UI
// refresh signal and the structured log sink.
package observer

import "eventregistry/internal/domain"

// StatusSink receives the text of the latest notification, e.g. a status label.
type StatusSink interface {
	SetStatus(text string)
}

// Refresh is a "something changed, re-pull everything" observer. It calls its
// callback for every notification regardless of kind.
type Refresh struct {
	refresh func()
	status  StatusSink
}

// NewRefresh wraps refresh. status may be nil.
func NewRefresh(refresh func(), status StatusSink) *Refresh {
	return &Refresh{refresh: refresh, status: status}
}

func (r *Refresh) Notify(n domain.Notification) {
	if r.status != nil {
		r.status.SetStatus(n.Message())
	}
	if r.refresh != nil {
		r.refresh()
	}
}

var _ domain.Observer = (*Refresh)(nil)
