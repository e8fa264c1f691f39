package service

import (
	"sync"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
)

// visibleStream relays events while the trip stays visible to the session
// and ends the stream at the first event that hides it.
type visibleStream struct {
	inner   redis.EventStream
	session Session
	events  chan domain.TripEvent
	done    chan struct{}
	once    sync.Once
}

func newVisibleStream(inner redis.EventStream, session Session) *visibleStream {
	s := &visibleStream{
		inner:   inner,
		session: session,
		events:  make(chan domain.TripEvent),
		done:    make(chan struct{}),
	}
	go s.forward()
	return s
}

func (s *visibleStream) forward() {
	defer close(s.events)

	for event := range s.inner.Events() {
		if !eventVisible(s.session, event) {
			_ = s.inner.Unsubscribe()
			return
		}

		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}
}

func (s *visibleStream) Events() <-chan domain.TripEvent {
	return s.events
}

func (s *visibleStream) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.inner.Unsubscribe()
	})
	return err
}

func eventVisible(session Session, event domain.TripEvent) bool {
	if event.RiderID == session.UserID || (event.DriverID != "" && event.DriverID == session.UserID) {
		return true
	}
	return session.IsDriver() && event.Status == domain.TripStatusRequested
}
