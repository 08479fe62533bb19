package services

import (
	"context"
	"crypto/rsa"
	"sync"

	"auctiond/internal/domain"
)

// In-memory publisher and registry fakes shared by the service tests.

type fakeLifecyclePublisher struct {
	mu     sync.Mutex
	opened []*domain.AuctionOpened
	closed []*domain.AuctionClosed
	order  []string
}

func (f *fakeLifecyclePublisher) AuctionOpened(_ context.Context, event *domain.AuctionOpened) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, event)
	f.order = append(f.order, "opened:"+event.AuctionID)
	return nil
}

func (f *fakeLifecyclePublisher) AuctionClosed(_ context.Context, event *domain.AuctionClosed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, event)
	f.order = append(f.order, "closed:"+event.AuctionID)
	return nil
}

type fakeAdmissionPublisher struct {
	mu        sync.Mutex
	validated []*domain.BidValidated
	winners   []*domain.WinnerDetermined
}

func (f *fakeAdmissionPublisher) BidValidated(_ context.Context, event *domain.BidValidated) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validated = append(f.validated, event)
	return nil
}

func (f *fakeAdmissionPublisher) WinnerDetermined(_ context.Context, event *domain.WinnerDetermined) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.winners = append(f.winners, event)
	return nil
}

func (f *fakeAdmissionPublisher) validatedFor(auctionID string) []*domain.BidValidated {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.BidValidated
	for _, v := range f.validated {
		if v.AuctionID == auctionID {
			out = append(out, v)
		}
	}
	return out
}

type topicMessage struct {
	key     string
	payload interface{}
}

type fakeTopicPublisher struct {
	mu       sync.Mutex
	messages []topicMessage
}

func (f *fakeTopicPublisher) Publish(_ context.Context, routingKey string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, topicMessage{key: routingKey, payload: payload})
	return nil
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages map[string][]interface{}
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{messages: make(map[string][]interface{})}
}

func (f *fakeBroadcaster) BroadcastToAuction(auctionID string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[auctionID] = append(f.messages[auctionID], message)
	return nil
}

type fakeKeyRegistry struct {
	keys map[string]*rsa.PublicKey
	errs map[string]error
}

func (f *fakeKeyRegistry) PublicKey(_ context.Context, bidderID string) (*rsa.PublicKey, error) {
	if err, ok := f.errs[bidderID]; ok {
		return nil, err
	}
	pub, ok := f.keys[bidderID]
	if !ok {
		return nil, domain.ErrUnknownBidder
	}
	return pub, nil
}

// recordingLogger captures Warn fields so tests can assert on log labels.
type recordingLogger struct {
	mu    sync.Mutex
	warns [][]interface{}
}

func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Error(string, ...interface{}) {}
func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Fatal(string, ...interface{}) {}

func (l *recordingLogger) Warn(_ string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, keysAndValues)
}

// lastWarnValue returns the string logged under key in the most recent Warn.
func (l *recordingLogger) lastWarnValue(key string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.warns) == 0 {
		return ""
	}
	kv := l.warns[len(l.warns)-1]
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] == key {
			s, _ := kv[i+1].(string)
			return s
		}
	}
	return ""
}
