package app

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Canned replies for offline demo mode, keyed by keyword below.
var demoReplies = []string{
	"Based on the legal documents, employment contracts in Azerbaijan must include specific provisions regarding working hours, compensation, and termination procedures. The Labor Code requires that all employment relationships be formalized through written contracts.",
	"According to the uploaded legal documents, contract termination procedures must follow a specific protocol: 1) Written notice must be provided, 2) The notice period depends on the type of contract, 3) Severance pay may be required in certain circumstances.",
	"The key provisions in employment law include: worker rights protection, minimum wage requirements, working time limitations (40 hours per week standard), overtime compensation, annual leave entitlements, and workplace safety regulations.",
	"Legal document analysis shows that dispute resolution typically follows these steps: 1) Internal company procedures, 2) Labor inspection involvement, 3) Court proceedings if necessary. Alternative dispute resolution methods are also available.",
	"The contract law framework requires that all agreements be in writing for enforceability. Key elements include: offer and acceptance, consideration, legal capacity of parties, and lawful purpose. Breach of contract remedies include damages, specific performance, or contract rescission.",
}

// DemoResponder answers chats and health probes without a server. It stands
// in behind the same Responder and HealthProber contracts as the API client,
// so nothing downstream branches on demo mode.
type DemoResponder struct {
	// Delay simulates API latency. Nil means a random 1-3s, zero via a
	// func literal disables it for tests.
	Delay func() time.Duration
}

func NewDemoResponder() *DemoResponder {
	return &DemoResponder{}
}

func (d *DemoResponder) delay() time.Duration {
	if d.Delay != nil {
		return d.Delay()
	}
	return time.Second + time.Duration(rand.Int63n(int64(2*time.Second)))
}

func (d *DemoResponder) Chat(ctx context.Context, message, sessionID string) (string, string, error) {
	timer := time.NewTimer(d.delay())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return "", "", ctx.Err()
	case <-timer.C:
	}
	return pickDemoReply(message), sessionID, nil
}

func pickDemoReply(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "employment"):
		return demoReplies[0]
	case strings.Contains(lower, "termination"):
		return demoReplies[1]
	case strings.Contains(lower, "provision"):
		return demoReplies[2]
	case strings.Contains(lower, "dispute"):
		return demoReplies[3]
	case strings.Contains(lower, "contract"):
		return demoReplies[4]
	default:
		return demoReplies[rand.Intn(len(demoReplies))]
	}
}

func (d *DemoResponder) Health(ctx context.Context) (*HealthStatus, error) {
	return &HealthStatus{
		Status:           "demo",
		DocumentsCount:   25,
		CollectionExists: true,
	}, nil
}
