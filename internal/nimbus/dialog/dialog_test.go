package dialog

// Shared test doubles for the dialog package: an in-memory session store,
// a scripted cloud client and a counting NLU stub.

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/nimbusbot/nimbus/internal/nimbus/azure"
	"github.com/nimbusbot/nimbus/internal/nimbus/nlu"
	"github.com/nimbusbot/nimbus/internal/nimbus/session"
)

type opCall struct {
	group string
	name  string
	op    string
}

type stubCloud struct {
	groups    []azure.ResourceGroup
	resources []azure.Resource
	listErr   error
	opResult  bool
	opErr     error

	siteOps []opCall
	vmOps   []opCall
	creates []opCall
}

func newStubCloud() *stubCloud {
	return &stubCloud{
		opResult: true,
		groups: []azure.ResourceGroup{
			{ID: "1", Name: "A"},
			{ID: "2", Name: "B"},
		},
	}
}

func (s *stubCloud) ListResourceGroups(ctx context.Context, creds azure.Credentials) ([]azure.ResourceGroup, error) {
	return s.groups, s.listErr
}

func (s *stubCloud) ListResources(ctx context.Context, creds azure.Credentials) ([]azure.Resource, error) {
	return s.resources, s.listErr
}

func (s *stubCloud) StartStopResource(ctx context.Context, creds azure.Credentials, group, name, op string) (bool, error) {
	s.siteOps = append(s.siteOps, opCall{group, name, op})
	return s.opResult, s.opErr
}

func (s *stubCloud) StartDeallocateVM(ctx context.Context, creds azure.Credentials, group, name, op string) (bool, error) {
	s.vmOps = append(s.vmOps, opCall{group, name, op})
	return s.opResult, s.opErr
}

func (s *stubCloud) CreateWebApp(ctx context.Context, creds azure.Credentials, group, name string) (bool, error) {
	s.creates = append(s.creates, opCall{group: group, name: name})
	return s.opResult, s.opErr
}

type memSessions struct {
	sessions map[string]*session.Session
	saves    int
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]*session.Session)}
}

func (m *memSessions) Load(ctx context.Context, channelID, userID string) (*session.Session, error) {
	if sess, ok := m.sessions[channelID+"|"+userID]; ok {
		return sess, nil
	}
	return session.NewSession(channelID, userID), nil
}

func (m *memSessions) Save(ctx context.Context, sess *session.Session) error {
	m.sessions[sess.ChannelID+"|"+sess.UserID] = sess
	m.saves++
	return nil
}

type stubAnalyzer struct {
	result *nlu.Result
	err    error
	calls  int
}

func (s *stubAnalyzer) Analyze(ctx context.Context, text string) (*nlu.Result, error) {
	s.calls++
	return s.result, s.err
}

type turnRecord struct {
	routedAs string
	result   string
	errMsg   string
}

type memTurnLog struct {
	records []turnRecord
}

func (m *memTurnLog) WriteTurn(ctx context.Context, turnID, traceID, channelID, userID, routedAs, result, errorMsg string) error {
	m.records = append(m.records, turnRecord{routedAs, result, errorMsg})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newCredSession returns a session with the full credential triple filled.
func newCredSession(t *testing.T) *session.Session {
	t.Helper()
	sess := session.NewSession("!room", "@user")
	for _, pair := range [][2]string{
		{session.SlotSubscription, "sub-1"},
		{session.SlotApplicationID, "app-1"},
		{session.SlotSecretKey, "key-1"},
	} {
		if err := sess.SetString(pair[0], pair[1]); err != nil {
			t.Fatalf("seed slot %s: %v", pair[0], err)
		}
	}
	return sess
}

func joinedMessages(reply *Reply) string {
	out := ""
	for i, m := range reply.Messages {
		if i > 0 {
			out += "\n"
		}
		out += m
	}
	return out
}
