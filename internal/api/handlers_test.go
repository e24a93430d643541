package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abusaleh34/secure-cas-commercial/internal/audit"
	"github.com/abusaleh34/secure-cas-commercial/internal/challenge"
	"github.com/abusaleh34/secure-cas-commercial/internal/core"
	"github.com/abusaleh34/secure-cas-commercial/internal/provision"
	"github.com/abusaleh34/secure-cas-commercial/internal/stats"
	"github.com/abusaleh34/secure-cas-commercial/internal/store"
	"github.com/abusaleh34/secure-cas-commercial/internal/tasks"
)

type testServer struct {
	handler    http.Handler
	identities *store.MemoryIdentityStore
	challenges challenge.Store
	auditor    *audit.InMemoryAuditor
}

func newTestServer(t *testing.T, rules []core.ProvisioningRule) *testServer {
	t.Helper()

	identities := store.NewMemoryIdentityStore()
	ruleStore := store.NewMemoryRuleStore(rules)
	auditor := audit.NewInMemoryAuditor()
	engine := provision.NewEngine(identities, provision.NewRuleSet(ruleStore), auditor, provision.Config{
		SyncAttributesOnLogin: true,
	})
	challenges := challenge.NewMemoryStore(challenge.DefaultCodeLength, challenge.DefaultValidity)
	sender := challenge.NewSender(challenges, &nullTransport{}, &nullTransport{}, challenge.DefaultValidity)
	collector := stats.NewCollector(identities, ruleStore)

	taskManager := tasks.NewManager(context.Background())
	t.Cleanup(taskManager.Stop)

	server := NewServer(engine, identities, challenges, sender, collector, auditor, taskManager)
	return &testServer{
		handler:    server.Routes(),
		identities: identities,
		challenges: challenges,
		auditor:    auditor,
	}
}

type nullTransport struct{}

func (*nullTransport) SendSMS(context.Context, string, string) error { return nil }

func (*nullTransport) SendEmail(context.Context, string, string, string) error { return nil }

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestServer_Provision(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, ProvisionRoute, ProvisionPayload{
		Username: "ALee",
		Source:   "LDAP",
		Attributes: map[string]any{
			"mail":      "a@x.com",
			"givenName": "Ann",
			"sn":        "Lee",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	identity := decodeBody[core.Identity](t, rec)
	if identity.Username != "alee" || identity.DisplayName != "Ann Lee" {
		t.Errorf("identity = %+v", identity)
	}
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("missing correlation id header")
	}
}

func TestServer_ProvisionRejectsUnknownSource(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, ProvisionRoute, ProvisionPayload{
		Username: "alee",
		Source:   "KERBEROS",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestServer_UserLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	ts.do(t, http.MethodPost, ProvisionRoute, ProvisionPayload{
		Username:   "alee",
		Source:     "LDAP",
		Attributes: map[string]any{"mail": "a@x.com"},
	})

	rec := ts.do(t, http.MethodPost, "/v1/users/alee/deactivate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/v1/users?active=false", nil)
	users := decodeBody[[]core.Identity](t, rec)
	if len(users) != 1 || users[0].Username != "alee" {
		t.Errorf("inactive search = %+v", users)
	}

	rec = ts.do(t, http.MethodPost, "/v1/users/alee/activate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("activate status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/v1/users?active=true&q=lee", nil)
	users = decodeBody[[]core.Identity](t, rec)
	if len(users) != 1 {
		t.Errorf("active search = %+v", users)
	}
}

func TestServer_InactiveUsersBadDays(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/v1/users/inactive?days=soon", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestServer_Stats(t *testing.T) {
	ts := newTestServer(t, []core.ProvisioningRule{
		{Name: "r", Enabled: true, Source: core.SourceLDAP, Condition: core.ConditionAlways, Roles: core.NewStringSet("ROLE_A")},
	})
	ts.do(t, http.MethodPost, ProvisionRoute, ProvisionPayload{
		Username:   "alee",
		Source:     "LDAP",
		Attributes: map[string]any{"mail": "a@x.com"},
	})

	rec := ts.do(t, http.MethodGet, StatsRoute, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	overview := decodeBody[stats.Overview](t, rec)
	if overview.TotalUsers != 1 || overview.EnabledRules != 1 {
		t.Errorf("overview = %+v", overview)
	}
}

func TestServer_ChallengeFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, IssueChallengeRoute, IssueChallengePayload{Username: "alee"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("issue status = %d, body = %s", rec.Code, rec.Body.String())
	}
	issued := decodeBody[IssueChallengeResponse](t, rec)
	if len(issued.Code) != challenge.DefaultCodeLength {
		t.Fatalf("code = %q", issued.Code)
	}

	rec = ts.do(t, http.MethodPost, VerifyChallengeRoute, VerifyChallengePayload{
		Username: "alee",
		Code:     "000000",
	})
	if verified := decodeBody[VerifyChallengeResponse](t, rec); verified.Verified && issued.Code != "000000" {
		t.Error("wrong code verified")
	}

	rec = ts.do(t, http.MethodPost, VerifyChallengeRoute, VerifyChallengePayload{
		Username: "alee",
		Code:     issued.Code,
	})
	if verified := decodeBody[VerifyChallengeResponse](t, rec); !verified.Verified {
		t.Error("correct code not verified")
	}

	// single use
	rec = ts.do(t, http.MethodPost, VerifyChallengeRoute, VerifyChallengePayload{
		Username: "alee",
		Code:     issued.Code,
	})
	if verified := decodeBody[VerifyChallengeResponse](t, rec); verified.Verified {
		t.Error("code verified twice")
	}

	// audit records carry fingerprints, never the code
	records, _ := ts.auditor.GetRecent(10)
	if len(records) == 0 {
		t.Fatal("no audit records written")
	}
	for _, record := range records {
		if strings.Contains(record.Details, issued.Code) {
			t.Errorf("audit record leaks the code: %q", record.Details)
		}
	}
}

func TestServer_SendChallengeResolvesDestination(t *testing.T) {
	ts := newTestServer(t, nil)

	ts.do(t, http.MethodPost, ProvisionRoute, ProvisionPayload{
		Username: "alee",
		Source:   "LDAP",
		Attributes: map[string]any{
			"mail":            "a@x.com",
			"telephoneNumber": "+96650000000",
		},
	})

	rec := ts.do(t, http.MethodPost, SendChallengeRoute, SendChallengePayload{
		Username: "alee",
		Channel:  "sms",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("send status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, SendChallengeRoute, SendChallengePayload{
		Username: "ghost",
		Channel:  "sms",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("send for unknown user status = %d, want 404", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, SendChallengeRoute, SendChallengePayload{
		Username: "alee",
		Channel:  "carrier-pigeon",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("send with unknown channel status = %d, want 400", rec.Code)
	}
}

func TestServer_AuditRecordsFilter(t *testing.T) {
	ts := newTestServer(t, nil)

	now := time.Now()
	seed := []core.AuditRecord{
		{ID: "1", Time: now, Action: core.ActionUserCreated, Principal: "alee", Success: true},
		{ID: "2", Time: now, Action: core.ActionUserCreated, Principal: "bpark", Success: true},
		{ID: "3", Time: now, Action: core.ActionChallengeIssued, Principal: "alee", Success: true},
	}
	for _, rec := range seed {
		if err := ts.auditor.Record(rec); err != nil {
			t.Fatalf("seeding audit record: %v", err)
		}
	}

	rec := ts.do(t, http.MethodGet, ListAuditRecordsRoute+"?principal=alee", nil)
	records := decodeBody[[]core.AuditRecord](t, rec)
	if len(records) != 2 {
		t.Errorf("principal filter returned %d records, want 2", len(records))
	}

	rec = ts.do(t, http.MethodGet, ListAuditRecordsRoute+"?action="+core.ActionChallengeIssued, nil)
	records = decodeBody[[]core.AuditRecord](t, rec)
	if len(records) != 1 || records[0].ID != "3" {
		t.Errorf("action filter = %+v", records)
	}

	rec = ts.do(t, http.MethodGet, ListAuditRecordsRoute+"?limit=frog", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestServer_TaskRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/v1/tasks/nope/trigger", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("trigger unknown task status = %d, want 404", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/v1/tasks/", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("list tasks status = %d", rec.Code)
	}
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, HealthCheckRoute, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}
