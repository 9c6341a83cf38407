package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"teamdir.org/internal/access"
	"teamdir.org/internal/audit"
	"teamdir.org/internal/directory"
)

// memStore backs the whole API in memory for handler tests.
type memStore struct {
	mu sync.Mutex

	nextID  int64
	events  map[int64]directory.Event
	photos  map[int64]directory.Photo
	people  map[int64]directory.Person
	teams   []directory.Team
	roles   []directory.Role
	hashes  map[int64]string
	grants  map[int64]access.Grant
	perms   []access.Permission
	entries []audit.Entry
}

func newMemStore() *memStore {
	return &memStore{
		events: map[int64]directory.Event{},
		photos: map[int64]directory.Photo{},
		people: map[int64]directory.Person{},
		hashes: map[int64]string{},
		grants: map[int64]access.Grant{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) ListEvents(context.Context) ([]directory.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []directory.Event
	for _, ev := range m.events {
		out = append(out, ev)
	}
	return out, nil
}

func (m *memStore) GetEvent(_ context.Context, id int64) (directory.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return directory.Event{}, directory.ErrNotFound
	}
	return ev, nil
}

func (m *memStore) CreateEvent(_ context.Context, ev directory.Event) (directory.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.ID = m.id()
	ev.CreatedAt = time.Now().UTC()
	m.events[ev.ID] = ev
	return ev, nil
}

func (m *memStore) UpdateEvent(_ context.Context, id int64, patch directory.EventPatch) (directory.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return directory.Event{}, directory.ErrNotFound
	}
	if patch.Name != nil {
		ev.Name = *patch.Name
	}
	if patch.OneLiner != nil {
		ev.OneLiner = *patch.OneLiner
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.Category != nil {
		ev.Category = *patch.Category
	}
	if patch.Datetime != nil {
		ev.Datetime = *patch.Datetime
	}
	if patch.Location != nil {
		ev.Location = *patch.Location
	}
	if patch.Image != nil {
		ev.Image = *patch.Image
	}
	if patch.Department != nil {
		ev.Department = *patch.Department
	}
	if patch.Register != nil {
		ev.Register = *patch.Register
	}
	m.events[id] = ev
	return ev, nil
}

func (m *memStore) DeleteEvent(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return directory.ErrNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *memStore) ListPhotos(context.Context) ([]directory.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []directory.Photo
	for _, p := range m.photos {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) GetPhoto(_ context.Context, id int64) (directory.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[id]
	if !ok {
		return directory.Photo{}, directory.ErrNotFound
	}
	return p, nil
}

func (m *memStore) CreatePhoto(_ context.Context, p directory.Photo) (directory.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	p.CreatedAt = time.Now().UTC()
	m.photos[p.ID] = p
	return p, nil
}

func (m *memStore) UpdatePhoto(_ context.Context, id int64, patch directory.PhotoPatch) (directory.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[id]
	if !ok {
		return directory.Photo{}, directory.ErrNotFound
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
	}
	if patch.Caption != nil {
		p.Caption = *patch.Caption
	}
	m.photos[id] = p
	return p, nil
}

func (m *memStore) DeletePhoto(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.photos[id]; !ok {
		return directory.ErrNotFound
	}
	delete(m.photos, id)
	return nil
}

func (m *memStore) ListPeople(_ context.Context, filter directory.ListPeopleFilter) ([]directory.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []directory.Person
	for _, p := range m.people {
		if !filter.IncludeInactive && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) GetPerson(_ context.Context, id int64) (directory.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.people[id]
	if !ok {
		return directory.Person{}, directory.ErrNotFound
	}
	return p, nil
}

func (m *memStore) CreatePerson(_ context.Context, p directory.Person) (directory.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.people {
		if existing.Email == p.Email {
			return directory.Person{}, directory.ErrConflict
		}
	}
	p.ID = m.id()
	p.CreatedAt = time.Now().UTC()
	m.people[p.ID] = p
	return p, nil
}

func (m *memStore) UpdatePerson(_ context.Context, id int64, patch directory.PersonPatch) (directory.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.people[id]
	if !ok {
		return directory.Person{}, directory.ErrNotFound
	}
	if patch.FullName != nil {
		p.FullName = *patch.FullName
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.ProfileImage != nil {
		p.ProfileImage = *patch.ProfileImage
	}
	if patch.Linkedin != nil {
		p.Linkedin = *patch.Linkedin
	}
	if patch.Twitter != nil {
		p.Twitter = *patch.Twitter
	}
	if patch.Instagram != nil {
		p.Instagram = *patch.Instagram
	}
	if patch.RoleID != nil {
		p.RoleID = *patch.RoleID
	}
	if patch.TeamID != nil {
		p.TeamID = *patch.TeamID
	}
	if patch.CanLogin != nil {
		p.CanLogin = *patch.CanLogin
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if patch.DisplayOrder != nil {
		p.DisplayOrder = *patch.DisplayOrder
	}
	m.people[id] = p
	return p, nil
}

func (m *memStore) DeletePerson(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[id]; !ok {
		return directory.ErrNotFound
	}
	delete(m.people, id)
	return nil
}

func (m *memStore) ListTeams(context.Context) ([]directory.Team, error) { return m.teams, nil }
func (m *memStore) ListRoles(context.Context) ([]directory.Role, error) { return m.roles, nil }

func (m *memStore) FindCredentialByEmail(_ context.Context, email string) (access.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.people {
		if p.Email == email {
			return access.Credential{
				PersonID:     p.ID,
				Email:        p.Email,
				PasswordHash: m.hashes[p.ID],
				CanLogin:     p.CanLogin,
				IsActive:     p.IsActive,
			}, nil
		}
	}
	return access.Credential{}, access.ErrNotFound
}

func (m *memStore) FindPerson(ctx context.Context, id int64) (directory.Person, error) {
	return m.GetPerson(ctx, id)
}

func (m *memStore) SetPasswordHash(_ context.Context, personID int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[personID]; !ok {
		return access.ErrNotFound
	}
	m.hashes[personID] = hash
	return nil
}

func (m *memStore) EffectiveGrants(_ context.Context, personID int64, now time.Time) ([]access.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []access.Grant
	for _, g := range m.grants {
		if g.PersonID == personID && g.Effective(now) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memStore) GrantsForPerson(_ context.Context, personID int64) ([]access.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []access.Grant
	for _, g := range m.grants {
		if g.PersonID == personID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memStore) CreateGrant(_ context.Context, grant access.Grant) (access.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[grant.PersonID]; !ok {
		return access.Grant{}, access.ErrNotFound
	}
	grant.ID = m.id()
	m.grants[grant.ID] = grant
	return grant, nil
}

func (m *memStore) DeleteGrant(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.grants[id]; !ok {
		return access.ErrNotFound
	}
	delete(m.grants, id)
	return nil
}

func (m *memStore) EnsurePermissions(_ context.Context, perms []access.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perms = perms
	return nil
}

func (m *memStore) ListPermissions(context.Context) ([]access.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.perms, nil
}

func (m *memStore) AppendAudit(_ context.Context, e audit.Entry) (audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	e.CreatedAt = time.Now().UTC()
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *memStore) ListAudit(_ context.Context, limit int) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return m.entries[len(m.entries)-limit:], nil
}

// seedPerson inserts a login-capable person with the given permission
// grants. The password is always "letmein-1".
func (m *memStore) seedPerson(t *testing.T, email string, permissions ...string) int64 {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein-1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.people[id] = directory.Person{
		ID:       id,
		FullName: "Test Person",
		Email:    email,
		CanLogin: true,
		IsActive: true,
	}
	m.hashes[id] = string(hash)
	for _, key := range permissions {
		gid := m.id()
		m.grants[gid] = access.Grant{
			ID:            gid,
			PersonID:      id,
			PermissionKey: key,
			GrantedAt:     time.Now().UTC(),
		}
	}
	return id
}

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T, store *memStore) *apiClient {
	t.Helper()

	dir, err := directory.NewService(store)
	if err != nil {
		t.Fatalf("directory.NewService: %v", err)
	}
	acc, err := access.NewService(store, "test-secret")
	if err != nil {
		t.Fatalf("access.NewService: %v", err)
	}
	recorder := audit.NewRecorder(store, zerolog.Nop())

	api := New(dir, acc, nil, UploadConfig{}, recorder, ReadyProbe{}, "test")
	api.rateBurst = 100
	api.ratePerSec = 100

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	target := path
	if params != nil {
		target += "?" + params.Encode()
	}
	return c.do(http.MethodGet, target, nil, headers)
}

func (c *apiClient) obtainToken(email string) string {
	c.t.Helper()
	resp := c.post("/v1/auth/token", map[string]any{
		"email":    email,
		"password": "letmein-1",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected token status: %d", resp.StatusCode)
	}
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode token response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatalf("empty token issued")
	}
	return payload.Token
}

func authz(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}
