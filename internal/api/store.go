package api

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store errors, mapped to HTTP statuses by the handlers
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("invalid credentials")
	ErrLocked       = errors.New("account is locked")
	ErrInvalidInput = errors.New("invalid input")
)

// usersCollection mirrors registered users so the generic user module
// routes (lock, approve, ...) operate on them
const usersCollection = "users"

// Item is one stored resource
type Item = map[string]interface{}

type collection struct {
	order []string
	items map[string]Item
}

type account struct {
	UserResponse
	password       string
	activationCode string
	recoveryToken  string
}

type session struct {
	userName string
	expires  time.Time
}

// tenant is the state behind one API key
type tenant struct {
	collections map[string]*collection
	documents   map[string]interface{}
	accounts    map[string]*account
	sessions    map[string]*session
}

func newTenant() *tenant {
	return &tenant{
		collections: make(map[string]*collection),
		documents:   make(map[string]interface{}),
		accounts:    make(map[string]*account),
		sessions:    make(map[string]*session),
	}
}

// ListQuery selects a page of a collection
type ListQuery struct {
	SearchQuery    string
	Page           int
	RecordsPerPage int
	Sort           string
	Fields         []string
}

// Store is the in-memory state of the mock platform, partitioned by API key.
type Store struct {
	mu      sync.RWMutex
	tenants map[string]*tenant
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		tenants: make(map[string]*tenant),
		now:     time.Now,
	}
}

func (s *Store) tenant(apiKey string) *tenant {
	t, ok := s.tenants[apiKey]
	if !ok {
		t = newTenant()
		s.tenants[apiKey] = t
	}
	return t
}

// Register creates an account and mirrors it into the users collection.
// The returned activation code confirms the account through Activate.
func (s *Store) Register(apiKey string, req RegisterRequest) (*UserResponse, string, error) {
	if req.UserName == "" || req.Password == "" {
		return nil, "", fmt.Errorf("%w: userName and password are required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tenant(apiKey)
	name := strings.ToLower(req.UserName)
	if _, exists := t.accounts[name]; exists {
		return nil, "", fmt.Errorf("%w: user %s", ErrConflict, req.UserName)
	}

	acc := &account{
		UserResponse: UserResponse{
			ID:          uuid.NewString(),
			UserName:    req.UserName,
			Email:       req.Email,
			DisplayName: req.DisplayName,
			Roles:       []string{"Authenticated"},
			IsApproved:  true,
			CreatedAt:   s.now().UTC(),
		},
		password:       req.Password,
		activationCode: newSecret(),
	}
	t.accounts[name] = acc

	t.collectionFor(usersCollection, true).put(acc.ID, Item{
		"id":          acc.ID,
		"userName":    acc.UserName,
		"email":       acc.Email,
		"displayName": acc.DisplayName,
		"isApproved":  true,
		"isLocked":    false,
		"isActivated": false,
		"dateCreated": acc.CreatedAt,
	})

	resp := acc.UserResponse
	return &resp, acc.activationCode, nil
}

// Activate confirms the account that was issued code
func (s *Store) Activate(apiKey, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tenant(apiKey)
	for _, acc := range t.accounts {
		if acc.activationCode != "" && acc.activationCode == code {
			acc.activationCode = ""
			if users := t.collections[usersCollection]; users != nil {
				if item, ok := users.items[acc.ID]; ok {
					item["isActivated"] = true
				}
			}
			return nil
		}
	}
	return fmt.Errorf("%w: activation code", ErrNotFound)
}

// RequestRecovery issues a password recovery token for the account
// matching userName or email.
func (s *Store) RequestRecovery(apiKey, userName, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.tenant(apiKey).accounts {
		if (userName != "" && strings.EqualFold(acc.UserName, userName)) ||
			(email != "" && strings.EqualFold(acc.Email, email)) {
			acc.recoveryToken = newSecret()
			return acc.recoveryToken, nil
		}
	}
	return "", fmt.Errorf("%w: user", ErrNotFound)
}

// ResetPassword sets a new password with a token from RequestRecovery.
// Tokens are single use.
func (s *Store) ResetPassword(apiKey, token, password string) error {
	if token == "" || password == "" {
		return fmt.Errorf("%w: recovery token and new password are required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.tenant(apiKey).accounts {
		if acc.recoveryToken == token {
			acc.recoveryToken = ""
			acc.password = password
			return nil
		}
	}
	return fmt.Errorf("%w: recovery token", ErrNotFound)
}

// ChangePassword sets the password of the account with id userID
func (s *Store) ChangePassword(apiKey, userID, password string) error {
	if password == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.tenant(apiKey).accounts {
		if acc.ID == userID {
			acc.password = password
			return nil
		}
	}
	return fmt.Errorf("%w: user %s", ErrNotFound, userID)
}

// Login checks credentials and issues a token valid for ttl.
func (s *Store) Login(apiKey, userName, password string, ttl time.Duration) (*TokenResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tenant(apiKey)
	acc, ok := t.accounts[strings.ToLower(userName)]
	if !ok || acc.password != password {
		return nil, ErrUnauthorized
	}
	if users := t.collections[usersCollection]; users != nil {
		if item, ok := users.items[acc.ID]; ok && item["isLocked"] == true {
			return nil, ErrLocked
		}
	}

	token := newSecret()
	t.sessions[token] = &session{userName: acc.UserName, expires: s.now().Add(ttl)}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(ttl.Seconds()),
	}, nil
}

// Authenticate resolves a bearer token to its user. Expired sessions are
// dropped.
func (s *Store) Authenticate(apiKey, token string) (*UserResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tenant(apiKey)
	sess, ok := t.sessions[token]
	if !ok {
		return nil, ErrUnauthorized
	}
	if !s.now().Before(sess.expires) {
		delete(t.sessions, token)
		return nil, ErrUnauthorized
	}

	acc, ok := t.accounts[strings.ToLower(sess.userName)]
	if !ok {
		delete(t.sessions, token)
		return nil, ErrUnauthorized
	}
	resp := acc.UserResponse
	return &resp, nil
}

// Logout revokes token. It reports whether the token was live.
func (s *Store) Logout(apiKey, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tenant(apiKey)
	if _, ok := t.sessions[token]; !ok {
		return false
	}
	delete(t.sessions, token)
	return true
}

// SessionCount returns the number of live sessions across all tenants
func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	now := s.now()
	for _, t := range s.tenants {
		for _, sess := range t.sessions {
			if now.Before(sess.expires) {
				n++
			}
		}
	}
	return n
}

// SessionInfo describes one login session
type SessionInfo struct {
	APIKey    string    `json:"apiKey"`
	Token     string    `json:"-"`
	UserName  string    `json:"userName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExpiredSessions lists the sessions that expired before cutoff
func (s *Store) ExpiredSessions(cutoff time.Time) []SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []SessionInfo
	for apiKey, t := range s.tenants {
		for token, sess := range t.sessions {
			if sess.expires.Before(cutoff) {
				expired = append(expired, SessionInfo{
					APIKey:    apiKey,
					Token:     token,
					UserName:  sess.userName,
					ExpiresAt: sess.expires,
				})
			}
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})
	return expired
}

// Accounts returns the number of registered accounts for apiKey
func (s *Store) Accounts(apiKey string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[apiKey]; ok {
		return len(t.accounts)
	}
	return 0
}

func (t *tenant) collectionFor(path string, create bool) *collection {
	c, ok := t.collections[path]
	if !ok && create {
		c = &collection{items: make(map[string]Item)}
		t.collections[path] = c
	}
	return c
}

func (c *collection) put(id string, item Item) {
	if _, exists := c.items[id]; !exists {
		c.order = append(c.order, id)
	}
	c.items[id] = item
}

func (c *collection) remove(id string) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// HasCollection reports whether path names an existing collection
func (s *Store) HasCollection(apiKey, path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[apiKey]
	return ok && t.collectionFor(path, false) != nil
}

// List returns a page of the collection at path.
func (s *Store) List(apiKey, path string, q ListQuery) (*PageResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[apiKey]
	if !ok {
		return nil, ErrNotFound
	}
	c := t.collectionFor(path, false)
	if c == nil {
		return nil, ErrNotFound
	}

	matched := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		item := c.items[id]
		if q.SearchQuery == "" || matches(item, q.SearchQuery) {
			matched = append(matched, item)
		}
	}
	sortItems(matched, q.Sort)

	page := q.Page
	if page < 1 {
		page = 1
	}
	rpp := q.RecordsPerPage
	if rpp < 1 {
		rpp = 10
	}

	start := (page - 1) * rpp
	if start > len(matched) {
		start = len(matched)
	}
	end := start + rpp
	if end > len(matched) {
		end = len(matched)
	}

	items := make([]Item, 0, end-start)
	for _, item := range matched[start:end] {
		items = append(items, project(item, q.Fields))
	}

	return &PageResponse{
		Items:          items,
		TotalRecords:   len(matched),
		Page:           page,
		RecordsPerPage: rpp,
		SearchQuery:    q.SearchQuery,
	}, nil
}

// GetItem returns a copy of the item id in the collection at path
func (s *Store) GetItem(apiKey, path, id string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[apiKey]
	if !ok {
		return nil, ErrNotFound
	}
	c := t.collectionFor(path, false)
	if c == nil {
		return nil, ErrNotFound
	}
	item, ok := c.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyItem(item), nil
}

// Create adds body to the collection at path, creating the collection on
// first use. A string "id" in body is kept, otherwise one is generated.
func (s *Store) Create(apiKey, path string, body Item) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.tenant(apiKey).collectionFor(path, true)

	item := copyItem(body)
	id, _ := item["id"].(string)
	if id == "" {
		id = uuid.NewString()
	} else if _, exists := c.items[id]; exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrConflict, path, id)
	}
	now := s.now().UTC()
	item["id"] = id
	item["dateCreated"] = now
	item["dateUpdated"] = now

	c.put(id, item)
	return copyItem(item), nil
}

// Update merges body into the item and returns the result
func (s *Store) Update(apiKey, path, id string, body Item) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.lockedItem(apiKey, path, id)
	if err != nil {
		return nil, err
	}
	for k, v := range body {
		if k == "id" || k == "dateCreated" {
			continue
		}
		item[k] = v
	}
	item["dateUpdated"] = s.now().UTC()
	return copyItem(item), nil
}

// action flags toggled by item actions such as "articles/{id}/publish"
var actionFlags = map[string]struct {
	field string
	value bool
}{
	"publish":    {"isPublished", true},
	"unpublish":  {"isPublished", false},
	"archive":    {"isArchived", true},
	"restore":    {"isArchived", false},
	"approve":    {"isApproved", true},
	"unapprove":  {"isApproved", false},
	"disapprove": {"isApproved", false},
	"flag":       {"isFlagged", true},
	"unflag":     {"isFlagged", false},
	"lock":       {"isLocked", true},
	"unlock":     {"isLocked", false},
	"spam":       {"isSpam", true},
	"report":     {"isReported", true},
	"cancel":     {"isCanceled", true},
	"unlink":     {"isLinked", false},
}

// Apply runs action against the item: body fields are merged, known
// actions set their flag and every action is appended to "actions".
func (s *Store) Apply(apiKey, path, id, action string, body Item) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.lockedItem(apiKey, path, id)
	if err != nil {
		return nil, err
	}
	for k, v := range body {
		if k == "id" || k == "dateCreated" {
			continue
		}
		item[k] = v
	}
	if flag, ok := actionFlags[action]; ok {
		item[flag.field] = flag.value
	}
	actions, _ := item["actions"].([]interface{})
	item["actions"] = append(actions, action)
	item["dateUpdated"] = s.now().UTC()
	return copyItem(item), nil
}

func (s *Store) lockedItem(apiKey, path, id string) (Item, error) {
	t, ok := s.tenants[apiKey]
	if !ok {
		return nil, ErrNotFound
	}
	c := t.collectionFor(path, false)
	if c == nil {
		return nil, ErrNotFound
	}
	item, ok := c.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return item, nil
}

// DeleteItem removes one item
func (s *Store) DeleteItem(apiKey, path, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[apiKey]
	if !ok {
		return ErrNotFound
	}
	c := t.collectionFor(path, false)
	if c == nil || !c.remove(id) {
		return ErrNotFound
	}
	return nil
}

// ClearCollection removes every item of the collection at path
func (s *Store) ClearCollection(apiKey, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[apiKey]
	if !ok || t.collectionFor(path, false) == nil {
		return ErrNotFound
	}
	t.collections[path] = &collection{items: make(map[string]Item)}
	return nil
}

// GetDocument returns the singleton document at path, e.g. module settings
func (s *Store) GetDocument(apiKey, path string) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[apiKey]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := t.documents[path]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

// PutDocument replaces the document at path
func (s *Store) PutDocument(apiKey, path string, doc interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenant(apiKey).documents[path] = doc
}

func newSecret() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func matches(item Item, query string) bool {
	query = strings.ToLower(query)
	for _, v := range item {
		if str, ok := v.(string); ok && strings.Contains(strings.ToLower(str), query) {
			return true
		}
	}
	return false
}

// sortItems orders by a field name. "-field" and "field|desc" sort
// descending. Items missing the field sort last.
func sortItems(items []Item, expr string) {
	if expr == "" {
		return
	}
	field, dir, _ := strings.Cut(expr, "|")
	desc := strings.HasPrefix(field, "-") || strings.EqualFold(dir, "desc")
	field = strings.TrimPrefix(field, "-")

	sort.SliceStable(items, func(i, j int) bool {
		a, aok := items[i][field]
		b, bok := items[j][field]
		if !aok || !bok {
			return aok && !bok
		}
		less := fmt.Sprint(a) < fmt.Sprint(b)
		if fa, ok := a.(float64); ok {
			if fb, ok := b.(float64); ok {
				less = fa < fb
			}
		}
		if desc {
			return !less && fmt.Sprint(a) != fmt.Sprint(b)
		}
		return less
	})
}

func project(item Item, fields []string) Item {
	if len(fields) == 0 {
		return copyItem(item)
	}
	out := Item{"id": item["id"]}
	for _, f := range fields {
		if v, ok := item[f]; ok {
			out[f] = v
		}
	}
	return out
}

func copyItem(item Item) Item {
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
