// Package session owns the signed-in user and token pair for the process. It
// hydrates once from durable storage, keeps the shared client's bearer token in
// step with every transition, and renews the access token on demand.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"invoiceweb/portal/internal/apiclient"
	"invoiceweb/portal/internal/models"
	"invoiceweb/portal/internal/storage"
)

// Durable keys. They are always written and cleared together.
const (
	KeyAccessToken     = "access_token"
	KeyRefreshToken    = "refresh_token"
	KeyUser            = "user"
	KeyCurrentUserInfo = "current_user_info"
)

var Keys = []string{KeyAccessToken, KeyRefreshToken, KeyUser, KeyCurrentUserInfo}

var (
	ErrNoRefreshToken   = errors.New("no refresh token")
	ErrRefreshFailed    = errors.New("token refresh failed")
	ErrMissingUser      = errors.New("auth response has no user")
	ErrNotAuthenticated = errors.New("not authenticated")
)

type Session struct {
	User            *models.AuthUser
	CurrentUserInfo *models.CurrentUserInfo
	AccessToken     string
	RefreshToken    string
}

func (s Session) IsAuthenticated() bool {
	return s.User != nil && s.AccessToken != ""
}

// Authenticator is the slice of the auth service the store drives.
// *services.AuthService satisfies it.
type Authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) apiclient.Envelope[models.AuthResponse]
	Register(ctx context.Context, req models.RegisterRequest) apiclient.Envelope[models.AuthResponse]
	Refresh(ctx context.Context, refreshToken string) apiclient.Envelope[models.AuthResponse]
	Logout(ctx context.Context) apiclient.Envelope[apiclient.Void]
	CurrentUser(ctx context.Context) apiclient.Envelope[models.CurrentUserInfo]
	SetAuthToken(token string)
	ClearAuthToken()
	SetRefresher(fn apiclient.Refresher)
}

type Options struct {
	Logger *zap.Logger
	Now    func() time.Time
}

type Store struct {
	auth    Authenticator
	storage storage.Storage
	logger  *zap.Logger
	now     func() time.Time

	once sync.Once
	bg   sync.WaitGroup
	// transition serializes the state, header and storage writes of one
	// sign-in, sign-out or refresh so they land as a unit.
	transition sync.Mutex

	mu      sync.Mutex
	session Session
	loading bool
	// epoch changes on every sign-in and sign-out so late profile fetches
	// cannot attach to a different session.
	epoch       uint64
	subscribers map[int]func(Session)
	nextSub     int
}

// New builds a store and installs its refresh hook on the client behind auth.
func New(auth Authenticator, store storage.Storage, opts Options) *Store {
	s := &Store{
		auth:        auth,
		storage:     store,
		logger:      opts.Logger,
		now:         opts.Now,
		loading:     true,
		subscribers: map[int]func(Session){},
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	auth.SetRefresher(s.Refresher())
	return s
}

// Initialize hydrates the session from storage. Only the first call does any
// work; later calls return the current session.
func (s *Store) Initialize(ctx context.Context) Session {
	s.once.Do(func() {
		s.hydrate(ctx)
	})
	return s.Session()
}

func (s *Store) hydrate(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify()
	}()

	values, err := s.storage.Get(ctx, Keys...)
	if err != nil {
		s.logger.Warn("session hydrate failed", zap.Error(err))
		return
	}
	access, refresh, rawUser := values[KeyAccessToken], values[KeyRefreshToken], values[KeyUser]
	if access == "" || refresh == "" || rawUser == "" {
		return
	}
	var user models.AuthUser
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.logger.Warn("stored user is unreadable", zap.Error(err))
		return
	}
	restored := Session{User: &user, AccessToken: access, RefreshToken: refresh}
	if raw := values[KeyCurrentUserInfo]; raw != "" {
		var info models.CurrentUserInfo
		if err := json.Unmarshal([]byte(raw), &info); err == nil {
			restored.CurrentUserInfo = &info
		}
	}

	s.mu.Lock()
	s.session = restored
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()
	s.auth.SetAuthToken(access)
	s.logger.Info("session restored", zap.String("user_id", user.ID))

	s.fetchProfile(ctx, epoch)
}

func (s *Store) Login(ctx context.Context, req models.LoginRequest) (Session, error) {
	return s.establish(ctx, s.auth.Login(ctx, req))
}

func (s *Store) Register(ctx context.Context, req models.RegisterRequest) (Session, error) {
	return s.establish(ctx, s.auth.Register(ctx, req))
}

func (s *Store) establish(ctx context.Context, env apiclient.Envelope[models.AuthResponse]) (Session, error) {
	if err := env.Err(); err != nil {
		return s.Session(), err
	}
	if env.Data.User == nil || env.Data.AccessToken == "" {
		s.auth.ClearAuthToken()
		return s.Session(), ErrMissingUser
	}

	user := *env.Data.User
	next := Session{User: &user, AccessToken: env.Data.AccessToken, RefreshToken: env.Data.RefreshToken}
	s.transition.Lock()
	s.mu.Lock()
	s.session = next
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()
	s.auth.SetAuthToken(next.AccessToken)

	if err := s.storage.Delete(ctx, KeyCurrentUserInfo); err != nil {
		s.logger.Warn("stale profile delete failed", zap.Error(err))
	}
	if err := s.persist(ctx, next, true); err != nil {
		s.logger.Warn("session persist failed", zap.Error(err))
	}
	s.transition.Unlock()
	s.logger.Info("signed in", zap.String("user_id", user.ID), zap.String("role", user.Role))
	s.notify()

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.fetchProfile(context.WithoutCancel(ctx), epoch)
	}()
	return s.Session(), nil
}

// Logout always ends with an anonymous session and empty storage, whatever
// the server answers.
func (s *Store) Logout(ctx context.Context) error {
	if s.AccessToken() != "" {
		if env := s.auth.Logout(ctx); !env.Success {
			s.logger.Warn("remote logout failed", zap.String("message", env.Message))
		}
	}
	return s.clear(ctx)
}

func (s *Store) clear(ctx context.Context) error {
	s.transition.Lock()
	s.mu.Lock()
	s.session = Session{}
	s.epoch++
	s.mu.Unlock()
	s.auth.ClearAuthToken()
	err := s.storage.Delete(ctx, Keys...)
	s.transition.Unlock()
	s.notify()
	if err != nil {
		return fmt.Errorf("clear session storage: %w", err)
	}
	return nil
}

// RefreshAccessToken swaps the token pair. A missing or rejected refresh
// token signs the user out. A result that arrives after the session changed
// is dropped.
func (s *Store) RefreshAccessToken(ctx context.Context) error {
	s.mu.Lock()
	refresh := s.session.RefreshToken
	epoch := s.epoch
	s.mu.Unlock()
	if refresh == "" {
		_ = s.clear(ctx)
		return ErrNoRefreshToken
	}
	env := s.auth.Refresh(ctx, refresh)
	if !env.Success || env.Data.AccessToken == "" {
		if s.epochIs(epoch) {
			if err := s.clear(ctx); err != nil {
				s.logger.Warn("session clear failed", zap.Error(err))
			}
		}
		return fmt.Errorf("%w: %s", ErrRefreshFailed, env.Message)
	}

	s.transition.Lock()
	s.mu.Lock()
	if s.epoch != epoch || s.session.User == nil {
		anonymous := s.session.AccessToken == ""
		s.mu.Unlock()
		if anonymous {
			s.auth.ClearAuthToken()
		}
		s.transition.Unlock()
		s.logger.Debug("refresh result dropped: session changed")
		return fmt.Errorf("%w: session changed during refresh", ErrRefreshFailed)
	}
	next := s.session
	next.AccessToken = env.Data.AccessToken
	if env.Data.RefreshToken != "" {
		next.RefreshToken = env.Data.RefreshToken
	}
	userChanged := env.Data.User != nil
	if userChanged {
		user := *env.Data.User
		next.User = &user
	}
	s.session = next
	s.mu.Unlock()
	s.auth.SetAuthToken(next.AccessToken)

	if err := s.persist(ctx, next, userChanged); err != nil {
		s.logger.Warn("session persist failed", zap.Error(err))
	}
	s.transition.Unlock()
	s.notify()
	return nil
}

func (s *Store) epochIs(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch == epoch
}

// Refresher adapts RefreshAccessToken to the client's 401 policy.
func (s *Store) Refresher() apiclient.Refresher {
	return func(ctx context.Context) bool {
		return s.RefreshAccessToken(ctx) == nil
	}
}

// CurrentUser fetches the extended profile and caches it.
func (s *Store) CurrentUser(ctx context.Context) (models.CurrentUserInfo, error) {
	if !s.Session().IsAuthenticated() {
		return models.CurrentUserInfo{}, ErrNotAuthenticated
	}
	env := s.auth.CurrentUser(ctx)
	if err := env.Err(); err != nil {
		return models.CurrentUserInfo{}, err
	}
	s.cacheProfile(ctx, env.Data, 0)
	return env.Data, nil
}

func (s *Store) fetchProfile(ctx context.Context, epoch uint64) {
	env := s.auth.CurrentUser(ctx)
	if !env.Success {
		s.logger.Debug("profile fetch failed", zap.String("message", env.Message))
		return
	}
	s.cacheProfile(ctx, env.Data, epoch)
}

// cacheProfile stores info when the session is still the one identified by
// epoch. Zero accepts any authenticated session.
func (s *Store) cacheProfile(ctx context.Context, info models.CurrentUserInfo, epoch uint64) {
	s.transition.Lock()
	s.mu.Lock()
	if (epoch != 0 && epoch != s.epoch) || !s.session.IsAuthenticated() {
		s.mu.Unlock()
		s.transition.Unlock()
		return
	}
	s.session.CurrentUserInfo = &info
	s.mu.Unlock()

	raw, err := json.Marshal(info)
	if err == nil {
		err = s.storage.Set(ctx, map[string]string{KeyCurrentUserInfo: string(raw)})
	}
	s.transition.Unlock()
	if err != nil {
		s.logger.Warn("profile persist failed", zap.Error(err))
	}
	s.notify()
}

func (s *Store) persist(ctx context.Context, sess Session, withUser bool) error {
	values := map[string]string{
		KeyAccessToken:  sess.AccessToken,
		KeyRefreshToken: sess.RefreshToken,
	}
	if withUser && sess.User != nil {
		raw, err := json.Marshal(sess.User)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		values[KeyUser] = string(raw)
	}
	return s.storage.Set(ctx, values)
}

// WaitBackground blocks until profile fetches started by Login and Register
// have finished.
func (s *Store) WaitBackground() {
	s.bg.Wait()
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() Session {
	out := s.session
	if out.User != nil {
		user := *out.User
		out.User = &user
	}
	if out.CurrentUserInfo != nil {
		info := *out.CurrentUserInfo
		out.CurrentUserInfo = &info
	}
	return out
}

func (s *Store) IsAuthenticated() bool {
	return s.Session().IsAuthenticated()
}

func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.AccessToken
}

func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.RefreshToken
}

func (s *Store) Role() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.User == nil {
		return ""
	}
	return s.session.User.Role
}

// HasRole reports whether the signed-in user holds any of roles.
func (s *Store) HasRole(roles ...string) bool {
	role := s.Role()
	if role == "" {
		return false
	}
	for _, want := range roles {
		if strings.EqualFold(want, role) {
			return true
		}
	}
	return false
}

// NeedsRefresh reports whether the access token expires within skew. Tokens
// that are not JWTs, or carry no exp claim, never report expiry.
func (s *Store) NeedsRefresh(skew time.Duration) bool {
	token := s.AccessToken()
	if token == "" {
		return false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !s.now().Add(skew).Before(claims.ExpiresAt.Time)
}

// Subscribe registers fn for every session transition and returns a func
// that removes it.
func (s *Store) Subscribe(fn func(Session)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	snap := s.snapshot()
	subs := make([]func(Session), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}
