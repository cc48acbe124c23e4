package identity

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Outcome tags what a resolution did to the identity store.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeAttached  Outcome = "attached"
	OutcomeLinked    Outcome = "linked"
	OutcomeUnchanged Outcome = "unchanged"
)

// Resolution is the result of mapping an auth attempt onto the store:
// create a new identity, mutate an existing one, or leave it untouched.
type Resolution struct {
	Outcome  Outcome
	Identity *Identity
	Message  string
}

// effect is the single persistence step a decision requires.
type effect int

const (
	effectNone effect = iota
	effectInsert
	effectUpdate
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const minPasswordLen = 6

// Service resolves local and OAuth authentication attempts against the
// identity store. The session identity, when the caller holds one, is passed
// in explicitly; the resolver never reads ambient request state.
type Service struct {
	store Store
	cost  int
	now   func() time.Time
	newID func() string
}

// Option configures a Service during construction.
type Option func(*Service)

// WithBcryptCost sets the bcrypt cost for password hashing.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		cost:  bcrypt.DefaultCost,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying identity store for read-side consumers
// (directory endpoints, middleware identity loading).
func (s *Service) Store() Store { return s.store }

// Login validates an email/password pair. The three failure modes are
// distinct: unknown email, known email without a local credential, and a
// wrong password.
func (s *Service) Login(ctx context.Context, email, password string, _ *Identity) (*Identity, error) {
	email = NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	ident, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeErr(err)
	}
	if ident == nil {
		return nil, ErrNoSuchUser
	}
	if !ident.HasPassword() {
		return nil, ErrNoPasswordSet
	}
	if !VerifyPassword(password, ident.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return ident, nil
}

// Signup creates a local credential. Depending on the session identity and
// what already owns the email this creates a new identity, attaches a
// password to an existing one, or is an idempotent no-op.
func (s *Service) Signup(ctx context.Context, email, password string, current *Identity) (*Resolution, error) {
	email = NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	// Fully provisioned session: nothing to do, no hash needed.
	if current != nil && current.HasPassword() {
		return &Resolution{Outcome: OutcomeUnchanged, Identity: current, Message: "User already signed in."}, nil
	}

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}

	var existing *Identity
	if current == nil {
		existing, err = s.store.FindByEmail(ctx, email)
		if err != nil {
			return nil, storeErr(err)
		}
	}

	res, eff, err := decideSignup(existing, current, email, hash, s.blank)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, res.Identity, eff); err != nil {
		return nil, err
	}
	return res, nil
}

// OAuthCallback resolves a provider callback: first-seen profiles create an
// identity, known provider ids refresh or read through, and an authenticated
// session links the provider to the session identity.
func (s *Service) OAuthCallback(ctx context.Context, provider, providerUserID, accessToken string, profile Profile, current *Identity) (*Resolution, error) {
	email := NormalizeEmail(profile.Email)

	var found *Identity
	if current == nil {
		var err error
		found, err = s.store.FindByProvider(ctx, provider, providerUserID)
		if err != nil {
			return nil, storeErr(err)
		}
	}

	res, eff := decideOAuth(found, current, provider, providerUserID, accessToken, profile, email, s.blank)
	if err := s.apply(ctx, res.Identity, eff); err != nil {
		return nil, err
	}
	return res, nil
}

// AuthorizedForProvider is the access gate for provider-scoped routes: true
// only when the identity holds a link for the provider. A false answer means
// "send the caller through the provider's consent flow", not an error.
func (s *Service) AuthorizedForProvider(ident *Identity, provider string) bool {
	if ident == nil {
		return false
	}
	_, ok := ident.Link(provider)
	return ok
}

func (s *Service) blank() *Identity {
	return &Identity{ID: s.newID(), CreatedAt: s.now()}
}

func (s *Service) apply(ctx context.Context, ident *Identity, eff effect) error {
	switch eff {
	case effectInsert:
		if err := s.store.Insert(ctx, ident); err != nil {
			// the unique index makes the loser of a concurrent signup
			// surface here as ErrEmailTaken
			if err == ErrEmailTaken {
				return err
			}
			return storeErr(err)
		}
	case effectUpdate:
		if err := s.store.Update(ctx, ident); err != nil {
			if err == ErrEmailTaken {
				return err
			}
			return storeErr(err)
		}
	}
	return nil
}

// decideSignup holds the local-signup branching; it performs no I/O so the
// branches are testable without a store. existing is whoever owns the email
// (session-less path only), current is the session identity.
func decideSignup(existing, current *Identity, email string, hash []byte, blank func() *Identity) (*Resolution, effect, error) {
	if current != nil {
		// session present, no password yet: attach the credential
		current.AddEmail(email)
		current.PasswordHash = hash
		return &Resolution{
			Outcome:  OutcomeAttached,
			Identity: current,
			Message:  "Local password assigned to existing social sign on user.",
		}, effectUpdate, nil
	}

	if existing == nil {
		ident := blank()
		ident.Emails = []string{email}
		ident.PasswordHash = hash
		return &Resolution{Outcome: OutcomeCreated, Identity: ident, Message: "Signup successful."}, effectInsert, nil
	}

	if existing.HasPassword() {
		// an existing local account cannot be re-claimed
		return nil, effectNone, ErrEmailTaken
	}

	// social-only identity reusing the email: promote it to a hybrid account
	existing.PasswordHash = hash
	return &Resolution{
		Outcome:  OutcomeAttached,
		Identity: existing,
		Message:  "Local password assigned to existing account.",
	}, effectUpdate, nil
}

// decideOAuth holds the provider-callback branching, mirroring decideSignup.
func decideOAuth(found, current *Identity, provider, providerUserID, token string, profile Profile, email string, blank func() *Identity) (*Resolution, effect) {
	if current != nil {
		// linking a provider to an authenticated session always overwrites
		current.SetLink(provider, OAuthLink{UserID: providerUserID, Token: token})
		current.fillProfile(profile)
		current.AddEmail(email)
		return &Resolution{Outcome: OutcomeLinked, Identity: current, Message: "Provider linked."}, effectUpdate
	}

	if found != nil {
		if link, _ := found.Link(provider); link.Token != "" {
			// token already present: read-through, no field mutation
			return &Resolution{Outcome: OutcomeUnchanged, Identity: found, Message: "Login successful."}, effectNone
		}
		// stale link without a token: refresh it and backfill the profile
		found.SetLink(provider, OAuthLink{UserID: providerUserID, Token: token})
		found.fillProfile(profile)
		found.AddEmail(email)
		return &Resolution{Outcome: OutcomeLinked, Identity: found, Message: "Provider link refreshed."}, effectUpdate
	}

	ident := blank()
	ident.FirstName = profile.FirstName
	ident.LastName = profile.LastName
	ident.DisplayName = profile.DisplayName
	ident.ensureDisplayName()
	ident.SetLink(provider, OAuthLink{UserID: providerUserID, Token: token})
	ident.AddEmail(email)
	return &Resolution{Outcome: OutcomeCreated, Identity: ident, Message: "Signup successful."}, effectInsert
}

func validateCredentials(email, password string) error {
	if !emailPattern.MatchString(email) {
		return validationErr("Email is not valid.")
	}
	if len(password) < minPasswordLen {
		return validationErr("Password must be at least 6 characters long.")
	}
	return nil
}
