package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotello/internal/apperr"
	"github.com/iliyamo/hotello/internal/keys"
	"github.com/iliyamo/hotello/internal/model"
	"github.com/iliyamo/hotello/internal/ratelimit"
	"github.com/iliyamo/hotello/internal/repository"
)

// ----- in-memory fakes -----

type fakeUsers struct {
	byID map[uint64]model.User
}

func (f *fakeUsers) Create(ctx context.Context, email string, phone *string, firstName, lastName string, age uint8) (uint64, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	id := uint64(len(f.byID) + 1)
	f.byID[id] = model.User{ID: id, Email: email, PhoneNum: phone, FirstName: firstName, LastName: lastName, Age: age, Role: model.RoleCustomer, IsNewUser: true}
	return id, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrSessionNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrSessionNotFound
	}
	return u, nil
}

func (f *fakeUsers) UpdateEmail(ctx context.Context, id uint64, email string) error {
	u := f.byID[id]
	u.Email = email
	f.byID[id] = u
	return nil
}

type fakeSessions struct {
	byID   map[uint64]model.UserSession
	nextID uint64
}

func (f *fakeSessions) Create(ctx context.Context, s *model.UserSession) error {
	f.nextID++
	s.ID = f.nextID
	f.byID[s.ID] = *s
	return nil
}

func (f *fakeSessions) GetByToken(ctx context.Context, sessionToken string) (model.UserSession, error) {
	for _, s := range f.byID {
		if s.SessionToken == sessionToken {
			return s, nil
		}
	}
	return model.UserSession{}, repository.ErrSessionNotFound
}

func (f *fakeSessions) GetByID(ctx context.Context, id uint64) (model.UserSession, error) {
	s, ok := f.byID[id]
	if !ok {
		return model.UserSession{}, repository.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessions) RecordIPChange(ctx context.Context, id uint64, ipHash string, numChanges uint8, requiresVerification bool) error {
	s := f.byID[id]
	if ipHash == "" {
		s.CurrentIPHash = nil
	} else {
		s.CurrentIPHash = &ipHash
	}
	s.NumOfIPChanges = numChanges
	s.RequiresVerification = requiresVerification
	f.byID[id] = s
	return nil
}

func (f *fakeSessions) ClearVerification(ctx context.Context, id uint64) error {
	s := f.byID[id]
	s.RequiresVerification = false
	s.NumOfIPChanges = 0
	f.byID[id] = s
	return nil
}

func (f *fakeSessions) DeleteByToken(ctx context.Context, sessionToken string) error {
	for id, s := range f.byID {
		if s.SessionToken == sessionToken {
			delete(f.byID, id)
			return nil
		}
	}
	return repository.ErrSessionNotFound
}

func (f *fakeSessions) DeleteAllForUser(ctx context.Context, userID uint64) error {
	for id, s := range f.byID {
		if s.UserID == userID {
			delete(f.byID, id)
		}
	}
	return nil
}

type fakeCodes struct {
	byID   map[uint64]model.EmailVerificationCode
	nextID uint64
}

func (f *fakeCodes) Create(ctx context.Context, c *model.EmailVerificationCode) error {
	f.nextID++
	c.ID = f.nextID
	f.byID[c.ID] = *c
	return nil
}

func (f *fakeCodes) GetUnused(ctx context.Context, userID uint64, code string) (model.EmailVerificationCode, error) {
	for _, c := range f.byID {
		if c.UserID == userID && c.Code == code && !c.AlreadyUsed {
			return c, nil
		}
	}
	return model.EmailVerificationCode{}, repository.ErrCodeNotFound
}

func (f *fakeCodes) MarkUsed(ctx context.Context, id uint64) error {
	c := f.byID[id]
	c.AlreadyUsed = true
	f.byID[id] = c
	return nil
}

func (f *fakeCodes) MarkAllUsedForUser(ctx context.Context, userID uint64) error {
	for id, c := range f.byID {
		if c.UserID == userID {
			c.AlreadyUsed = true
			f.byID[id] = c
		}
	}
	return nil
}

type fakeMailer struct {
	codes []string
	fail  bool
}

func (m *fakeMailer) SendVerificationCode(to, code string) error {
	if m.fail {
		return assert.AnError
	}
	m.codes = append(m.codes, code)
	return nil
}

func (m *fakeMailer) SendBookingConfirmation(to string, bookingID uint64, totalCents uint32) error {
	return nil
}

func (m *fakeMailer) SendEmailChangeLink(to, confirmURL string) error { return nil }

type fixture struct {
	svc      *Service
	users    *fakeUsers
	sessions *fakeSessions
	codes    *fakeCodes
	mail     *fakeMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    &fakeUsers{byID: map[uint64]model.User{}},
		sessions: &fakeSessions{byID: map[uint64]model.UserSession{}},
		codes:    &fakeCodes{byID: map[uint64]model.EmailVerificationCode{}},
		mail:     &fakeMailer{},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(f.users, f.sessions, f.codes, ratelimit.New(nil), f.mail, "test-passphrase", log)
	f.users.byID[1] = model.User{ID: 1, Email: "guest@example.com", FirstName: "Pat", LastName: "Guest", Age: 30, Role: model.RoleCustomer}
	return f
}

// login runs the full email-code flow and returns the credential.
func (f *fixture) login(t *testing.T, ip string) (string, uint64) {
	t.Helper()
	ctx := context.Background()
	u, err := f.svc.Login(ctx, "guest@example.com", ip)
	require.NoError(t, err)
	code := f.mail.codes[len(f.mail.codes)-1]
	res, err := f.svc.ConsumeCode(ctx, u.ID, code, nil, ip)
	require.NoError(t, err)
	require.NotEmpty(t, res.Credential)
	return res.Credential, res.SessionID
}

// ----- tests -----

func TestLoginMailsCode(t *testing.T) {
	f := newFixture(t)

	u, err := f.svc.Login(context.Background(), "guest@example.com", "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.ID)
	require.Len(t, f.mail.codes, 1)
	assert.Len(t, f.mail.codes[0], 6)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), "nobody@example.com", "203.0.113.7")
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestConsumeCodeEstablishesVerifiableSession(t *testing.T) {
	f := newFixture(t)
	cred, sid := f.login(t, "203.0.113.7")

	sess, err := f.svc.Authenticate(context.Background(), cred, "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, sid, sess.ID)
	assert.Equal(t, uint64(1), sess.UserID)
}

func TestCodeIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "guest@example.com", "203.0.113.7")
	require.NoError(t, err)
	code := f.mail.codes[0]

	_, err = f.svc.ConsumeCode(ctx, 1, code, nil, "203.0.113.7")
	require.NoError(t, err)

	_, err = f.svc.ConsumeCode(ctx, 1, code, nil, "203.0.113.7")
	assert.True(t, apperr.IsKind(err, apperr.Unauthorized), "a consumed code must not be replayable")
}

func TestFreshLoginInvalidatesOutstandingCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "guest@example.com", "203.0.113.7")
	require.NoError(t, err)
	first := f.mail.codes[0]

	require.NoError(t, f.svc.Resend(ctx, 1, "203.0.113.7"))
	second := f.mail.codes[1]

	// Consuming the second code kills the first.
	_, err = f.svc.ConsumeCode(ctx, 1, second, nil, "203.0.113.7")
	require.NoError(t, err)

	_, err = f.svc.ConsumeCode(ctx, 1, first, nil, "203.0.113.7")
	assert.True(t, apperr.IsKind(err, apperr.Unauthorized))
}

func TestExpiredCodeRejectedDistinctly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code := model.EmailVerificationCode{
		UserID:    1,
		Code:      "111111",
		ExpiresOn: time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, f.codes.Create(ctx, &code))

	_, err := f.svc.ConsumeCode(ctx, 1, "111111", nil, "203.0.113.7")
	require.True(t, apperr.IsKind(err, apperr.Unauthorized))
	assert.Equal(t, "code expired", apperr.From(err).Message)
}

func TestWrongCodeRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ConsumeCode(context.Background(), 1, "000000", nil, "203.0.113.7")
	require.True(t, apperr.IsKind(err, apperr.Unauthorized))
	assert.Equal(t, "invalid code", apperr.From(err).Message)
}

func TestAuthenticateRejectsMalformedCredential(t *testing.T) {
	f := newFixture(t)

	for _, cred := range []string{"", "no-separator", ":sig-only", "token-only:"} {
		_, err := f.svc.Authenticate(context.Background(), cred, "203.0.113.7")
		assert.True(t, apperr.IsKind(err, apperr.Unauthorized), "cred=%q", cred)
	}
}

func TestAuthenticateRejectsForgedSignature(t *testing.T) {
	f := newFixture(t)
	cred, _ := f.login(t, "203.0.113.7")

	token, _, _ := splitCredential(cred)
	forged := token + ":deadbeef"
	_, err := f.svc.Authenticate(context.Background(), forged, "203.0.113.7")
	assert.True(t, apperr.IsKind(err, apperr.Unauthorized))
}

func splitCredential(cred string) (token, sig string, ok bool) {
	for i := 0; i < len(cred); i++ {
		if cred[i] == ':' {
			return cred[:i], cred[i+1:], true
		}
	}
	return "", "", false
}

func TestIPAnomalyFlagsSessionOnThirdChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cred, sid := f.login(t, "203.0.113.1")

	// Two changed addresses pass while counting up.
	_, err := f.svc.Authenticate(ctx, cred, "203.0.113.2")
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, cred, "203.0.113.3")
	require.NoError(t, err)

	// The third distinct address crosses the threshold.
	_, err = f.svc.Authenticate(ctx, cred, "203.0.113.4")
	require.True(t, apperr.IsKind(err, apperr.ForbiddenReverify))
	ae := apperr.From(err)
	assert.Equal(t, sid, ae.SessionID)
	assert.Equal(t, uint64(1), ae.UserID)

	// The flag sticks even from the original address.
	_, err = f.svc.Authenticate(ctx, cred, "203.0.113.1")
	assert.True(t, apperr.IsKind(err, apperr.ForbiddenReverify))
}

func TestStableIPNeverFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cred, _ := f.login(t, "203.0.113.1")

	for i := 0; i < 10; i++ {
		_, err := f.svc.Authenticate(ctx, cred, "203.0.113.1")
		require.NoError(t, err)
	}
}

func TestMissingIPCountsAsChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cred, _ := f.login(t, "203.0.113.1")

	_, err := f.svc.Authenticate(ctx, cred, "")
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, cred, "")
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, cred, "")
	assert.True(t, apperr.IsKind(err, apperr.ForbiddenReverify),
		"an address the proxy stripped is still an anomaly signal")
}

func TestAnomalyTriggersReverificationEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cred, _ := f.login(t, "203.0.113.1")
	mailed := len(f.mail.codes)

	_, _ = f.svc.Authenticate(ctx, cred, "203.0.113.2")
	_, _ = f.svc.Authenticate(ctx, cred, "203.0.113.3")
	_, err := f.svc.Authenticate(ctx, cred, "203.0.113.4")
	require.True(t, apperr.IsKind(err, apperr.ForbiddenReverify))

	assert.Equal(t, mailed+1, len(f.mail.codes), "crossing the threshold mails a challenge code")
}

func TestReverifyRestoresFlaggedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cred, sid := f.login(t, "203.0.113.1")

	_, _ = f.svc.Authenticate(ctx, cred, "203.0.113.2")
	_, _ = f.svc.Authenticate(ctx, cred, "203.0.113.3")
	_, err := f.svc.Authenticate(ctx, cred, "203.0.113.4")
	require.True(t, apperr.IsKind(err, apperr.ForbiddenReverify))

	code := f.mail.codes[len(f.mail.codes)-1]
	res, err := f.svc.ConsumeCode(ctx, 1, code, &sid, "203.0.113.4")
	require.NoError(t, err)
	assert.Empty(t, res.Credential, "reverification restores, it does not mint a new session")
	assert.Equal(t, sid, res.SessionID)

	// The same credential works again and the counter restarted: two
	// fresh addresses pass before a third change flags the session
	// again. Without the reset the very next new address would flag.
	_, err = f.svc.Authenticate(ctx, cred, "203.0.113.4")
	assert.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, cred, "203.0.113.5")
	assert.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, cred, "203.0.113.6")
	assert.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, cred, "203.0.113.7")
	assert.True(t, apperr.IsKind(err, apperr.ForbiddenReverify))
}

func TestReverifyRejectsForeignSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.users.byID[2] = model.User{ID: 2, Email: "other@example.com", Role: model.RoleCustomer}

	// A session owned by user 2.
	other := model.UserSession{UserID: 2, SessionToken: "tok-2", ExpiresOn: time.Now().UTC().Add(time.Hour)}
	require.NoError(t, f.sessions.Create(ctx, &other))

	code := model.EmailVerificationCode{UserID: 1, Code: "222222", ExpiresOn: time.Now().UTC().Add(time.Minute)}
	require.NoError(t, f.codes.Create(ctx, &code))

	_, err := f.svc.ConsumeCode(ctx, 1, "222222", &other.ID, "203.0.113.1")
	assert.True(t, apperr.IsKind(err, apperr.Unauthorized),
		"user 1's code must not restore user 2's session")
}

func TestExpiredSessionRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cred, sid := f.login(t, "203.0.113.1")

	s := f.sessions.byID[sid]
	s.ExpiresOn = time.Now().UTC().Add(-time.Minute)
	f.sessions.byID[sid] = s

	_, err := f.svc.Authenticate(ctx, cred, "203.0.113.1")
	require.True(t, apperr.IsKind(err, apperr.Unauthorized))
	assert.Equal(t, "session expired", apperr.From(err).Message)
}

func TestReverifyCheckedBeforeExpiry(t *testing.T) {
	// A session that is both flagged and expired answers with the
	// reverify signal: the flag check runs first by contract.
	f := newFixture(t)
	ctx := context.Background()
	cred, sid := f.login(t, "203.0.113.1")

	s := f.sessions.byID[sid]
	s.RequiresVerification = true
	s.ExpiresOn = time.Now().UTC().Add(-time.Minute)
	f.sessions.byID[sid] = s

	_, err := f.svc.Authenticate(ctx, cred, "203.0.113.1")
	assert.True(t, apperr.IsKind(err, apperr.ForbiddenReverify))
}

func TestLogoutRemovesSingleSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cred, _ := f.login(t, "203.0.113.1")
	cred2, _ := f.login(t, "203.0.113.1")

	token, _, ok := splitCredential(cred)
	require.True(t, ok)
	require.NoError(t, f.svc.Logout(ctx, token))

	_, err := f.svc.Authenticate(ctx, cred, "203.0.113.1")
	assert.True(t, apperr.IsKind(err, apperr.Unauthorized))

	_, err = f.svc.Authenticate(ctx, cred2, "203.0.113.1")
	assert.NoError(t, err, "other sessions survive a single logout")
}

func TestLogoutAllRemovesEverySession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cred1, _ := f.login(t, "203.0.113.1")
	cred2, _ := f.login(t, "203.0.113.1")

	require.NoError(t, f.svc.LogoutAll(ctx, 1))

	for _, cred := range []string{cred1, cred2} {
		_, err := f.svc.Authenticate(ctx, cred, "203.0.113.1")
		assert.True(t, apperr.IsKind(err, apperr.Unauthorized))
	}
}

func TestSignupCreatesAccountAndMailsCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	uid, err := f.svc.Signup(ctx, SignupInput{
		Email:     "new@example.com",
		FirstName: "Ada",
		LastName:  "Guest",
		Age:       25,
	}, "203.0.113.9")
	require.NoError(t, err)
	assert.NotZero(t, uid)
	assert.NotEmpty(t, f.mail.codes)
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Signup(context.Background(), SignupInput{
		Email:     "guest@example.com",
		FirstName: "Pat",
		LastName:  "Guest",
	}, "203.0.113.9")
	assert.True(t, apperr.IsKind(err, apperr.Conflict))
}

func TestMailFailureDoesNotRecordCooldownOrLeakAddress(t *testing.T) {
	f := newFixture(t)
	f.mail.fail = true

	_, err := f.svc.Login(context.Background(), "guest@example.com", "203.0.113.7")
	require.True(t, apperr.IsKind(err, apperr.Upstream))
	assert.NotContains(t, apperr.From(err).Message, "guest@example.com")
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateCode()
		require.Len(t, code, 6)
		for _, ch := range code {
			assert.True(t, ch >= '1' && ch <= '9', "code %q has digit outside 1-9", code)
		}
	}
}

func TestSessionCredentialVerifiesAgainstStoredPublicKey(t *testing.T) {
	f := newFixture(t)
	cred, sid := f.login(t, "203.0.113.1")

	token, sig, ok := splitCredential(cred)
	require.True(t, ok)
	sess := f.sessions.byID[sid]
	assert.True(t, keys.Verify(token, sig, sess.PublicVerificationToken))
}
