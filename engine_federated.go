package authcore

import (
	"context"
	"errors"
	"strings"

	"github.com/catatanlab/authcore/internal"
)

// federatedSuffixBound keeps generated usernames short: local part plus up
// to three digits.
const federatedSuffixBound = 1000

// FederatedSignIn resolves or provisions the account behind an identity
// asserted by an external provider, then issues a session. Resolution is
// three-way: by the provider's stable id stored in the username field,
// else by email (which links the account by overwriting its username with
// the provider id), else a brand-new user and profile. The verification
// gate never applies here; the provider already vouched for the email.
func (e *Engine) FederatedSignIn(ctx context.Context, profile FederatedProfile) (*Session, error) {
	if e == nil || e.directory == nil {
		return nil, ErrEngineNotReady
	}

	profile.ProviderID = strings.TrimSpace(profile.ProviderID)
	profile.Email = strings.TrimSpace(profile.Email)
	if profile.ProviderID == "" || profile.Email == "" {
		return nil, ErrInvalidInput
	}

	user, err := e.resolveFederatedUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	sess, err := e.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricFederatedSignIn)
	e.emitAudit(ctx, auditEventFederatedSignIn, true, user.ID, nil, func() map[string]string {
		return map[string]string{"provider_id": profile.ProviderID}
	})

	return sess, nil
}

func (e *Engine) resolveFederatedUser(ctx context.Context, profile FederatedProfile) (UserRecord, error) {
	user, err := e.directory.FindUserByUsername(ctx, profile.ProviderID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return UserRecord{}, err
	}

	user, err = e.directory.FindUserByEmail(ctx, profile.Email)
	if err == nil {
		// Same email, different credential path: adopt the account by
		// stamping the provider id into its username.
		if err := e.directory.SetUsername(ctx, user.ID, profile.ProviderID); err != nil {
			return UserRecord{}, err
		}
		user.Username = profile.ProviderID
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return UserRecord{}, err
	}

	return e.createFederatedUser(ctx, profile)
}

// createFederatedUser provisions a passwordless account. The username is
// generated from the email local part, not the provider id: the next
// sign-in will miss the id lookup and take the email-link path, which then
// stamps the provider id in.
func (e *Engine) createFederatedUser(ctx context.Context, profile FederatedProfile) (UserRecord, error) {
	localPart, _, _ := strings.Cut(profile.Email, "@")
	suffix, err := internal.NewUsernameSuffix(federatedSuffixBound)
	if err != nil {
		return UserRecord{}, err
	}
	username := localPart + suffix

	user, err := e.directory.CreateUser(ctx, CreateUserInput{
		Email:    profile.Email,
		Username: username,
	})
	if err != nil {
		return UserRecord{}, err
	}

	photo := profile.Photo
	if photo == "" {
		photo = e.config.Account.DefaultProfilePhoto
	}
	if _, err := e.directory.CreateProfile(ctx, CreateProfileInput{
		UserID:   user.ID,
		Name:     profile.Name,
		Username: username,
		Photo:    photo,
	}); err != nil {
		return UserRecord{}, err
	}

	return user, nil
}
