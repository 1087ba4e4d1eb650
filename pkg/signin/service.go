package signin

import (
	"context"
	"fmt"
	"time"

	"github.com/openshelf/critique/pkg/accounts"
	"github.com/openshelf/critique/pkg/mailer"
)

// AccountStore is the slice of the account store the credential flow needs
type AccountStore interface {
	CheckIdentityConflict(ctx context.Context, username, email string) error
	FindOrCreate(ctx context.Context, username, email string) (*accounts.Account, error)
	GetByUsername(ctx context.Context, username string) (*accounts.Account, error)
	TouchLastLogin(ctx context.Context, id int64, when time.Time) error
}

// Service orchestrates the two credential flow operations
type Service struct {
	store  AccountStore
	mailer mailer.Mailer
	codes  *CodeGenerator
	tokens *TokenIssuer
}

// NewService creates a credential flow service
func NewService(store AccountStore, m mailer.Mailer, codes *CodeGenerator, tokens *TokenIssuer) *Service {
	return &Service{
		store:  store,
		mailer: m,
		codes:  codes,
		tokens: tokens,
	}
}

const (
	mailSubject  = "Your confirmation code"
	mailTemplate = "Hello %s,\n\nYour confirmation code is: %s\n\nThe code is valid for a short time and stops working after you sign in."
)

// RequestCode validates the identity pair, finds or creates the account,
// derives a confirmation code and dispatches it to the given email. The code
// itself is never returned to the caller.
func (s *Service) RequestCode(ctx context.Context, username, email string) (*accounts.Account, error) {
	if err := accounts.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := accounts.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := s.store.CheckIdentityConflict(ctx, username, email); err != nil {
		return nil, err
	}

	account, err := s.store.FindOrCreate(ctx, username, email)
	if err != nil {
		return nil, err
	}

	code := s.codes.Generate(account)
	body := fmt.Sprintf(mailTemplate, account.Username, code)
	if err := s.mailer.Send(account.Email, mailSubject, body); err != nil {
		return nil, fmt.Errorf("failed to send confirmation code: %w", err)
	}
	return account, nil
}

// IssueToken verifies a confirmation code for the named account and returns
// a signed access token. A missing account is a not-found outcome; a wrong
// or expired code is a validation error and no token is issued.
func (s *Service) IssueToken(ctx context.Context, username, code string) (string, error) {
	account, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	if err := s.codes.Verify(account, code); err != nil {
		return "", err
	}

	token, err := s.tokens.Issue(account.ID, account.Username)
	if err != nil {
		return "", err
	}

	// Consumes the code: the login timestamp is part of the state codes are
	// derived from.
	if err := s.store.TouchLastLogin(ctx, account.ID, time.Now()); err != nil {
		return "", err
	}
	return token, nil
}
