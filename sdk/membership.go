package sdk

import (
	"context"
	"net/http"
)

// LoginRequest is the password grant sent to the login endpoint.
type LoginRequest struct {
	GrantType string `json:"grant_type"`
	UserName  string `json:"username"`
	Password  string `json:"password"`
}

// MembershipClient handles sign-in, registration and account management.
//
// Example:
//
//	token, err := app.Membership.Login(ctx, "alice", "secret")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	user, err := app.Membership.LoadUser(ctx)
type MembershipClient struct {
	app *App

	// Users manages user accounts
	Users *UserClient
	// Roles manages membership roles
	Roles *Resource
}

func newMembershipClient(app *App) *MembershipClient {
	return &MembershipClient{
		app:   app,
		Users: &UserClient{Resource: NewResource(app, "users")},
		Roles: NewResource(app, "lookups/roles"),
	}
}

// Login exchanges credentials for an access token, stores it and
// announces EventTokenUpdated.
func (c *MembershipClient) Login(ctx context.Context, userName, password string) (*Token, error) {
	if userName == "" {
		return nil, NewError(ErrorTypeValidation, "user name cannot be empty", ErrInvalidRequest)
	}
	resp, err := c.app.send(ctx, http.MethodPost, "login", nil, nil, &LoginRequest{
		GrantType: "password",
		UserName:  userName,
		Password:  password,
	})
	if err != nil {
		return nil, err
	}

	token, err := DecodeAs[Token](resp)
	if err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, NewError(ErrorTypeParse, "login response carries no access token", ErrInvalidResponse)
	}
	if err := c.app.UpdateToken(ctx, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// LoadUser fetches the signed-in user and stores it.
func (c *MembershipClient) LoadUser(ctx context.Context) (*User, error) {
	resp, err := c.app.send(ctx, http.MethodGet, "login", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	user, err := DecodeAs[User](resp)
	if err != nil {
		return nil, err
	}
	if err := c.app.SetUser(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout revokes the current token on the platform, then forgets the
// token and the user locally. Without a stored token only the local
// state is cleared.
func (c *MembershipClient) Logout(ctx context.Context) error {
	token, err := c.app.Token(ctx)
	if err != nil {
		return err
	}
	if token != nil {
		_, err := c.app.send(ctx, http.MethodDelete, "login", nil, nil, map[string]string{
			"token": token.AccessToken,
			"type":  token.TokenType,
		})
		if err != nil && !IsUnauthorized(err) {
			return err
		}
		// A 401 has already cleared the token.
		if token, err = c.app.Token(ctx); err != nil {
			return err
		}
	}
	if token != nil {
		if err := c.app.UpdateToken(ctx, nil); err != nil {
			return err
		}
	}
	return c.app.SetUser(ctx, nil)
}

// Register creates a new account. Activation happens with Activate.
func (c *MembershipClient) Register(ctx context.Context, data interface{}) (*Response, error) {
	return c.app.send(ctx, http.MethodPost, "register", nil, nil, data)
}

// Activate confirms an account with the code delivered by e-mail.
func (c *MembershipClient) Activate(ctx context.Context, activationToken string) (*Response, error) {
	if activationToken == "" {
		return nil, NewError(ErrorTypeValidation, "activation token cannot be empty", ErrInvalidRequest)
	}
	return c.app.send(ctx, http.MethodPut, "register/activate/{0}", []string{activationToken}, nil, nil)
}

// RequestPasswordRecovery starts the password recovery flow.
func (c *MembershipClient) RequestPasswordRecovery(ctx context.Context, data interface{}) (*Response, error) {
	return c.app.send(ctx, http.MethodPost, "recover-password", nil, nil, data)
}

// ResetPassword completes the password recovery flow.
func (c *MembershipClient) ResetPassword(ctx context.Context, data interface{}) (*Response, error) {
	return c.app.send(ctx, http.MethodPut, "recover-password", nil, nil, data)
}

// UserClient manages user accounts.
type UserClient struct {
	*Resource
}

// Lock prevents the user from signing in.
func (c *UserClient) Lock(ctx context.Context, id string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "lock", nil)
}

// Unlock reverses Lock.
func (c *UserClient) Unlock(ctx context.Context, id string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "unlock", nil)
}

// Approve approves a pending account.
func (c *UserClient) Approve(ctx context.Context, id string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "approve", nil)
}

// Disapprove reverses Approve.
func (c *UserClient) Disapprove(ctx context.Context, id string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "disapprove", nil)
}

// ChangePassword sets a new password for the user.
func (c *UserClient) ChangePassword(ctx context.Context, id, newPassword string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "change-password", map[string]string{
		"newPassword": newPassword,
	})
}
