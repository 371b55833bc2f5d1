package yggdrasil

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	yggAuth "github.com/nsiso/yggAuth"
)

type agent struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

type authenticateRequest struct {
	Agent       agent  `json:"agent"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	ClientToken string `json:"clientToken,omitempty"`
	RequestUser bool   `json:"requestUser"`
}

type authenticateResponse struct {
	AccessToken       string        `json:"accessToken"`
	ClientToken       string        `json:"clientToken"`
	AvailableProfiles []wireProfile `json:"availableProfiles"`
	SelectedProfile   *wireProfile  `json:"selectedProfile"`
	User              *wireUser     `json:"user"`
}

type validateRequest struct {
	AccessToken string `json:"accessToken"`
	ClientToken string `json:"clientToken,omitempty"`
}

type refreshRequest struct {
	AccessToken string `json:"accessToken"`
	ClientToken string `json:"clientToken,omitempty"`
	RequestUser bool   `json:"requestUser"`
}

type refreshResponse struct {
	AccessToken     string       `json:"accessToken"`
	ClientToken     string       `json:"clientToken"`
	SelectedProfile *wireProfile `json:"selectedProfile"`
	User            *wireUser    `json:"user"`
}

type errorResponse struct {
	Error        string `json:"error"`
	ErrorMessage string `json:"errorMessage"`
	Cause        string `json:"cause"`
}

// wireProfile carries profile ids as undashed hex.
type wireProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireUser struct {
	ID         string                 `json:"id"`
	Properties []yggAuth.UserProperty `json:"properties"`
}

func (p *wireProfile) profile() (*yggAuth.Profile, error) {
	if p == nil {
		return nil, nil
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "profile %q has invalid id %q", p.Name, p.ID)
	}
	return &yggAuth.Profile{ID: id, Name: p.Name}, nil
}

func (u *wireUser) user() *yggAuth.UserData {
	if u == nil {
		return nil
	}
	return &yggAuth.UserData{ID: u.ID, Properties: u.Properties}
}

func profiles(in []wireProfile) ([]yggAuth.Profile, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]yggAuth.Profile, 0, len(in))
	for i := range in {
		p, err := in[i].profile()
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// UndashedID formats id the way Yggdrasil servers expect it on the wire.
func UndashedID(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}

func (r errorResponse) toError(status int) *yggAuth.Error {
	msg := r.ErrorMessage
	if msg == "" {
		msg = r.Cause
	}
	return &yggAuth.Error{
		Kind:       r.Error,
		Message:    msg,
		StatusCode: status,
	}
}
