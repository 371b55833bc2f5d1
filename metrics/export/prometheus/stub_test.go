package prometheus

import (
	"context"

	yggAuth "github.com/nsiso/yggAuth"
)

type stubClient struct{}

func (stubClient) Authenticate(context.Context, yggAuth.AuthenticateRequest) (*yggAuth.AuthenticateResponse, error) {
	return &yggAuth.AuthenticateResponse{Success: true, StatusCode: 200, AccessToken: "t"}, nil
}

func (stubClient) Validate(context.Context, yggAuth.TokenRequest) (*yggAuth.ValidateResponse, error) {
	return &yggAuth.ValidateResponse{Success: true, StatusCode: 204}, nil
}

func (stubClient) Refresh(context.Context, yggAuth.TokenRequest) (*yggAuth.RefreshResponse, error) {
	return &yggAuth.RefreshResponse{Success: true, StatusCode: 200, AccessToken: "t2"}, nil
}
