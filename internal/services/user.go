package services

import (
	"context"
	"io"
	"net/http"

	"invoiceweb/portal/internal/apiclient"
	"invoiceweb/portal/internal/models"
)

type UserService struct {
	Resource[models.User]
}

func NewUserService(client *apiclient.Client) *UserService {
	return &UserService{Resource: newResource[models.User](client, "/users")}
}

func (s *UserService) Profile(ctx context.Context) apiclient.Envelope[models.User] {
	return call[models.User](ctx, s.Client, apiclient.Request{Method: http.MethodGet, Path: s.path + "/profile"})
}

func (s *UserService) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) apiclient.Envelope[models.User] {
	return call[models.User](ctx, s.Client, apiclient.Request{Method: http.MethodPut, Path: s.path + "/profile", Body: req})
}

func (s *UserService) UploadAvatar(ctx context.Context, fileName string, file io.Reader) apiclient.Envelope[models.User] {
	return apiclient.Decode[models.User](s.UploadFile(ctx, s.path+"/avatar", "avatar", fileName, file))
}
