package service

import (
	"context"

	"go-survey-console/internal/model"
	"go-survey-console/internal/rbac"
	"go-survey-console/pkg/apiclient"
	"go-survey-console/pkg/validator"
)

const profilePath = "/auth/profile/"

type ProfileService interface {
	Get(ctx context.Context, api API) (*model.User, error)
	Update(ctx context.Context, api API, sid string, req ProfileUpdateRequest, image *apiclient.File) (*model.User, error)
	ChangePassword(ctx context.Context, api API, req ChangePasswordRequest) error
}

type ProfileUpdateRequest struct {
	Name        string `json:"name" validate:"required"`
	Username    string `json:"username" validate:"required"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,phone_loose"`
}

type ChangePasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type profileService struct {
	resolver *rbac.Resolver
}

func NewProfileService(resolver *rbac.Resolver) ProfileService {
	return &profileService{resolver: resolver}
}

func (s *profileService) Get(ctx context.Context, api API) (*model.User, error) {
	var user model.User
	if err := api.Get(ctx, profilePath, nil, &user); err != nil {
		return nil, fail(err, "Failed to fetch profile data")
	}
	return &user, nil
}

// Update sends only the non-empty fields, plus the image when given.
func (s *profileService) Update(ctx context.Context, api API, sid string, req ProfileUpdateRequest, image *apiclient.File) (*model.User, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	fields := map[string]string{}
	for k, v := range map[string]string{
		"name":         req.Name,
		"username":     req.Username,
		"address":      req.Address,
		"phone_number": req.PhoneNumber,
	} {
		if v != "" {
			fields[k] = v
		}
	}
	var files []apiclient.File
	if image != nil && len(image.Content) > 0 {
		img := *image
		img.Field = "image"
		files = append(files, img)
	}

	var user model.User
	if err := api.PutMultipart(ctx, profilePath, fields, files, &user); err != nil {
		return nil, failDetail(err, "Failed to update profile")
	}
	// The cached set carries the profile.
	s.resolver.Invalidate(sid)
	return &user, nil
}

func (s *profileService) ChangePassword(ctx context.Context, api API, req ChangePasswordRequest) error {
	if err := validator.Check(req); err != nil {
		return err
	}
	fields := map[string]string{
		"new_password":     req.NewPassword,
		"confirm_password": req.ConfirmPassword,
	}
	if err := api.PutMultipart(ctx, profilePath, fields, nil, nil); err != nil {
		return failDetail(err, "Failed to change password")
	}
	return nil
}
