package grpc

import (
	"context"

	"github.com/dmitrijs2005/vaultkeeper/internal/cryptox"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/services"
)

func (s *GRPCServer) Ping(ctx context.Context, _ *Empty) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	user, err := s.svc.Users.Register(ctx, services.RegisterRequest{
		UserName:         req.UserName,
		Email:            req.Email,
		Password:         req.Password,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   req.SecurityAnswer,
		PIN:              req.PIN,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &RegisterResponse{UserID: user.ID}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	tokens, err := s.svc.Users.Login(ctx, req.Email, req.Password, req.AnswerOrPIN)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *RefreshTokenRequest) (*TokenResponse, error) {
	tokens, err := s.svc.Users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *RefreshTokenRequest) (*Empty, error) {
	if err := s.svc.Users.Logout(ctx, req.RefreshToken); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) ListSecrets(ctx context.Context, _ *Empty) (*ListSecretsResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	views, err := s.svc.Secrets.List(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp := &ListSecretsResponse{Secrets: make([]Secret, 0, len(views))}
	for _, v := range views {
		resp.Secrets = append(resp.Secrets, toSecret(v))
	}
	return resp, nil
}

func (s *GRPCServer) GetSecret(ctx context.Context, req *IDRequest) (*Secret, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.svc.Secrets.Get(ctx, userID, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out := toSecret(v)
	return &out, nil
}

func (s *GRPCServer) CreateSecret(ctx context.Context, req *SecretInput) (*Secret, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.svc.Secrets.Create(ctx, userID, req.fields())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out := toSecret(v)
	return &out, nil
}

func (s *GRPCServer) UpdateSecret(ctx context.Context, req *SecretInput) (*Secret, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.svc.Secrets.Update(ctx, userID, req.ID, req.fields())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out := toSecret(v)
	return &out, nil
}

func (s *GRPCServer) DeleteSecret(ctx context.Context, req *IDRequest) (*Empty, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Secrets.Delete(ctx, userID, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) UploadFile(ctx context.Context, req *UploadFileRequest) (*File, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.svc.Files.Upload(ctx, userID, req.Name, req.Content)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out := toFile(v)
	return &out, nil
}

func (s *GRPCServer) DownloadFile(ctx context.Context, req *IDRequest) (*DownloadFileResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	content, name, err := s.svc.Files.Download(ctx, userID, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &DownloadFileResponse{Name: name, Content: content}, nil
}

func (s *GRPCServer) ListFiles(ctx context.Context, _ *Empty) (*ListFilesResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	views, err := s.svc.Files.List(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp := &ListFilesResponse{Files: make([]File, 0, len(views))}
	for _, v := range views {
		resp.Files = append(resp.Files, toFile(v))
	}
	return resp, nil
}

func (s *GRPCServer) DeleteFile(ctx context.Context, req *IDRequest) (*Empty, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Files.Delete(ctx, userID, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) GetProfileSummary(ctx context.Context, _ *Empty) (*ProfileSummary, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sum, err := s.svc.Quota.Summary(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &ProfileSummary{
		PlanName:       sum.PlanName,
		SlotsUsed:      sum.SlotsUsed,
		SlotsTotal:     sum.SlotsTotal,
		StorageUsedMB:  sum.StorageUsedMB,
		StorageTotalGB: sum.StorageTotalGB,
		StoragePercent: sum.StoragePercent,
		NotesTotal:     sum.NotesTotal,
		RemindersTotal: sum.RemindersTotal,
		AdFree:         sum.AdFree,
		TotalAdViews:   sum.TotalAdViews,
	}, nil
}

func (s *GRPCServer) RecordAdView(ctx context.Context, _ *Empty) (*AdViewResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	total, today, err := s.svc.Quota.RecordAdView(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &AdViewResponse{TotalAdViews: total, AdViewsToday: today}, nil
}

// --- conversions ---

func (in *SecretInput) fields() services.SecretFields {
	return services.SecretFields{
		Email:       in.Email,
		Password:    in.Password,
		Secret:      in.Secret,
		SiteURL:     in.SiteURL,
		SiteName:    in.SiteName,
		SiteIconURL: in.SiteIconURL,
	}
}

func fieldStatus(p cryptox.Plaintext) string {
	switch p.Status {
	case cryptox.OK:
		return FieldOK
	case cryptox.Undecryptable:
		return FieldUndecryptable
	default:
		return FieldEmpty
	}
}

// toSecret never copies ciphertext: undecryptable values render as the
// display marker.
func toSecret(v *services.SecretView) Secret {
	return Secret{
		ID:             v.ID,
		Email:          v.Email,
		Password:       v.Password.String(),
		PasswordStatus: fieldStatus(v.Password),
		Secret:         v.Secret.String(),
		SecretStatus:   fieldStatus(v.Secret),
		SiteURL:        v.SiteURL,
		SiteName:       v.SiteName,
		SiteIconURL:    v.SiteIconURL,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
		Frozen:         v.Frozen,
	}
}

func toFile(v *services.FileView) File {
	return File{ID: v.ID, Name: v.Name, SizeBytes: v.SizeBytes, CreatedAt: v.CreatedAt}
}
