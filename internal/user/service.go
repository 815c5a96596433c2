package user

import (
	"context"
	"errors"
	"strings"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/SlpAus/qa-raffle-backend/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadCredentials      = apperror.NotAuthenticated("用户名或密码错误")
	ErrInvalidCredential   = apperror.NotAuthenticated("身份凭证无效")
	ErrInvalidRefreshToken = apperror.NotAuthenticated("刷新令牌无效")
)

// RegisterInput 是注册请求
type RegisterInput struct {
	Username         string  `json:"username" form:"username" binding:"required,max=64"`
	Password         string  `json:"password" form:"password" binding:"required"`
	QQ               *string `json:"qq" form:"qq"`
	Phone            *string `json:"phone" form:"phone"`
	ManagePermission bool    `json:"manage_permission" form:"manage_permission"`
}

// UpdateInput 是修改个人信息的请求，只修改出现的字段
type UpdateInput struct {
	Username *string `json:"username" binding:"omitempty,min=1,max=64"`
	QQ       *string `json:"qq"`
	Phone    *string `json:"phone"`
}

// ChangePasswordInput 是不需要登录的改密请求
type ChangePasswordInput struct {
	Username    string `json:"username" form:"username" binding:"required"`
	OldPassword string `json:"old_password" form:"old_password" binding:"required"`
	NewPassword string `json:"new_password" form:"new_password" binding:"required"`
}

// LoginResult 是登录或刷新令牌的结果
type LoginResult struct {
	token.Pair
	Username string `json:"username"`
}

// Service 实现注册、登录和个人信息管理
type Service struct {
	repo   *Repository
	issuer *token.Issuer
	cost   int
}

// NewService 创建用户服务
func NewService(repo *Repository, issuer *token.Issuer) *Service {
	return &Service{repo: repo, issuer: issuer, cost: bcrypt.DefaultCost}
}

func (s *Service) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Register 注册一个普通用户或管理者
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, apperror.InvalidState("用户名不能为空")
	}
	hashed, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Username:         username,
		HashedPassword:   hashed,
		QQ:               in.QQ,
		Phone:            in.Phone,
		ManagePermission: in.ManagePermission,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// checkPassword 校验用户名和密码，用户不存在与密码错误返回同一个错误
func (s *Service) checkPassword(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// Login 校验密码并签发访问令牌和刷新令牌
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.checkPassword(ctx, username, password)
	if err != nil {
		return nil, err
	}
	pair, err := s.issuer.IssuePair(u.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Pair: pair, Username: u.Username}, nil
}

// Refresh 用刷新令牌换取新的访问令牌，刷新令牌本身原样返回
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.issuer.Parse(refreshToken, token.KindRefresh)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	access, err := s.issuer.IssueAccess(u.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Pair:     token.Pair{AccessToken: access, RefreshToken: refreshToken, TokenType: "bearer"},
		Username: u.Username,
	}, nil
}

// Get 返回用户信息
func (s *Service) Get(ctx context.Context, id uint) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Update 修改用户名和联系方式
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return nil, apperror.InvalidState("用户名不能为空")
		}
		u.Username = username
	}
	if in.QQ != nil {
		u.QQ = in.QQ
	}
	if in.Phone != nil {
		u.Phone = in.Phone
	}
	if err := s.repo.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword 用旧密码换新密码
func (s *Service) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	u, err := s.checkPassword(ctx, in.Username, in.OldPassword)
	if err != nil {
		return err
	}
	hashed, err := s.hash(in.NewPassword)
	if err != nil {
		return err
	}
	u.HashedPassword = hashed
	return s.repo.Save(ctx, u)
}

// Delete 注销用户。用户的参与记录作为历史保留。
func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

// Verify 实现 Verifier：解析访问令牌，并确认用户仍然存在
func (s *Service) Verify(ctx context.Context, accessToken string) (Identity, error) {
	claims, err := s.issuer.Parse(accessToken, token.KindAccess)
	if err != nil {
		return Identity{}, ErrInvalidCredential
	}
	id, err := claims.UserID()
	if err != nil {
		return Identity{}, ErrInvalidCredential
	}
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return Identity{}, ErrInvalidCredential
	}
	if err != nil {
		return Identity{}, err
	}
	return u.Identity(), nil
}
