package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind 区分访问令牌与刷新令牌，两者不能互相替代。
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	ErrInvalidToken = errors.New("令牌无效或已过期")
	ErrWrongKind    = errors.New("令牌类型不匹配")
)

// Claims 是签入令牌的数据。Subject 保存用户ID。
type Claims struct {
	Kind Kind `json:"typ"`
	jwt.RegisteredClaims
}

// UserID 解析 Subject 中的用户ID
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject 不是用户ID", ErrInvalidToken)
	}
	return uint(id), nil
}

// Pair 是登录或刷新后返回给客户端的令牌组
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Issuer 使用HMAC-SHA256签发和校验令牌。
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer 创建一个令牌签发器。
func NewIssuer(secret []byte, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("令牌密钥不能为空")
	}
	return &Issuer{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}, nil
}

// RandomSecret 生成一个密码学安全的32字节随机密钥。
// 用它签发的令牌在进程重启后全部失效。
func RandomSecret() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("无法生成安全的密钥: %w", err)
	}
	return key, nil
}

func (i *Issuer) sign(userID uint, kind Kind, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// IssueAccess 签发访问令牌
func (i *Issuer) IssueAccess(userID uint) (string, error) {
	return i.sign(userID, KindAccess, i.accessTTL)
}

// IssuePair 签发一组新的访问令牌和刷新令牌
func (i *Issuer) IssuePair(userID uint) (Pair, error) {
	access, err := i.IssueAccess(userID)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.sign(userID, KindRefresh, i.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Parse 校验签名、有效期和令牌类型，返回其中的声明。
func (i *Issuer) Parse(raw string, want Kind) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Kind != want {
		return nil, ErrWrongKind
	}
	return claims, nil
}
