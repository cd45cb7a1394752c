package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	issuer           = "ambassador-program"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	IsStaff   bool   `json:"is_staff"`
	Type      string `json:"type"` // access | refresh
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Tokens signs and validates HS256 access/refresh pairs.
type Tokens struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func NewTokens(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Tokens {
	return &Tokens{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
}

func (t *Tokens) sign(accountID, email string, isStaff bool, tokenType string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := Claims{
		AccountID: accountID,
		Email:     email,
		IsStaff:   isStaff,
		Type:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   accountID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (t *Tokens) GeneratePair(accountID, email string, isStaff bool) (*TokenPair, error) {
	access, err := t.sign(accountID, email, isStaff, tokenTypeAccess, t.AccessTTL, t.AccessSecret)
	if err != nil {
		return nil, err
	}
	refresh, err := t.sign(accountID, email, isStaff, tokenTypeRefresh, t.RefreshTTL, t.RefreshSecret)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (t *Tokens) parse(tokenString, wantType string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Type != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *Tokens) ValidateAccess(tokenString string) (*Claims, error) {
	return t.parse(tokenString, tokenTypeAccess, t.AccessSecret)
}

func (t *Tokens) ValidateRefresh(tokenString string) (*Claims, error) {
	return t.parse(tokenString, tokenTypeRefresh, t.RefreshSecret)
}
