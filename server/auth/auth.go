package auth

import (
	"fmt"
	"time"

	"github.com/Daskott/safecircle/server/auth/key"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTokenValidity = 30 * 24 * time.Hour

// PasswordHashCost is the bcrypt cost used when hashing new passwords
var PasswordHashCost = 12

// Used to keep the time spent verifying a password for an unknown email
// the same as that for a known one.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("safecircle-dummy-password"), bcrypt.DefaultCost)

type SafeCircleTokenClaims struct {
	jwt.StandardClaims
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	return string(bytes), err
}

// CheckPasswordHash compares password against hash in constant time.
// An empty hash (i.e. no such user) always fails, after doing the same amount of work.
func CheckPasswordHash(password, hash string) bool {
	if hash == "" {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// NewTokenClaims returns claims for userID which expire after 'validity'
func NewTokenClaims(userID uint, validity time.Duration) SafeCircleTokenClaims {
	if validity <= 0 {
		validity = DefaultTokenValidity
	}

	now := time.Now()
	return SafeCircleTokenClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   fmt.Sprint(userID),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(validity).Unix(),
		},
	}
}

func EncodeJWT(claims SafeCircleTokenClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)
	token.Header["kid"] = keyPair.Kid

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func DecodeJWT(tokenString string, keyPair *key.KeyPair) (*SafeCircleTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SafeCircleTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// validate the alg is what you expect:
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return keyPair.PublicKey, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid jwt: %v", err)
	}

	tokenClaims, ok := token.Claims.(*SafeCircleTokenClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to SafeCircleTokenClaims")
	}

	return tokenClaims, nil
}
