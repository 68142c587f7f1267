package auth

import (
	"fmt"
	"time"

	"github.com/Daskott/phonebook/server/auth/key"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

const TOKEN_ISSUER = "phonebook"

// HashCost is the bcrypt cost used for new password hashes.
var HashCost = 14

// PhonebookTokenClaims carries the identity of a logged in user. The
// subject is the user's email, which is also the contact ownership key.
type PhonebookTokenClaims struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	jwt.StandardClaims
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// NewClaims builds claims for email that expire after ttl.
func NewClaims(email, firstName, lastName string, ttl time.Duration) PhonebookTokenClaims {
	now := time.Now()
	return PhonebookTokenClaims{
		FirstName: firstName,
		LastName:  lastName,
		StandardClaims: jwt.StandardClaims{
			Subject:   email,
			Issuer:    TOKEN_ISSUER,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
}

func EncodeJWT(claims PhonebookTokenClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)
	token.Header["kid"] = keyPair.Kid

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func DecodeJWT(tokenString string, keyPair *key.KeyPair) (*PhonebookTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &PhonebookTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// validate the alg is what you expect:
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return keyPair.PublicKey, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid jwt: %v", err)
	}

	tokenClaims, ok := token.Claims.(*PhonebookTokenClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to PhonebookTokenClaims")
	}

	if tokenClaims.Subject == "" {
		return nil, fmt.Errorf("invalid jwt: missing subject")
	}

	return tokenClaims, nil
}
