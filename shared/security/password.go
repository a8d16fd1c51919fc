package security

import (
	"errors"
	"strings"
	"sync"

	"github.com/matthewhartstonge/argon2"
	"golang.org/x/crypto/bcrypt"
)

var ErrUnsupportedHash = errors.New("unsupported password hash format")

var argonConfig = argon2.DefaultConfig()

// DummyHash returns a fixed argon2id hash with the same cost as real ones.
// Verifying against it when no account matches keeps login timing uniform.
var DummyHash = sync.OnceValue(func() string {
	encoded, err := argonConfig.HashEncoded([]byte("glucosense-no-such-account"))
	if err != nil {
		panic(err)
	}
	return string(encoded)
})

// HashPassword returns an argon2id encoded hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}

	encoded, err := argonConfig.HashEncoded([]byte(password))
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// VerifyPassword reports whether password matches the encoded hash.
// Accounts migrated from the previous deployment still carry bcrypt hashes.
func VerifyPassword(password, encodedHash string) (bool, error) {
	switch {
	case encodedHash == "":
		return false, nil
	case strings.HasPrefix(encodedHash, "$argon2"):
		return argon2.VerifyEncoded([]byte(password), []byte(encodedHash))
	case isBcryptHash(encodedHash):
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, ErrUnsupportedHash
	}
}

// NeedsRehash reports whether the hash was produced by a legacy algorithm.
func NeedsRehash(encodedHash string) bool {
	return isBcryptHash(encodedHash)
}

func isBcryptHash(h string) bool {
	return strings.HasPrefix(h, "$2a$") || strings.HasPrefix(h, "$2b$") || strings.HasPrefix(h, "$2y$")
}
