package catalog

import (
	"crypto/rand"
	"math/big"

	"github.com/crolens/crolens-api/internal/catalog/models"
)

// base62Alphabet contains characters for key generation (0-9, A-Z, a-z),
// identical to the teacher's scheme.
var base62Alphabet = []byte("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz")

// apiKeyRandLen is the number of random characters appended to the prefix.
const apiKeyRandLen = 40

// GenerateAPIKey creates a new key of the form "cl_sk_" + 40 base62 chars.
func GenerateAPIKey() (string, error) {
	result := make([]byte, apiKeyRandLen)
	alphabetLen := big.NewInt(int64(len(base62Alphabet)))

	for i := 0; i < apiKeyRandLen; i++ {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		result[i] = base62Alphabet[idx.Int64()]
	}

	return models.APIKeyPrefix + string(result), nil
}

// KeyPrefix returns the first APIKeyPrefixLen characters of key (all of
// key if it is shorter). Unlike the teacher's hashed-secret keys, client API keys here are
// looked up by their full value (see sqlite.GetOrCreateAPIKey) since the
// key itself, not a derived secret, is the catalog's primary key — there
// is nothing sensitive to hide behind a hash, unlike the admin password.
func KeyPrefix(key string) string {
	if len(key) < models.APIKeyPrefixLen {
		return key
	}
	return key[:models.APIKeyPrefixLen]
}

// LooksLikeAPIKey reports whether s has the syntactic shape of a client key.
func LooksLikeAPIKey(s string) bool {
	return len(s) > len(models.APIKeyPrefix) && s[:len(models.APIKeyPrefix)] == models.APIKeyPrefix
}
