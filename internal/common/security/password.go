package security

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a salted one-way hash of the password. Only the hash
// is ever stored.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash verifies a password candidate against a stored hash using
// bcrypt's constant-time comparison.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
