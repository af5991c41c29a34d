package secret

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/ssh"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// MinLength is the shortest password or token Password and Token produce.
const MinLength = 12

// Password returns a random alphanumeric string of the given length.
// Alphanumeric output is safe inside connection-string URLs and env files
// without quoting.
func Password(length int) (string, error) {
	if length < MinLength {
		length = MinLength
	}
	max := big.NewInt(int64(len(alphanumeric)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		b.WriteByte(alphanumeric[n.Int64()])
	}
	return b.String(), nil
}

// Token returns a random lowercase hex string of the given length.
func Token(length int) (string, error) {
	if length < MinLength {
		length = MinLength
	}
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf)[:length], nil
}

// HTPasswdLine returns a "user:hash" line using bcrypt, understood by
// Nginx auth_basic_user_file.
func HTPasswdLine(user, password string) (string, error) {
	if user == "" || strings.ContainsAny(user, ":\n") {
		return "", fmt.Errorf("invalid htpasswd user %q", user)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return user + ":" + string(hash) + "\n", nil
}

// VerifyHTPasswd reports whether line matches user and password.
func VerifyHTPasswd(line, user, password string) bool {
	name, hash, ok := strings.Cut(strings.TrimSpace(line), ":")
	if !ok || name != user {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// KeyPair holds an SSH key pair in ready-to-use formats.
type KeyPair struct {
	// PrivateKey is the private key as an OpenSSH PEM block.
	PrivateKey []byte
	// PublicKey is the public key in OpenSSH authorized_keys format.
	PublicKey []byte
}

// DeployKey generates an ed25519 key pair labelled with comment.
func DeployKey(comment string) (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	authorized := strings.TrimSuffix(string(ssh.MarshalAuthorizedKey(sshPub)), "\n")
	if comment != "" {
		authorized += " " + comment
	}

	return &KeyPair{
		PrivateKey: pem.EncodeToMemory(block),
		PublicKey:  []byte(authorized + "\n"),
	}, nil
}
