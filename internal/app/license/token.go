package license

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"licensecloud/internal/app/ds"
)

const tokenSeparator = "."

var tokenEncoding = base64.URLEncoding

// Claims содержимое токена активации. Поля идут в лексикографическом
// порядке ключей, поэтому одинаковые claims всегда дают одинаковые байты.
type Claims struct {
	ActivatedAt *time.Time `json:"activated_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	LicenseID   uint       `json:"license_id"`
	LicenseKey  string     `json:"license_key"`
	LicenseType Type       `json:"license_type"`
	MachineID   string     `json:"machine_id"`
	OrgID       uint       `json:"org_id"`
}

// ClaimsFor собирает claims из текущей записи лицензии.
func ClaimsFor(l *ds.License) Claims {
	c := Claims{
		ActivatedAt: utcPtr(l.ActivatedAt),
		ExpiresAt:   utcPtr(l.ExpiresAt),
		LicenseID:   l.ID,
		LicenseKey:  l.LicenseKey,
		LicenseType: Type(l.LicenseType),
		OrgID:       l.OrgID,
	}
	if l.MachineID != nil {
		c.MachineID = *l.MachineID
	}
	return c
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Signer подписывает и проверяет payload-сегмент токена.
type Signer interface {
	Sign(payload []byte) ([]byte, error)
	Verify(payload, signature []byte) bool
}

// HMACSigner симметричная подпись HMAC-SHA256 на секрете сервера.
// Подпись хранится как hex-строка.
type HMACSigner struct {
	secret []byte
}

func NewHMACSigner(secret []byte) (*HMACSigner, error) {
	if len(secret) == 0 {
		return nil, errors.New("license secret is empty")
	}
	return &HMACSigner{secret: secret}, nil
}

func (s *HMACSigner) Sign(payload []byte) ([]byte, error) {
	return s.mac(payload), nil
}

func (s *HMACSigner) Verify(payload, signature []byte) bool {
	return hmac.Equal(signature, s.mac(payload))
}

func (s *HMACSigner) mac(payload []byte) []byte {
	m := hmac.New(sha256.New, s.secret)
	m.Write(payload)
	sum := m.Sum(nil)
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum)
	return out
}

// Ed25519Signer асимметричная подпись. Без приватного ключа работает
// только на проверку, так можно раздавать публичный ключ клиентам.
type Ed25519Signer struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

func NewEd25519Signer(private ed25519.PrivateKey) (*Ed25519Signer, error) {
	if len(private) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(private))
	}
	return &Ed25519Signer{
		private: private,
		public:  private.Public().(ed25519.PublicKey),
	}, nil
}

func NewEd25519Verifier(public ed25519.PublicKey) (*Ed25519Signer, error) {
	if len(public) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(public))
	}
	return &Ed25519Signer{public: public}, nil
}

func (s *Ed25519Signer) Sign(payload []byte) ([]byte, error) {
	if s.private == nil {
		return nil, errors.New("ed25519 signer has no private key")
	}
	return ed25519.Sign(s.private, payload), nil
}

func (s *Ed25519Signer) Verify(payload, signature []byte) bool {
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(s.public, payload, signature)
}

// PublicKey ключ для проверки токенов на стороне клиента.
func (s *Ed25519Signer) PublicKey() ed25519.PublicKey {
	return s.public
}

// Codec кодирует claims в токен вида payload.signature и обратно.
type Codec struct {
	signer Signer
}

func NewCodec(signer Signer) *Codec {
	return &Codec{signer: signer}
}

func (c *Codec) Encode(claims Claims) (string, error) {
	body, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}
	payload := tokenEncoding.EncodeToString(body)

	sig, err := c.signer.Sign([]byte(payload))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return payload + tokenSeparator + tokenEncoding.EncodeToString(sig), nil
}

// Decode проверяет подпись и возвращает claims.
// Любая ошибка сворачивается в ErrInvalidToken.
func (c *Codec) Decode(token string) (*Claims, error) {
	if strings.Count(token, tokenSeparator) != 1 {
		return nil, ErrInvalidToken
	}
	payload, sigPart, _ := strings.Cut(token, tokenSeparator)
	if payload == "" || sigPart == "" {
		return nil, ErrInvalidToken
	}

	sig, err := tokenEncoding.Strict().DecodeString(sigPart)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !c.signer.Verify([]byte(payload), sig) {
		return nil, ErrInvalidToken
	}

	body, err := tokenEncoding.Strict().DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
